package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveNoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if !serveNoMigrate {
			applied, err := a.Migrate(ctx)
			if err != nil {
				return err
			}
			for _, name := range applied {
				ui.Success("applied %s", name)
			}
		}
		return a.Serve(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoMigrate, "no-migrate", false, "Skip applying pending migrations on start")
	rootCmd.AddCommand(serveCmd)
}

// cmd.Context() is nil when commands are executed without ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
