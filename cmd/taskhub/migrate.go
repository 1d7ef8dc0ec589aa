package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		applied, err := a.Migrate(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			ui.Info("database is up to date")
			return nil
		}
		for _, name := range applied {
			ui.Success("applied %s", name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
