package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskhub/internal/app"
	"taskhub/internal/config"
	"taskhub/internal/logging"
	"taskhub/internal/output"
)

var (
	ui      = output.New()
	cfg     *config.Config
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "taskhub",
	Short: "Project and task tracking service",
	Long: `taskhub tracks projects and their tasks (plain, development and design),
serves the HTTP API and runs the overdue and daily-summary notification jobs.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Verbose = verbose
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		return logging.Init(cfg.Log)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// openApp wires the application against the configured database.
func openApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open app: %w", err)
	}
	ui.VerboseLog("connected to database")
	return a, nil
}
