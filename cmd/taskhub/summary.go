package main

import (
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Send the daily task summary now",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		sent, err := a.Notify.SendDailySummary(ctx)
		if err != nil {
			return err
		}
		ui.Success("daily summary sent to %d users", sent)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}
