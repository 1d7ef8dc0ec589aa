package main

import (
	"github.com/spf13/cobra"
)

var seedNotify bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create sample users, projects and tasks",
	Long: `Create five users (user1..user5, password "password123"), three projects
and eight development/design tasks. Rows that already exist are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Seed(ctx, seedNotify)
		if err != nil {
			return err
		}
		ui.VerboseLog("users=%d projects=%d tasks=%d", res.Users, res.Projects, res.Tasks)
		ui.Success("Successfully created sample data!")
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedNotify, "notify", false, "Send task-assigned notifications for created tasks")
	rootCmd.AddCommand(seedCmd)
}
