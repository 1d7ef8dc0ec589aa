package main

import (
	"time"

	"github.com/spf13/cobra"

	"taskhub/internal/scheduler"
)

var sweepNotify bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "List overdue tasks and optionally send overdue notifications",
	Long: `List every active overdue task.

With --notify the overdue sweep runs synchronously: each overdue todo or
in-progress task whose assignee has an email gets an "Overdue Task" message.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		tasks, err := a.TaskSvc.Overdue(ctx)
		if err != nil {
			return err
		}
		ui.Success("Found %d overdue tasks at %s", len(tasks), time.Now().Format(time.RFC3339))
		if len(tasks) > 0 {
			if err := ui.Tasks(tasks); err != nil {
				return err
			}
		}

		if !sweepNotify {
			return nil
		}
		n, err := a.NotificationService(scheduler.Inline{Ctx: ctx}).SweepOverdue(ctx)
		if err != nil {
			return err
		}
		ui.Success("overdue sweep queued notifications for %d open tasks", n)
		return nil
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepNotify, "notify", false, "Send overdue notifications")
	rootCmd.AddCommand(sweepCmd)
}
