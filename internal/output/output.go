package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"taskhub/internal/models"
)

// UI writes colored CLI output.
type UI struct {
	Verbose bool
	Out     io.Writer
	ErrOut  io.Writer
}

func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  →")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
)

func Cyan(s string) string   { return cyan(s) }
func Yellow(s string) string { return yellow(s) }
func Red(s string) string    { return red(s) }

// StatusColor colors a task status label.
func StatusColor(s models.TaskStatus) string {
	label := s.Label()
	switch s {
	case models.TaskTodo:
		return label
	case models.TaskInProgress, models.TaskReview:
		return yellow(label)
	case models.TaskCompleted:
		return green(label)
	case models.TaskBlocked:
		return red(label)
	}
	return label
}

func PriorityColor(p models.TaskPriority) string {
	label := p.Label()
	switch p {
	case models.PriorityHigh:
		return yellow(label)
	case models.PriorityUrgent:
		return red(label)
	}
	return label
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

// Table creates a borderless, left-aligned tablewriter.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// Tasks renders one row per task.
func (u *UI) Tasks(tasks []models.Task) error {
	table := u.Table([]string{"ID", "TITLE", "PROJECT", "TYPE", "STATUS", "PRIORITY", "DUE", "ASSIGNEE"})
	for _, t := range tasks {
		kind := t.TaskType()
		if kind == "" {
			kind = "task"
		}
		assignee := "-"
		if t.AssignedTo != nil {
			assignee = t.AssignedTo.Username
		}
		due := t.DueDate.Format("2006-01-02 15:04")
		if t.IsOverdue {
			due = red(due)
		}
		if err := table.Append([]string{
			fmt.Sprintf("%d", t.ID),
			t.Title,
			t.ProjectName,
			kind,
			StatusColor(t.Status),
			PriorityColor(t.Priority),
			due,
			assignee,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
