// internal/models/task.go
package models

import (
	"strings"
	"time"
)

// TaskStatus defines the possible statuses for a task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskCompleted  TaskStatus = "completed"
	TaskBlocked    TaskStatus = "blocked"
)

var taskStatusLabels = map[TaskStatus]string{
	TaskTodo:       "To Do",
	TaskInProgress: "In Progress",
	TaskReview:     "Review",
	TaskCompleted:  "Completed",
	TaskBlocked:    "Blocked",
}

func (s TaskStatus) Valid() bool {
	_, ok := taskStatusLabels[s]
	return ok
}

func (s TaskStatus) Label() string {
	if l, ok := taskStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

var priorityLabels = map[TaskPriority]string{
	PriorityLow:    "Low",
	PriorityMedium: "Medium",
	PriorityHigh:   "High",
	PriorityUrgent: "Urgent",
}

func (p TaskPriority) Valid() bool {
	_, ok := priorityLabels[p]
	return ok
}

func (p TaskPriority) Label() string {
	if l, ok := priorityLabels[p]; ok {
		return l
	}
	return string(p)
}

// TaskKind discriminates the task variants stored in one table.
type TaskKind string

const (
	KindTask        TaskKind = "task"
	KindDevelopment TaskKind = "development"
	KindDesign      TaskKind = "design"
)

func (k TaskKind) Valid() bool {
	return k == KindTask || k == KindDevelopment || k == KindDesign
}

// TypeName is the Go-side name of the variant.
func (k TaskKind) TypeName() string {
	switch k {
	case KindDevelopment:
		return "DevelopmentTask"
	case KindDesign:
		return "DesignTask"
	}
	return "Task"
}

type Technology string

const (
	TechPython     Technology = "python"
	TechJavaScript Technology = "javascript"
	TechJava       Technology = "java"
	TechReact      Technology = "react"
	TechDjango     Technology = "django"
	TechOther      Technology = "other"
)

func (t Technology) Valid() bool {
	switch t {
	case TechPython, TechJavaScript, TechJava, TechReact, TechDjango, TechOther:
		return true
	}
	return false
}

type DesignType string

const (
	DesignUIUX      DesignType = "ui_ux"
	DesignGraphic   DesignType = "graphic"
	DesignWireframe DesignType = "wireframe"
	DesignPrototype DesignType = "prototype"
	DesignMockup    DesignType = "mockup"
)

func (d DesignType) Valid() bool {
	switch d {
	case DesignUIUX, DesignGraphic, DesignWireframe, DesignPrototype, DesignMockup:
		return true
	}
	return false
}

type DevelopmentDetails struct {
	Technology     Technology `json:"technology"`
	RepositoryURL  string     `json:"repository_url"`
	BranchName     string     `json:"branch_name"`
	PullRequestURL string     `json:"pull_request_url"`
}

type DesignDetails struct {
	DesignType    DesignType `json:"design_type"`
	DesignTool    string     `json:"design_tool"`
	DesignFileURL string     `json:"design_file_url"`
	FeedbackNotes string     `json:"feedback_notes"`
}

// Task is a tagged variant: Kind selects which of the embedded payloads is set.
type Task struct {
	ID             int64        `json:"id"`
	Kind           TaskKind     `json:"-"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	ProjectID      int64        `json:"project"`
	ProjectName    string       `json:"-"`
	AssignedToID   *int64       `json:"-"`
	AssignedTo     *User        `json:"assigned_to"`
	Status         TaskStatus   `json:"status"`
	Priority       TaskPriority `json:"priority"`
	DueDate        time.Time    `json:"due_date"`
	EstimatedHours int          `json:"estimated_hours"`
	ActualHours    int          `json:"actual_hours"`

	*DevelopmentDetails
	*DesignDetails

	// Filled by Annotate.
	TaskTypeName string `json:"task_type"`
	IsOverdue    bool   `json:"is_overdue"`

	Audit
}

func (t *Task) String() string { return t.Title + " - " + t.ProjectName }

// Normalize applies column defaults and makes the payload match Kind.
func (t *Task) Normalize() {
	t.Title = strings.TrimSpace(t.Title)
	if t.Kind == "" {
		t.Kind = KindTask
	}
	if t.Status == "" {
		t.Status = TaskTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	switch t.Kind {
	case KindDevelopment:
		if t.DevelopmentDetails == nil {
			t.DevelopmentDetails = &DevelopmentDetails{}
		}
		if t.Technology == "" {
			t.Technology = TechPython
		}
		t.DesignDetails = nil
	case KindDesign:
		if t.DesignDetails == nil {
			t.DesignDetails = &DesignDetails{}
		}
		if t.DesignType == "" {
			t.DesignType = DesignUIUX
		}
		t.DevelopmentDetails = nil
	default:
		t.DevelopmentDetails = nil
		t.DesignDetails = nil
	}
}

func (t *Task) Validate() error {
	if !t.Kind.Valid() {
		return invalid("kind", "%q is not a valid task kind", t.Kind)
	}
	if t.Title == "" {
		return invalid("title", "this field is required")
	}
	if len(t.Title) > 200 {
		return invalid("title", "ensure this field has no more than 200 characters")
	}
	if t.ProjectID <= 0 {
		return invalid("project", "this field is required")
	}
	if !t.Status.Valid() {
		return invalid("status", "%q is not a valid choice", t.Status)
	}
	if !t.Priority.Valid() {
		return invalid("priority", "%q is not a valid choice", t.Priority)
	}
	if t.DueDate.IsZero() {
		return invalid("due_date", "this field is required")
	}
	if t.EstimatedHours < 0 {
		return invalid("estimated_hours", "ensure this value is greater than or equal to 0")
	}
	if t.ActualHours < 0 {
		return invalid("actual_hours", "ensure this value is greater than or equal to 0")
	}
	if d := t.DevelopmentDetails; d != nil {
		if !d.Technology.Valid() {
			return invalid("technology", "%q is not a valid choice", d.Technology)
		}
		if len(d.BranchName) > 100 {
			return invalid("branch_name", "ensure this field has no more than 100 characters")
		}
		if err := validURL("repository_url", d.RepositoryURL); err != nil {
			return err
		}
		if err := validURL("pull_request_url", d.PullRequestURL); err != nil {
			return err
		}
	}
	if d := t.DesignDetails; d != nil {
		if !d.DesignType.Valid() {
			return invalid("design_type", "%q is not a valid choice", d.DesignType)
		}
		if len(d.DesignTool) > 50 {
			return invalid("design_tool", "ensure this field has no more than 50 characters")
		}
		if err := validURL("design_file_url", d.DesignFileURL); err != nil {
			return err
		}
	}
	return nil
}

// Overdue reports due_date < now for a task that is not completed.
func (t *Task) Overdue(now time.Time) bool {
	return t.DueDate.Before(now) && t.Status != TaskCompleted
}

// TaskType is the variant name without the "Task" suffix, lowercased.
func (t *Task) TaskType() string {
	return strings.ToLower(strings.Replace(t.Kind.TypeName(), "Task", "", 1))
}

// DueToday reports whether the due date falls on the same calendar day as now.
func (t *Task) DueToday(now time.Time) bool {
	due := t.DueDate.In(now.Location())
	y1, m1, d1 := due.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (t *Task) Annotate(now time.Time) {
	t.TaskTypeName = t.TaskType()
	t.IsOverdue = t.Overdue(now)
}

// TaskFilter defines the available parameters for filtering tasks.
type TaskFilter struct {
	Kind          *TaskKind
	Title         string
	Status        *TaskStatus
	Statuses      []TaskStatus
	Priority      *TaskPriority
	ProjectID     *int64
	AssignedTo    *int64
	DueDateAfter  *time.Time
	DueDateBefore *time.Time
	Search        string
	Ordering      string
	Limit         int
	Offset        int
}
