package models

import (
	"math"
	"strings"
	"time"
)

type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectReview     ProjectStatus = "review"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectOnHold     ProjectStatus = "on_hold"
)

var projectStatusLabels = map[ProjectStatus]string{
	ProjectPlanning:   "Planning",
	ProjectInProgress: "In Progress",
	ProjectReview:     "Review",
	ProjectCompleted:  "Completed",
	ProjectOnHold:     "On Hold",
}

func (s ProjectStatus) Valid() bool {
	_, ok := projectStatusLabels[s]
	return ok
}

func (s ProjectStatus) Label() string {
	if l, ok := projectStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Audit holds the bookkeeping columns shared by projects and tasks.
type Audit struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy *int64    `json:"-"`
	UpdatedBy *int64    `json:"-"`
	IsActive  bool      `json:"-"`
}

type Project struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	StartDate   Date          `json:"start_date"`
	EndDate     Date          `json:"end_date"`

	AssignedTo    []User  `json:"assigned_to"`
	AssignedToIDs []int64 `json:"-"`

	// Filled by Annotate.
	Tasks              []Task  `json:"tasks"`
	TasksCount         int     `json:"tasks_count"`
	ProgressPercentage float64 `json:"progress_percentage"`
	IsOverdue          bool    `json:"is_overdue"`

	Audit
}

func (p *Project) String() string { return p.Name }

// Normalize applies column defaults.
func (p *Project) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	if p.Status == "" {
		p.Status = ProjectPlanning
	}
}

func (p *Project) Validate() error {
	if p.Name == "" {
		return invalid("name", "this field is required")
	}
	if len(p.Name) > 200 {
		return invalid("name", "ensure this field has no more than 200 characters")
	}
	if !p.Status.Valid() {
		return invalid("status", "%q is not a valid choice", p.Status)
	}
	if p.StartDate.IsZero() {
		return invalid("start_date", "this field is required")
	}
	if p.EndDate.IsZero() {
		return invalid("end_date", "this field is required")
	}
	if p.StartDate.After(p.EndDate) {
		return &ValidationError{Message: "Start date must be before end date"}
	}
	return nil
}

// Overdue reports end_date < today for a project that is not completed.
func (p *Project) Overdue(today Date) bool {
	return p.EndDate.Before(today) && p.Status != ProjectCompleted
}

// ProgressPercentage is the completed share of total, rounded to two decimals.
func ProgressPercentage(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*100*100) / 100
}

// Annotate fills the derived fields from p.Tasks. The calendar day of now, in
// now's location, is "today" for is_overdue.
func (p *Project) Annotate(now time.Time) {
	completed := 0
	for i := range p.Tasks {
		p.Tasks[i].Annotate(now)
		if p.Tasks[i].Status == TaskCompleted {
			completed++
		}
	}
	if p.Tasks == nil {
		p.Tasks = []Task{}
	}
	if p.AssignedTo == nil {
		p.AssignedTo = []User{}
	}
	p.TasksCount = len(p.Tasks)
	p.ProgressPercentage = ProgressPercentage(completed, p.TasksCount)
	p.IsOverdue = p.Overdue(DateOf(now))
}

// ProjectFilter defines the available parameters for filtering projects.
type ProjectFilter struct {
	Name            string
	Status          *ProjectStatus
	StartDateAfter  *Date
	StartDateBefore *Date
	EndDateAfter    *Date
	EndDateBefore   *Date
	AssignedTo      *int64
	Search          string
	Ordering        string
	Limit           int
	Offset          int
}

// TaskSummary is the per-project aggregate.
type TaskSummary struct {
	TotalTasks         int     `json:"total_tasks"`
	CompletedTasks     int     `json:"completed_tasks"`
	InProgressTasks    int     `json:"in_progress_tasks"`
	OverdueTasks       int     `json:"overdue_tasks"`
	ProgressPercentage float64 `json:"progress_percentage"`
}
