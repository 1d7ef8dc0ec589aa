package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskhub/internal/logging"
	"taskhub/internal/models"
	"taskhub/internal/repositories"
)

type ProjectService interface {
	Create(ctx context.Context, project *models.Project, actorID int64) (*models.Project, error)
	GetByID(ctx context.Context, id int64) (*models.Project, error)
	List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error)
	Update(ctx context.Context, id int64, project *models.Project, actorID int64) (*models.Project, error)
	Delete(ctx context.Context, id int64, actorID int64) error

	Overdue(ctx context.Context) ([]models.Project, error)
	TasksSummary(ctx context.Context, id int64) (*models.TaskSummary, error)
}

type projectService struct {
	projects repositories.ProjectRepository
	tasks    repositories.TaskRepository
	users    repositories.UserRepository
	loc      *time.Location
	now      func() time.Time
}

// NewProjectService creates a ProjectService. loc decides which calendar day is
// "today" for is_overdue; nil means time.Local.
func NewProjectService(projects repositories.ProjectRepository, tasks repositories.TaskRepository, users repositories.UserRepository, loc *time.Location) ProjectService {
	if loc == nil {
		loc = time.Local
	}
	return &projectService{projects: projects, tasks: tasks, users: users, loc: loc, now: time.Now}
}

func (s *projectService) Create(ctx context.Context, project *models.Project, actorID int64) (*models.Project, error) {
	project.Normalize()
	if err := project.Validate(); err != nil {
		return nil, err
	}
	project.AssignedToIDs = uniqueIDs(project.AssignedToIDs)
	if err := s.checkAssignees(ctx, project.AssignedToIDs); err != nil {
		return nil, err
	}
	project.CreatedBy = actorRef(actorID)
	project.UpdatedBy = actorRef(actorID)

	if err := s.projects.Store(ctx, project); err != nil {
		return nil, fmt.Errorf("store project: %w", err)
	}
	logging.Logger.Infof("[project][create][ok] id=%d name=%q", project.ID, project.Name)
	return s.GetByID(ctx, project.ID)
}

func (s *projectService) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	p, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	list := []models.Project{*p}
	if err := s.hydrate(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *projectService) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error) {
	total, err := s.projects.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	projects, err := s.projects.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if err := s.hydrate(ctx, projects); err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// hydrate loads assignees and tasks for every project and fills derived fields.
func (s *projectService) hydrate(ctx context.Context, projects []models.Project) error {
	if len(projects) == 0 {
		return nil
	}
	ids := make([]int64, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
	}
	assignees, err := s.projects.ListAssignees(ctx, ids)
	if err != nil {
		return fmt.Errorf("load assignees: %w", err)
	}
	tasks, err := s.tasks.ListByProjects(ctx, ids)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	now := s.now().In(s.loc)
	for i := range projects {
		p := &projects[i]
		p.AssignedTo = assignees[p.ID]
		p.Tasks = tasks[p.ID]
		p.Annotate(now)
	}
	return nil
}

// Update replaces the project fields. A nil AssignedToIDs keeps the current
// assignees, an empty non-nil slice clears them.
func (s *projectService) Update(ctx context.Context, id int64, project *models.Project, actorID int64) (*models.Project, error) {
	if _, err := s.projects.FindByID(ctx, id); err != nil {
		return nil, err
	}
	project.ID = id
	project.Normalize()
	if err := project.Validate(); err != nil {
		return nil, err
	}
	project.AssignedToIDs = uniqueIDs(project.AssignedToIDs)
	if err := s.checkAssignees(ctx, project.AssignedToIDs); err != nil {
		return nil, err
	}
	project.UpdatedBy = actorRef(actorID)

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, err
	}
	logging.Logger.Infof("[project][update][ok] id=%d", id)
	return s.GetByID(ctx, id)
}

func (s *projectService) Delete(ctx context.Context, id int64, actorID int64) error {
	p, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.projects.CountTasks(ctx, id)
	if err != nil {
		return err
	}
	if err := s.projects.SoftDelete(ctx, id, actorRef(actorID)); err != nil {
		return err
	}
	logging.Logger.Infof("Project '%s' deleted. %d tasks will be cascade deleted.", p.Name, n)
	return nil
}

// Overdue lists active projects whose end date has passed and are not completed.
func (s *projectService) Overdue(ctx context.Context) ([]models.Project, error) {
	projects, _, err := s.List(ctx, models.ProjectFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]models.Project, 0)
	for _, p := range projects {
		if p.IsOverdue {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *projectService) TasksSummary(ctx context.Context, id int64) (*models.TaskSummary, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sum := &models.TaskSummary{
		TotalTasks:         len(p.Tasks),
		ProgressPercentage: p.ProgressPercentage,
	}
	for _, t := range p.Tasks {
		switch t.Status {
		case models.TaskCompleted:
			sum.CompletedTasks++
		case models.TaskInProgress:
			sum.InProgressTasks++
		}
		if t.IsOverdue {
			sum.OverdueTasks++
		}
	}
	return sum, nil
}

func (s *projectService) checkAssignees(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(users) != len(ids) {
		return &models.ValidationError{Field: "assigned_to_ids", Message: "invalid pk - object does not exist"}
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func actorRef(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

func isNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}
