// internal/services/task_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskhub/internal/events"
	"taskhub/internal/logging"
	"taskhub/internal/models"
	"taskhub/internal/repositories"
)

// TaskService serves all task kinds. A nil kind means "any kind"; a non-nil kind
// scopes reads and writes to that variant.
type TaskService interface {
	Create(ctx context.Context, task *models.Task, actorID int64) (*models.Task, error)
	GetByID(ctx context.Context, kind *models.TaskKind, id int64) (*models.Task, error)
	List(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error)
	Update(ctx context.Context, kind *models.TaskKind, id int64, update *models.Task, actorID int64) (*models.Task, error)
	Delete(ctx context.Context, kind *models.TaskKind, id int64, actorID int64) error

	Overdue(ctx context.Context) ([]models.Task, error)
	AssignedTo(ctx context.Context, userID int64) ([]models.Task, error)
}

type taskService struct {
	repo     repositories.TaskRepository
	projects repositories.ProjectRepository
	users    repositories.UserRepository
	events   *events.Dispatcher
	now      func() time.Time
}

// NewTaskService creates a new instance of TaskService.
func NewTaskService(
	repo repositories.TaskRepository,
	projects repositories.ProjectRepository,
	users repositories.UserRepository,
	dispatcher *events.Dispatcher,
) TaskService {
	return &taskService{repo: repo, projects: projects, users: users, events: dispatcher, now: time.Now}
}

// Create stores the task and then dispatches task.created. When a handler fails
// the stored task is returned together with the error.
func (s *taskService) Create(ctx context.Context, task *models.Task, actorID int64) (*models.Task, error) {
	task.Normalize()
	if err := task.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkRefs(ctx, task); err != nil {
		return nil, err
	}
	task.CreatedBy = actorRef(actorID)
	task.UpdatedBy = actorRef(actorID)

	if err := s.repo.Store(ctx, task); err != nil {
		return nil, fmt.Errorf("store task: %w", err)
	}
	logging.Logger.Infof("[task][create][ok] id=%d kind=%s title=%q", task.ID, task.Kind, task.Title)

	created, err := s.repo.FindByID(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("reload task: %w", err)
	}
	created.Annotate(s.now())

	// post-commit: the row is visible before any handler runs
	if err := s.events.Dispatch(ctx, events.Event{Name: events.TaskCreated, Task: created}); err != nil {
		return created, err
	}
	return created, nil
}

func (s *taskService) GetByID(ctx context.Context, kind *models.TaskKind, id int64) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if kind != nil && task.Kind != *kind {
		return nil, repositories.ErrNotFound
	}
	task.Annotate(s.now())
	return task, nil
}

func (s *taskService) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error) {
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	tasks, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	s.annotate(tasks)
	return tasks, total, nil
}

func (s *taskService) annotate(tasks []models.Task) {
	now := s.now()
	for i := range tasks {
		tasks[i].Annotate(now)
	}
}

// Update replaces the task. Variant fields are kept when the task is updated
// through the kind-agnostic collection.
func (s *taskService) Update(ctx context.Context, kind *models.TaskKind, id int64, update *models.Task, actorID int64) (*models.Task, error) {
	existing, err := s.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	update.ID = id
	update.Kind = existing.Kind
	if kind == nil {
		update.DevelopmentDetails = existing.DevelopmentDetails
		update.DesignDetails = existing.DesignDetails
	}
	update.Normalize()
	if err := update.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkRefs(ctx, update); err != nil {
		return nil, err
	}
	update.UpdatedBy = actorRef(actorID)

	if err := s.repo.Update(ctx, update); err != nil {
		return nil, err
	}
	logging.Logger.Infof("[task][update][ok] id=%d", id)
	return s.GetByID(ctx, kind, id)
}

func (s *taskService) Delete(ctx context.Context, kind *models.TaskKind, id int64, actorID int64) error {
	if err := s.repo.SoftDelete(ctx, id, kind, actorRef(actorID)); err != nil {
		return err
	}
	logging.Logger.Infof("[task][delete][ok] id=%d", id)
	return nil
}

func (s *taskService) Overdue(ctx context.Context) ([]models.Task, error) {
	tasks, err := s.repo.FindAll(ctx, models.TaskFilter{})
	if err != nil {
		return nil, err
	}
	s.annotate(tasks)
	out := make([]models.Task, 0)
	for _, t := range tasks {
		if t.IsOverdue {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *taskService) AssignedTo(ctx context.Context, userID int64) ([]models.Task, error) {
	tasks, err := s.repo.FindAll(ctx, models.TaskFilter{AssignedTo: &userID})
	if err != nil {
		return nil, err
	}
	s.annotate(tasks)
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// checkRefs rejects unknown project and assignee references as validation errors.
func (s *taskService) checkRefs(ctx context.Context, task *models.Task) error {
	if _, err := s.projects.FindByID(ctx, task.ProjectID); err != nil {
		if isNotFound(err) {
			return &models.ValidationError{Field: "project", Message: "invalid pk - object does not exist"}
		}
		return err
	}
	if task.AssignedToID != nil {
		if _, err := s.users.GetByID(ctx, *task.AssignedToID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return &models.ValidationError{Field: "assigned_to_id", Message: "invalid pk - object does not exist"}
			}
			return err
		}
	}
	return nil
}
