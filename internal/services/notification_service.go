package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskhub/internal/config"
	"taskhub/internal/events"
	"taskhub/internal/logging"
	"taskhub/internal/models"
	"taskhub/internal/repositories"
)

// Enqueuer runs named jobs in the background; false means the job was dropped.
type Enqueuer interface {
	Enqueue(name string, fn func(ctx context.Context) error) (string, bool)
}

type NotificationService interface {
	// OnTaskCreated is the task.created event handler.
	OnTaskCreated(ctx context.Context, e events.Event) error
	SweepOverdue(ctx context.Context) (int, error)
	SendOverdueNotification(ctx context.Context, taskID int64)
	SendDailySummary(ctx context.Context) (int, error)
}

type notificationService struct {
	tasks  repositories.TaskRepository
	users  repositories.UserRepository
	email  EmailService
	tg     *TelegramService
	jobs   Enqueuer
	policy string
	loc    *time.Location
	now    func() time.Time
}

type NotificationOption func(*notificationService)

func WithClock(now func() time.Time) NotificationOption {
	return func(s *notificationService) { s.now = now }
}

func WithTelegram(tg *TelegramService) NotificationOption {
	return func(s *notificationService) { s.tg = tg }
}

func NewNotificationService(
	tasks repositories.TaskRepository,
	users repositories.UserRepository,
	email EmailService,
	jobs Enqueuer,
	onCreateFailure string,
	loc *time.Location,
	opts ...NotificationOption,
) NotificationService {
	if loc == nil {
		loc = time.UTC
	}
	s := &notificationService{
		tasks:  tasks,
		users:  users,
		email:  email,
		jobs:   jobs,
		policy: onCreateFailure,
		loc:    loc,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *notificationService) OnTaskCreated(ctx context.Context, e events.Event) error {
	task := e.Task
	if task == nil || task.AssignedTo == nil {
		return nil
	}

	if err := s.tg.NotifyTask("📌 New task", task); err != nil {
		logging.Logger.Warnf("[notify][created][tg][err] task=%d: %v", task.ID, err)
	}
	if !task.AssignedTo.HasEmail() {
		logging.Logger.Debugf("[notify][created][skip] task=%d: assignee has no email", task.ID)
		return nil
	}

	if err := s.email.SendTaskAssigned(task); err != nil {
		logging.Logger.Errorf("[notify][created][err] task=%d to=%s: %v", task.ID, task.AssignedTo.Email, err)
		if s.policy == config.FailurePropagate {
			return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
		}
		return nil
	}
	logging.Logger.Infof("[notify][created][ok] task=%d to=%s", task.ID, task.AssignedTo.Email)
	return nil
}

var openStatuses = []models.TaskStatus{models.TaskTodo, models.TaskInProgress}

// SweepOverdue finds open overdue tasks and enqueues one notification job per
// task whose assignee has an email.
func (s *notificationService) SweepOverdue(ctx context.Context) (int, error) {
	tasks, err := s.tasks.FindAll(ctx, models.TaskFilter{Statuses: openStatuses})
	if err != nil {
		return 0, fmt.Errorf("load open tasks: %w", err)
	}

	now := s.now()
	var overdue []models.Task
	for _, t := range tasks {
		if t.Overdue(now) {
			overdue = append(overdue, t)
		}
	}
	if len(overdue) == 0 {
		return 0, nil
	}
	logging.Logger.Infof("Found %d overdue tasks", len(overdue))

	for _, t := range overdue {
		if !t.AssignedTo.HasEmail() {
			continue
		}
		taskID := t.ID
		if _, ok := s.jobs.Enqueue("overdue-notification", func(ctx context.Context) error {
			s.SendOverdueNotification(ctx, taskID)
			return nil
		}); !ok {
			logging.Logger.Warnf("[sweep][drop] task=%d queue full", taskID)
		}
	}
	return len(overdue), nil
}

func (s *notificationService) SendOverdueNotification(ctx context.Context, taskID int64) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logging.Logger.Errorf("Task %d not found for overdue notification", taskID)
			return
		}
		logging.Logger.Errorf("[notify][overdue][err] task=%d: %v", taskID, err)
		return
	}
	if !task.AssignedTo.HasEmail() {
		return
	}

	if err := s.tg.NotifyTask("⏰ Overdue task", task); err != nil {
		logging.Logger.Warnf("[notify][overdue][tg][err] task=%d: %v", taskID, err)
	}
	if err := s.email.SendTaskOverdue(task); err != nil {
		logging.Logger.Errorf("Failed to send overdue notification: %v", err)
		return
	}
	logging.Logger.Infof("Overdue notification sent for task %d", taskID)
}

// SendDailySummary mails every active user with an email who has overdue tasks
// or tasks due today. It returns the number of emails sent.
func (s *notificationService) SendDailySummary(ctx context.Context) (int, error) {
	users, err := s.users.ListActiveWithEmail(ctx)
	if err != nil {
		return 0, fmt.Errorf("load users: %w", err)
	}

	now := s.now().In(s.loc)
	sent := 0
	for i := range users {
		user := &users[i]
		uid := user.ID
		tasks, err := s.tasks.FindAll(ctx, models.TaskFilter{AssignedTo: &uid})
		if err != nil {
			logging.Logger.Errorf("[summary][err] user=%d: %v", uid, err)
			continue
		}

		summary := DailySummary{TotalActive: len(tasks)}
		for _, t := range tasks {
			if t.Overdue(now) {
				summary.Overdue++
			}
			if t.DueToday(now) {
				summary.DueToday++
			}
		}
		if summary.Overdue == 0 && summary.DueToday == 0 {
			continue
		}
		if err := s.email.SendDailySummary(user, summary); err != nil {
			logging.Logger.Warnf("[summary][err] user=%d: %v", uid, err)
			continue
		}
		sent++
	}
	logging.Logger.Infof("[summary][ok] sent=%d users=%d", sent, len(users))
	return sent, nil
}
