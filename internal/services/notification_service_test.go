package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/config"
	"taskhub/internal/events"
	"taskhub/internal/models"
)

type harness struct {
	db       *memDB
	mail     *outbox
	jobs     *inlineJobs
	tasks    *taskService
	projects *projectService
	notify   NotificationService
	project  *models.Project
	now      time.Time
}

func newHarness(t *testing.T, policy string) *harness {
	t.Helper()
	h := &harness{
		db:   newMemDB(),
		mail: &outbox{},
		jobs: &inlineJobs{},
		now:  time.Date(2030, 5, 10, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }

	users, projects, tasks := fakeUsers{h.db}, fakeProjects{h.db}, fakeTasks{h.db}
	email := NewEmailServiceWithMailer(h.mail, "noreply@example.com", time.UTC)
	h.notify = NewNotificationService(tasks, users, email, h.jobs, policy, time.UTC, WithClock(clock))

	dispatcher := events.NewDispatcher()
	dispatcher.Register(events.TaskCreated, h.notify.OnTaskCreated)

	h.tasks = NewTaskService(tasks, projects, users, dispatcher).(*taskService)
	h.tasks.now = clock
	h.projects = NewProjectService(projects, tasks, users, time.UTC).(*projectService)
	h.projects.now = clock

	h.project = h.db.addProject("Website", models.NewDate(2030, 1, 1), models.NewDate(2030, 12, 31), models.ProjectInProgress)
	return h
}

func (h *harness) newTask(kind models.TaskKind, title string, assignee *models.User) *models.Task {
	t := &models.Task{
		Kind:      kind,
		Title:     title,
		ProjectID: h.project.ID,
		Priority:  models.PriorityHigh,
		DueDate:   time.Date(2030, 6, 1, 15, 4, 0, 0, time.UTC),
	}
	if assignee != nil {
		id := assignee.ID
		t.AssignedToID = &id
	}
	return t
}

func TestTaskCreate_EmailsAssignee(t *testing.T) {
	h := newHarness(t, config.FailureLog)
	alice := h.db.addUser("alice", "alice@example.com", "Alice")

	_, err := h.tasks.Create(context.Background(), h.newTask(models.KindTask, "Write docs", alice), alice.ID)
	require.NoError(t, err)

	require.Equal(t, 1, h.mail.count())
	msg := h.mail.sent[0]
	assert.Equal(t, []string{"alice@example.com"}, msg.to)
	assert.Contains(t, msg.raw, "Subject: New Task Assigned: Write docs")
	assert.Contains(t, msg.raw, "Hi Alice,")
	assert.Contains(t, msg.raw, "Project: Website")
	assert.Contains(t, msg.raw, "Due Date: 2030-06-01 15:04")
	assert.Contains(t, msg.raw, "Priority: High")
}

func TestTaskCreate_EveryKindNotifies(t *testing.T) {
	h := newHarness(t, config.FailureLog)
	bob := h.db.addUser("bob", "bob@example.com", "")

	for _, kind := range []models.TaskKind{models.KindTask, models.KindDevelopment, models.KindDesign} {
		_, err := h.tasks.Create(context.Background(), h.newTask(kind, "T-"+string(kind), bob), 0)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, h.mail.count())
	assert.Contains(t, h.mail.sent[0].raw, "Hi bob,")
}

func TestTaskCreate_NoAssigneeOrEmailSendsNothing(t *testing.T) {
	h := newHarness(t, config.FailureLog)
	noEmail := h.db.addUser("carol", "", "Carol")

	_, err := h.tasks.Create(context.Background(), h.newTask(models.KindTask, "Unassigned", nil), 0)
	require.NoError(t, err)
	_, err = h.tasks.Create(context.Background(), h.newTask(models.KindTask, "No email", noEmail), 0)
	require.NoError(t, err)

	assert.Equal(t, 0, h.mail.count())
}

func TestTaskUpdate_SendsNothing(t *testing.T) {
	h := newHarness(t, config.FailureLog)
	alice := h.db.addUser("alice", "alice@example.com", "Alice")

	created, err := h.tasks.Create(context.Background(), h.newTask(models.KindTask, "Write docs", alice), 0)
	require.NoError(t, err)
	require.Equal(t, 1, h.mail.count())

	upd := h.newTask(models.KindTask, "Write more docs", alice)
	upd.Status = models.TaskInProgress
	_, err = h.tasks.Update(context.Background(), nil, created.ID, upd, alice.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, h.mail.count())
}

func TestTaskCreate_FailurePolicy(t *testing.T) {
	smtpDown := errors.New("connection refused")

	t.Run("log", func(t *testing.T) {
		h := newHarness(t, config.FailureLog)
		h.mail.fail = smtpDown
		alice := h.db.addUser("alice", "alice@example.com", "Alice")

		task, err := h.tasks.Create(context.Background(), h.newTask(models.KindTask, "Write docs", alice), 0)
		require.NoError(t, err)
		assert.NotZero(t, task.ID)
	})

	t.Run("propagate", func(t *testing.T) {
		h := newHarness(t, config.FailurePropagate)
		h.mail.fail = smtpDown
		alice := h.db.addUser("alice", "alice@example.com", "Alice")

		task, err := h.tasks.Create(context.Background(), h.newTask(models.KindTask, "Write docs", alice), 0)
		assert.ErrorIs(t, err, ErrNotificationFailed)
		require.NotNil(t, task, "the row is committed before notification")

		_, total, err := h.tasks.List(context.Background(), models.TaskFilter{})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})
}

func TestSweepOverdue(t *testing.T) {
	h := newHarness(t, config.FailureLog)
	alice := h.db.addUser("alice", "alice@example.com", "Alice")
	mute := h.db.addUser("mute", "", "")
	past := h.now.Add(-48 * time.Hour)
	future := h.now.Add(48 * time.Hour)

	add := func(title string, status models.TaskStatus, due time.Time, who *models.User) {
		task := models.Task{Title: title, ProjectID: h.project.ID, Status: status, DueDate: due}
		if who != nil {
			id := who.ID
			task.AssignedToID = &id
		}
		h.db.addTask(task)
	}
	add("late todo", models.TaskTodo, past, alice)
	add("late in progress", models.TaskInProgress, past, mute)
	add("late done", models.TaskCompleted, past, alice)
	add("late review", models.TaskReview, past, alice)
	add("on time", models.TaskTodo, future, alice)

	n, err := h.notify.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"overdue-notification"}, h.jobs.names)

	require.Equal(t, 1, h.mail.count())
	assert.Contains(t, h.mail.sent[0].raw, "Subject: Overdue Task: late todo")
	assert.Contains(t, h.mail.sent[0].raw, "The following task is overdue:")
}

func TestSweepOverdue_FullQueueDrops(t *testing.T) {
	h := newHarness(t, config.FailureLog)
	h.jobs.full = true
	alice := h.db.addUser("alice", "alice@example.com", "Alice")
	id := alice.ID
	h.db.addTask(models.Task{Title: "late", ProjectID: h.project.ID, DueDate: h.now.Add(-time.Hour), AssignedToID: &id})

	n, err := h.notify.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, h.mail.count())
}

func TestSendOverdueNotification_MissingTask(t *testing.T) {
	h := newHarness(t, config.FailureLog)
	h.notify.SendOverdueNotification(context.Background(), 9999)
	assert.Equal(t, 0, h.mail.count())
}

func TestSendDailySummary(t *testing.T) {
	h := newHarness(t, config.FailureLog)
	alice := h.db.addUser("alice", "alice@example.com", "Alice")
	bob := h.db.addUser("bob", "bob@example.com", "Bob")
	h.db.addUser("ghost", "", "Ghost")

	aid, bid := alice.ID, bob.ID
	h.db.addTask(models.Task{Title: "yesterday", ProjectID: h.project.ID, DueDate: h.now.Add(-24 * time.Hour), AssignedToID: &aid})
	h.db.addTask(models.Task{Title: "tonight", ProjectID: h.project.ID, DueDate: h.now.Add(9 * time.Hour), AssignedToID: &aid})
	h.db.addTask(models.Task{Title: "next week", ProjectID: h.project.ID, DueDate: h.now.Add(7 * 24 * time.Hour), AssignedToID: &bid})

	sent, err := h.notify.SendDailySummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Equal(t, 1, h.mail.count())
	msg := h.mail.sent[0]
	assert.Equal(t, []string{"alice@example.com"}, msg.to)
	assert.Contains(t, msg.raw, "Subject: Daily Task Summary")
	assert.Contains(t, msg.raw, "- Overdue tasks: 1")
	assert.Contains(t, msg.raw, "- Tasks due today: 1")
	assert.Contains(t, msg.raw, "- Total active tasks: 2")
}

func TestSendDailySummary_MailErrorsAreSwallowed(t *testing.T) {
	h := newHarness(t, config.FailureLog)
	h.mail.fail = errors.New("smtp down")
	alice := h.db.addUser("alice", "alice@example.com", "Alice")
	aid := alice.ID
	h.db.addTask(models.Task{Title: "late", ProjectID: h.project.ID, DueDate: h.now.Add(-time.Hour), AssignedToID: &aid})

	sent, err := h.notify.SendDailySummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}
