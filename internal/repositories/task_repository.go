package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"taskhub/internal/models"
)

type TaskRepository interface {
	Store(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id int64) (*models.Task, error)
	FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	Count(ctx context.Context, filter models.TaskFilter) (int, error)
	Update(ctx context.Context, task *models.Task) error
	SoftDelete(ctx context.Context, id int64, kind *models.TaskKind, by *int64) error

	// ListByProjects returns every task row of the given projects, active or not.
	ListByProjects(ctx context.Context, projectIDs []int64) (map[int64][]models.Task, error)
}

type taskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) TaskRepository {
	return &taskRepository{db: db}
}

const taskSelect = `
SELECT t.id, t.kind, t.title, t.description, t.project_id, p.name, t.assigned_to_id,
       t.status, t.priority, t.due_date, t.estimated_hours, t.actual_hours,
       t.technology, t.repository_url, t.branch_name, t.pull_request_url,
       t.design_type, t.design_tool, t.design_file_url, t.feedback_notes,
       t.created_at, t.updated_at, t.created_by, t.updated_by, t.is_active,
       u.id, u.username, u.first_name, u.last_name, u.email, u.telegram_chat_id
FROM tasks t
JOIN projects p ON p.id = t.project_id
LEFT JOIN users u ON u.id = t.assigned_to_id`

const priorityRank = `CASE t.priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 WHEN 'urgent' THEN 4 END`

var taskOrdering = map[string]string{
	"created_at": "t.created_at",
	"due_date":   "t.due_date",
	"priority":   priorityRank,
}

func scanTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{}
	var (
		assignee             sql.NullInt64
		createdBy, updatedBy sql.NullInt64
		dev                  models.DevelopmentDetails
		design               models.DesignDetails
		uID, uChat           sql.NullInt64
		uName, uFirst, uLast sql.NullString
		uEmail               sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.Kind, &t.Title, &t.Description, &t.ProjectID, &t.ProjectName, &assignee,
		&t.Status, &t.Priority, &t.DueDate, &t.EstimatedHours, &t.ActualHours,
		&dev.Technology, &dev.RepositoryURL, &dev.BranchName, &dev.PullRequestURL,
		&design.DesignType, &design.DesignTool, &design.DesignFileURL, &design.FeedbackNotes,
		&t.CreatedAt, &t.UpdatedAt, &createdBy, &updatedBy, &t.IsActive,
		&uID, &uName, &uFirst, &uLast, &uEmail, &uChat,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.AssignedToID = nullInt(assignee)
	t.CreatedBy = nullInt(createdBy)
	t.UpdatedBy = nullInt(updatedBy)

	switch t.Kind {
	case models.KindDevelopment:
		t.DevelopmentDetails = &dev
	case models.KindDesign:
		t.DesignDetails = &design
	}
	if uID.Valid {
		t.AssignedTo = &models.User{
			ID:             uID.Int64,
			Username:       uName.String,
			FirstName:      uFirst.String,
			LastName:       uLast.String,
			Email:          uEmail.String,
			TelegramChatID: uChat.Int64,
		}
	}
	return t, nil
}

// variantColumns flattens the payload into the single-table columns.
func variantColumns(task *models.Task) (dev models.DevelopmentDetails, design models.DesignDetails) {
	if task.DevelopmentDetails != nil {
		dev = *task.DevelopmentDetails
	}
	if task.DesignDetails != nil {
		design = *task.DesignDetails
	}
	return dev, design
}

func (r *taskRepository) Store(ctx context.Context, task *models.Task) error {
	dev, design := variantColumns(task)
	query := `
		INSERT INTO tasks (
			kind, title, description, project_id, assigned_to_id, status, priority, due_date,
			estimated_hours, actual_hours,
			technology, repository_url, branch_name, pull_request_url,
			design_type, design_tool, design_file_url, feedback_notes,
			created_by, updated_by, is_active
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,TRUE)
		RETURNING id, created_at, updated_at, is_active`
	return r.db.QueryRowContext(ctx, query,
		task.Kind, task.Title, task.Description, task.ProjectID, task.AssignedToID,
		task.Status, task.Priority, task.DueDate, task.EstimatedHours, task.ActualHours,
		dev.Technology, dev.RepositoryURL, dev.BranchName, dev.PullRequestURL,
		design.DesignType, design.DesignTool, design.DesignFileURL, design.FeedbackNotes,
		task.CreatedBy, task.UpdatedBy,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt, &task.IsActive)
}

func (r *taskRepository) FindByID(ctx context.Context, id int64) (*models.Task, error) {
	return scanTask(r.db.QueryRowContext(ctx, taskSelect+` WHERE t.id = $1 AND t.is_active`, id))
}

func taskWhere(filter models.TaskFilter) *whereBuilder {
	w := &whereBuilder{}
	w.add("t.is_active")

	if filter.Kind != nil {
		w.add("t.kind = ?", *filter.Kind)
	}
	if filter.Title != "" {
		w.add("t.title ILIKE ?", likePattern(filter.Title))
	}
	if filter.Status != nil {
		w.add("t.status = ?", *filter.Status)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		w.add("t.status = ANY(?)", pq.Array(statuses))
	}
	if filter.Priority != nil {
		w.add("t.priority = ?", *filter.Priority)
	}
	if filter.ProjectID != nil {
		w.add("t.project_id = ?", *filter.ProjectID)
	}
	if filter.AssignedTo != nil {
		w.add("t.assigned_to_id = ?", *filter.AssignedTo)
	}
	if filter.DueDateAfter != nil {
		w.add("t.due_date >= ?", *filter.DueDateAfter)
	}
	if filter.DueDateBefore != nil {
		w.add("t.due_date <= ?", *filter.DueDateBefore)
	}
	if filter.Search != "" {
		ph := w.next(likePattern(filter.Search))
		cond := fmt.Sprintf("t.title ILIKE %s OR t.description ILIKE %s", ph, ph)
		if filter.Kind != nil {
			switch *filter.Kind {
			case models.KindDevelopment:
				cond += fmt.Sprintf(" OR t.technology ILIKE %s", ph)
			case models.KindDesign:
				cond += fmt.Sprintf(" OR t.design_type ILIKE %s", ph)
			}
		}
		w.conditions = append(w.conditions, "("+cond+")")
	}
	return w
}

func (r *taskRepository) FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	w := taskWhere(filter)
	q := taskSelect + w.sql() +
		` ORDER BY ` + orderClause(filter.Ordering, taskOrdering, "t.created_at DESC") + `, t.id DESC`
	if filter.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %s OFFSET %s", w.next(filter.Limit), w.next(filter.Offset))
	}
	return r.list(ctx, q, w.args...)
}

func (r *taskRepository) Count(ctx context.Context, filter models.TaskFilter) (int, error) {
	w := taskWhere(filter)
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks t`+w.sql(), w.args...).Scan(&n)
	return n, err
}

func (r *taskRepository) list(ctx context.Context, q string, args ...any) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Update replaces every editable column; kind never changes.
func (r *taskRepository) Update(ctx context.Context, task *models.Task) error {
	dev, design := variantColumns(task)
	query := `
		UPDATE tasks SET
			title=$1, description=$2, project_id=$3, assigned_to_id=$4, status=$5, priority=$6,
			due_date=$7, estimated_hours=$8, actual_hours=$9,
			technology=$10, repository_url=$11, branch_name=$12, pull_request_url=$13,
			design_type=$14, design_tool=$15, design_file_url=$16, feedback_notes=$17,
			updated_by=$18, updated_at=NOW()
		WHERE id=$19 AND kind=$20 AND is_active
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		task.Title, task.Description, task.ProjectID, task.AssignedToID, task.Status, task.Priority,
		task.DueDate, task.EstimatedHours, task.ActualHours,
		dev.Technology, dev.RepositoryURL, dev.BranchName, dev.PullRequestURL,
		design.DesignType, design.DesignTool, design.DesignFileURL, design.FeedbackNotes,
		task.UpdatedBy, task.ID, task.Kind,
	).Scan(&task.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// SoftDelete hides the task. A non-nil kind restricts the delete to that variant.
func (r *taskRepository) SoftDelete(ctx context.Context, id int64, kind *models.TaskKind, by *int64) error {
	q := `UPDATE tasks SET is_active = FALSE, updated_by = $1, updated_at = NOW() WHERE id = $2 AND is_active`
	args := []any{by, id}
	if kind != nil {
		q += ` AND kind = $3`
		args = append(args, *kind)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *taskRepository) ListByProjects(ctx context.Context, projectIDs []int64) (map[int64][]models.Task, error) {
	out := make(map[int64][]models.Task, len(projectIDs))
	if len(projectIDs) == 0 {
		return out, nil
	}
	tasks, err := r.list(ctx, taskSelect+` WHERE t.project_id = ANY($1) ORDER BY t.created_at DESC, t.id DESC`, pq.Array(projectIDs))
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		out[t.ProjectID] = append(out[t.ProjectID], t)
	}
	return out, nil
}
