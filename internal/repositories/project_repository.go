package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"taskhub/internal/models"
)

type ProjectRepository interface {
	Store(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id int64) (*models.Project, error)
	FindAll(ctx context.Context, filter models.ProjectFilter) ([]models.Project, error)
	Count(ctx context.Context, filter models.ProjectFilter) (int, error)
	// Update leaves the assignees untouched when project.AssignedToIDs is nil.
	Update(ctx context.Context, project *models.Project) error
	SoftDelete(ctx context.Context, id int64, by *int64) error

	ListAssignees(ctx context.Context, projectIDs []int64) (map[int64][]models.User, error)
	CountTasks(ctx context.Context, projectID int64) (int, error)
}

type projectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) ProjectRepository {
	return &projectRepository{db: db}
}

const projectColumns = `p.id, p.name, p.description, p.status, p.start_date, p.end_date,
	p.created_at, p.updated_at, p.created_by, p.updated_by, p.is_active`

var projectOrdering = map[string]string{
	"created_at": "p.created_at",
	"start_date": "p.start_date",
	"end_date":   "p.end_date",
	"name":       "p.name",
}

func scanProject(row rowScanner) (*models.Project, error) {
	p := &models.Project{}
	var createdBy, updatedBy sql.NullInt64
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Status, &p.StartDate, &p.EndDate,
		&p.CreatedAt, &p.UpdatedAt, &createdBy, &updatedBy, &p.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.CreatedBy = nullInt(createdBy)
	p.UpdatedBy = nullInt(updatedBy)
	return p, nil
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// Store inserts the project and its assignees in one transaction.
func (r *projectRepository) Store(ctx context.Context, project *models.Project) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
		INSERT INTO projects (name, description, status, start_date, end_date, created_by, updated_by, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,TRUE)
		RETURNING id, created_at, updated_at, is_active`
	err = tx.QueryRowContext(ctx, q,
		project.Name, project.Description, project.Status, project.StartDate, project.EndDate,
		project.CreatedBy, project.UpdatedBy,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt, &project.IsActive)
	if err != nil {
		return err
	}
	if err := replaceAssignees(ctx, tx, project.ID, project.AssignedToIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceAssignees(ctx context.Context, tx *sql.Tx, projectID int64, userIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_assignees WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("clear assignees: %w", err)
	}
	if len(userIDs) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO project_assignees (project_id, user_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING`, projectID, pq.Array(userIDs))
	if err != nil {
		return fmt.Errorf("store assignees: %w", err)
	}
	return nil
}

func (r *projectRepository) FindByID(ctx context.Context, id int64) (*models.Project, error) {
	q := `SELECT ` + projectColumns + ` FROM projects p WHERE p.id = $1 AND p.is_active`
	return scanProject(r.db.QueryRowContext(ctx, q, id))
}

func projectWhere(filter models.ProjectFilter) *whereBuilder {
	w := &whereBuilder{}
	w.add("p.is_active")

	if filter.Name != "" {
		w.add("p.name ILIKE ?", likePattern(filter.Name))
	}
	if filter.Status != nil {
		w.add("p.status = ?", *filter.Status)
	}
	if filter.StartDateAfter != nil {
		w.add("p.start_date >= ?", *filter.StartDateAfter)
	}
	if filter.StartDateBefore != nil {
		w.add("p.start_date <= ?", *filter.StartDateBefore)
	}
	if filter.EndDateAfter != nil {
		w.add("p.end_date >= ?", *filter.EndDateAfter)
	}
	if filter.EndDateBefore != nil {
		w.add("p.end_date <= ?", *filter.EndDateBefore)
	}
	if filter.AssignedTo != nil {
		w.add("EXISTS (SELECT 1 FROM project_assignees pa WHERE pa.project_id = p.id AND pa.user_id = ?)", *filter.AssignedTo)
	}
	if filter.Search != "" {
		ph := w.next(likePattern(filter.Search))
		w.conditions = append(w.conditions, fmt.Sprintf("(p.name ILIKE %s OR p.description ILIKE %s)", ph, ph))
	}
	return w
}

func (r *projectRepository) FindAll(ctx context.Context, filter models.ProjectFilter) ([]models.Project, error) {
	w := projectWhere(filter)
	q := `SELECT ` + projectColumns + ` FROM projects p` + w.sql() +
		` ORDER BY ` + orderClause(filter.Ordering, projectOrdering, "p.created_at DESC") + `, p.id DESC`
	if filter.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %s OFFSET %s", w.next(filter.Limit), w.next(filter.Offset))
	}

	rows, err := r.db.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (r *projectRepository) Count(ctx context.Context, filter models.ProjectFilter) (int, error) {
	w := projectWhere(filter)
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects p`+w.sql(), w.args...).Scan(&n)
	return n, err
}

// Update replaces the editable columns and the assignee set.
func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
		UPDATE projects SET
			name=$1, description=$2, status=$3, start_date=$4, end_date=$5,
			updated_by=$6, updated_at=NOW()
		WHERE id=$7 AND is_active
		RETURNING updated_at`
	err = tx.QueryRowContext(ctx, q,
		project.Name, project.Description, project.Status, project.StartDate, project.EndDate,
		project.UpdatedBy, project.ID,
	).Scan(&project.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if project.AssignedToIDs != nil {
		if err := replaceAssignees(ctx, tx, project.ID, project.AssignedToIDs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *projectRepository) SoftDelete(ctx context.Context, id int64, by *int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET is_active = FALSE, updated_by = $1, updated_at = NOW() WHERE id = $2 AND is_active`, by, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *projectRepository) ListAssignees(ctx context.Context, projectIDs []int64) (map[int64][]models.User, error) {
	out := make(map[int64][]models.User, len(projectIDs))
	if len(projectIDs) == 0 {
		return out, nil
	}
	const q = `
		SELECT pa.project_id, u.id, u.username, u.first_name, u.last_name, u.email
		FROM project_assignees pa
		JOIN users u ON u.id = pa.user_id
		WHERE pa.project_id = ANY($1)
		ORDER BY pa.project_id, u.id`
	rows, err := r.db.QueryContext(ctx, q, pq.Array(projectIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var pid int64
		var u models.User
		if err := rows.Scan(&pid, &u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email); err != nil {
			return nil, err
		}
		out[pid] = append(out[pid], u)
	}
	return out, rows.Err()
}

func (r *projectRepository) CountTasks(ctx context.Context, projectID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE project_id = $1`, projectID).Scan(&n)
	return n, err
}
