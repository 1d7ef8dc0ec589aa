package repositories

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/models"
)

var taskColumns = []string{
	"id", "kind", "title", "description", "project_id", "project_name", "assigned_to_id",
	"status", "priority", "due_date", "estimated_hours", "actual_hours",
	"technology", "repository_url", "branch_name", "pull_request_url",
	"design_type", "design_tool", "design_file_url", "feedback_notes",
	"created_at", "updated_at", "created_by", "updated_by", "is_active",
	"u_id", "u_username", "u_first_name", "u_last_name", "u_email", "u_telegram_chat_id",
}

func taskRow(rows *sqlmock.Rows, id, projectID int64, kind models.TaskKind, status models.TaskStatus, active bool) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, string(kind), fmt.Sprintf("task %d", id), "", projectID, "Website", nil,
		string(status), string(models.PriorityMedium), now, 0, 0,
		"python", "", "", "",
		"", "", "", "",
		now, now, nil, nil, active,
		nil, nil, nil, nil, nil, nil,
	)
}

// whereOf returns the WHERE part of a query, without the select list.
func whereOf(q string) string {
	if i := strings.Index(q, " WHERE "); i >= 0 {
		return q[i:]
	}
	return ""
}

func TestListByProjects_IncludesInactiveRows(t *testing.T) {
	var where string
	matcher := sqlmock.QueryMatcherFunc(func(expected, actual string) error {
		where = whereOf(actual)
		if !strings.Contains(actual, expected) {
			return fmt.Errorf("query %q does not contain %q", actual, expected)
		}
		return nil
	})
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matcher))
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(taskColumns)
	taskRow(rows, 1, 10, models.KindDevelopment, models.TaskCompleted, true)
	taskRow(rows, 2, 10, models.KindTask, models.TaskTodo, false)
	taskRow(rows, 3, 11, models.KindDesign, models.TaskReview, true)
	mock.ExpectQuery("t.project_id = ANY($1)").WithArgs("{10,11}").WillReturnRows(rows)

	out, err := NewTaskRepository(db).ListByProjects(context.Background(), []int64{10, 11})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.NotContains(t, where, "is_active")
	require.Len(t, out[10], 2)
	assert.False(t, out[10][1].IsActive)
	require.NotNil(t, out[10][0].DevelopmentDetails)
	assert.Equal(t, models.Technology("python"), out[10][0].DevelopmentDetails.Technology)
	require.Len(t, out[11], 1)
	assert.Nil(t, out[11][0].DevelopmentDetails)
	assert.NotNil(t, out[11][0].DesignDetails)
}

func TestListByProjects_EmptyInputSkipsQuery(t *testing.T) {
	db, mock := newMock(t)
	out, err := NewTaskRepository(db).ListByProjects(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskFindAll_FiltersActive(t *testing.T) {
	db, mock := newMock(t)
	kind := models.KindDesign

	mock.ExpectQuery(regexp.QuoteMeta("WHERE t.is_active AND t.kind = $1")).
		WithArgs("design", 20, 0).
		WillReturnRows(taskRow(sqlmock.NewRows(taskColumns), 3, 11, models.KindDesign, models.TaskReview, true))

	tasks, err := NewTaskRepository(db).FindAll(context.Background(), models.TaskFilter{Kind: &kind, Limit: 20})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.KindDesign, tasks[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskSoftDelete_RestrictsKind(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskRepository(db)
	kind := models.KindDesign

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $2 AND is_active AND kind = $3")).
		WithArgs(nil, int64(4), "design").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $2 AND is_active")).
		WithArgs(nil, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.ErrorIs(t, repo.SoftDelete(context.Background(), 4, &kind, nil), ErrNotFound)
	assert.NoError(t, repo.SoftDelete(context.Background(), 4, nil, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
