package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskhub/internal/models"
)

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%web%", likePattern("web"))
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
}

func TestOrderClause(t *testing.T) {
	def := "p.created_at DESC"
	assert.Equal(t, "p.name ASC", orderClause("name", projectOrdering, def))
	assert.Equal(t, "p.end_date DESC", orderClause("-end_date", projectOrdering, def))
	assert.Equal(t, def, orderClause("password", projectOrdering, def))
	assert.Equal(t, def, orderClause("", projectOrdering, def))
	assert.Equal(t, priorityRank+" DESC", orderClause("-priority", taskOrdering, "x"))
}

func TestProjectWhere(t *testing.T) {
	status := models.ProjectInProgress
	after := models.NewDate(2024, 1, 1)
	user := int64(3)
	w := projectWhere(models.ProjectFilter{
		Name:           "web",
		Status:         &status,
		StartDateAfter: &after,
		AssignedTo:     &user,
		Search:         "shop",
	})

	assert.Equal(t,
		" WHERE p.is_active AND p.name ILIKE $1 AND p.status = $2 AND p.start_date >= $3"+
			" AND EXISTS (SELECT 1 FROM project_assignees pa WHERE pa.project_id = p.id AND pa.user_id = $4)"+
			" AND (p.name ILIKE $5 OR p.description ILIKE $5)",
		w.sql())
	assert.Equal(t, []any{"%web%", status, after, user, "%shop%"}, w.args)
}

func TestTaskWhere_SearchCoversVariantField(t *testing.T) {
	kind := models.KindDevelopment
	w := taskWhere(models.TaskFilter{Kind: &kind, Search: "react"})
	assert.Equal(t,
		" WHERE t.is_active AND t.kind = $1 AND (t.title ILIKE $2 OR t.description ILIKE $2 OR t.technology ILIKE $2)",
		w.sql())

	kind = models.KindDesign
	w = taskWhere(models.TaskFilter{Kind: &kind, Search: "mockup"})
	assert.Contains(t, w.sql(), "t.design_type ILIKE $2")

	w = taskWhere(models.TaskFilter{Search: "x"})
	assert.NotContains(t, w.sql(), "technology")
}

func TestTaskWhere_Statuses(t *testing.T) {
	w := taskWhere(models.TaskFilter{Statuses: []models.TaskStatus{models.TaskTodo, models.TaskInProgress}})
	assert.Equal(t, " WHERE t.is_active AND t.status = ANY($1)", w.sql())
	assert.Len(t, w.args, 1)
}

func TestWhereBuilder_Empty(t *testing.T) {
	w := &whereBuilder{}
	assert.Equal(t, "", w.sql())
	assert.Equal(t, "$1", w.next(10))
	assert.Equal(t, "$2", w.next(0))
}
