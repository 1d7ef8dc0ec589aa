package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"taskhub/internal/logging"
	"taskhub/internal/models"
	"taskhub/internal/services"
)

// TaskHandler serves one task collection. A nil kind is the collection of all
// kinds; otherwise reads and writes are scoped to that kind.
type TaskHandler struct {
	service  services.TaskService
	kind     *models.TaskKind
	pageSize int
}

func NewTaskHandler(service services.TaskService, kind *models.TaskKind, pageSize int) *TaskHandler {
	return &TaskHandler{service: service, kind: kind, pageSize: pageSize}
}

func (h *TaskHandler) tag() string {
	if h.kind == nil {
		return "task"
	}
	return string(*h.kind)
}

type taskRequest struct {
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Project        int64               `json:"project"`
	AssignedToID   optionalID          `json:"assigned_to_id" swaggertype:"integer"`
	Status         models.TaskStatus   `json:"status"`
	Priority       models.TaskPriority `json:"priority"`
	DueDate        time.Time           `json:"due_date"`
	EstimatedHours int                 `json:"estimated_hours"`
	ActualHours    int                 `json:"actual_hours"`

	// development
	Technology     models.Technology `json:"technology"`
	RepositoryURL  string            `json:"repository_url"`
	BranchName     string            `json:"branch_name"`
	PullRequestURL string            `json:"pull_request_url"`

	// design
	DesignType    models.DesignType `json:"design_type"`
	DesignTool    string            `json:"design_tool"`
	DesignFileURL string            `json:"design_file_url"`
	FeedbackNotes string            `json:"feedback_notes"`
}

// task builds the model for the given kind; payload fields of other kinds are ignored.
func (r *taskRequest) task(kind models.TaskKind) *models.Task {
	t := &models.Task{
		Kind:           kind,
		Title:          r.Title,
		Description:    r.Description,
		ProjectID:      r.Project,
		AssignedToID:   r.AssignedToID.Value,
		Status:         r.Status,
		Priority:       r.Priority,
		DueDate:        r.DueDate,
		EstimatedHours: r.EstimatedHours,
		ActualHours:    r.ActualHours,
	}
	switch kind {
	case models.KindDevelopment:
		t.DevelopmentDetails = &models.DevelopmentDetails{
			Technology:     r.Technology,
			RepositoryURL:  strings.TrimSpace(r.RepositoryURL),
			BranchName:     strings.TrimSpace(r.BranchName),
			PullRequestURL: strings.TrimSpace(r.PullRequestURL),
		}
	case models.KindDesign:
		t.DesignDetails = &models.DesignDetails{
			DesignType:    r.DesignType,
			DesignTool:    strings.TrimSpace(r.DesignTool),
			DesignFileURL: strings.TrimSpace(r.DesignFileURL),
			FeedbackNotes: r.FeedbackNotes,
		}
	}
	return t
}

func (h *TaskHandler) filter(c *gin.Context) (models.TaskFilter, error) {
	f := models.TaskFilter{
		Kind:     h.kind,
		Title:    strings.TrimSpace(c.Query("title")),
		Search:   strings.TrimSpace(c.Query("search")),
		Ordering: strings.TrimSpace(c.Query("ordering")),
	}
	if v := c.Query("status"); v != "" {
		st := models.TaskStatus(v)
		if !st.Valid() {
			return f, fmt.Errorf("status: %q is not a valid choice", v)
		}
		f.Status = &st
	}
	if v := c.Query("priority"); v != "" {
		pr := models.TaskPriority(v)
		if !pr.Valid() {
			return f, fmt.Errorf("priority: %q is not a valid choice", v)
		}
		f.Priority = &pr
	}
	var err error
	if f.ProjectID, err = queryInt64(c, "project"); err != nil {
		return f, err
	}
	if f.AssignedTo, err = queryInt64(c, "assigned_to"); err != nil {
		return f, err
	}
	if f.DueDateAfter, err = queryTime(c, "due_date_after"); err != nil {
		return f, err
	}
	if f.DueDateBefore, err = queryTime(c, "due_date_before"); err != nil {
		return f, err
	}
	return f, nil
}

// @Summary      Список задач
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        title            query  string  false  "Заголовок (icontains)"
// @Param        status           query  string  false  "Статус"
// @Param        priority         query  string  false  "Приоритет"
// @Param        project          query  int     false  "ID проекта"
// @Param        assigned_to      query  int     false  "ID исполнителя"
// @Param        due_date_after   query  string  false  "RFC3339 или YYYY-MM-DD"
// @Param        due_date_before  query  string  false  "RFC3339 или YYYY-MM-DD"
// @Param        search           query  string  false  "Поиск"
// @Param        ordering         query  string  false  "created_at, due_date, priority (с '-' по убыванию)"
// @Param        page             query  int     false  "Страница"
// @Param        page_size        query  int     false  "Размер страницы"
// @Success      200  {object}  Page
// @Failure      400  {object}  map[string]string
// @Router       /api/tasks/ [get]
// @Router       /api/development-tasks/ [get]
// @Router       /api/design-tasks/ [get]
func (h *TaskHandler) List(c *gin.Context) {
	p, err := parsePaging(c, h.pageSize)
	if err != nil {
		badRequest(c, err)
		return
	}
	filter, err := h.filter(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	filter.Limit, filter.Offset = p.size, p.offset()

	tasks, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, h.tag(), "list")
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	writePage(c, p, total, tasks)
}

// @Summary      Создать задачу
// @Description  При наличии исполнителя с email отправляется письмо "New Task Assigned"
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        task  body      taskRequest  true  "Задача"
// @Success      201   {object}  models.Task
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/tasks/ [post]
// @Router       /api/development-tasks/ [post]
// @Router       /api/design-tasks/ [post]
func (h *TaskHandler) Create(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logging.Logger.Infof("[%s][create][bind][err] %v", h.tag(), err)
		badRequest(c, err)
		return
	}
	kind := models.KindTask
	if h.kind != nil {
		kind = *h.kind
	}
	created, err := h.service.Create(c.Request.Context(), req.task(kind), currentUser(c))
	if err != nil {
		// строка уже сохранена, если created != nil
		if created != nil {
			logging.Logger.Errorf("[%s][create][notify][err] id=%d: %v", h.tag(), created.ID, err)
		}
		respondError(c, err, h.tag(), "create")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// @Summary      Получить задачу
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "ID задачи"
// @Success      200  {object}  models.Task
// @Failure      404  {object}  map[string]string
// @Router       /api/tasks/{id}/ [get]
// @Router       /api/development-tasks/{id}/ [get]
// @Router       /api/design-tasks/{id}/ [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	task, err := h.service.GetByID(c.Request.Context(), h.kind, id)
	if err != nil {
		respondError(c, err, h.tag(), "get")
		return
	}
	c.JSON(http.StatusOK, task)
}

// @Summary      Обновить задачу
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int          true  "ID задачи"
// @Param        task  body      taskRequest  true  "Задача"
// @Success      200   {object}  models.Task
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/tasks/{id}/ [put]
// @Router       /api/development-tasks/{id}/ [put]
// @Router       /api/design-tasks/{id}/ [put]
func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	// для общей коллекции kind берётся из существующей записи
	kind := models.KindTask
	if h.kind != nil {
		kind = *h.kind
	}
	update := req.task(kind)
	if !req.AssignedToID.Set {
		// ключ не передан: исполнитель не меняется
		existing, err := h.service.GetByID(c.Request.Context(), h.kind, id)
		if err != nil {
			respondError(c, err, h.tag(), "update")
			return
		}
		update.AssignedToID = existing.AssignedToID
	}
	updated, err := h.service.Update(c.Request.Context(), h.kind, id, update, currentUser(c))
	if err != nil {
		respondError(c, err, h.tag(), "update")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// @Summary      Удалить задачу
// @Tags         Tasks
// @Security     BearerAuth
// @Param        id  path  int  true  "ID задачи"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /api/tasks/{id}/ [delete]
// @Router       /api/development-tasks/{id}/ [delete]
// @Router       /api/design-tasks/{id}/ [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), h.kind, id, currentUser(c)); err != nil {
		respondError(c, err, h.tag(), "delete")
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary      Просроченные задачи
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.Task
// @Router       /api/tasks/overdue/ [get]
func (h *TaskHandler) Overdue(c *gin.Context) {
	tasks, err := h.service.Overdue(c.Request.Context())
	if err != nil {
		respondError(c, err, h.tag(), "overdue")
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// @Summary      Мои задачи
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.Task
// @Router       /api/tasks/my_tasks/ [get]
func (h *TaskHandler) MyTasks(c *gin.Context) {
	tasks, err := h.service.AssignedTo(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err, h.tag(), "my_tasks")
		return
	}
	c.JSON(http.StatusOK, tasks)
}
