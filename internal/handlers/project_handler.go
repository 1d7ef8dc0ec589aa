package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"taskhub/internal/logging"
	"taskhub/internal/models"
	"taskhub/internal/pdf"
	"taskhub/internal/services"
)

type ProjectHandler struct {
	service  services.ProjectService
	reports  pdf.Generator
	pageSize int
}

func NewProjectHandler(service services.ProjectService, reports pdf.Generator, pageSize int) *ProjectHandler {
	return &ProjectHandler{service: service, reports: reports, pageSize: pageSize}
}

type projectRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Status      models.ProjectStatus `json:"status"`
	StartDate   models.Date          `json:"start_date" swaggertype:"string" example:"2024-01-01"`
	EndDate     models.Date          `json:"end_date" swaggertype:"string" example:"2024-12-31"`
	// nil (ключ не передан или null) на PUT оставляет исполнителей как есть
	AssignedToIDs []int64 `json:"assigned_to_ids"`
}

func (r *projectRequest) project() *models.Project {
	return &models.Project{
		Name:          r.Name,
		Description:   r.Description,
		Status:        r.Status,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		AssignedToIDs: r.AssignedToIDs,
	}
}

func projectFilter(c *gin.Context) (models.ProjectFilter, error) {
	f := models.ProjectFilter{
		Name:     strings.TrimSpace(c.Query("name")),
		Search:   strings.TrimSpace(c.Query("search")),
		Ordering: strings.TrimSpace(c.Query("ordering")),
	}
	if v := c.Query("status"); v != "" {
		st := models.ProjectStatus(v)
		if !st.Valid() {
			return f, fmt.Errorf("status: %q is not a valid choice", v)
		}
		f.Status = &st
	}
	var err error
	if f.StartDateAfter, err = queryDate(c, "start_date_after"); err != nil {
		return f, err
	}
	if f.StartDateBefore, err = queryDate(c, "start_date_before"); err != nil {
		return f, err
	}
	if f.EndDateAfter, err = queryDate(c, "end_date_after"); err != nil {
		return f, err
	}
	if f.EndDateBefore, err = queryDate(c, "end_date_before"); err != nil {
		return f, err
	}
	if f.AssignedTo, err = queryInt64(c, "assigned_to"); err != nil {
		return f, err
	}
	return f, nil
}

// @Summary      Список проектов
// @Tags         Projects
// @Produce      json
// @Security     BearerAuth
// @Param        name              query  string  false  "Название (icontains)"
// @Param        status            query  string  false  "Статус"
// @Param        start_date_after  query  string  false  "YYYY-MM-DD"
// @Param        start_date_before query  string  false  "YYYY-MM-DD"
// @Param        end_date_after    query  string  false  "YYYY-MM-DD"
// @Param        end_date_before   query  string  false  "YYYY-MM-DD"
// @Param        assigned_to       query  int     false  "ID пользователя"
// @Param        search            query  string  false  "Поиск по названию и описанию"
// @Param        ordering          query  string  false  "created_at, start_date, end_date, name (с '-' по убыванию)"
// @Param        page              query  int     false  "Страница"
// @Param        page_size         query  int     false  "Размер страницы"
// @Success      200  {object}  Page
// @Failure      400  {object}  map[string]string
// @Router       /api/projects/ [get]
func (h *ProjectHandler) List(c *gin.Context) {
	p, err := parsePaging(c, h.pageSize)
	if err != nil {
		badRequest(c, err)
		return
	}
	filter, err := projectFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	filter.Limit, filter.Offset = p.size, p.offset()

	projects, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "project", "list")
		return
	}
	if projects == nil {
		projects = []models.Project{}
	}
	writePage(c, p, total, projects)
}

// @Summary      Создать проект
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        project  body      projectRequest  true  "Проект"
// @Success      201      {object}  models.Project
// @Failure      400      {object}  map[string]string
// @Router       /api/projects/ [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	created, err := h.service.Create(c.Request.Context(), req.project(), currentUser(c))
	if err != nil {
		respondError(c, err, "project", "create")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// @Summary      Получить проект
// @Tags         Projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "ID проекта"
// @Success      200  {object}  models.Project
// @Failure      404  {object}  map[string]string
// @Router       /api/projects/{id}/ [get]
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	project, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "project", "get")
		return
	}
	c.JSON(http.StatusOK, project)
}

// @Summary      Обновить проект
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int             true  "ID проекта"
// @Param        project  body      projectRequest  true  "Проект"
// @Success      200      {object}  models.Project
// @Failure      400      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /api/projects/{id}/ [put]
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	updated, err := h.service.Update(c.Request.Context(), id, req.project(), currentUser(c))
	if err != nil {
		respondError(c, err, "project", "update")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// @Summary      Удалить проект
// @Tags         Projects
// @Security     BearerAuth
// @Param        id  path  int  true  "ID проекта"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /api/projects/{id}/ [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, currentUser(c)); err != nil {
		respondError(c, err, "project", "delete")
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary      Просроченные проекты
// @Tags         Projects
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.Project
// @Router       /api/projects/overdue/ [get]
func (h *ProjectHandler) Overdue(c *gin.Context) {
	projects, err := h.service.Overdue(c.Request.Context())
	if err != nil {
		respondError(c, err, "project", "overdue")
		return
	}
	c.JSON(http.StatusOK, projects)
}

// @Summary      Сводка по задачам проекта
// @Tags         Projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "ID проекта"
// @Success      200  {object}  models.TaskSummary
// @Failure      404  {object}  map[string]string
// @Router       /api/projects/{id}/tasks_summary/ [get]
func (h *ProjectHandler) TasksSummary(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	summary, err := h.service.TasksSummary(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "project", "summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary      PDF-отчёт по проекту
// @Tags         Projects
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id   path  int  true  "ID проекта"
// @Success      200  {file}  file
// @Failure      404  {object}  map[string]string
// @Router       /api/projects/{id}/report/ [get]
func (h *ProjectHandler) Report(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	project, err := h.service.GetByID(ctx, id)
	if err != nil {
		respondError(c, err, "project", "report")
		return
	}
	summary, err := h.service.TasksSummary(ctx, id)
	if err != nil {
		respondError(c, err, "project", "report")
		return
	}

	var buf bytes.Buffer
	if err := h.reports.ProjectReport(&buf, pdf.ReportData{Project: project, Summary: summary, CreatedAt: time.Now()}); err != nil {
		respondError(c, err, "project", "report")
		return
	}
	logging.Logger.Infof("[project][report][ok] id=%d bytes=%d", id, buf.Len())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="project_%d.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
