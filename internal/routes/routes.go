package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"taskhub/internal/handlers"
	"taskhub/internal/middleware"
)

type Handlers struct {
	Auth            *handlers.AuthHandler
	Projects        *handlers.ProjectHandler
	Tasks           *handlers.TaskHandler
	DevelopmentTask *handlers.TaskHandler
	DesignTask      *handlers.TaskHandler
	Health          gin.HandlerFunc
	Integrations    *handlers.IntegrationsHandler
	TelegramEnabled bool
}

func SetupRoutes(r *gin.Engine, h Handlers, jwtSecret string) *gin.Engine {
	// ---- public
	if h.Health != nil {
		r.GET("/healthz", h.Health)
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if h.Integrations != nil && h.TelegramEnabled {
		r.POST("/api/integrations/telegram/webhook/", h.Integrations.Webhook)
	}

	api := r.Group("/api")
	auth := api.Group("/auth")
	{
		auth.POST("/register/", h.Auth.Register)
		auth.POST("/login/", h.Auth.Login)
		auth.POST("/token/refresh/", h.Auth.Refresh)
	}

	// ---- protected
	protected := api.Group("", middleware.AuthMiddleware(jwtSecret))
	protected.GET("/auth/me/", h.Auth.Me)

	// PROJECTS
	projects := protected.Group("/projects")
	{
		projects.GET("/", h.Projects.List)
		projects.POST("/", h.Projects.Create)
		projects.GET("/overdue/", h.Projects.Overdue)
		projects.GET("/:id/", h.Projects.GetByID)
		projects.PUT("/:id/", h.Projects.Update)
		projects.DELETE("/:id/", h.Projects.Delete)
		projects.GET("/:id/tasks_summary/", h.Projects.TasksSummary)
		projects.GET("/:id/report/", h.Projects.Report)
	}

	// TASKS (все виды)
	tasks := taskRoutes(protected.Group("/tasks"), h.Tasks)
	tasks.GET("/overdue/", h.Tasks.Overdue)
	tasks.GET("/my_tasks/", h.Tasks.MyTasks)

	taskRoutes(protected.Group("/development-tasks"), h.DevelopmentTask)
	taskRoutes(protected.Group("/design-tasks"), h.DesignTask)

	// INTEGRATIONS
	if h.Integrations != nil {
		protected.POST("/integrations/telegram/link/", h.Integrations.RequestTelegramLink)
	}

	return r
}

func taskRoutes(g *gin.RouterGroup, h *handlers.TaskHandler) *gin.RouterGroup {
	g.GET("/", h.List)
	g.POST("/", h.Create)
	g.GET("/:id/", h.GetByID)
	g.PUT("/:id/", h.Update)
	g.DELETE("/:id/", h.Delete)
	return g
}
