package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	_ "taskhub/docs"
	"taskhub/internal/config"
	"taskhub/internal/events"
	"taskhub/internal/handlers"
	"taskhub/internal/logging"
	"taskhub/internal/middleware"
	"taskhub/internal/models"
	"taskhub/internal/pdf"
	"taskhub/internal/repositories"
	"taskhub/internal/routes"
	"taskhub/internal/scheduler"
	"taskhub/internal/services"
)

const shutdownTimeout = 5 * time.Second

// App holds the wired process: storage, services and the job scheduler.
type App struct {
	Config *config.Config
	DB     *sql.DB

	Users    repositories.UserRepository
	Projects repositories.ProjectRepository
	Tasks    repositories.TaskRepository
	Links    repositories.TelegramLinkRepository

	Auth         services.AuthService
	ProjectSvc   services.ProjectService
	TaskSvc      services.TaskService
	Notify       services.NotificationService
	Email        services.EmailService
	Telegram     *services.TelegramService
	TelegramLink services.TelegramLinkService
	Dispatcher   *events.Dispatcher
	Scheduler    *scheduler.Scheduler
	notifyOption []services.NotificationOption
}

// New opens the database and wires every component. Handlers for task.created
// are registered here, once, before anything can create a task.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := repositories.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		DB:       db,
		Users:    repositories.NewUserRepository(db),
		Projects: repositories.NewProjectRepository(db),
		Tasks:    repositories.NewTaskRepository(db),
		Links:    repositories.NewTelegramLinkRepository(db),
	}
	loc := cfg.Location()

	a.Email = services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
		loc,
	)
	a.Telegram, err = services.NewTelegramService(cfg.Telegram.BotToken)
	if err != nil {
		// Telegram опционален, без него сервис работает
		logging.Logger.Warnf("[app][telegram] disabled: %v", err)
	}
	if a.Telegram != nil {
		a.notifyOption = append(a.notifyOption, services.WithTelegram(a.Telegram))
	}

	a.Scheduler = scheduler.New(loc, cfg.Scheduler.Workers, cfg.Scheduler.QueueSize)
	a.Notify = a.NotificationService(a.Scheduler)

	a.Dispatcher = events.NewDispatcher()
	a.Dispatcher.Register(events.TaskCreated, a.Notify.OnTaskCreated)

	a.Auth = services.NewAuthService(a.Users, cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	a.ProjectSvc = services.NewProjectService(a.Projects, a.Tasks, a.Users, loc)
	a.TaskSvc = services.NewTaskService(a.Tasks, a.Projects, a.Users, a.Dispatcher)
	a.TelegramLink = services.NewTelegramLinkService(a.Links, a.Users, cfg.Telegram.LinkTTL)
	return a, nil
}

// NotificationService builds a notifier that hands per-task jobs to jobs.
func (a *App) NotificationService(jobs services.Enqueuer) services.NotificationService {
	return services.NewNotificationService(
		a.Tasks,
		a.Users,
		a.Email,
		jobs,
		a.Config.Notifications.OnCreateFailure,
		a.Config.Location(),
		a.notifyOption...,
	)
}

func (a *App) Migrate(ctx context.Context) ([]string, error) {
	return repositories.Migrate(ctx, a.DB)
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS())

	dev, design := models.KindDevelopment, models.KindDesign
	pageSize := a.Config.API.PageSize
	routes.SetupRoutes(router, routes.Handlers{
		Auth:            handlers.NewAuthHandler(a.Auth),
		Projects:        handlers.NewProjectHandler(a.ProjectSvc, pdf.NewReportGenerator(a.Config.Files.FontPath), pageSize),
		Tasks:           handlers.NewTaskHandler(a.TaskSvc, nil, pageSize),
		DevelopmentTask: handlers.NewTaskHandler(a.TaskSvc, &dev, pageSize),
		DesignTask:      handlers.NewTaskHandler(a.TaskSvc, &design, pageSize),
		Health:          handlers.Health(a.DB),
		Integrations:    handlers.NewIntegrationsHandler(a.Telegram, a.TelegramLink, a.TaskSvc, a.Config.Telegram.WebhookSecret),
		TelegramEnabled: a.Telegram != nil,
	}, a.Config.Auth.JWTSecret)
	return router
}

// Schedule registers the periodic sweep and the daily summary.
func (a *App) Schedule() error {
	sc := a.Config.Scheduler
	if err := a.Scheduler.Every(sc.SweepInterval, "overdue-sweep", func(ctx context.Context) error {
		_, err := a.Notify.SweepOverdue(ctx)
		return err
	}); err != nil {
		return err
	}
	return a.Scheduler.Cron(sc.DailySummaryCron, "daily-summary", func(ctx context.Context) error {
		_, err := a.Notify.SendDailySummary(ctx)
		return err
	})
}

// Serve runs the HTTP server and the scheduler until ctx is cancelled, then
// shuts both down within shutdownTimeout.
func (a *App) Serve(ctx context.Context) error {
	if a.Config.Scheduler.Enabled {
		if err := a.Schedule(); err != nil {
			return err
		}
	}
	a.Scheduler.Start()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Logger.Infof("[app] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Logger.Info("[app] shutting down")
	case serveErr = <-errCh:
		logging.Logger.Errorf("[app] server stopped unexpectedly: %v", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Errorf("[app] http shutdown: %v", err)
	}
	if err := a.Scheduler.Stop(shutdownCtx); err != nil {
		logging.Logger.Errorf("[app] scheduler stop: %v", err)
	}
	logging.Logger.Info("[app] stopped")
	return serveErr
}

func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
