package entrypoint

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/wallpaperverse/api/internal/auth"
	"github.com/wallpaperverse/api/internal/config"
	http_controllers "github.com/wallpaperverse/api/internal/http"
	"github.com/wallpaperverse/api/internal/scheduler"
	"github.com/wallpaperverse/api/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// within the configured timeout.
func Serve(ctx context.Context, handler http.Handler, cfg *config.Config, logger *slog.Logger, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server", "timeout", timeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work first so nothing writes while connections drain.
	if onShutdown != nil {
		onShutdown(shutdownCtx)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

// Run starts the API server together with the scheduler and task queue and
// blocks until SIGINT or SIGTERM.
func Run(cfg *config.Config, logger *slog.Logger, version string) error {
	logger.Info("starting WallpaperVerse API", "version", version, "environment", cfg.Global.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("error closing resources", "error", err)
		}
	}()

	sched := scheduler.New(app.Pipeline, app.Cache, app.Events, scheduler.Config{
		Enabled:           cfg.Scheduler.Enabled,
		SyncSchedule:      cfg.Scheduler.SyncSchedule,
		CleanupSchedule:   cfg.Scheduler.CleanupSchedule,
		StatsSchedule:     cfg.Scheduler.StatsSchedule,
		RetentionSchedule: cfg.Scheduler.RetentionSchedule,
		RetentionDays:     cfg.Events.RetentionDays,
	}, logger)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}, logger)
		if err != nil {
			sched.Stop()
			return fmt.Errorf("initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				logger.Error("error closing task client", "error", err)
			}
		}()

		taskClient.Register(tasks.Queues(app.Pipeline, app.Events, app.Tags, logger)...)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	routerCfg := http_controllers.RouterConfig{
		Logger:          logger,
		Version:         version,
		Database:        app.DB,
		Cache:           app.Cache,
		Queries:         app.Query,
		FavouritesStore: app.Favourites,
		SecureCookies:   cfg.Session.SecureCookies,
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		RateLimit: auth.RateLimitConfig{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
		},
		SearchRateLimit: auth.RateLimitConfig{
			Requests: cfg.RateLimit.SearchRequests,
			Window:   cfg.RateLimit.SearchWindow,
		},
		AdminAuth:  auth.NewAdminMiddleware(cfg.Admin.TokenHash, logger),
		Admin:      app.Query,
		Syncer:     app.Pipeline,
		Categories: app.Categories,
		SyncRuns:   app.SyncRuns,
		Schedule:   sched,
	}
	// A nil *tasks.Client must not become a non-nil interface.
	if taskClient != nil {
		routerCfg.TaskQueue = taskClient
	}
	if !routerCfg.AdminAuth.Enabled() {
		logger.Warn("ADMIN_TOKEN_HASH is not set, admin API is disabled")
	}

	if cfg.Session.Enabled {
		sessions, err := newSessionManager(app, cfg.Session)
		if err != nil {
			return err
		}
		routerCfg.SessionManager = sessions

		routerCfg.CSRFSecret, err = csrfSecret(cfg.Session.CSRFSecret, logger)
		if err != nil {
			return err
		}
	}

	router := http_controllers.NewRouter(routerCfg)
	defer router.Close()

	onShutdown := func(ctx context.Context) {
		sched.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	return Serve(ctx, router, cfg, logger, onShutdown)
}

// newSessionManager keeps sessions in the main database when it is SQLite
// and in memory otherwise.
func newSessionManager(app *App, cfg config.Session) (*auth.SessionManager, error) {
	if app.DB.Driver() != config.DriverSQLite {
		app.Logger.Info("sessions are kept in memory", "driver", app.DB.Driver())
		return auth.NewSessionManager(auth.NewMemoryStore(), cfg), nil
	}

	sqlDB, err := app.DB.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB for sessions: %w", err)
	}
	store, err := auth.NewSQLiteStore(sqlDB)
	if err != nil {
		return nil, fmt.Errorf("initialize session store: %w", err)
	}
	return auth.NewSessionManager(store, cfg), nil
}

// csrfSecret decodes a hex secret, falls back to the raw bytes, and generates
// a random one when none is configured.
func csrfSecret(configured string, logger *slog.Logger) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate CSRF secret: %w", err)
	}
	logger.Info("generated CSRF secret (set CSRF_SECRET to persist across restarts)")
	return secret, nil
}
