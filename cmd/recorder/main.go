package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zanzhit/snapshot_recorder/internal/app"
	"github.com/zanzhit/snapshot_recorder/internal/config"
	authhandler "github.com/zanzhit/snapshot_recorder/internal/http-server/handlers/auth"
	camerashandler "github.com/zanzhit/snapshot_recorder/internal/http-server/handlers/cameras"
	jobshandler "github.com/zanzhit/snapshot_recorder/internal/http-server/handlers/jobs"
	livehandler "github.com/zanzhit/snapshot_recorder/internal/http-server/handlers/live"
	authmiddleware "github.com/zanzhit/snapshot_recorder/internal/http-server/middleware/auth"
	"github.com/zanzhit/snapshot_recorder/internal/http-server/middleware/logger"
	"github.com/zanzhit/snapshot_recorder/internal/lib/metrics"
	"github.com/zanzhit/snapshot_recorder/internal/lib/sl"
	authservice "github.com/zanzhit/snapshot_recorder/internal/services/auth"
	"github.com/zanzhit/snapshot_recorder/internal/storage/postgres"
	mediastorage "github.com/zanzhit/snapshot_recorder/internal/storage/postgres/media"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting application",
		slog.String("env", cfg.Env),
		slog.String("timezone", cfg.Timezone),
		slog.Int("cameras", len(cfg.Cameras)),
	)

	m := metrics.New(prometheus.DefaultRegisterer)

	var deps app.Deps

	if cfg.DB.Enabled {
		if cfg.DB.Password == "" {
			panic("POSTGRES_PASSWORD is required")
		}

		storage, err := postgres.New(cfg.DB)
		if err != nil {
			panic(err)
		}
		defer storage.Close()

		deps.Catalog = mediastorage.New(storage)

		log.Info("media catalog enabled", slog.String("host", cfg.DB.Host), slog.String("dbname", cfg.DB.DBName))
	}

	application, err := app.New(log, m, cfg, deps)
	if err != nil {
		log.Error("failed to build application", sl.Err(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application.Start()

	var srv *http.Server
	if cfg.HTTPServer.Address != "" {
		srv = &http.Server{
			Addr:         cfg.HTTPServer.Address,
			Handler:      newRouter(log, cfg, application),
			ReadTimeout:  cfg.HTTPServer.Timeout,
			WriteTimeout: cfg.HTTPServer.Timeout,
			IdleTimeout:  cfg.HTTPServer.IdleTimeout,
		}

		go func() {
			log.Info("starting http server", slog.String("address", cfg.HTTPServer.Address))

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("failed to start server", sl.Err(err))
				stop()
			}
		}()
	}

	<-ctx.Done()

	log.Info("stopping application")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to stop server", sl.Err(err))
		}
	}

	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop application", sl.Err(err))
	}

	log.Info("application stopped")
}

func newRouter(log *slog.Logger, cfg *config.Config, application *app.App) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(logger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	jobsHandler := jobshandler.New(log, application)

	router.Get("/health", jobsHandler.Health)
	router.Handle("/metrics", promhttp.Handler())

	if cfg.HTTPServer.Secret == "" || cfg.HTTPServer.PasswordHash == "" {
		log.Warn("ADMIN_SECRET or ADMIN_PASSWORD_HASH not set, admin api disabled")

		return router
	}

	authService := authservice.New(log, cfg.HTTPServer.Username, cfg.HTTPServer.PasswordHash, cfg.HTTPServer.TokenTTL, cfg.HTTPServer.Secret)

	authHandler := authhandler.New(log, authService)
	camerasHandler := camerashandler.New(log, application)
	liveHandler := livehandler.New(log, application)

	router.Post("/auth/login", authHandler.Login)

	router.Group(func(r chi.Router) {
		r.Use(authmiddleware.JWTAuth(cfg.HTTPServer.Secret))

		r.Get("/jobs", jobsHandler.Jobs)
		r.Get("/cameras", camerasHandler.List)
		r.Post("/cameras/{id}/capture", camerasHandler.Capture)
		r.Post("/cameras/{id}/flush", camerasHandler.Flush)
		r.Get("/cameras/{id}/media", camerasHandler.Media)
		r.Get("/cameras/{id}/live", liveHandler.Live)
	})

	return router
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
