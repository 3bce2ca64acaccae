// Package main is the entrypoint for the Thermoscan API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/devix/thermoscan/internal/analysis"
	"github.com/devix/thermoscan/internal/api"
	"github.com/devix/thermoscan/internal/api/handler"
	"github.com/devix/thermoscan/internal/api/response"
	"github.com/devix/thermoscan/internal/cache"
	"github.com/devix/thermoscan/internal/config"
	"github.com/devix/thermoscan/internal/detector"
	"github.com/devix/thermoscan/internal/imagestore"
	"github.com/devix/thermoscan/internal/inspection"
	"github.com/devix/thermoscan/internal/reconcile"
	"github.com/devix/thermoscan/internal/store"
	"github.com/devix/thermoscan/internal/transformer"
	"github.com/devix/thermoscan/internal/tuning"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set environment variables directly.
	_ = godotenv.Load()

	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "detector_url", cfg.Detector.BaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache and tuning feedback queue
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	feedbackQueue, err := tuning.NewRedisQueue(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create feedback queue: %w", err)
	}
	defer feedbackQueue.Close()

	// 5. Create image store and detector client
	images, err := imagestore.NewFilesystem(cfg.Images.Dir)
	if err != nil {
		return fmt.Errorf("create image store: %w", err)
	}

	det := detector.NewHTTPClient(cfg.Detector.BaseURL, cfg.Detector.Timeout)

	// 6. Create store and services
	pgStore := store.NewPostgresStore(pool)

	transformerSvc := transformer.NewService(pgStore, images)
	inspectionSvc := inspection.NewService(pgStore, images, redisCache)
	reconcileSvc := reconcile.NewService(pgStore, images, redisCache, feedbackQueue)

	// 7. Start background workers
	scheduler := analysis.NewScheduler(pgStore, images, det, redisCache, cfg.Detector.Timeout)
	if cfg.Analysis.RunOnStartup {
		if err := scheduler.RunOnce(ctx); err != nil {
			slog.Warn("startup analysis pass failed", "error", err)
		}
	}
	scheduler.Start(cfg.Analysis.Interval)
	defer scheduler.Stop()
	slog.Info("analysis scheduler started", "interval", cfg.Analysis.Interval)

	worker := tuning.NewWorker(feedbackQueue, det, cfg.Detector.Timeout)
	go worker.Run(ctx)

	// 8. Build router with dependencies
	deps := api.Dependencies{
		HealthHandler: healthHandler(pgStore, redisCache),

		CreateTransformer: handler.NewCreateTransformerHandler(transformerSvc),
		GetTransformer:    handler.NewGetTransformerHandler(transformerSvc),
		ListTransformers:  handler.NewListTransformersHandler(transformerSvc),
		UpdateTransformer: handler.NewUpdateTransformerHandler(transformerSvc),
		DeleteTransformer: handler.NewDeleteTransformerHandler(transformerSvc),

		SetBaseline:    handler.NewSetBaselineHandler(transformerSvc),
		GetBaseline:    handler.NewGetBaselineHandler(transformerSvc),
		DeleteBaseline: handler.NewDeleteBaselineHandler(transformerSvc),

		CreateInspection:           handler.NewCreateInspectionHandler(inspectionSvc),
		GetInspection:              handler.NewGetInspectionHandler(inspectionSvc),
		ListInspections:            handler.NewListInspectionsHandler(inspectionSvc),
		ListTransformerInspections: handler.NewListTransformerInspectionsHandler(inspectionSvc),
		UpdateInspection:           handler.NewUpdateInspectionHandler(inspectionSvc),
		DeleteInspection:           handler.NewDeleteInspectionHandler(inspectionSvc),
		AttachThermalImage:         handler.NewAttachThermalImageHandler(inspectionSvc),

		Comparison:        handler.NewComparisonHandler(reconcileSvc),
		Report:            handler.NewReportHandler(reconcileSvc),
		SubmitEvaluations: handler.NewSubmitEvaluationsHandler(reconcileSvc),
		LastUpdated:       handler.NewLastUpdatedHandler(reconcileSvc),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
