// Package analysis runs the periodic job that dispatches pending inspections to
// the external anomaly detector and records the results.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/devix/thermoscan/internal/cache"
	"github.com/devix/thermoscan/internal/detector"
	"github.com/devix/thermoscan/internal/imagestore"
	"github.com/devix/thermoscan/internal/store"
	"github.com/devix/thermoscan/pkg/models"
)

// ErrNoThermalImage marks a pending inspection without an attached image: a
// malformed state that is skipped, not retried and not fatal to the batch.
var ErrNoThermalImage = errors.New("pending inspection has no thermal image")

// Scheduler periodically analyzes all inspections in pending_analysis status.
// Ticks never overlap: a tick that fires while the previous one is still
// running is skipped.
type Scheduler struct {
	store       store.Store
	images      imagestore.Store
	detector    detector.Client
	cache       cache.Cache
	callTimeout time.Duration

	cron *cron.Cron
}

// NewScheduler creates a Scheduler. callTimeout bounds each detector call so a
// hung inference service cannot stall a tick forever; a timed-out inspection is
// retried on the next tick.
func NewScheduler(st store.Store, images imagestore.Store, det detector.Client, ca cache.Cache, callTimeout time.Duration) *Scheduler {
	return &Scheduler{
		store:       st,
		images:      images,
		detector:    det,
		cache:       ca,
		callTimeout: callTimeout,
	}
}

// Start schedules analysis passes at the given interval until Stop is called.
func (s *Scheduler) Start(interval time.Duration) {
	logger := cronLogger{}
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(logger)))
	s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		if err := s.RunOnce(context.Background()); err != nil {
			slog.Error("analysis pass failed", "error", err)
		}
	}))
	s.cron.Start()
	slog.Info("analysis scheduler started", "interval", interval)
}

// Stop halts the schedule and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	slog.Info("analysis scheduler stopped")
}

// RunOnce performs a single analysis pass over all pending inspections.
// Per-inspection failures are logged and isolated: one bad inspection, image or
// detector call never aborts the batch.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	pending, err := s.store.ListInspectionsByStatus(ctx, models.StatusPendingAnalysis)
	if err != nil {
		return fmt.Errorf("listing pending inspections: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.Info("analysis pass started", "pending", len(pending))
	for _, insp := range pending {
		if err := s.analyze(ctx, insp); err != nil {
			// Status stays pending_analysis; the next tick retries.
			slog.Error("inspection analysis failed", "inspection_no", insp.No, "error", err)
		}
	}
	return nil
}

func (s *Scheduler) analyze(ctx context.Context, insp *models.Inspection) error {
	img, err := s.store.GetInspectionImage(ctx, insp.No)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("skipping inspection", "inspection_no", insp.No, "reason", ErrNoThermalImage)
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolving thermal image: %w", err)
	}

	data, err := s.images.Load(ctx, img.ImageRef)
	if err != nil {
		return fmt.Errorf("loading thermal image %s: %w", img.ImageRef, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	findings, err := s.detector.Predict(callCtx, img.ImageRef, data)
	if err != nil {
		return fmt.Errorf("detector call: %w", err)
	}

	results := buildResults(insp.No, findings)
	if err := s.store.ReplaceDetectionResults(ctx, insp.No, results); err != nil {
		return fmt.Errorf("storing detection results: %w", err)
	}

	if err := s.store.UpdateInspectionStatus(ctx, insp.No, models.StatusInProgress); err != nil {
		return fmt.Errorf("advancing inspection status: %w", err)
	}

	// A comparison requested before this pass may have cached an empty finding
	// list; drop it so the fresh detections are visible immediately.
	_ = s.cache.Delete(ctx, cache.ComparisonKey(insp.No))

	slog.Info("inspection analyzed", "inspection_no", insp.No, "findings", len(findings))
	return nil
}

// buildResults maps detector findings to detection rows. An empty finding list
// becomes the single sentinel "no anomaly" row.
func buildResults(inspectionNo string, findings []models.Finding) []*models.DetectionResult {
	if len(findings) == 0 {
		return []*models.DetectionResult{models.NoAnomalyDetection(inspectionNo)}
	}

	results := make([]*models.DetectionResult, 0, len(findings))
	for _, f := range findings {
		results = append(results, &models.DetectionResult{
			ID:           uuid.New(),
			InspectionNo: inspectionNo,
			Finding:      f,
		})
	}
	return results
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Info("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
