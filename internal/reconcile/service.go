// Package reconcile merges automated detections with human evaluation overrides
// into one authoritative finding list per inspection, and assembles the
// baseline/thermal comparison and report payloads.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/devix/thermoscan/internal/cache"
	"github.com/devix/thermoscan/internal/detector"
	"github.com/devix/thermoscan/internal/imagestore"
	"github.com/devix/thermoscan/internal/store"
	"github.com/devix/thermoscan/internal/tuning"
	"github.com/devix/thermoscan/pkg/models"
)

// Which finding set is authoritative for an inspection.
const (
	SourceEvaluation = "evaluation"
	SourceDetection  = "detection"
	SourceNone       = "none"
)

const comparisonTTL = 5 * time.Minute

// Service builds comparison and report payloads and accepts evaluation batches.
type Service struct {
	store  store.Store
	images imagestore.Store
	cache  cache.Cache
	queue  tuning.Queue
}

// NewService creates a reconcile Service.
func NewService(st store.Store, images imagestore.Store, ca cache.Cache, q tuning.Queue) *Service {
	return &Service{store: st, images: images, cache: ca, queue: q}
}

// ImageSide is one half of a comparison: raw bytes plus upload provenance.
// A nil side means that image does not exist yet.
type ImageSide struct {
	Image        []byte `json:"image"`
	UploadedBy   string `json:"uploaded_by"`
	UploadedDate string `json:"uploaded_date"`
	UploadedTime string `json:"uploaded_time"`
}

// Finding is one entry of the authoritative finding list. Reviewer fields are
// only set when the entry came from an evaluation result.
type Finding struct {
	models.Finding
	Notes         *string `json:"notes,omitempty"`
	EvaluatedBy   string  `json:"evaluated_by,omitempty"`
	EvaluatedDate string  `json:"evaluated_date,omitempty"`
}

// Comparison is the baseline/thermal payload for one inspection.
type Comparison struct {
	InspectionNo  string     `json:"inspection_no"`
	TransformerNo string     `json:"transformer_no"`
	Baseline      *ImageSide `json:"baseline"`
	Thermal       *ImageSide `json:"thermal"`
	Source        string     `json:"source"`
	Findings      []Finding  `json:"findings"`
}

// Comparison assembles the comparison payload for an inspection. Missing
// baseline or thermal images yield null placeholders, never an error.
func (s *Service) Comparison(ctx context.Context, inspectionNo string) (*Comparison, error) {
	if data, ok, err := s.cache.Get(ctx, cache.ComparisonKey(inspectionNo)); err == nil && ok {
		var cached Comparison
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	insp, err := s.store.GetInspection(ctx, inspectionNo)
	if err != nil {
		return nil, fmt.Errorf("resolving inspection %s: %w", inspectionNo, err)
	}

	cmp := &Comparison{
		InspectionNo:  insp.No,
		TransformerNo: insp.TransformerNo,
	}

	img, err := s.store.GetInspectionImage(ctx, inspectionNo)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("resolving thermal image: %w", err)
	}
	if img != nil {
		cmp.Thermal = s.loadSide(ctx, img.ImageRef, img.UploadedBy, img.UploadedDate, img.UploadedTime)
	}

	baseline, err := s.store.GetBaselineImageSet(ctx, insp.TransformerNo)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("resolving baseline image set: %w", err)
	}
	if baseline != nil && img != nil {
		if ref := baseline.ImageRefFor(img.Condition); ref != "" {
			cmp.Baseline = s.loadSide(ctx, ref, baseline.UploadedBy, baseline.UploadedDate, baseline.UploadedTime)
		}
	}

	cmp.Source, cmp.Findings, err = s.authoritativeFindings(ctx, inspectionNo)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(cmp); err == nil {
		_ = s.cache.Set(ctx, cache.ComparisonKey(inspectionNo), payload, comparisonTTL)
	}

	return cmp, nil
}

// loadSide resolves image bytes. A missing file degrades to a nil side.
func (s *Service) loadSide(ctx context.Context, ref, by, date, tm string) *ImageSide {
	data, err := s.images.Load(ctx, ref)
	if err != nil {
		slog.Warn("loading image failed", "ref", ref, "error", err)
		return nil
	}
	return &ImageSide{Image: data, UploadedBy: by, UploadedDate: date, UploadedTime: tm}
}

// authoritativeFindings returns the evaluation results when any exist, falling
// back to detection results otherwise. Human review always wins.
func (s *Service) authoritativeFindings(ctx context.Context, inspectionNo string) (string, []Finding, error) {
	evals, err := s.store.ListEvaluationResults(ctx, inspectionNo)
	if err != nil {
		return "", nil, fmt.Errorf("listing evaluation results: %w", err)
	}
	if len(evals) > 0 {
		findings := make([]Finding, 0, len(evals))
		for _, e := range evals {
			findings = append(findings, Finding{
				Finding:       e.Finding,
				Notes:         e.Notes,
				EvaluatedBy:   e.EvaluatedBy,
				EvaluatedDate: e.EvaluatedDate,
			})
		}
		return SourceEvaluation, findings, nil
	}

	dets, err := s.store.ListDetectionResults(ctx, inspectionNo)
	if err != nil {
		return "", nil, fmt.Errorf("listing detection results: %w", err)
	}
	if len(dets) == 0 {
		return SourceNone, nil, nil
	}

	findings := make([]Finding, 0, len(dets))
	for _, d := range dets {
		findings = append(findings, Finding{Finding: d.Finding})
	}
	return SourceDetection, findings, nil
}

// Report places the automated and human-reviewed finding sets side by side.
type Report struct {
	InspectionNo   string                     `json:"inspection_no"`
	TransformerNo  string                     `json:"transformer_no"`
	ModelPredicted []*models.DetectionResult  `json:"model_predicted_anomalies"`
	FinalAccepted  []*models.EvaluationResult `json:"final_accepted_anomalies"`
	Authoritative  string                     `json:"authoritative"`
	EvaluatedBy    string                     `json:"evaluated_by,omitempty"`
	EvaluatedDate  string                     `json:"evaluated_date,omitempty"`
}

// Report assembles the side-by-side report for an inspection.
func (s *Service) Report(ctx context.Context, inspectionNo string) (*Report, error) {
	insp, err := s.store.GetInspection(ctx, inspectionNo)
	if err != nil {
		return nil, fmt.Errorf("resolving inspection %s: %w", inspectionNo, err)
	}

	dets, err := s.store.ListDetectionResults(ctx, inspectionNo)
	if err != nil {
		return nil, fmt.Errorf("listing detection results: %w", err)
	}
	evals, err := s.store.ListEvaluationResults(ctx, inspectionNo)
	if err != nil {
		return nil, fmt.Errorf("listing evaluation results: %w", err)
	}

	rep := &Report{
		InspectionNo:   insp.No,
		TransformerNo:  insp.TransformerNo,
		ModelPredicted: dets,
		FinalAccepted:  evals,
		Authoritative:  SourceNone,
	}
	switch {
	case len(evals) > 0:
		rep.Authoritative = SourceEvaluation
		rep.EvaluatedBy = evals[0].EvaluatedBy
		rep.EvaluatedDate = evals[0].EvaluatedDate
	case len(dets) > 0:
		rep.Authoritative = SourceDetection
	}
	return rep, nil
}

// EvaluationInput is one reviewer finding in a submission batch.
type EvaluationInput struct {
	models.Finding
	Notes         *string `json:"notes"`
	EvaluatedBy   string  `json:"evaluated_by"`
	EvaluatedDate string  `json:"evaluated_date"`
}

// SubmitEvaluations replaces the inspection's evaluation results with the given
// batch, marks the inspection evaluated, and queues threshold feedback for the
// detector. Feedback delivery is fire and forget: its failure never rolls back
// the evaluation write.
func (s *Service) SubmitEvaluations(ctx context.Context, inspectionNo string, batch []EvaluationInput) ([]*models.EvaluationResult, error) {
	if len(batch) == 0 {
		return nil, fmt.Errorf("evaluation batch is empty")
	}

	insp, err := s.store.GetInspection(ctx, inspectionNo)
	if err != nil {
		return nil, fmt.Errorf("resolving inspection %s: %w", inspectionNo, err)
	}

	results := make([]*models.EvaluationResult, 0, len(batch))
	for _, in := range batch {
		results = append(results, &models.EvaluationResult{
			ID:            uuid.New(),
			InspectionNo:  inspectionNo,
			TransformerNo: insp.TransformerNo,
			Finding:       in.Finding,
			Notes:         in.Notes,
			EvaluatedBy:   in.EvaluatedBy,
			EvaluatedDate: in.EvaluatedDate,
		})
	}

	if err := s.store.ReplaceEvaluationResults(ctx, inspectionNo, results); err != nil {
		return nil, fmt.Errorf("storing evaluation results: %w", err)
	}

	if err := s.store.UpdateInspectionStatus(ctx, inspectionNo, models.StatusEvaluated); err != nil {
		return nil, fmt.Errorf("marking inspection evaluated: %w", err)
	}

	_ = s.cache.Delete(ctx, cache.ComparisonKey(inspectionNo))

	s.enqueueFeedback(ctx, inspectionNo, results)

	slog.Info("evaluation results submitted", "inspection_no", inspectionNo, "count", len(results))
	return results, nil
}

func (s *Service) enqueueFeedback(ctx context.Context, inspectionNo string, evals []*models.EvaluationResult) {
	dets, err := s.store.ListDetectionResults(ctx, inspectionNo)
	if err != nil {
		slog.Warn("collecting detections for threshold feedback failed", "inspection_no", inspectionNo, "error", err)
		dets = nil
	}

	var imageRef string
	if img, err := s.store.GetInspectionImage(ctx, inspectionNo); err == nil {
		imageRef = img.ImageRef
	}

	fb := detector.ThresholdFeedback{
		CurrentDetections: dets,
		Edits:             evals,
		ImageURL:          imageRef,
	}
	if err := s.queue.Enqueue(ctx, fb); err != nil {
		slog.Error("enqueueing threshold feedback failed", "inspection_no", inspectionNo, "error", err)
	}
}

// LastUpdated reports when an inspection last changed, preferring the latest
// evaluation, then the thermal image upload, then the inspection record itself.
func (s *Service) LastUpdated(ctx context.Context, inspectionNo string) (date, tm string, err error) {
	insp, err := s.store.GetInspection(ctx, inspectionNo)
	if err != nil {
		return "", "", fmt.Errorf("resolving inspection %s: %w", inspectionNo, err)
	}

	evals, err := s.store.ListEvaluationResults(ctx, inspectionNo)
	if err != nil {
		return "", "", fmt.Errorf("listing evaluation results: %w", err)
	}
	if len(evals) > 0 {
		d, t := splitDateTime(evals[0].EvaluatedDate)
		for _, e := range evals[1:] {
			if ed, et := splitDateTime(e.EvaluatedDate); ed > d || (ed == d && et > t) {
				d, t = ed, et
			}
		}
		return d, t, nil
	}

	if img, err := s.store.GetInspectionImage(ctx, inspectionNo); err == nil {
		return img.UploadedDate, img.UploadedTime, nil
	}

	return insp.Date, insp.Time, nil
}

// splitDateTime separates "2025-10-21 16:31:54" or "2025-10-21T16:31:54" into
// date and time parts. A string without a time component is all date.
func splitDateTime(v string) (string, string) {
	for _, sep := range []string{" ", "T"} {
		if d, t, ok := strings.Cut(v, sep); ok {
			return d, t
		}
	}
	return v, ""
}
