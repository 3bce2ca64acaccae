// Package inspection owns the inspection lifecycle: creation with sequential
// numbering, thermal image attachment, and the status transitions that feed the
// analysis scheduler.
package inspection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/devix/thermoscan/internal/cache"
	"github.com/devix/thermoscan/internal/imagestore"
	"github.com/devix/thermoscan/internal/store"
	"github.com/devix/thermoscan/pkg/models"
)

// ErrUnknownTransformer is returned when an inspection references a transformer
// that does not exist.
var ErrUnknownTransformer = errors.New("transformer does not exist")

// Service is the inspection lifecycle controller.
type Service struct {
	store  store.Store
	images imagestore.Store
	cache  cache.Cache
}

// NewService creates an inspection Service.
func NewService(st store.Store, images imagestore.Store, ca cache.Cache) *Service {
	return &Service{store: st, images: images, cache: ca}
}

// CreateParams are the caller-supplied attributes of a new inspection. The
// inspection number is allocated by the store, never by the caller.
type CreateParams struct {
	TransformerNo string
	Date          string
	Time          string
	Branch        string
	InspectedBy   string
}

// Create allocates the next sequential inspection number and persists the
// record in no_image status. Fails with ErrUnknownTransformer when the named
// transformer does not exist.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.Inspection, error) {
	if _, err := s.store.GetTransformer(ctx, p.TransformerNo); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTransformer, p.TransformerNo)
		}
		return nil, fmt.Errorf("resolving transformer %s: %w", p.TransformerNo, err)
	}

	now := time.Now().UTC()
	insp := &models.Inspection{
		ID:            uuid.New(),
		TransformerNo: p.TransformerNo,
		Date:          p.Date,
		Time:          p.Time,
		Branch:        p.Branch,
		InspectedBy:   p.InspectedBy,
		Status:        models.StatusNoImage,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateInspection(ctx, insp); err != nil {
		return nil, fmt.Errorf("creating inspection: %w", err)
	}

	slog.Info("inspection created", "inspection_no", insp.No, "transformer_no", insp.TransformerNo)
	return insp, nil
}

func (s *Service) Get(ctx context.Context, inspectionNo string) (*models.Inspection, error) {
	return s.store.GetInspection(ctx, inspectionNo)
}

func (s *Service) List(ctx context.Context) ([]*models.Inspection, error) {
	return s.store.ListInspections(ctx)
}

func (s *Service) ListByTransformer(ctx context.Context, transformerNo string) ([]*models.Inspection, error) {
	return s.store.ListInspectionsByTransformer(ctx, transformerNo)
}

// Update replaces the descriptive attributes of an inspection. The inspection
// number and status are preserved.
func (s *Service) Update(ctx context.Context, inspectionNo string, p CreateParams) (*models.Inspection, error) {
	insp := &models.Inspection{
		No:          inspectionNo,
		Date:        p.Date,
		Time:        p.Time,
		Branch:      p.Branch,
		InspectedBy: p.InspectedBy,
	}
	if err := s.store.UpdateInspection(ctx, insp); err != nil {
		return nil, fmt.Errorf("updating inspection %s: %w", inspectionNo, err)
	}
	return s.store.GetInspection(ctx, inspectionNo)
}

// Delete removes the inspection and its image, detections and evaluations. The
// inspection number is never reused.
func (s *Service) Delete(ctx context.Context, inspectionNo string) error {
	var imageRef string
	if img, err := s.store.GetInspectionImage(ctx, inspectionNo); err == nil {
		imageRef = img.ImageRef
	}

	if err := s.store.DeleteInspection(ctx, inspectionNo); err != nil {
		return fmt.Errorf("deleting inspection %s: %w", inspectionNo, err)
	}

	if imageRef != "" {
		if err := s.images.Remove(ctx, imageRef); err != nil {
			slog.Warn("removing inspection image file failed", "ref", imageRef, "error", err)
		}
	}

	slog.Info("inspection deleted", "inspection_no", inspectionNo)
	return nil
}

// ImageUpload carries a thermal image and its upload provenance.
type ImageUpload struct {
	Filename  string
	Data      []byte
	Condition string

	UploadedBy   string
	UploadedDate string
	UploadedTime string
}

// AttachThermalImage stores the image, records it as the inspection's current
// thermal image (latest upload wins) and moves the inspection to
// pending_analysis regardless of its prior status. Detection results from a
// previous image are cleared since they describe an image that is no longer
// current; evaluation results are kept.
func (s *Service) AttachThermalImage(ctx context.Context, inspectionNo string, up ImageUpload) (*models.InspectionImage, error) {
	cond, err := models.ParseWeatherCondition(up.Condition)
	if err != nil {
		return nil, err
	}

	insp, err := s.store.GetInspection(ctx, inspectionNo)
	if err != nil {
		return nil, fmt.Errorf("resolving inspection %s: %w", inspectionNo, err)
	}

	var oldRef string
	if prev, err := s.store.GetInspectionImage(ctx, inspectionNo); err == nil {
		oldRef = prev.ImageRef
	}

	ref, err := s.images.Save(ctx, up.Filename, up.Data)
	if err != nil {
		return nil, fmt.Errorf("storing thermal image: %w", err)
	}

	now := time.Now().UTC()
	img := &models.InspectionImage{
		ID:            uuid.New(),
		InspectionNo:  inspectionNo,
		TransformerNo: insp.TransformerNo,
		ImageRef:      ref,
		Condition:     cond,
		UploadedBy:    up.UploadedBy,
		UploadedDate:  up.UploadedDate,
		UploadedTime:  up.UploadedTime,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.UpsertInspectionImage(ctx, img); err != nil {
		return nil, fmt.Errorf("saving inspection image: %w", err)
	}

	// Detections from the replaced image must not stay visible as authoritative
	// while the new image waits for analysis, so this failure aborts the attach.
	// The caller retries; the store keyed the new image on the inspection number,
	// so a retry overwrites it.
	if err := s.store.DeleteDetectionResults(ctx, inspectionNo); err != nil {
		return nil, fmt.Errorf("clearing stale detection results: %w", err)
	}

	if err := s.store.UpdateInspectionStatus(ctx, inspectionNo, models.StatusPendingAnalysis); err != nil {
		return nil, fmt.Errorf("marking inspection pending: %w", err)
	}

	if oldRef != "" && oldRef != ref {
		if err := s.images.Remove(ctx, oldRef); err != nil {
			slog.Warn("removing replaced thermal image failed", "ref", oldRef, "error", err)
		}
	}

	_ = s.cache.Delete(ctx, cache.ComparisonKey(inspectionNo))

	slog.Info("thermal image attached", "inspection_no", inspectionNo, "condition", cond)
	return img, nil
}
