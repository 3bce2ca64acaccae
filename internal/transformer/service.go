// Package transformer manages transformer records and their baseline image sets.
package transformer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/devix/thermoscan/internal/imagestore"
	"github.com/devix/thermoscan/internal/store"
	"github.com/devix/thermoscan/pkg/models"
)

// Service owns transformer CRUD and baseline image management.
type Service struct {
	store  store.Store
	images imagestore.Store
}

// NewService creates a transformer Service.
func NewService(st store.Store, images imagestore.Store) *Service {
	return &Service{store: st, images: images}
}

// CreateParams are the caller-supplied attributes of a new transformer.
type CreateParams struct {
	No       string
	Type     string
	PoleNo   string
	Region   string
	Location string
	Capacity string
}

// Create persists a new transformer. Returns store.ErrDuplicateKey when the
// transformer number is already taken.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.Transformer, error) {
	if p.No == "" {
		return nil, fmt.Errorf("transformer number is required")
	}

	now := time.Now().UTC()
	t := &models.Transformer{
		ID:        uuid.New(),
		No:        p.No,
		Type:      p.Type,
		PoleNo:    p.PoleNo,
		Region:    p.Region,
		Location:  p.Location,
		Capacity:  p.Capacity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateTransformer(ctx, t); err != nil {
		return nil, fmt.Errorf("creating transformer %s: %w", p.No, err)
	}

	slog.Info("transformer created", "transformer_no", t.No)
	return t, nil
}

func (s *Service) Get(ctx context.Context, transformerNo string) (*models.Transformer, error) {
	return s.store.GetTransformer(ctx, transformerNo)
}

func (s *Service) List(ctx context.Context) ([]*models.Transformer, error) {
	return s.store.ListTransformers(ctx)
}

// Update replaces the descriptive attributes of an existing transformer. The
// transformer number itself never changes.
func (s *Service) Update(ctx context.Context, p CreateParams) (*models.Transformer, error) {
	t := &models.Transformer{
		No:       p.No,
		Type:     p.Type,
		PoleNo:   p.PoleNo,
		Region:   p.Region,
		Location: p.Location,
		Capacity: p.Capacity,
	}
	if err := s.store.UpdateTransformer(ctx, t); err != nil {
		return nil, fmt.Errorf("updating transformer %s: %w", p.No, err)
	}
	return s.store.GetTransformer(ctx, p.No)
}

// Delete removes a transformer and everything keyed to it: baseline image set,
// inspections, inspection images, detection and evaluation results. Stored
// image files are removed best effort after the records are gone.
func (s *Service) Delete(ctx context.Context, transformerNo string) error {
	var refs []string
	if b, err := s.store.GetBaselineImageSet(ctx, transformerNo); err == nil {
		refs = append(refs, b.SunnyImageRef, b.CloudyImageRef, b.RainyImageRef)
	}
	if inspections, err := s.store.ListInspectionsByTransformer(ctx, transformerNo); err == nil {
		for _, insp := range inspections {
			if img, err := s.store.GetInspectionImage(ctx, insp.No); err == nil {
				refs = append(refs, img.ImageRef)
			}
		}
	}

	if err := s.store.DeleteTransformer(ctx, transformerNo); err != nil {
		return fmt.Errorf("deleting transformer %s: %w", transformerNo, err)
	}

	for _, ref := range refs {
		if err := s.images.Remove(ctx, ref); err != nil {
			slog.Warn("removing image file failed", "ref", ref, "error", err)
		}
	}

	slog.Info("transformer deleted", "transformer_no", transformerNo)
	return nil
}

// BaselineUpload carries the three weather-conditioned baseline images plus
// upload provenance.
type BaselineUpload struct {
	SunnyName  string
	Sunny      []byte
	CloudyName string
	Cloudy     []byte
	RainyName  string
	Rainy      []byte

	UploadedBy   string
	UploadedDate string
	UploadedTime string
}

// SetBaseline stores the images and upserts the transformer's baseline set.
// A transformer has at most one active set; re-uploads replace it.
func (s *Service) SetBaseline(ctx context.Context, transformerNo string, up BaselineUpload) (*models.BaselineImageSet, error) {
	if _, err := s.store.GetTransformer(ctx, transformerNo); err != nil {
		return nil, fmt.Errorf("resolving transformer %s: %w", transformerNo, err)
	}

	var oldRefs []string
	if prev, err := s.store.GetBaselineImageSet(ctx, transformerNo); err == nil {
		oldRefs = []string{prev.SunnyImageRef, prev.CloudyImageRef, prev.RainyImageRef}
	}

	sunnyRef, err := s.images.Save(ctx, up.SunnyName, up.Sunny)
	if err != nil {
		return nil, fmt.Errorf("storing sunny baseline image: %w", err)
	}
	cloudyRef, err := s.images.Save(ctx, up.CloudyName, up.Cloudy)
	if err != nil {
		return nil, fmt.Errorf("storing cloudy baseline image: %w", err)
	}
	rainyRef, err := s.images.Save(ctx, up.RainyName, up.Rainy)
	if err != nil {
		return nil, fmt.Errorf("storing rainy baseline image: %w", err)
	}

	now := time.Now().UTC()
	b := &models.BaselineImageSet{
		ID:             uuid.New(),
		TransformerNo:  transformerNo,
		SunnyImageRef:  sunnyRef,
		CloudyImageRef: cloudyRef,
		RainyImageRef:  rainyRef,
		UploadedBy:     up.UploadedBy,
		UploadedDate:   up.UploadedDate,
		UploadedTime:   up.UploadedTime,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.UpsertBaselineImageSet(ctx, b); err != nil {
		return nil, fmt.Errorf("saving baseline image set: %w", err)
	}

	for _, ref := range oldRefs {
		if err := s.images.Remove(ctx, ref); err != nil {
			slog.Warn("removing replaced baseline image failed", "ref", ref, "error", err)
		}
	}

	slog.Info("baseline image set uploaded", "transformer_no", transformerNo)
	return b, nil
}

func (s *Service) GetBaseline(ctx context.Context, transformerNo string) (*models.BaselineImageSet, error) {
	return s.store.GetBaselineImageSet(ctx, transformerNo)
}

func (s *Service) DeleteBaseline(ctx context.Context, transformerNo string) error {
	b, err := s.store.GetBaselineImageSet(ctx, transformerNo)
	if err != nil {
		return fmt.Errorf("resolving baseline image set for %s: %w", transformerNo, err)
	}

	if err := s.store.DeleteBaselineImageSet(ctx, transformerNo); err != nil {
		return fmt.Errorf("deleting baseline image set for %s: %w", transformerNo, err)
	}

	for _, ref := range []string{b.SunnyImageRef, b.CloudyImageRef, b.RainyImageRef} {
		if err := s.images.Remove(ctx, ref); err != nil {
			slog.Warn("removing baseline image failed", "ref", ref, "error", err)
		}
	}
	return nil
}
