package store

import (
	"context"
	"errors"

	"github.com/devix/thermoscan/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateTransformer(ctx context.Context, t *models.Transformer) error
	GetTransformer(ctx context.Context, transformerNo string) (*models.Transformer, error)
	ListTransformers(ctx context.Context) ([]*models.Transformer, error)
	UpdateTransformer(ctx context.Context, t *models.Transformer) error
	// DeleteTransformer cascades: the baseline image set, all inspections and
	// their images, detection results and evaluation results go with it.
	DeleteTransformer(ctx context.Context, transformerNo string) error

	UpsertBaselineImageSet(ctx context.Context, b *models.BaselineImageSet) error
	GetBaselineImageSet(ctx context.Context, transformerNo string) (*models.BaselineImageSet, error)
	DeleteBaselineImageSet(ctx context.Context, transformerNo string) error

	// CreateInspection fills in insp.No from the inspection-number sequence and
	// persists the row. Numbers are 5-digit zero-padded and never reused.
	CreateInspection(ctx context.Context, insp *models.Inspection) error
	GetInspection(ctx context.Context, inspectionNo string) (*models.Inspection, error)
	ListInspections(ctx context.Context) ([]*models.Inspection, error)
	ListInspectionsByTransformer(ctx context.Context, transformerNo string) ([]*models.Inspection, error)
	ListInspectionsByStatus(ctx context.Context, status models.InspectionStatus) ([]*models.Inspection, error)
	UpdateInspection(ctx context.Context, insp *models.Inspection) error
	UpdateInspectionStatus(ctx context.Context, inspectionNo string, status models.InspectionStatus) error
	DeleteInspection(ctx context.Context, inspectionNo string) error

	// UpsertInspectionImage replaces any existing image row for the inspection:
	// the latest upload wins.
	UpsertInspectionImage(ctx context.Context, img *models.InspectionImage) error
	GetInspectionImage(ctx context.Context, inspectionNo string) (*models.InspectionImage, error)

	// ReplaceDetectionResults deletes any prior detection batch for the
	// inspection and inserts the new one in a single transaction, so analysis
	// passes never accumulate.
	ReplaceDetectionResults(ctx context.Context, inspectionNo string, results []*models.DetectionResult) error
	ListDetectionResults(ctx context.Context, inspectionNo string) ([]*models.DetectionResult, error)
	DeleteDetectionResults(ctx context.Context, inspectionNo string) error

	// ReplaceEvaluationResults is delete-then-insert in one transaction:
	// submitting twice leaves exactly the second batch.
	ReplaceEvaluationResults(ctx context.Context, inspectionNo string, results []*models.EvaluationResult) error
	ListEvaluationResults(ctx context.Context, inspectionNo string) ([]*models.EvaluationResult, error)
}
