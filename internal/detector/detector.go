// Package detector talks to the external thermal-anomaly inference service.
package detector

import (
	"context"
	"errors"

	"github.com/devix/thermoscan/pkg/models"
)

// Sentinel errors for detector failures.
var (
	ErrUnavailable     = errors.New("detector unreachable")
	ErrTimeout         = errors.New("detector timeout")
	ErrInvalidResponse = errors.New("detector returned invalid response")
)

// Client is the interface to the inference service.
type Client interface {
	// Predict submits a thermal image and returns the detected findings. An
	// empty slice means the detector saw no anomaly.
	Predict(ctx context.Context, filename string, image []byte) ([]models.Finding, error)
	// UpdateThresholds sends reviewer feedback so the detector can recalibrate.
	// Fire and forget: callers must tolerate failures.
	UpdateThresholds(ctx context.Context, fb ThresholdFeedback) error
}

// ThresholdFeedback carries an inspection's automated detections next to the
// reviewer's edits, plus the image they refer to.
type ThresholdFeedback struct {
	CurrentDetections []*models.DetectionResult  `json:"current_detections"`
	Edits             []*models.EvaluationResult `json:"edits"`
	ImageURL          string                     `json:"imageUrl"`
}
