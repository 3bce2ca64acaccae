package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AnomalyStatusNone is the sentinel anomaly status recorded when the detector
// returns an empty finding list for an inspection image.
const AnomalyStatusNone = "no_anomaly"

// Finding is a single reported thermal anomaly. Every field is optional:
// values absent from the detector response (or left blank by a reviewer) stay
// NULL in the store rather than being defaulted.
type Finding struct {
	AnomalyStatus *string          `db:"anomaly_status" json:"anomaly_status"`
	FaultType     *string          `db:"fault_type"     json:"fault_type"`
	Severity      *float64         `db:"severity"       json:"severity"`
	Confidence    *float64         `db:"confidence"     json:"confidence"`
	XCoordinate   *float64         `db:"x_coordinate"   json:"x_coordinate"`
	YCoordinate   *float64         `db:"y_coordinate"   json:"y_coordinate"`
	BBox          json.RawMessage  `db:"bbox"           json:"bbox,omitempty"`
	AreaPx        *float64         `db:"area_px"        json:"area_px"`
	HotspotX      *float64         `db:"hotspot_x"      json:"hotspot_x"`
	HotspotY      *float64         `db:"hotspot_y"      json:"hotspot_y"`
}

// DetectionResult is an automated finding produced by the external detector for
// one inspection. An inspection may hold several, or a single sentinel row.
type DetectionResult struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	InspectionNo string    `db:"inspection_no" json:"inspection_no"`
	Finding
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NoAnomalyDetection builds the sentinel "no anomaly" detection row.
func NoAnomalyDetection(inspectionNo string) *DetectionResult {
	status := AnomalyStatusNone
	return &DetectionResult{
		ID:           uuid.New(),
		InspectionNo: inspectionNo,
		Finding:      Finding{AnomalyStatus: &status},
	}
}

// EvaluationResult is a human reviewer's authoritative finding. When any exist
// for an inspection they fully supersede its detection results.
type EvaluationResult struct {
	ID            uuid.UUID `db:"id"             json:"id"`
	InspectionNo  string    `db:"inspection_no"  json:"inspection_no"`
	TransformerNo string    `db:"transformer_no" json:"transformer_no"`
	Finding
	Notes         *string   `db:"notes"          json:"notes"`
	EvaluatedBy   string    `db:"evaluated_by"   json:"evaluated_by"`
	EvaluatedDate string    `db:"evaluated_date" json:"evaluated_date"`
	CreatedAt     time.Time `db:"created_at"     json:"created_at"`
}
