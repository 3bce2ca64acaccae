package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InspectionStatus is the closed set of lifecycle states for an inspection.
// Transitions: no_image -> pending_analysis (thermal image attached, from any
// state) -> in_progress (analysis pass stored) -> evaluated (reviewer submitted
// evaluation results).
type InspectionStatus string

const (
	StatusNoImage         InspectionStatus = "no_image"
	StatusPendingAnalysis InspectionStatus = "pending_analysis"
	StatusInProgress      InspectionStatus = "in_progress"
	StatusEvaluated       InspectionStatus = "evaluated"
)

// Valid reports whether s is one of the known lifecycle states.
func (s InspectionStatus) Valid() bool {
	switch s {
	case StatusNoImage, StatusPendingAnalysis, StatusInProgress, StatusEvaluated:
		return true
	}
	return false
}

// WeatherCondition tags baseline and thermal images so an inspection image can
// be compared against the weather-matched baseline.
type WeatherCondition string

const (
	ConditionSunny  WeatherCondition = "sunny"
	ConditionCloudy WeatherCondition = "cloudy"
	ConditionRainy  WeatherCondition = "rainy"
)

// ParseWeatherCondition normalizes user input to a known condition.
func ParseWeatherCondition(s string) (WeatherCondition, error) {
	switch WeatherCondition(strings.ToLower(strings.TrimSpace(s))) {
	case ConditionSunny:
		return ConditionSunny, nil
	case ConditionCloudy:
		return ConditionCloudy, nil
	case ConditionRainy:
		return ConditionRainy, nil
	}
	return "", fmt.Errorf("unknown weather condition %q (want sunny, cloudy or rainy)", s)
}

// Inspection is one thermal-imaging event for a transformer. InspectionNo is a
// zero-padded sequential business key; numbers are never reused after deletion.
type Inspection struct {
	ID            uuid.UUID        `db:"id"             json:"id"`
	No            string           `db:"inspection_no"  json:"inspection_no"`
	TransformerNo string           `db:"transformer_no" json:"transformer_no"`
	Date          string           `db:"inspection_date"   json:"date"`
	Time          string           `db:"inspection_time"   json:"time"`
	Branch        string           `db:"branch"         json:"branch"`
	InspectedBy   string           `db:"inspected_by"   json:"inspected_by"`
	Status        InspectionStatus `db:"status"         json:"status"`
	CreatedAt     time.Time        `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at"     json:"updated_at"`
}

// InspectionImage is the thermal image attached to an inspection. One image per
// inspection; a re-upload replaces the previous one.
type InspectionImage struct {
	ID            uuid.UUID        `db:"id"             json:"id"`
	InspectionNo  string           `db:"inspection_no"  json:"inspection_no"`
	TransformerNo string           `db:"transformer_no" json:"transformer_no"`
	ImageRef      string           `db:"image_ref"      json:"image_ref"`
	Condition     WeatherCondition `db:"condition"      json:"condition"`
	UploadedBy    string           `db:"uploaded_by"    json:"uploaded_by"`
	UploadedDate  string           `db:"uploaded_date"  json:"uploaded_date"`
	UploadedTime  string           `db:"uploaded_time"  json:"uploaded_time"`
	CreatedAt     time.Time        `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at"     json:"updated_at"`
}
