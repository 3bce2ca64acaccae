package models

import (
	"time"

	"github.com/google/uuid"
)

// Transformer is a power transformer under thermal monitoring. TransformerNo is
// the business key used across all interfaces; the row id never leaves the store.
type Transformer struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	No        string    `db:"transformer_no" json:"transformer_no"`
	Type      string    `db:"type"       json:"type"`
	PoleNo    string    `db:"pole_no"    json:"pole_no"`
	Region    string    `db:"region"     json:"region"`
	Location  string    `db:"location"   json:"location"`
	Capacity  string    `db:"capacity"   json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// BaselineImageSet holds one reference thermal image per weather condition for a
// transformer. At most one set exists per transformer; re-uploads replace it.
type BaselineImageSet struct {
	ID             uuid.UUID `db:"id"              json:"id"`
	TransformerNo  string    `db:"transformer_no"  json:"transformer_no"`
	SunnyImageRef  string    `db:"sunny_image_ref" json:"sunny_image_ref"`
	CloudyImageRef string    `db:"cloudy_image_ref" json:"cloudy_image_ref"`
	RainyImageRef  string    `db:"rainy_image_ref" json:"rainy_image_ref"`
	UploadedBy     string    `db:"uploaded_by"     json:"uploaded_by"`
	UploadedDate   string    `db:"uploaded_date"   json:"uploaded_date"`
	UploadedTime   string    `db:"uploaded_time"   json:"uploaded_time"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updated_at"`
}

// ImageRefFor returns the baseline image reference matching a weather condition.
func (b *BaselineImageSet) ImageRefFor(cond WeatherCondition) string {
	switch cond {
	case ConditionSunny:
		return b.SunnyImageRef
	case ConditionCloudy:
		return b.CloudyImageRef
	case ConditionRainy:
		return b.RainyImageRef
	}
	return ""
}
