package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devix/thermoscan/pkg/models"
)

func TestInspectionStatus_Valid(t *testing.T) {
	for _, s := range []models.InspectionStatus{
		models.StatusNoImage,
		models.StatusPendingAnalysis,
		models.StatusInProgress,
		models.StatusEvaluated,
	} {
		assert.True(t, s.Valid(), string(s))
	}

	assert.False(t, models.InspectionStatus("done").Valid())
	assert.False(t, models.InspectionStatus("").Valid())
}

func TestParseWeatherCondition(t *testing.T) {
	cases := map[string]models.WeatherCondition{
		"sunny":    models.ConditionSunny,
		"Cloudy":   models.ConditionCloudy,
		" RAINY ":  models.ConditionRainy,
		"\tsunny ": models.ConditionSunny,
	}
	for in, want := range cases {
		got, err := models.ParseWeatherCondition(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := models.ParseWeatherCondition("snowy")
	assert.Error(t, err)
	_, err = models.ParseWeatherCondition("")
	assert.Error(t, err)
}

func TestBaselineImageSet_ImageRefFor(t *testing.T) {
	b := &models.BaselineImageSet{
		SunnyImageRef:  "s.png",
		CloudyImageRef: "c.png",
		RainyImageRef:  "r.png",
	}

	assert.Equal(t, "s.png", b.ImageRefFor(models.ConditionSunny))
	assert.Equal(t, "c.png", b.ImageRefFor(models.ConditionCloudy))
	assert.Equal(t, "r.png", b.ImageRefFor(models.ConditionRainy))
	assert.Empty(t, b.ImageRefFor(models.WeatherCondition("snowy")))
}

func TestNoAnomalyDetection(t *testing.T) {
	d := models.NoAnomalyDetection("00042")

	assert.Equal(t, "00042", d.InspectionNo)
	require.NotNil(t, d.AnomalyStatus)
	assert.Equal(t, models.AnomalyStatusNone, *d.AnomalyStatus)
	assert.Nil(t, d.FaultType)
	assert.Nil(t, d.Severity)
}
