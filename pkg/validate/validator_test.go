package validate

import (
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
)

func f(v float64) *float64 { return &v }

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func completeReading() models.RawReading {
	ts := time.Date(2025, 1, 1, 10, 15, 3, 0, time.UTC)
	return models.RawReading{
		EventID:            "evt_a1b2c3d4e5f6",
		Timestamp:          &ts,
		LocID:              "loc_1",
		Latitude:           f(23.4219),
		Longitude:          f(30.5978),
		PH:                 f(6.5),
		Nitrogen:           f(40),
		Phosphorus:         f(20),
		Potassium:          f(15),
		SoilTemperature:    f(28.4),
		SoilHumidity:       f(33.1),
		WaterLevel:         f(55.0),
		WeatherTemperature: f(31.2),
		WeatherHumidity:    f(40),
		WindSpeed:          f(3.4),
		WindDirection:      f(180),
		Rain:               f(0),
		SurfacePressure:    f(1001.3),
	}
}

func TestValidate_CompleteReading(t *testing.T) {
	v := New(testLogger())

	result := v.Validate(completeReading())
	require.NotNil(t, result.Valid)
	require.Nil(t, result.Invalid)
	assert.Equal(t, models.ReadingStatusValid, result.Valid.Status)
	assert.Empty(t, result.Valid.Warnings)
}

func TestValidate_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.RawReading)
		reasons []string
	}{
		{
			name:    "missing ph rejects the soil group",
			mutate:  func(r *models.RawReading) { r.PH = nil },
			reasons: []string{"missing ph"},
		},
		{
			name:    "missing timestamp",
			mutate:  func(r *models.RawReading) { r.Timestamp = nil },
			reasons: []string{"missing timestamp"},
		},
		{
			name:    "missing loc_id",
			mutate:  func(r *models.RawReading) { r.LocID = "" },
			reasons: []string{"missing loc_id"},
		},
		{
			name:    "missing weather representative field",
			mutate:  func(r *models.RawReading) { r.WeatherTemperature = nil },
			reasons: []string{"missing weather_temperature"},
		},
		{
			name: "multiple missing fields all named",
			mutate: func(r *models.RawReading) {
				r.Nitrogen = nil
				r.Potassium = nil
			},
			reasons: []string{"missing nitrogen", "missing potassium"},
		},
	}

	v := New(testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := completeReading()
			tt.mutate(&r)

			result := v.Validate(r)
			require.Nil(t, result.Valid)
			require.NotNil(t, result.Invalid)
			for _, reason := range tt.reasons {
				assert.Contains(t, result.Invalid.Reasons, reason)
			}
		})
	}
}

func TestValidate_SentinelValues(t *testing.T) {
	v := New(testLogger())

	r := completeReading()
	r.PH = f(9999)

	result := v.Validate(r)
	require.NotNil(t, result.Invalid)
	assert.Contains(t, result.Invalid.Reasons, "ph extreme value")

	r = completeReading()
	r.WeatherTemperature = f(-9999)
	result = v.Validate(r)
	require.NotNil(t, result.Invalid)
	assert.Contains(t, result.Invalid.Reasons, "weather_temperature extreme value")
}

func TestValidate_RangeViolationIsWarningNotRejection(t *testing.T) {
	v := New(testLogger())

	r := completeReading()
	r.PH = f(9.2) // above loc_1 expected range, still a plausible sample

	result := v.Validate(r)
	require.NotNil(t, result.Valid)
	assert.Equal(t, models.ReadingStatusWarning, result.Valid.Status)
	assert.Contains(t, result.Valid.Warnings, "ph above expected range")
}

func TestValidate_UnknownLocationUsesDefaultRanges(t *testing.T) {
	v := New(testLogger())

	r := completeReading()
	r.LocID = "loc_99"
	r.PH = f(2.0)

	result := v.Validate(r)
	require.NotNil(t, result.Valid)
	assert.Equal(t, models.ReadingStatusWarning, result.Valid.Status)
	assert.Contains(t, result.Valid.Warnings, "ph below expected range")
}

func TestValidate_RangeChecksDisabled(t *testing.T) {
	v := New(testLogger()).WithRanges(nil)

	r := completeReading()
	r.PH = f(9.2)

	result := v.Validate(r)
	require.NotNil(t, result.Valid)
	assert.Equal(t, models.ReadingStatusValid, result.Valid.Status)
}
