// Package validate classifies raw readings before they touch the warehouse.
package validate

import (
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/models"
)

// Sentinel values some field gateways emit in place of a failed sample.
// A required field carrying one of these rejects the whole reading.
const (
	sentinelHigh = 9999
	sentinelLow  = -9999
)

// Result is the outcome of validating one raw reading. Exactly one of
// Valid/Invalid is set.
type Result struct {
	Valid   *models.ValidReading
	Invalid *models.InvalidReading
}

// Validator checks completeness and plausibility of raw readings. A reading
// missing any dimension's required natural-key fields is rejected entirely;
// range violations only downgrade the status to WARNING.
type Validator struct {
	logger      ectologger.Logger
	ranges      map[string]Ranges
	rangeChecks bool
}

// New creates a validator with the default per-location expected ranges.
func New(logger ectologger.Logger) *Validator {
	return &Validator{
		logger:      logger,
		ranges:      DefaultRanges(),
		rangeChecks: true,
	}
}

// WithRanges replaces the per-location expected ranges. Passing nil disables
// range advisories.
func (v *Validator) WithRanges(ranges map[string]Ranges) *Validator {
	v.ranges = ranges
	v.rangeChecks = ranges != nil
	return v
}

type requiredField struct {
	name  string
	value *float64
}

// Validate classifies a raw reading. Required fields, grouped by the
// dimension they feed: soil needs all of ph/nitrogen/phosphorus/potassium,
// time needs the timestamp, location needs loc_id, and weather_temperature
// stands in for the weather group.
func (v *Validator) Validate(r models.RawReading) Result {
	var reasons []string

	if r.Timestamp == nil {
		reasons = append(reasons, "missing timestamp")
	}
	if r.LocID == "" {
		reasons = append(reasons, "missing loc_id")
	}

	required := []requiredField{
		{"ph", r.PH},
		{"nitrogen", r.Nitrogen},
		{"phosphorus", r.Phosphorus},
		{"potassium", r.Potassium},
		{"weather_temperature", r.WeatherTemperature},
	}
	for _, f := range required {
		if f.value == nil {
			reasons = append(reasons, fmt.Sprintf("missing %s", f.name))
			continue
		}
		if isSentinel(*f.value) {
			reasons = append(reasons, fmt.Sprintf("%s extreme value", f.name))
		}
	}

	if len(reasons) > 0 {
		v.logger.WithFields(map[string]any{
			"event_id": r.EventID,
			"loc_id":   r.LocID,
			"reasons":  reasons,
		}).Warn("Rejected reading")
		return Result{Invalid: &models.InvalidReading{RawReading: r, Reasons: reasons}}
	}

	valid := &models.ValidReading{RawReading: r, Status: models.ReadingStatusValid}
	if v.rangeChecks {
		if warnings := v.checkRanges(r); len(warnings) > 0 {
			valid.Status = models.ReadingStatusWarning
			valid.Warnings = warnings
			v.logger.WithFields(map[string]any{
				"event_id": r.EventID,
				"loc_id":   r.LocID,
				"warnings": warnings,
			}).Debug("Reading outside expected ranges")
		}
	}

	return Result{Valid: valid}
}

// checkRanges compares present measures against the expected ranges for the
// reading's location. Violations are advisories, never rejections.
func (v *Validator) checkRanges(r models.RawReading) []string {
	ranges, ok := v.ranges[r.LocID]
	if !ok {
		ranges, ok = v.ranges[DefaultLocation]
		if !ok {
			return nil
		}
	}

	fields := []requiredField{
		{"ph", r.PH},
		{"nitrogen", r.Nitrogen},
		{"phosphorus", r.Phosphorus},
		{"potassium", r.Potassium},
		{"soil_temperature", r.SoilTemperature},
		{"soil_humidity", r.SoilHumidity},
		{"water_level", r.WaterLevel},
	}

	var warnings []string
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		bounds, ok := ranges[f.name]
		if !ok {
			continue
		}
		if *f.value < bounds.Min {
			warnings = append(warnings, fmt.Sprintf("%s below expected range", f.name))
		} else if *f.value > bounds.Max {
			warnings = append(warnings, fmt.Sprintf("%s above expected range", f.name))
		}
	}
	return warnings
}

func isSentinel(v float64) bool {
	return v == sentinelHigh || v == sentinelLow
}
