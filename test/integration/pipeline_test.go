package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/loader"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/quarantine"
	"github.com/Ramsey-B/sage/pkg/resolver"
	"github.com/Ramsey-B/sage/pkg/validate"
	"github.com/Ramsey-B/sage/pkg/watermark"
)

// The pipeline wired over in-memory backends: validator, resolver, watermark
// tracker, quarantine recorder. Covers the end-to-end behaviors the warehouse
// depends on without needing Postgres or Kafka.

type memFacts struct {
	mu    sync.Mutex
	byEvt map[string]models.FactSensorReading
	next  int64
}

func newMemFacts() *memFacts {
	return &memFacts{byEvt: make(map[string]models.FactSensorReading)}
}

func (s *memFacts) Insert(_ context.Context, f models.FactSensorReading) (*models.FactSensorReading, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEvt[f.EvtID]; ok {
		return nil, false, nil
	}
	s.next++
	f.FactID = s.next
	f.CreatedAt = time.Now().UTC()
	s.byEvt[f.EvtID] = f
	return &f, true, nil
}

func (s *memFacts) get(evtID string) (models.FactSensorReading, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.byEvt[evtID]
	return f, ok
}

func (s *memFacts) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byEvt)
}

// eventLog records emitted lifecycle events in order.
type eventLog struct {
	mu      sync.Mutex
	emitted []string
}

func (e *eventLog) record(kind, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitted = append(e.emitted, kind+":"+id)
}

func (e *eventLog) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.emitted))
	copy(out, e.emitted)
	return out
}

func (e *eventLog) EmitReadingLoaded(_ context.Context, fact *models.FactSensorReading, _ string, _ []string, _ string) error {
	e.record("loaded", fact.EvtID)
	return nil
}

func (e *eventLog) EmitReadingSkipped(_ context.Context, evtID string, _ string, _ string) error {
	e.record("skipped", evtID)
	return nil
}

func (e *eventLog) EmitReadingQuarantined(_ context.Context, evtID string, _ string, _ []string, _ string) error {
	e.record("quarantined", evtID)
	return nil
}

func (e *eventLog) EmitBatchCompleted(_ context.Context, runID string, _ events.BatchStats) error {
	e.record("batch", runID)
	return nil
}

type pipeline struct {
	loader   *loader.Loader
	facts    *memFacts
	dims     *resolver.Memory
	recorder *quarantine.Recorder
	events   *eventLog
}

func newPipeline() *pipeline {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	p := &pipeline{
		facts:    newMemFacts(),
		dims:     resolver.NewMemory(),
		recorder: quarantine.NewRecorder(),
		events:   &eventLog{},
	}
	p.loader = loader.NewLoader(
		nil, p.facts, p.dims, watermark.NewMemory(),
		validate.New(logger), p.recorder, p.events, logger,
	)
	return p
}

func f(v float64) *float64 { return &v }

func reading(evtID, locID string, minute int) models.RawReading {
	ts := time.Date(2025, 3, 10, 8, minute, 21, 0, time.UTC)
	return models.RawReading{
		EventID:            evtID,
		Timestamp:          &ts,
		LocID:              locID,
		Latitude:           f(23.4219),
		Longitude:          f(30.5978),
		PH:                 f(6.8),
		Nitrogen:           f(35),
		Phosphorus:         f(18),
		Potassium:          f(22),
		SoilTemperature:    f(26.3),
		SoilHumidity:       f(41.5),
		WaterLevel:         f(30.0),
		WeatherTemperature: f(29.8),
		WeatherHumidity:    f(52),
		WindSpeed:          f(11.2),
		WindDirection:      f(315),
		Rain:               f(0),
		SurfacePressure:    f(1009.7),
	}
}

func TestPipeline_EndToEnd(t *testing.T) {
	p := newPipeline()
	ctx := context.Background()

	var batch []models.RawReading
	// Ten readings from the same site within the same minute, then ten more
	// a minute later.
	for i := 0; i < 10; i++ {
		batch = append(batch, reading(fmt.Sprintf("evt_%03d", i), "loc_1", 15))
	}
	for i := 10; i < 20; i++ {
		batch = append(batch, reading(fmt.Sprintf("evt_%03d", i), "loc_1", 16))
	}

	summary, err := p.loader.LoadBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 20, summary.Loaded)
	assert.Equal(t, 0, summary.Quarantined)
	assert.Equal(t, 20, p.facts.count())

	soil, location, weather, minutes := p.dims.Counts()
	assert.Equal(t, 1, soil)
	assert.Equal(t, 1, location)
	assert.Equal(t, 1, weather)
	assert.Equal(t, 2, minutes)

	fact, ok := p.facts.get("evt_000")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 10, 8, 15, 0, 0, time.UTC), fact.FullDate)
	assert.Equal(t, models.ReadingStatusValid, fact.ValidationStatus)
}

func TestPipeline_ReplayedBatchIsAllSkips(t *testing.T) {
	p := newPipeline()
	ctx := context.Background()

	batch := []models.RawReading{
		reading("evt_a", "loc_1", 15),
		reading("evt_b", "loc_1", 15),
	}

	first, err := p.loader.LoadBatch(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 2, first.Loaded)

	// The producer retries the whole batch after a timeout.
	second, err := p.loader.LoadBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Loaded)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 2, p.facts.count())
}

func TestPipeline_MixedBatchRoutesEachReading(t *testing.T) {
	p := newPipeline()
	ctx := context.Background()

	bad := reading("evt_bad", "loc_2", 15)
	bad.PH = nil
	bad.Potassium = nil

	sentinel := reading("evt_sentinel", "loc_2", 15)
	sentinel.WeatherTemperature = f(9999)

	batch := []models.RawReading{
		reading("evt_good", "loc_2", 15),
		bad,
		sentinel,
	}

	summary, err := p.loader.WithWorkers(1).LoadBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Loaded)
	assert.Equal(t, 2, summary.Quarantined)

	records := p.recorder.Records()
	require.Len(t, records, 2)

	reasons := map[string][]string{}
	for _, r := range records {
		reasons[r.Reading.EventID] = r.Reasons
	}
	assert.Contains(t, reasons["evt_bad"], "missing ph")
	assert.Contains(t, reasons["evt_bad"], "missing potassium")
	assert.Contains(t, reasons["evt_sentinel"], "weather_temperature extreme value")
}

func TestPipeline_EmitsLifecycleEvents(t *testing.T) {
	p := newPipeline()
	ctx := context.Background()

	bad := reading("evt_bad", "loc_1", 15)
	bad.Nitrogen = nil

	batch := []models.RawReading{
		reading("evt_good", "loc_1", 15),
		reading("evt_good", "loc_1", 15),
		bad,
	}

	summary, err := p.loader.WithWorkers(1).LoadBatch(ctx, batch)
	require.NoError(t, err)

	emitted := p.events.all()
	assert.Contains(t, emitted, "loaded:evt_good")
	assert.Contains(t, emitted, "skipped:evt_good")
	assert.Contains(t, emitted, "quarantined:evt_bad")
	assert.Contains(t, emitted, "batch:"+summary.RunID)
}

func TestPipeline_EnvelopePayloadFlattens(t *testing.T) {
	p := newPipeline()
	ctx := context.Background()

	payload := []byte(`{
		"event_id": "evt_env",
		"timestamp": "2025-03-10T08:15:21Z",
		"loc_id": "loc_3",
		"location": {"latitude": 31.0461, "longitude": 31.3785},
		"sensor_data": {"temperature": 22.5, "humidity": 58.0, "water_level": 44.0, "nitrogen": 42, "phosphorus": 19, "potassium": 28, "ph": 7.1},
		"weather_data": {"temperature_2m": 24.6, "relative_humidity_2m": 66, "wind_speed_10m": 6.1, "wind_direction_10m": 120, "rain": 1.2, "surface_pressure": 1012.4}
	}`)

	var envelope models.ReadingEnvelope
	require.NoError(t, json.Unmarshal(payload, &envelope))

	result, err := p.loader.LoadRaw(ctx, envelope.Flatten(), "run-env")
	require.NoError(t, err)
	assert.Equal(t, loader.OutcomeLoaded, result.Outcome)

	fact, ok := p.facts.get("evt_env")
	require.True(t, ok)
	require.NotNil(t, fact.SoilTemperature)
	assert.InDelta(t, 22.5, *fact.SoilTemperature, 0.001)
	assert.Equal(t, time.Date(2025, 3, 10, 8, 15, 0, 0, time.UTC), fact.FullDate)
}

func TestPipeline_GPSDriftCreatesNewLocationRow(t *testing.T) {
	p := newPipeline()
	ctx := context.Background()

	first := reading("evt_1", "loc_1", 15)
	drifted := reading("evt_2", "loc_1", 16)
	drifted.Latitude = f(23.4224) // beyond the 4dp rounding of the first fix

	_, err := p.loader.LoadRaw(ctx, first, "run-1")
	require.NoError(t, err)
	_, err = p.loader.LoadRaw(ctx, drifted, "run-1")
	require.NoError(t, err)

	_, location, _, _ := p.dims.Counts()
	assert.Equal(t, 2, location)
}
