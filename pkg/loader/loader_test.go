package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/naturalkey"
	"github.com/Ramsey-B/sage/pkg/quarantine"
	"github.com/Ramsey-B/sage/pkg/resolver"
	"github.com/Ramsey-B/sage/pkg/validate"
	"github.com/Ramsey-B/sage/pkg/watermark"
)

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

func (s *memFacts) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byEvt)
}

type failingResolver struct {
	resolver.Resolver
}

func (f *failingResolver) ResolveSoil(context.Context, naturalkey.SoilKey) (int64, error) {
	return 0, errors.New("connection refused")
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func f(v float64) *float64 {
	return &v
}

func completeReading(evtID string) models.RawReading {
	ts := time.Date(2025, 1, 1, 10, 15, 3, 0, time.UTC)
	return models.RawReading{
		EventID:            evtID,
		Timestamp:          &ts,
		LocID:              "loc_1",
		Latitude:           f(23.4219),
		Longitude:          f(30.5978),
		PH:                 f(6.5),
		Nitrogen:           f(40),
		Phosphorus:         f(20),
		Potassium:          f(15),
		SoilTemperature:    f(24.1),
		SoilHumidity:       f(45.0),
		WaterLevel:         f(20.5),
		WeatherTemperature: f(31.2),
		WeatherHumidity:    f(40),
		WindSpeed:          f(8.4),
		WindDirection:      f(270),
		Rain:               f(0),
		SurfacePressure:    f(1006.3),
	}
}

func newTestLoader(facts FactStore, dims resolver.Resolver, sink quarantine.Sink) *Loader {
	logger := testLogger()
	return NewLoader(nil, facts, dims, watermark.NewMemory(), validate.New(logger), sink, nil, logger)
}

func TestLoader_LoadsValidReading(t *testing.T) {
	facts := newMemFacts()
	l := newTestLoader(facts, resolver.NewMemory(), quarantine.NewRecorder())

	result, err := l.LoadRaw(context.Background(), completeReading("E1"), "run-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeLoaded, result.Outcome)
	require.NotNil(t, result.Fact)
	assert.Equal(t, "E1", result.Fact.EvtID)
	assert.Equal(t, models.ReadingStatusValid, result.Fact.ValidationStatus)
	assert.Equal(t, time.Date(2025, 1, 1, 10, 15, 0, 0, time.UTC), result.Fact.FullDate)
	assert.Equal(t, 1, facts.count())
}

func TestLoader_ResubmissionIsSilentSkip(t *testing.T) {
	facts := newMemFacts()
	l := newTestLoader(facts, resolver.NewMemory(), quarantine.NewRecorder())

	first, err := l.LoadRaw(context.Background(), completeReading("E1"), "run-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeLoaded, first.Outcome)

	second, err := l.LoadRaw(context.Background(), completeReading("E1"), "run-2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, second.Outcome)
	assert.Nil(t, second.Fact)
	assert.Equal(t, 1, facts.count())
}

func TestLoader_InsertRaceIsSkip(t *testing.T) {
	facts := newMemFacts()
	l := newTestLoader(facts, resolver.NewMemory(), quarantine.NewRecorder())

	// Pre-commit the evt_id behind the tracker's back, as a concurrent
	// writer on another instance would.
	_, inserted, err := facts.Insert(context.Background(), models.FactSensorReading{EvtID: "E1"})
	require.NoError(t, err)
	require.True(t, inserted)

	result, err := l.LoadRaw(context.Background(), completeReading("E1"), "run-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, result.Outcome)
	assert.Equal(t, 1, facts.count())
}

func TestLoader_MissingFieldQuarantines(t *testing.T) {
	facts := newMemFacts()
	recorder := quarantine.NewRecorder()
	l := newTestLoader(facts, resolver.NewMemory(), recorder)

	raw := completeReading("E1")
	raw.PH = nil

	result, err := l.LoadRaw(context.Background(), raw, "run-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeQuarantined, result.Outcome)
	assert.Contains(t, result.Reasons, "missing ph")
	assert.Equal(t, 0, facts.count())

	records := recorder.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "E1", records[0].Reading.EventID)
	assert.Contains(t, records[0].Reasons, "missing ph")
}

func TestLoader_ReferentialFailureQuarantines(t *testing.T) {
	facts := newMemFacts()
	recorder := quarantine.NewRecorder()
	dims := &failingResolver{Resolver: resolver.NewMemory()}
	l := newTestLoader(facts, dims, recorder)

	result, err := l.LoadRaw(context.Background(), completeReading("E1"), "run-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeQuarantined, result.Outcome)
	assert.Contains(t, result.Reasons, "soil dimension unresolved")
	assert.Equal(t, 0, facts.count())
	require.Len(t, recorder.Records(), 1)
}

func TestLoader_OutOfRangeLoadsAsWarning(t *testing.T) {
	facts := newMemFacts()
	l := newTestLoader(facts, resolver.NewMemory(), quarantine.NewRecorder())

	raw := completeReading("E1")
	raw.PH = f(9.4)

	result, err := l.LoadRaw(context.Background(), raw, "run-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeLoaded, result.Outcome)
	assert.Equal(t, models.ReadingStatusWarning, result.Fact.ValidationStatus)
}

func TestLoader_DimensionsDedupAcrossReadings(t *testing.T) {
	facts := newMemFacts()
	dims := resolver.NewMemory()
	l := newTestLoader(facts, dims, quarantine.NewRecorder())

	var readings []models.RawReading
	for i := 0; i < 20; i++ {
		readings = append(readings, completeReading(fmt.Sprintf("E%d", i)))
	}

	summary, err := l.WithWorkers(8).LoadBatch(context.Background(), readings)
	require.NoError(t, err)
	assert.Equal(t, 20, summary.Loaded)
	assert.Equal(t, 20, facts.count())

	// All 20 readings share one soil profile, one site, one weather tuple
	// and one minute.
	soil, location, weather, minutes := dims.Counts()
	assert.Equal(t, 1, soil)
	assert.Equal(t, 1, location)
	assert.Equal(t, 1, weather)
	assert.Equal(t, 1, minutes)
}

func TestLoader_BatchSummary(t *testing.T) {
	facts := newMemFacts()
	l := newTestLoader(facts, resolver.NewMemory(), quarantine.NewRecorder())

	missing := completeReading("E3")
	missing.Nitrogen = nil

	readings := []models.RawReading{
		completeReading("E1"),
		completeReading("E2"),
		completeReading("E2"), // resubmitted within the batch
		missing,
	}

	summary, err := l.WithWorkers(1).LoadBatch(context.Background(), readings)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Received)
	assert.Equal(t, 2, summary.Loaded)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Quarantined)
	assert.Equal(t, 0, summary.Failed)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, facts.count())
}
