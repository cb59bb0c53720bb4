// Package loader turns validated readings into warehouse rows. It owns the
// write path end to end: dimension resolution, the watermark check, and the
// fact insert all happen here, atomically per reading.
package loader

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/naturalkey"
	"github.com/Ramsey-B/sage/pkg/quarantine"
	"github.com/Ramsey-B/sage/pkg/resolver"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/Ramsey-B/sage/pkg/validate"
	"github.com/Ramsey-B/sage/pkg/watermark"
)

// Outcome is the terminal state of one reading in a run.
type Outcome string

const (
	OutcomeLoaded      Outcome = "LOADED"
	OutcomeSkipped     Outcome = "SKIPPED"
	OutcomeQuarantined Outcome = "QUARANTINED"
)

// Result is what happened to one reading.
type Result struct {
	Outcome Outcome
	Fact    *models.FactSensorReading
	Reasons []string
}

// Summary aggregates one batch run.
type Summary struct {
	RunID       string        `json:"run_id"`
	Received    int           `json:"received"`
	Loaded      int           `json:"loaded"`
	Skipped     int           `json:"skipped"`
	Quarantined int           `json:"quarantined"`
	Failed      int           `json:"failed"`
	Duration    time.Duration `json:"duration"`
}

// FactStore is the fact persistence the loader writes through. The fact
// repository satisfies it; tests use an in-memory store.
type FactStore interface {
	Insert(ctx context.Context, f models.FactSensorReading) (*models.FactSensorReading, bool, error)
}

// Events is the lifecycle emission surface. The events.Emitter satisfies it;
// passing nil disables emission. Emission failures never fail a load: the
// fact row is already committed by the time an event goes out.
type Events interface {
	EmitReadingLoaded(ctx context.Context, fact *models.FactSensorReading, locID string, warnings []string, runID string) error
	EmitReadingSkipped(ctx context.Context, evtID string, locID string, runID string) error
	EmitReadingQuarantined(ctx context.Context, evtID string, locID string, reasons []string, runID string) error
	EmitBatchCompleted(ctx context.Context, runID string, stats events.BatchStats) error
}

const (
	defaultWorkers    = 4
	defaultMaxRetries = 3
)

// Loader is the warehouse write path.
type Loader struct {
	db         database.DB
	facts      FactStore
	resolver   resolver.Resolver
	tracker    watermark.Tracker
	validator  *validate.Validator
	sink       quarantine.Sink
	emitter    Events
	logger     ectologger.Logger
	workers    int
	maxRetries int
}

// NewLoader creates a loader. db may be nil when the fact store and resolver
// are not database backed; each reading is then loaded without a transaction.
func NewLoader(
	db database.DB,
	facts FactStore,
	dims resolver.Resolver,
	tracker watermark.Tracker,
	validator *validate.Validator,
	sink quarantine.Sink,
	emitter Events,
	logger ectologger.Logger,
) *Loader {
	return &Loader{
		db:         db,
		facts:      facts,
		resolver:   dims,
		tracker:    tracker,
		validator:  validator,
		sink:       sink,
		emitter:    emitter,
		logger:     logger,
		workers:    defaultWorkers,
		maxRetries: defaultMaxRetries,
	}
}

// WithWorkers sets the batch worker count.
func (l *Loader) WithWorkers(n int) *Loader {
	if n > 0 {
		l.workers = n
	}
	return l
}

// WithMaxRetries sets how many times a conflicted load is retried.
func (l *Loader) WithMaxRetries(n int) *Loader {
	if n > 0 {
		l.maxRetries = n
	}
	return l
}

// LoadRaw validates one raw reading and either loads or quarantines it.
func (l *Loader) LoadRaw(ctx context.Context, raw models.RawReading, runID string) (Result, error) {
	ctx, span := tracing.StartSpan(ctx, "loader.Loader.LoadRaw")
	defer span.End()

	result := l.validator.Validate(raw)
	if result.Invalid != nil {
		if err := l.quarantineReading(ctx, raw, result.Invalid.Reasons, runID); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeQuarantined, Reasons: result.Invalid.Reasons}, nil
	}

	return l.Load(ctx, *result.Valid, runID)
}

// Load loads one validated reading. Resubmitting an already-loaded event
// identifier is a silent skip; the warehouse never changes for it.
func (l *Loader) Load(ctx context.Context, reading models.ValidReading, runID string) (Result, error) {
	ctx, span := tracing.StartSpan(ctx, "loader.Loader.Load")
	defer span.End()

	log := l.logger.WithContext(ctx).WithFields(map[string]any{
		"evt_id": reading.EventID,
		"loc_id": reading.LocID,
	})

	loaded, err := l.tracker.AlreadyLoaded(ctx, reading.EventID)
	if err != nil {
		return Result{}, err
	}
	if loaded {
		log.Debug("Skipping already-loaded reading")
		l.emitSkipped(ctx, reading.EventID, reading.LocID, runID)
		return Result{Outcome: OutcomeSkipped}, nil
	}

	var fact *models.FactSensorReading
	var inserted bool
	for attempt := 1; ; attempt++ {
		fact, inserted, err = l.loadOnce(ctx, reading)
		if err == nil {
			break
		}
		if !IsRetryable(err) {
			break
		}
		if attempt >= l.maxRetries {
			err = &ConcurrencyError{EvtID: reading.EventID, Attempts: attempt, Err: err}
			break
		}
		log.WithError(err).WithFields(map[string]any{"attempt": attempt}).Warn("Retrying conflicted load")
	}

	if err != nil {
		var refErr *ReferentialError
		if errors.As(err, &refErr) {
			log.WithError(err).Error("Failed to resolve dimensions")
			reasons := []string{refErr.Dimension + " dimension unresolved"}
			if qErr := l.quarantineReading(ctx, reading.RawReading, reasons, runID); qErr != nil {
				return Result{}, qErr
			}
			return Result{Outcome: OutcomeQuarantined, Reasons: reasons}, nil
		}
		return Result{}, err
	}

	if !inserted {
		// Lost the insert race: another writer committed this evt_id between
		// the watermark check and our insert.
		if err := l.tracker.MarkLoaded(ctx, reading.EventID); err != nil {
			return Result{}, err
		}
		log.Debug("Reading loaded concurrently elsewhere")
		l.emitSkipped(ctx, reading.EventID, reading.LocID, runID)
		return Result{Outcome: OutcomeSkipped}, nil
	}

	if err := l.tracker.MarkLoaded(ctx, reading.EventID); err != nil {
		return Result{}, err
	}

	log.WithFields(map[string]any{
		"fact_id":   fact.FactID,
		"full_date": fact.FullDate,
		"status":    fact.ValidationStatus,
	}).Debug("Loaded reading")

	if l.emitter != nil {
		if err := l.emitter.EmitReadingLoaded(ctx, fact, reading.LocID, reading.Warnings, runID); err != nil {
			log.WithError(err).Warn("Failed to emit reading.loaded event")
		}
	}

	return Result{Outcome: OutcomeLoaded, Fact: fact}, nil
}

// loadOnce resolves all four dimensions and inserts the fact row inside one
// transaction, so a reading never half-lands.
func (l *Loader) loadOnce(ctx context.Context, reading models.ValidReading) (*models.FactSensorReading, bool, error) {
	txCtx := ctx
	var tx database.Tx
	if l.db != nil {
		var err error
		txCtx, tx, err = l.db.GetTx(ctx, &sql.TxOptions{})
		if err != nil {
			return nil, false, err
		}
		defer tx.Rollback(ctx)
	}

	soilKey, err := l.resolver.ResolveSoil(txCtx, naturalkey.SoilKey{
		PH:         *reading.PH,
		Nitrogen:   *reading.Nitrogen,
		Phosphorus: *reading.Phosphorus,
		Potassium:  *reading.Potassium,
	})
	if err != nil {
		return nil, false, l.wrapResolve(reading.EventID, "soil", err)
	}

	fullDate, err := l.resolver.ResolveTime(txCtx, *reading.Timestamp)
	if err != nil {
		return nil, false, l.wrapResolve(reading.EventID, "time", err)
	}

	locationKey, err := l.resolver.ResolveLocation(txCtx, naturalkey.LocationKey{
		LocID:     reading.LocID,
		Latitude:  deref(reading.Latitude),
		Longitude: deref(reading.Longitude),
	})
	if err != nil {
		return nil, false, l.wrapResolve(reading.EventID, "location", err)
	}

	// Optional weather measures canonicalize as zero when the gateway
	// omitted them.
	weatherKey, err := l.resolver.ResolveWeather(txCtx, naturalkey.WeatherKey{
		Temperature:     *reading.WeatherTemperature,
		Humidity:        deref(reading.WeatherHumidity),
		WindSpeed:       deref(reading.WindSpeed),
		WindDirection:   deref(reading.WindDirection),
		Rain:            deref(reading.Rain),
		SurfacePressure: deref(reading.SurfacePressure),
	})
	if err != nil {
		return nil, false, l.wrapResolve(reading.EventID, "weather", err)
	}

	fact, inserted, err := l.facts.Insert(txCtx, models.FactSensorReading{
		EvtID:            reading.EventID,
		LocationKey:      locationKey,
		WeatherKey:       weatherKey,
		SoilKey:          soilKey,
		FullDate:         fullDate,
		SoilTemperature:  reading.SoilTemperature,
		SoilHumidity:     reading.SoilHumidity,
		WaterLevel:       reading.WaterLevel,
		ValidationStatus: reading.Status,
	})
	if err != nil {
		return nil, false, err
	}

	if tx != nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, false, err
		}
	}
	return fact, inserted, nil
}

// LoadBatch runs a whole batch through a worker pool and reports totals.
// Ordering within the batch is not preserved; each reading's outcome is
// independent of the others.
func (l *Loader) LoadBatch(ctx context.Context, readings []models.RawReading) (*Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "loader.Loader.LoadBatch")
	defer span.End()

	runID := uuid.New().String()
	start := time.Now()

	var loaded, skipped, quarantined, failed int64

	work := make(chan models.RawReading)
	var wg sync.WaitGroup
	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for raw := range work {
				result, err := l.LoadRaw(ctx, raw, runID)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					l.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
						"evt_id": raw.EventID,
						"run_id": runID,
					}).Error("Failed to load reading")
					continue
				}
				switch result.Outcome {
				case OutcomeLoaded:
					atomic.AddInt64(&loaded, 1)
				case OutcomeSkipped:
					atomic.AddInt64(&skipped, 1)
				case OutcomeQuarantined:
					atomic.AddInt64(&quarantined, 1)
				}
			}
		}()
	}

	for _, raw := range readings {
		work <- raw
	}
	close(work)
	wg.Wait()

	summary := &Summary{
		RunID:       runID,
		Received:    len(readings),
		Loaded:      int(loaded),
		Skipped:     int(skipped),
		Quarantined: int(quarantined),
		Failed:      int(failed),
		Duration:    time.Since(start),
	}

	l.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":      summary.RunID,
		"received":    summary.Received,
		"loaded":      summary.Loaded,
		"skipped":     summary.Skipped,
		"quarantined": summary.Quarantined,
		"failed":      summary.Failed,
		"duration_ms": summary.Duration.Milliseconds(),
	}).Info("Batch run completed")

	if l.emitter != nil {
		stats := events.BatchStats{
			Received:    summary.Received,
			Loaded:      summary.Loaded,
			Skipped:     summary.Skipped,
			Quarantined: summary.Quarantined,
			Failed:      summary.Failed,
			DurationMs:  summary.Duration.Milliseconds(),
		}
		if err := l.emitter.EmitBatchCompleted(ctx, runID, stats); err != nil {
			l.logger.WithContext(ctx).WithError(err).Warn("Failed to emit batch.completed event")
		}
	}

	return summary, nil
}

func (l *Loader) quarantineReading(ctx context.Context, raw models.RawReading, reasons []string, runID string) error {
	if err := l.sink.Quarantine(ctx, quarantine.Record{
		Reading:       raw,
		Reasons:       reasons,
		QuarantinedAt: time.Now().UTC(),
		RunID:         runID,
	}); err != nil {
		l.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"evt_id": raw.EventID,
		}).Error("Failed to quarantine reading")
		return err
	}

	if l.emitter != nil {
		if err := l.emitter.EmitReadingQuarantined(ctx, raw.EventID, raw.LocID, reasons, runID); err != nil {
			l.logger.WithContext(ctx).WithError(err).Warn("Failed to emit reading.quarantined event")
		}
	}
	return nil
}

func (l *Loader) emitSkipped(ctx context.Context, evtID, locID, runID string) {
	if l.emitter == nil {
		return
	}
	if err := l.emitter.EmitReadingSkipped(ctx, evtID, locID, runID); err != nil {
		l.logger.WithContext(ctx).WithError(err).Warn("Failed to emit reading.skipped event")
	}
}

func (l *Loader) wrapResolve(evtID, dimension string, err error) error {
	if IsRetryable(err) {
		return err
	}
	return &ReferentialError{EvtID: evtID, Dimension: dimension, Err: err}
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
