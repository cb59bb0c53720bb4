// Package events handles event emission for reading lifecycle changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes reading lifecycle events to the events topic
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitReadingLoaded emits a reading.loaded event after the fact row commits
func (e *Emitter) EmitReadingLoaded(ctx context.Context, fact *models.FactSensorReading, locID string, warnings []string, runID string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReadingLoaded")
	defer span.End()

	event := &ReadingLoadedEvent{
		BaseEvent:        NewBaseEvent(EventTypeReadingLoaded, runID),
		EvtID:            fact.EvtID,
		LocID:            locID,
		FullDate:         fact.FullDate,
		ValidationStatus: string(fact.ValidationStatus),
		Warnings:         warnings,
	}

	if err := e.publish(ctx, fact.EvtID, event, EventTypeReadingLoaded); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit reading.loaded event")
		return err
	}

	return nil
}

// EmitReadingSkipped emits a reading.skipped event for a resubmitted event identifier
func (e *Emitter) EmitReadingSkipped(ctx context.Context, evtID string, locID string, runID string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReadingSkipped")
	defer span.End()

	event := &ReadingSkippedEvent{
		BaseEvent: NewBaseEvent(EventTypeReadingSkipped, runID),
		EvtID:     evtID,
		LocID:     locID,
	}

	if err := e.publish(ctx, evtID, event, EventTypeReadingSkipped); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit reading.skipped event")
		return err
	}

	return nil
}

// EmitReadingQuarantined emits a reading.quarantined event
func (e *Emitter) EmitReadingQuarantined(ctx context.Context, evtID string, locID string, reasons []string, runID string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReadingQuarantined")
	defer span.End()

	event := &ReadingQuarantinedEvent{
		BaseEvent: NewBaseEvent(EventTypeReadingQuarantined, runID),
		EvtID:     evtID,
		LocID:     locID,
		Reasons:   reasons,
	}

	if err := e.publish(ctx, evtID, event, EventTypeReadingQuarantined); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit reading.quarantined event")
		return err
	}

	return nil
}

// EmitBatchCompleted emits a batch.completed event with run statistics
func (e *Emitter) EmitBatchCompleted(ctx context.Context, runID string, stats BatchStats) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitBatchCompleted")
	defer span.End()

	event := &BatchCompletedEvent{
		BaseEvent: NewBaseEvent(EventTypeBatchCompleted, runID),
		Stats:     stats,
	}

	if err := e.publish(ctx, runID, event, EventTypeBatchCompleted); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit batch.completed event")
		return err
	}

	return nil
}

func (e *Emitter) publish(ctx context.Context, key string, event any, eventType EventType) error {
	return e.producer.Publish(ctx, key, event, map[string]string{
		"event_type":     string(eventType),
		"schema_version": SchemaVersion,
	})
}
