package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of event
type EventType string

const (
	// Reading events
	EventTypeReadingLoaded      EventType = "reading.loaded"
	EventTypeReadingSkipped     EventType = "reading.skipped"
	EventTypeReadingQuarantined EventType = "reading.quarantined"

	// Batch events
	EventTypeBatchCompleted EventType = "batch.completed"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	RunID         string    `json:"run_id,omitempty"`
}

// ReadingLoadedEvent is emitted after a fact row commits
type ReadingLoadedEvent struct {
	BaseEvent
	EvtID            string    `json:"evt_id"`
	LocID            string    `json:"loc_id"`
	FullDate         time.Time `json:"full_date"`
	ValidationStatus string    `json:"validation_status"`
	Warnings         []string  `json:"warnings,omitempty"`
}

// ReadingSkippedEvent is emitted when a resubmitted event identifier is
// recognized and dropped without touching the warehouse
type ReadingSkippedEvent struct {
	BaseEvent
	EvtID string `json:"evt_id"`
	LocID string `json:"loc_id,omitempty"`
}

// ReadingQuarantinedEvent is emitted when a reading is rejected by validation
// or fails to resolve its dimensions
type ReadingQuarantinedEvent struct {
	BaseEvent
	EvtID   string   `json:"evt_id"`
	LocID   string   `json:"loc_id,omitempty"`
	Reasons []string `json:"reasons"`
}

// BatchStats summarizes one batch run
type BatchStats struct {
	Received    int   `json:"received"`
	Loaded      int   `json:"loaded"`
	Skipped     int   `json:"skipped"`
	Quarantined int   `json:"quarantined"`
	Failed      int   `json:"failed"`
	DurationMs  int64 `json:"duration_ms"`
}

// BatchCompletedEvent is emitted after a batch run finishes
type BatchCompletedEvent struct {
	BaseEvent
	Stats BatchStats `json:"stats"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType, runID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
		RunID:         runID,
	}
}
