// Package quarantine captures readings the pipeline refused to load, with
// the reasons, so operators can inspect and replay them.
package quarantine

import (
	"context"
	"sync"
	"time"

	"github.com/Ramsey-B/sage/pkg/models"
)

// Record is one quarantined reading together with why it was quarantined.
type Record struct {
	Reading       models.RawReading `json:"reading"`
	Reasons       []string          `json:"reasons"`
	QuarantinedAt time.Time         `json:"quarantined_at"`
	RunID         string            `json:"run_id,omitempty"`
}

// Sink receives quarantine records. Sinks must tolerate duplicate records for
// the same event identifier; redelivery can quarantine a reading twice.
type Sink interface {
	Quarantine(ctx context.Context, record Record) error
}

// Recorder is an in-memory sink for tests and dry runs.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

// NewRecorder creates an empty in-memory sink.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Quarantine(_ context.Context, record Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

// Records returns a copy of everything quarantined so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}
