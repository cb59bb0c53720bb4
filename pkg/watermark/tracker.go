// Package watermark tracks the set of already-loaded event identifiers.
// The fact loader consults it before every insert; it is what makes
// repeated runs over overlapping batches idempotent.
package watermark

import (
	"context"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Tracker answers whether an event identifier has already produced a fact
// row, and records new ones as they are committed.
type Tracker interface {
	AlreadyLoaded(ctx context.Context, eventID string) (bool, error)
	MarkLoaded(ctx context.Context, eventID string) error
}

// Store is the durable side of the tracker: the set of evt_ids present in
// the fact table. The fact repository satisfies it.
type Store interface {
	ExistsEvent(ctx context.Context, eventID string) (bool, error)
	ListEventIDs(ctx context.Context, limit int) ([]string, error)
}

// DBTracker fronts the fact table with an in-process positive cache. The
// cache only ever holds identifiers that are durably committed, so a cache
// hit is always safe; a miss falls through to the store. The fact table's
// unique evt_id constraint remains the last line of defense for writers
// racing between check and insert.
type DBTracker struct {
	store  Store
	logger ectologger.Logger

	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewDBTracker creates a tracker over the durable store.
func NewDBTracker(store Store, logger ectologger.Logger) *DBTracker {
	return &DBTracker{
		store:  store,
		logger: logger,
		seen:   make(map[string]struct{}),
	}
}

// Warm preloads the cache with the most recently loaded event identifiers.
func (t *DBTracker) Warm(ctx context.Context, limit int) error {
	ctx, span := tracing.StartSpan(ctx, "watermark.DBTracker.Warm")
	defer span.End()

	ids, err := t.store.ListEventIDs(ctx, limit)
	if err != nil {
		return err
	}

	t.mu.Lock()
	for _, id := range ids {
		t.seen[id] = struct{}{}
	}
	t.mu.Unlock()

	t.logger.WithContext(ctx).WithFields(map[string]any{"count": len(ids)}).Info("Warmed watermark cache")
	return nil
}

func (t *DBTracker) AlreadyLoaded(ctx context.Context, eventID string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "watermark.DBTracker.AlreadyLoaded")
	defer span.End()

	t.mu.RLock()
	_, hit := t.seen[eventID]
	t.mu.RUnlock()
	if hit {
		return true, nil
	}

	exists, err := t.store.ExistsEvent(ctx, eventID)
	if err != nil {
		return false, err
	}
	if exists {
		t.mu.Lock()
		t.seen[eventID] = struct{}{}
		t.mu.Unlock()
	}
	return exists, nil
}

// MarkLoaded records a committed event identifier. Callers must only mark
// after the fact insert has committed.
func (t *DBTracker) MarkLoaded(ctx context.Context, eventID string) error {
	_, span := tracing.StartSpan(ctx, "watermark.DBTracker.MarkLoaded")
	defer span.End()

	t.mu.Lock()
	t.seen[eventID] = struct{}{}
	t.mu.Unlock()
	return nil
}
