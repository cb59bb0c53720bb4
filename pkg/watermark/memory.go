package watermark

import (
	"context"
	"sync"
)

// Memory is a purely in-process tracker for tests and dry runs.
type Memory struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewMemory creates an empty in-memory tracker.
func NewMemory() *Memory {
	return &Memory{seen: make(map[string]struct{})}
}

func (m *Memory) AlreadyLoaded(_ context.Context, eventID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[eventID]
	return ok, nil
}

func (m *Memory) MarkLoaded(_ context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[eventID] = struct{}{}
	return nil
}

// Len returns the number of tracked event identifiers.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seen)
}
