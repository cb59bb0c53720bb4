package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/Ramsey-B/sage/pkg/naturalkey"
)

// Memory is an in-process resolver used by tests and dry runs. It gives the
// same guarantee as the warehouse-backed resolver: at most one surrogate per
// distinct canonical key, under any interleaving of concurrent callers.
type Memory struct {
	mu        sync.Mutex
	soil      map[string]int64
	locations map[string]int64
	weather   map[string]int64
	minutes   map[time.Time]struct{}
	nextKey   int64
}

// NewMemory creates an empty in-memory resolver.
func NewMemory() *Memory {
	return &Memory{
		soil:      make(map[string]int64),
		locations: make(map[string]int64),
		weather:   make(map[string]int64),
		minutes:   make(map[time.Time]struct{}),
	}
}

func (m *Memory) resolve(index map[string]int64, hash string) int64 {
	if key, ok := index[hash]; ok {
		return key
	}
	m.nextKey++
	index[hash] = m.nextKey
	return m.nextKey
}

func (m *Memory) ResolveSoil(_ context.Context, key naturalkey.SoilKey) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolve(m.soil, key.Hash()), nil
}

func (m *Memory) ResolveTime(_ context.Context, ts time.Time) (time.Time, error) {
	fullDate := naturalkey.TimeKey(ts)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.minutes[fullDate] = struct{}{}
	return fullDate, nil
}

func (m *Memory) ResolveLocation(_ context.Context, key naturalkey.LocationKey) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolve(m.locations, key.Hash()), nil
}

func (m *Memory) ResolveWeather(_ context.Context, key naturalkey.WeatherKey) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolve(m.weather, key.Hash()), nil
}

// Counts returns the number of distinct rows per dimension kind.
func (m *Memory) Counts() (soil, location, weather, minutes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.soil), len(m.locations), len(m.weather), len(m.minutes)
}
