package resolver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/naturalkey"
)

func TestMemory_SameKeySameSurrogate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	key := naturalkey.SoilKey{PH: 6.5, Nitrogen: 40, Phosphorus: 20, Potassium: 15}

	first, err := m.ResolveSoil(ctx, key)
	require.NoError(t, err)
	second, err := m.ResolveSoil(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := m.ResolveSoil(ctx, naturalkey.SoilKey{PH: 7.0, Nitrogen: 40, Phosphorus: 20, Potassium: 15})
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	soil, _, _, _ := m.Counts()
	assert.Equal(t, 2, soil)
}

func TestMemory_ConcurrentResolutionCreatesOneRow(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	key := naturalkey.SoilKey{PH: 6.5, Nitrogen: 40, Phosphorus: 20, Potassium: 15}

	const workers = 32
	results := make([]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k, err := m.ResolveSoil(ctx, key)
			require.NoError(t, err)
			results[i] = k
		}(i)
	}
	wg.Wait()

	for _, k := range results {
		assert.Equal(t, results[0], k)
	}
	soil, _, _, _ := m.Counts()
	assert.Equal(t, 1, soil)
}

func TestMemory_ResolveTimeTruncates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a := time.Date(2025, 1, 1, 10, 15, 3, 0, time.UTC)
	b := time.Date(2025, 1, 1, 10, 15, 47, 0, time.UTC)

	fa, err := m.ResolveTime(ctx, a)
	require.NoError(t, err)
	fb, err := m.ResolveTime(ctx, b)
	require.NoError(t, err)

	assert.Equal(t, fa, fb)
	assert.Equal(t, time.Date(2025, 1, 1, 10, 15, 0, 0, time.UTC), fa)

	_, _, _, minutes := m.Counts()
	assert.Equal(t, 1, minutes)
}

func TestMemory_DimensionKindsAreIndependent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.ResolveLocation(ctx, naturalkey.LocationKey{LocID: "loc_1", Latitude: 23.4219, Longitude: 30.5978})
	require.NoError(t, err)
	_, err = m.ResolveWeather(ctx, naturalkey.WeatherKey{Temperature: 31.2, Humidity: 40})
	require.NoError(t, err)

	soil, location, weather, _ := m.Counts()
	assert.Equal(t, 0, soil)
	assert.Equal(t, 1, location)
	assert.Equal(t, 1, weather)
}
