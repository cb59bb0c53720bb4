package naturalkey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoilKey_CanonicalPrecision(t *testing.T) {
	tests := []struct {
		name string
		a    SoilKey
		b    SoilKey
		same bool
	}{
		{
			name: "identical tuples",
			a:    SoilKey{PH: 6.5, Nitrogen: 40, Phosphorus: 20, Potassium: 15},
			b:    SoilKey{PH: 6.5, Nitrogen: 40, Phosphorus: 20, Potassium: 15},
			same: true,
		},
		{
			name: "formatting drift below the precision contract",
			a:    SoilKey{PH: 6.5, Nitrogen: 40, Phosphorus: 20, Potassium: 15},
			b:    SoilKey{PH: 6.5000001, Nitrogen: 39.9999999, Phosphorus: 20.0000004, Potassium: 15},
			same: true,
		},
		{
			name: "difference at the declared precision",
			a:    SoilKey{PH: 6.5, Nitrogen: 40, Phosphorus: 20, Potassium: 15},
			b:    SoilKey{PH: 6.51, Nitrogen: 40, Phosphorus: 20, Potassium: 15},
			same: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.same {
				assert.Equal(t, tt.a.Canonical(), tt.b.Canonical())
				assert.Equal(t, tt.a.Hash(), tt.b.Hash())
			} else {
				assert.NotEqual(t, tt.a.Canonical(), tt.b.Canonical())
				assert.NotEqual(t, tt.a.Hash(), tt.b.Hash())
			}
		})
	}
}

func TestSoilKey_Rounded(t *testing.T) {
	k := SoilKey{PH: 6.505, Nitrogen: 40.004, Phosphorus: 19.996, Potassium: 15}.Rounded()
	assert.InDelta(t, 6.51, k.PH, 1e-9)
	assert.InDelta(t, 40.0, k.Nitrogen, 1e-9)
	assert.InDelta(t, 20.0, k.Phosphorus, 1e-9)
	assert.InDelta(t, 15.0, k.Potassium, 1e-9)
}

func TestLocationKey_CoordinatePrecision(t *testing.T) {
	a := LocationKey{LocID: "loc_1", Latitude: 23.4219, Longitude: 30.5978}
	b := LocationKey{LocID: "loc_1", Latitude: 23.42190004, Longitude: 30.59779996}
	assert.Equal(t, a.Hash(), b.Hash())

	c := LocationKey{LocID: "loc_2", Latitude: 23.4219, Longitude: 30.5978}
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestWeatherKey_DistinctFieldsDistinctHashes(t *testing.T) {
	a := WeatherKey{Temperature: 31.2, Humidity: 40, WindSpeed: 3.4, WindDirection: 180, Rain: 0, SurfacePressure: 1001.3}
	b := a
	b.Rain = 0.2
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestKeyFamiliesNeverCollide(t *testing.T) {
	// The family prefix keeps a soil tuple from colliding with a weather
	// tuple that happens to encode the same numbers.
	soil := SoilKey{PH: 1, Nitrogen: 2, Phosphorus: 3, Potassium: 4}
	weather := WeatherKey{Temperature: 1, Humidity: 2, WindSpeed: 3, WindDirection: 4}
	assert.NotEqual(t, soil.Hash(), weather.Hash())
}

func TestTimeKey_TruncatesToMinute(t *testing.T) {
	a, err := time.Parse(time.RFC3339, "2025-01-01T10:15:03Z")
	require.NoError(t, err)
	b, err := time.Parse(time.RFC3339, "2025-01-01T10:15:47Z")
	require.NoError(t, err)

	assert.Equal(t, TimeKey(a), TimeKey(b))
	assert.Equal(t, "2025-01-01T10:15:00Z", TimeKey(a).Format(time.RFC3339))

	c, err := time.Parse(time.RFC3339, "2025-01-01T10:16:00Z")
	require.NoError(t, err)
	assert.NotEqual(t, TimeKey(a), TimeKey(c))
}

func TestTimeKey_NormalizesZone(t *testing.T) {
	utc, err := time.Parse(time.RFC3339, "2025-06-01T12:30:10Z")
	require.NoError(t, err)
	offset, err := time.Parse(time.RFC3339, "2025-06-01T14:30:45+02:00")
	require.NoError(t, err)
	assert.Equal(t, TimeKey(utc), TimeKey(offset))
}
