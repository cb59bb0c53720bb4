// Package naturalkey derives canonical natural keys for dimension rows.
//
// Dimension identity is defined over floating-point tuples, which is fragile
// under raw equality: two semantically identical readings can differ in the
// last bits after transport re-encoding. Every key is therefore rounded to a
// declared precision and encoded as a canonical string before hashing. The
// precision contract: soil chemistry and weather measures carry 2 decimal
// places, coordinates carry 4. Changing these constants changes dimension
// identity and requires a warehouse rebuild.
package naturalkey

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// SoilPrecision is the decimal precision for ph/nitrogen/phosphorus/potassium.
	SoilPrecision = 2
	// CoordPrecision is the decimal precision for latitude/longitude.
	CoordPrecision = 4
	// WeatherPrecision is the decimal precision for all weather measures.
	WeatherPrecision = 2
)

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

func format(v float64, places int) string {
	return strconv.FormatFloat(Round(v, places), 'f', places, 64)
}

func hash(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// SoilKey is the natural key of a soil chemistry profile.
type SoilKey struct {
	PH         float64
	Nitrogen   float64
	Phosphorus float64
	Potassium  float64
}

// Rounded returns the key with every field rounded to the soil precision.
// These are the values persisted on the dimension row.
func (k SoilKey) Rounded() SoilKey {
	return SoilKey{
		PH:         Round(k.PH, SoilPrecision),
		Nitrogen:   Round(k.Nitrogen, SoilPrecision),
		Phosphorus: Round(k.Phosphorus, SoilPrecision),
		Potassium:  Round(k.Potassium, SoilPrecision),
	}
}

// Canonical returns the deterministic string encoding of the key.
func (k SoilKey) Canonical() string {
	return strings.Join([]string{
		"soil",
		format(k.PH, SoilPrecision),
		format(k.Nitrogen, SoilPrecision),
		format(k.Phosphorus, SoilPrecision),
		format(k.Potassium, SoilPrecision),
	}, "|")
}

// Hash returns the SHA-256 hex digest of the canonical encoding. This is the
// value indexed by the dimension's unique constraint.
func (k SoilKey) Hash() string {
	return hash(k.Canonical())
}

// LocationKey is the natural key of a monitored site.
type LocationKey struct {
	LocID     string
	Latitude  float64
	Longitude float64
}

func (k LocationKey) Rounded() LocationKey {
	return LocationKey{
		LocID:     k.LocID,
		Latitude:  Round(k.Latitude, CoordPrecision),
		Longitude: Round(k.Longitude, CoordPrecision),
	}
}

func (k LocationKey) Canonical() string {
	return strings.Join([]string{
		"location",
		k.LocID,
		format(k.Latitude, CoordPrecision),
		format(k.Longitude, CoordPrecision),
	}, "|")
}

func (k LocationKey) Hash() string {
	return hash(k.Canonical())
}

// WeatherKey is the natural key of an ambient weather tuple.
type WeatherKey struct {
	Temperature     float64
	Humidity        float64
	WindSpeed       float64
	WindDirection   float64
	Rain            float64
	SurfacePressure float64
}

func (k WeatherKey) Rounded() WeatherKey {
	return WeatherKey{
		Temperature:     Round(k.Temperature, WeatherPrecision),
		Humidity:        Round(k.Humidity, WeatherPrecision),
		WindSpeed:       Round(k.WindSpeed, WeatherPrecision),
		WindDirection:   Round(k.WindDirection, WeatherPrecision),
		Rain:            Round(k.Rain, WeatherPrecision),
		SurfacePressure: Round(k.SurfacePressure, WeatherPrecision),
	}
}

func (k WeatherKey) Canonical() string {
	return strings.Join([]string{
		"weather",
		format(k.Temperature, WeatherPrecision),
		format(k.Humidity, WeatherPrecision),
		format(k.WindSpeed, WeatherPrecision),
		format(k.WindDirection, WeatherPrecision),
		format(k.Rain, WeatherPrecision),
		format(k.SurfacePressure, WeatherPrecision),
	}, "|")
}

func (k WeatherKey) Hash() string {
	return hash(k.Canonical())
}

// TimeKey truncates a timestamp to minute granularity in UTC. The truncated
// instant is the time dimension's primary key.
func TimeKey(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}
