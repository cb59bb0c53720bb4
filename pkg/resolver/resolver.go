// Package resolver maps dimension natural keys to surrogate keys,
// creating dimension rows on first sight. Resolution is idempotent: any
// number of calls with the same natural key observe the same surrogate.
package resolver

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/internal/repositories/locationdim"
	"github.com/Ramsey-B/sage/internal/repositories/soildim"
	"github.com/Ramsey-B/sage/internal/repositories/timedim"
	"github.com/Ramsey-B/sage/internal/repositories/weatherdim"
	"github.com/Ramsey-B/sage/pkg/naturalkey"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Resolver resolves the four dimension kinds. The time dimension's
// surrogate is the minute-truncated timestamp itself.
type Resolver interface {
	ResolveSoil(ctx context.Context, key naturalkey.SoilKey) (int64, error)
	ResolveTime(ctx context.Context, ts time.Time) (time.Time, error)
	ResolveLocation(ctx context.Context, key naturalkey.LocationKey) (int64, error)
	ResolveWeather(ctx context.Context, key naturalkey.WeatherKey) (int64, error)
}

// Postgres resolves dimensions against the warehouse tables. Creation is
// exclusive to this type: nothing else inserts dimension rows.
type Postgres struct {
	soil     *soildim.Repository
	time     *timedim.Repository
	location *locationdim.Repository
	weather  *weatherdim.Repository
	logger   ectologger.Logger
}

// NewPostgres creates a resolver over the four dimension repositories.
func NewPostgres(
	soil *soildim.Repository,
	timeRepo *timedim.Repository,
	location *locationdim.Repository,
	weather *weatherdim.Repository,
	logger ectologger.Logger,
) *Postgres {
	return &Postgres{
		soil:     soil,
		time:     timeRepo,
		location: location,
		weather:  weather,
		logger:   logger,
	}
}

func (r *Postgres) ResolveSoil(ctx context.Context, key naturalkey.SoilKey) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Postgres.ResolveSoil")
	defer span.End()

	dim, _, err := r.soil.GetOrCreate(ctx, key)
	if err != nil {
		return 0, err
	}
	return dim.SoilKey, nil
}

func (r *Postgres) ResolveTime(ctx context.Context, ts time.Time) (time.Time, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Postgres.ResolveTime")
	defer span.End()

	dim, _, err := r.time.GetOrCreate(ctx, ts)
	if err != nil {
		return time.Time{}, err
	}
	return dim.FullDate, nil
}

func (r *Postgres) ResolveLocation(ctx context.Context, key naturalkey.LocationKey) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Postgres.ResolveLocation")
	defer span.End()

	dim, _, err := r.location.GetOrCreate(ctx, key)
	if err != nil {
		return 0, err
	}
	return dim.LocationKey, nil
}

func (r *Postgres) ResolveWeather(ctx context.Context, key naturalkey.WeatherKey) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Postgres.ResolveWeather")
	defer span.End()

	dim, _, err := r.weather.GetOrCreate(ctx, key)
	if err != nil {
		return 0, err
	}
	return dim.WeatherKey, nil
}
