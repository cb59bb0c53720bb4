package weatherdim

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/naturalkey"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Repository handles dim_weather persistence.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new weather dimension repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetOrCreate resolves a weather natural key to its dimension row,
// inserting one when the canonical hash has not been seen.
func (r *Repository) GetOrCreate(ctx context.Context, key naturalkey.WeatherKey) (*models.WeatherDimension, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "weatherdim.Repository.GetOrCreate")
	defer span.End()

	rounded := key.Rounded()
	now := time.Now().UTC()

	query := `
		WITH upsert AS (
			INSERT INTO dim_weather (key_hash, weather_temperature, weather_humidity, wind_speed, wind_direction, rain, surface_pressure, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (key_hash)
			DO UPDATE SET key_hash = EXCLUDED.key_hash
			RETURNING weather_key, key_hash, weather_temperature, weather_humidity, wind_speed, wind_direction, rain, surface_pressure, created_at,
				(xmax = 0) AS inserted
		)
		SELECT * FROM upsert
	`

	var result struct {
		models.WeatherDimension
		Inserted bool `db:"inserted"`
	}

	q := database.FromContext(ctx, r.db)
	if err := q.GetContext(ctx, &result, query,
		key.Hash(), rounded.Temperature, rounded.Humidity, rounded.WindSpeed, rounded.WindDirection, rounded.Rain, rounded.SurfacePressure, now,
	); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"key_hash": key.Hash()}).Error("Failed to resolve weather dimension")
		return nil, false, err
	}

	if result.Inserted {
		r.logger.WithContext(ctx).WithFields(map[string]any{"weather_key": result.WeatherKey}).Debug("Created weather dimension")
	}
	return &result.WeatherDimension, result.Inserted, nil
}

// GetByHash retrieves a weather dimension row by its canonical key hash.
// Returns nil when the tuple has never been seen.
func (r *Repository) GetByHash(ctx context.Context, keyHash string) (*models.WeatherDimension, error) {
	ctx, span := tracing.StartSpan(ctx, "weatherdim.Repository.GetByHash")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("weather_key", "key_hash", "weather_temperature", "weather_humidity", "wind_speed", "wind_direction", "rain", "surface_pressure", "created_at")
	sb.From("dim_weather")
	sb.Where(sb.Equal("key_hash", keyHash))

	query, args := sb.Build()
	var dim models.WeatherDimension
	if err := r.db.GetContext(ctx, &dim, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"key_hash": keyHash}).Error("Failed to get weather dimension")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get weather dimension")
	}
	return &dim, nil
}

// Count returns the number of distinct weather tuples.
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "weatherdim.Repository.Count")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("dim_weather")

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count weather dimensions")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count weather dimensions")
	}
	return count, nil
}
