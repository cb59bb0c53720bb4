package locationdim

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

// Repository handles dim_location persistence.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new location dimension repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetOrCreate resolves a location natural key to its dimension row,
// inserting one when the canonical hash has not been seen.
func (r *Repository) GetOrCreate(ctx context.Context, key naturalkey.LocationKey) (*models.LocationDimension, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "locationdim.Repository.GetOrCreate")
	defer span.End()

	rounded := key.Rounded()
	now := time.Now().UTC()

	query := `
		WITH upsert AS (
			INSERT INTO dim_location (key_hash, loc_id, latitude, longitude, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (key_hash)
			DO UPDATE SET key_hash = EXCLUDED.key_hash
			RETURNING location_key, key_hash, loc_id, latitude, longitude, created_at,
				(xmax = 0) AS inserted
		)
		SELECT * FROM upsert
	`

	var result struct {
		models.LocationDimension
		Inserted bool `db:"inserted"`
	}

	q := database.FromContext(ctx, r.db)
	if err := q.GetContext(ctx, &result, query,
		key.Hash(), rounded.LocID, rounded.Latitude, rounded.Longitude, now,
	); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"loc_id": key.LocID, "key_hash": key.Hash()}).Error("Failed to resolve location dimension")
		return nil, false, err
	}

	if result.Inserted {
		r.logger.WithContext(ctx).WithFields(map[string]any{"location_key": result.LocationKey, "loc_id": result.LocID}).Debug("Created location dimension")
	}
	return &result.LocationDimension, result.Inserted, nil
}

// GetByHash retrieves a location dimension row by its canonical key hash.
// Returns nil when the site has never been seen.
func (r *Repository) GetByHash(ctx context.Context, keyHash string) (*models.LocationDimension, error) {
	ctx, span := tracing.StartSpan(ctx, "locationdim.Repository.GetByHash")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("location_key", "key_hash", "loc_id", "latitude", "longitude", "created_at")
	sb.From("dim_location")
	sb.Where(sb.Equal("key_hash", keyHash))

	query, args := sb.Build()
	var dim models.LocationDimension
	if err := r.db.GetContext(ctx, &dim, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"key_hash": keyHash}).Error("Failed to get location dimension")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get location dimension")
	}
	return &dim, nil
}

// ListByLocID returns every coordinate variant recorded for a site
// identifier, newest first. A drifting GPS fix shows up here as multiple
// rows for one loc_id.
func (r *Repository) ListByLocID(ctx context.Context, locID string) ([]models.LocationDimension, error) {
	ctx, span := tracing.StartSpan(ctx, "locationdim.Repository.ListByLocID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("location_key", "key_hash", "loc_id", "latitude", "longitude", "created_at")
	sb.From("dim_location")
	sb.Where(sb.Equal("loc_id", locID))
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var dims []models.LocationDimension
	if err := r.db.SelectContext(ctx, &dims, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"loc_id": locID}).Error("Failed to list location dimensions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list location dimensions")
	}
	return dims, nil
}

// Count returns the number of distinct sites.
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "locationdim.Repository.Count")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("dim_location")

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count location dimensions")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count location dimensions")
	}
	return count, nil
}
