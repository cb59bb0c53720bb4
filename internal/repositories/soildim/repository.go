package soildim

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

// Repository handles dim_soil persistence. Rows are append-only: once a
// chemistry profile exists it is never updated or deleted.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new soil dimension repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetOrCreate resolves a soil natural key to its dimension row, inserting
// one when the canonical hash has not been seen. The no-op DO UPDATE makes
// the conflicting row visible to RETURNING, so concurrent callers racing on
// the same key all observe the single surviving row; (xmax = 0) reports
// whether this call inserted it.
func (r *Repository) GetOrCreate(ctx context.Context, key naturalkey.SoilKey) (*models.SoilDimension, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "soildim.Repository.GetOrCreate")
	defer span.End()

	rounded := key.Rounded()
	now := time.Now().UTC()

	query := `
		WITH upsert AS (
			INSERT INTO dim_soil (key_hash, ph, nitrogen, phosphorus, potassium, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (key_hash)
			DO UPDATE SET key_hash = EXCLUDED.key_hash
			RETURNING soil_key, key_hash, ph, nitrogen, phosphorus, potassium, created_at,
				(xmax = 0) AS inserted
		)
		SELECT * FROM upsert
	`

	var result struct {
		models.SoilDimension
		Inserted bool `db:"inserted"`
	}

	q := database.FromContext(ctx, r.db)
	if err := q.GetContext(ctx, &result, query,
		key.Hash(), rounded.PH, rounded.Nitrogen, rounded.Phosphorus, rounded.Potassium, now,
	); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"key_hash": key.Hash()}).Error("Failed to resolve soil dimension")
		return nil, false, err
	}

	if result.Inserted {
		r.logger.WithContext(ctx).WithFields(map[string]any{"soil_key": result.SoilKey}).Debug("Created soil dimension")
	}
	return &result.SoilDimension, result.Inserted, nil
}

// GetByHash retrieves a soil dimension row by its canonical key hash.
// Returns nil when the profile has never been seen.
func (r *Repository) GetByHash(ctx context.Context, keyHash string) (*models.SoilDimension, error) {
	ctx, span := tracing.StartSpan(ctx, "soildim.Repository.GetByHash")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("soil_key", "key_hash", "ph", "nitrogen", "phosphorus", "potassium", "created_at")
	sb.From("dim_soil")
	sb.Where(sb.Equal("key_hash", keyHash))

	query, args := sb.Build()
	var dim models.SoilDimension
	if err := r.db.GetContext(ctx, &dim, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"key_hash": keyHash}).Error("Failed to get soil dimension")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get soil dimension")
	}
	return &dim, nil
}

// Count returns the number of distinct soil chemistry profiles.
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "soildim.Repository.Count")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("dim_soil")

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count soil dimensions")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count soil dimensions")
	}
	return count, nil
}
