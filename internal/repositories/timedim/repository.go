package timedim

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

// Repository handles dim_time persistence. The minute-truncated timestamp is
// both the natural and the primary key; year through minute are decomposed
// once at insert and never recomputed.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new time dimension repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetOrCreate resolves a timestamp to its minute row, inserting it on first
// sight. Safe under concurrent callers racing on the same minute.
func (r *Repository) GetOrCreate(ctx context.Context, ts time.Time) (*models.TimeDimension, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "timedim.Repository.GetOrCreate")
	defer span.End()

	fullDate := naturalkey.TimeKey(ts)

	query := `
		WITH upsert AS (
			INSERT INTO dim_time (full_date, year, month, day, hour, minute)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (full_date)
			DO UPDATE SET full_date = EXCLUDED.full_date
			RETURNING full_date, year, month, day, hour, minute,
				(xmax = 0) AS inserted
		)
		SELECT * FROM upsert
	`

	var result struct {
		models.TimeDimension
		Inserted bool `db:"inserted"`
	}

	q := database.FromContext(ctx, r.db)
	if err := q.GetContext(ctx, &result, query,
		fullDate, fullDate.Year(), int(fullDate.Month()), fullDate.Day(), fullDate.Hour(), fullDate.Minute(),
	); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"full_date": fullDate}).Error("Failed to resolve time dimension")
		return nil, false, err
	}

	if result.Inserted {
		r.logger.WithContext(ctx).WithFields(map[string]any{"full_date": result.FullDate}).Debug("Created time dimension")
	}
	return &result.TimeDimension, result.Inserted, nil
}

// Get retrieves a time dimension row by its minute-truncated timestamp.
// Returns nil when the minute has never been seen.
func (r *Repository) Get(ctx context.Context, fullDate time.Time) (*models.TimeDimension, error) {
	ctx, span := tracing.StartSpan(ctx, "timedim.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("full_date", "year", "month", "day", "hour", "minute")
	sb.From("dim_time")
	sb.Where(sb.Equal("full_date", naturalkey.TimeKey(fullDate)))

	query, args := sb.Build()
	var dim models.TimeDimension
	if err := r.db.GetContext(ctx, &dim, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"full_date": fullDate}).Error("Failed to get time dimension")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get time dimension")
	}
	return &dim, nil
}

// Count returns the number of distinct minutes in the dimension.
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "timedim.Repository.Count")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("dim_time")

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count time dimensions")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count time dimensions")
	}
	return count, nil
}
