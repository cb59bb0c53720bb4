package fact

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Repository handles fact_sensor_readings persistence. Fact rows are
// immutable once inserted; evt_id is unique and doubles as the durable
// watermark set.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new fact repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Insert appends one fact row. Returns false when a row with the same
// evt_id already exists; the conflict is swallowed by DO NOTHING so a
// duplicate submission is a no-op, not an error.
func (r *Repository) Insert(ctx context.Context, f models.FactSensorReading) (*models.FactSensorReading, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "fact.Repository.Insert")
	defer span.End()

	now := time.Now().UTC()

	query := `
		INSERT INTO fact_sensor_readings (
			evt_id, location_key, weather_key, soil_key, full_date,
			soil_temperature, soil_humidity, water_level, validation_status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (evt_id) DO NOTHING
		RETURNING fact_id, evt_id, location_key, weather_key, soil_key, full_date,
			soil_temperature, soil_humidity, water_level, validation_status, created_at
	`

	var inserted models.FactSensorReading
	q := database.FromContext(ctx, r.db)
	err := q.GetContext(ctx, &inserted, query,
		f.EvtID, f.LocationKey, f.WeatherKey, f.SoilKey, f.FullDate,
		f.SoilTemperature, f.SoilHumidity, f.WaterLevel, f.ValidationStatus, now,
	)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			// ON CONFLICT DO NOTHING returns no row when the evt_id lost the race.
			return nil, false, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"evt_id": f.EvtID}).Error("Failed to insert fact row")
		return nil, false, err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"fact_id": inserted.FactID, "evt_id": inserted.EvtID}).Debug("Inserted fact row")
	return &inserted, true, nil
}

// ExistsEvent reports whether a fact row with the given evt_id is already
// committed.
func (r *Repository) ExistsEvent(ctx context.Context, evtID string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "fact.Repository.ExistsEvent")
	defer span.End()

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM fact_sensor_readings WHERE evt_id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, evtID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"evt_id": evtID}).Error("Failed to check fact existence")
		return false, err
	}
	return exists, nil
}

// GetByEventID retrieves a fact row by its event identifier. Returns a 404
// error when the event has not been loaded.
func (r *Repository) GetByEventID(ctx context.Context, evtID string) (*models.FactSensorReading, error) {
	ctx, span := tracing.StartSpan(ctx, "fact.Repository.GetByEventID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("fact_id", "evt_id", "location_key", "weather_key", "soil_key", "full_date",
		"soil_temperature", "soil_humidity", "water_level", "validation_status", "created_at")
	sb.From("fact_sensor_readings")
	sb.Where(sb.Equal("evt_id", evtID))

	query, args := sb.Build()
	var f models.FactSensorReading
	if err := r.db.GetContext(ctx, &f, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "reading %s not loaded", evtID)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"evt_id": evtID}).Error("Failed to get fact row")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get fact row")
	}
	return &f, nil
}

// ListEventIDs returns the most recently loaded event identifiers, newest
// first. Used to warm the watermark cache at startup.
func (r *Repository) ListEventIDs(ctx context.Context, limit int) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "fact.Repository.ListEventIDs")
	defer span.End()

	if limit < 1 {
		limit = 10000
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("evt_id")
	sb.From("fact_sensor_readings")
	sb.OrderBy("fact_id DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list event ids")
		return nil, err
	}
	return ids, nil
}

// Count returns the total number of fact rows.
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "fact.Repository.Count")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("fact_sensor_readings")

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count fact rows")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count fact rows")
	}
	return count, nil
}

// CountByStatus returns fact row counts grouped by validation status.
func (r *Repository) CountByStatus(ctx context.Context) (map[models.ReadingStatus]int, error) {
	ctx, span := tracing.StartSpan(ctx, "fact.Repository.CountByStatus")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("validation_status", "COUNT(*) AS count")
	sb.From("fact_sensor_readings")
	sb.GroupBy("validation_status")

	query, args := sb.Build()
	var rows []struct {
		ValidationStatus models.ReadingStatus `db:"validation_status"`
		Count            int                  `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count fact rows by status")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count fact rows")
	}

	counts := make(map[models.ReadingStatus]int, len(rows))
	for _, row := range rows {
		counts[row.ValidationStatus] = row.Count
	}
	return counts, nil
}
