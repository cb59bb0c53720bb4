package readings

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/internal/repositories/fact"
	"github.com/Ramsey-B/sage/internal/repositories/locationdim"
	"github.com/Ramsey-B/sage/internal/repositories/soildim"
	"github.com/Ramsey-B/sage/internal/repositories/timedim"
	"github.com/Ramsey-B/sage/internal/repositories/weatherdim"
	"github.com/Ramsey-B/sage/pkg/loader"
	"github.com/Ramsey-B/sage/pkg/models"
)

var validate = validator.New()

// Register registers reading routes
func Register(g *echo.Group) {
	g.POST("", Submit)
	g.GET("/:evtID", Get)
}

// RegisterStats registers the warehouse stats route
func RegisterStats(g *echo.Group) {
	g.GET("", Stats)
}

// Submit runs a batch of raw readings through the load pipeline and returns
// the run summary. Resubmitting readings is safe; already-loaded event
// identifiers are counted as skipped.
func Submit(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.SubmitReadingsRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, l, err := ectoinject.GetContext[*loader.Loader](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "loader unavailable")
	}

	summary, err := l.LoadBatch(ctx, req.Readings)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, summary)
}

// Get returns the loaded fact row for one event identifier
func Get(c echo.Context) error {
	ctx := c.Request().Context()

	evtID := c.Param("evtID")
	if evtID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "evtID is required")
	}

	ctx, repo, err := ectoinject.GetContext[*fact.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	row, err := repo.GetByEventID(ctx, evtID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, row)
}

// Stats returns fact and dimension row counts
func Stats(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, factRepo, err := ectoinject.GetContext[*fact.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	ctx, soilRepo, err := ectoinject.GetContext[*soildim.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	ctx, timeRepo, err := ectoinject.GetContext[*timedim.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	ctx, locationRepo, err := ectoinject.GetContext[*locationdim.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	ctx, weatherRepo, err := ectoinject.GetContext[*weatherdim.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	total, err := factRepo.Count(ctx)
	if err != nil {
		return err
	}
	byStatus, err := factRepo.CountByStatus(ctx)
	if err != nil {
		return err
	}
	soil, err := soilRepo.Count(ctx)
	if err != nil {
		return err
	}
	times, err := timeRepo.Count(ctx)
	if err != nil {
		return err
	}
	locations, err := locationRepo.Count(ctx)
	if err != nil {
		return err
	}
	weather, err := weatherRepo.Count(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.WarehouseStatsResponse{
		TotalFacts:    total,
		FactsByStatus: byStatus,
		SoilRows:      soil,
		TimeRows:      times,
		LocationRows:  locations,
		WeatherRows:   weather,
	})
}
