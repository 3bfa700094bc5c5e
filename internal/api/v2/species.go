package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mw "github.com/Samuel-Bradshaw/wcmc-solution/internal/api/middleware"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/survey"
)

// initSpeciesRoutes registers all species-related API endpoints
func (c *Controller) initSpeciesRoutes() {
	c.Group.GET("/species", c.ListSpecies)
	c.Group.GET("/species/:id/locations", c.GetSpeciesLocations)
	c.Group.PATCH("/species/:id", c.PatchSpecies)
	c.Group.DELETE("/species/:id", c.DeleteSpecies)
	c.Group.POST("/species/:id/locations", c.ReportSpeciesLocation,
		mw.NewIdempotency(c.idempotencyCache, c.recordReplay))
}

// ListSpecies returns one page of all species ordered by name.
func (c *Controller) ListSpecies(ctx echo.Context) error {
	page, pageSize := 0, conf.DefaultPageSize
	if err := echo.QueryParamsBinder(ctx).
		Int("page", &page).
		Int("page_size", &pageSize).
		BindError(); err != nil {
		return c.HandleError(ctx, bindingError(err))
	}

	result, err := c.Service.ListSpecies(ctx.Request().Context(), page, pageSize)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, PaginatedResponse{
		Page:     result.Page,
		PageSize: result.PageSize,
		LastPage: result.LastPage,
		Data:     newSpeciesDTOs(result.Data),
	})
}

// GetSpeciesLocations lists every location where the species was observed.
func (c *Controller) GetSpeciesLocations(ctx echo.Context) error {
	id, err := speciesIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	locations, err := c.Service.SpeciesLocations(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, newLocationDTOs(locations))
}

// PatchSpecies updates the mutable fields of a species.
func (c *Controller) PatchSpecies(ctx echo.Context) error {
	id, err := speciesIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	var req SpeciesPatchRequest
	if err := bindJSON(ctx, &req); err != nil {
		return c.HandleError(ctx, err)
	}
	if req.Name == nil {
		return c.HandleError(ctx, validationError("field required: name"))
	}

	species, err := c.Service.PatchSpecies(ctx.Request().Context(), id, survey.SpeciesPatch{Name: req.Name})
	if err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, newSpeciesDTO(species))
}

// DeleteSpecies removes a species and its observations.
func (c *Controller) DeleteSpecies(ctx echo.Context) error {
	id, err := speciesIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	if err := c.Service.DeleteSpecies(ctx.Request().Context(), id); err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.NoContent(http.StatusOK)
}

// ReportSpeciesLocation records an observation of the species at the given
// coordinates, creating the survey location when it does not exist.
func (c *Controller) ReportSpeciesLocation(ctx echo.Context) error {
	id, err := speciesIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	var req SpeciesLocationCreate
	if err := bindJSON(ctx, &req); err != nil {
		return c.HandleError(ctx, err)
	}
	switch {
	case req.Latitude == nil:
		return c.HandleError(ctx, validationError("field required: latitude"))
	case req.Longitude == nil:
		return c.HandleError(ctx, validationError("field required: longitude"))
	}

	report, err := c.Service.ReportObservation(ctx.Request().Context(), id, *req.Latitude, *req.Longitude)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, newSpeciesLocationResponse(report))
}

// speciesIDParam parses the :id path parameter.
func speciesIDParam(ctx echo.Context) (int64, error) {
	var id int64
	if err := echo.PathParamsBinder(ctx).MustInt64("id", &id).BindError(); err != nil {
		return 0, bindingError(err)
	}
	return id, nil
}

// bindJSON decodes the request body into dst.
func bindJSON(ctx echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(ctx, dst); err != nil {
		return validationError("invalid request body")
	}
	return nil
}

// bindingError converts an echo binder failure into a validation error naming the field.
func bindingError(err error) error {
	var bindErr *echo.BindingError
	if errors.As(err, &bindErr) {
		return validationError("invalid value for parameter %q", bindErr.Field)
	}
	return validationError("invalid request parameters")
}
