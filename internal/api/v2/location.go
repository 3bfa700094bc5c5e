package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/entities"
)

// initLocationRoutes registers location-related API endpoints
func (c *Controller) initLocationRoutes() {
	c.Group.GET("/location/species", c.GetSpeciesAtLocation)
}

// GetSpeciesAtLocation lists the species observed at a point, or within
// radius of it when a positive radius is given.
func (c *Controller) GetSpeciesAtLocation(ctx echo.Context) error {
	var latitude, longitude, radius float64
	if err := echo.QueryParamsBinder(ctx).
		MustFloat64("latitude", &latitude).
		MustFloat64("longitude", &longitude).
		Float64("radius", &radius).
		BindError(); err != nil {
		return c.HandleError(ctx, bindingError(err))
	}
	if radius < 0 {
		return c.HandleError(ctx, validationError("radius must not be negative"))
	}

	reqCtx := ctx.Request().Context()
	var (
		species []entities.Species
		err     error
	)
	if radius > 0 {
		species, err = c.Service.SpeciesWithinRadius(reqCtx, latitude, longitude, radius)
	} else {
		species, err = c.Service.SpeciesAtPoint(reqCtx, latitude, longitude)
	}
	if err != nil {
		return c.HandleError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, newSpeciesDTOs(species))
}
