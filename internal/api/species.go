package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/birdnet-ingest/internal/datastore"
	"github.com/tphakala/birdnet-ingest/internal/errors"
	"github.com/tphakala/birdnet-ingest/internal/speciesinfo"
)

// SpeciesResponse is the API view of cached species metadata.
type SpeciesResponse struct {
	Name               string  `json:"name"`
	ScientificName     *string `json:"scientific_name"`
	ImageURL           *string `json:"image_url"`
	Description        *string `json:"description"`
	Region             *string `json:"region"`
	Habitat            *string `json:"habitat"`
	ConservationStatus *string `json:"conservation_status"`
}

func (c *Controller) initSpeciesRoutes() {
	c.Group.GET("/species", c.ListSpecies)
	c.Group.GET("/species/:name", c.GetSpecies)
	c.Group.GET("/species-summary", c.GetSpeciesSummary)
}

// ListSpecies returns every cached species ordered by name.
func (c *Controller) ListSpecies(ctx echo.Context) error {
	species, err := c.DS.ListSpecies(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list species", http.StatusInternalServerError)
	}

	out := make([]SpeciesResponse, 0, len(species))
	if err := copier.Copy(&out, &species); err != nil {
		return c.HandleError(ctx, err, "Failed to map species", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, out)
}

// GetSpecies resolves one species through the metadata cache, fetching it
// from the external source on a miss.
func (c *Controller) GetSpecies(ctx echo.Context) error {
	name := ctx.Param("name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return c.HandleError(ctx, nil, "Species name is required", http.StatusBadRequest)
	}

	info, err := c.Species.Resolve(ctx.Request().Context(), name)
	switch {
	case errors.Is(err, speciesinfo.ErrSpeciesNotFound):
		return c.HandleError(ctx, err, fmt.Sprintf("Species '%s' not found", name), http.StatusNotFound)
	case err != nil:
		return c.HandleError(ctx, err, "Failed to resolve species", http.StatusBadGateway)
	}

	var out SpeciesResponse
	if err := copier.Copy(&out, info); err != nil {
		return c.HandleError(ctx, err, "Failed to map species", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, out)
}

// GetSpeciesSummary returns per-species detection statistics joined with
// cached metadata, most detected first.
func (c *Controller) GetSpeciesSummary(ctx echo.Context) error {
	summary, err := c.DS.SpeciesSummary(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get species summary", http.StatusInternalServerError)
	}
	if summary == nil {
		summary = []datastore.SpeciesSummary{}
	}
	return ctx.JSON(http.StatusOK, summary)
}
