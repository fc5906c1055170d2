package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/wildlife-go/internal/conf"
	"github.com/tphakala/wildlife-go/internal/logger"
	"github.com/tphakala/wildlife-go/internal/species"
)

// ListResponse wraps a species listing.
type ListResponse struct {
	Species []species.View `json:"species"`
	Count   int            `json:"count"`
}

func (c *Controller) initSpeciesRoutes() {
	g := c.Group.Group("/species")

	g.GET("/search", c.SearchSpecies)
	g.GET("/find", c.FindSpecies)
	g.GET("/popular", c.PopularSpecies)
	g.GET("/class/:name", c.listByClassification(SpeciesResolver.ByClass))
	g.GET("/order/:name", c.listByClassification(SpeciesResolver.ByOrder))
	g.GET("/family/:name", c.listByClassification(SpeciesResolver.ByFamily))
	g.POST("/import/:taxonId", c.ImportSpecies)
	g.GET("/:id", c.GetSpecies)
}

func listResponse(entries []species.Entry) ListResponse {
	views := species.Views(entries)
	return ListResponse{Species: views, Count: len(views)}
}

// GetSpecies returns one catalog species by internal id.
func (c *Controller) GetSpecies(ctx echo.Context) error {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.HandleError(ctx, validationError("invalid species id %q", ctx.Param("id")),
			"Invalid species ID", http.StatusBadRequest)
	}

	entry, err := c.Species.GetByID(ctx.Request().Context(), uint(id))
	if err != nil {
		code := statusForError(err)
		if code == http.StatusNotFound {
			return c.HandleError(ctx, err, "Species not found", code)
		}
		return c.HandleError(ctx, err, "Failed to get species", code)
	}

	return ctx.JSON(http.StatusOK, entry.View())
}

// SearchSpecies searches the local catalog only.
func (c *Controller) SearchSpecies(ctx echo.Context) error {
	query, limit, err := c.queryAndLimit(ctx, c.limits().Search)
	if err != nil {
		return c.HandleError(ctx, err, err.Error(), http.StatusBadRequest)
	}

	entries, err := c.Species.Search(ctx.Request().Context(), query, limit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to search species", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, listResponse(entries))
}

// FindSpecies searches the catalog and falls back to iNaturalist.
func (c *Controller) FindSpecies(ctx echo.Context) error {
	query, limit, err := c.queryAndLimit(ctx, c.limits().Find)
	if err != nil {
		return c.HandleError(ctx, err, err.Error(), http.StatusBadRequest)
	}

	entries, err := c.Species.Find(ctx.Request().Context(), query, limit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to find species", statusForError(err))
	}
	if len(entries) == 0 {
		msg := fmt.Sprintf("No species found for '%s' in local database or iNaturalist", query)
		return c.HandleError(ctx, nil, msg, http.StatusNotFound)
	}

	return ctx.JSON(http.StatusOK, listResponse(entries))
}

// PopularSpecies lists the preloaded catalog.
func (c *Controller) PopularSpecies(ctx echo.Context) error {
	limit, err := parseLimit(ctx, c.limits().Popular)
	if err != nil {
		return c.HandleError(ctx, err, err.Error(), http.StatusBadRequest)
	}

	entries, err := c.Species.Popular(ctx.Request().Context(), limit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list species", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, listResponse(entries))
}

// listByClassification adapts a resolver method to a handler for /<level>/:name.
func (c *Controller) listByClassification(list func(SpeciesResolver, context.Context, string, int) ([]species.Entry, error)) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		name := strings.TrimSpace(ctx.Param("name"))
		if name == "" {
			return c.HandleError(ctx, validationError("name is required"), "name is required", http.StatusBadRequest)
		}

		limit, err := parseLimit(ctx, c.limits().Classification)
		if err != nil {
			return c.HandleError(ctx, err, err.Error(), http.StatusBadRequest)
		}

		entries, err := list(c.Species, ctx.Request().Context(), name, limit)
		if err != nil {
			return c.HandleError(ctx, err, "Failed to list species", statusForError(err))
		}

		return ctx.JSON(http.StatusOK, listResponse(entries))
	}
}

// ImportSpecies imports a taxon from iNaturalist into the catalog. Importing
// a taxon that is already stored returns the stored row.
func (c *Controller) ImportSpecies(ctx echo.Context) error {
	raw := ctx.Param("taxonId")
	taxonID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return c.HandleError(ctx, validationError("invalid taxon id %q", raw),
			"Invalid taxon ID", http.StatusBadRequest)
	}

	entry, err := c.Species.ImportByTaxonID(ctx.Request().Context(), taxonID)
	if err != nil {
		code := statusForError(err)
		switch code {
		case http.StatusNotFound:
			return c.HandleError(ctx, err, fmt.Sprintf("Taxon %d not found on iNaturalist", taxonID), code)
		case http.StatusBadGateway:
			return c.HandleError(ctx, err, "iNaturalist is unavailable", code)
		default:
			return c.HandleError(ctx, err, "Failed to import species", code)
		}
	}

	GetLogger().Info("species imported via api",
		logger.Int64("taxon_id", taxonID),
		logger.String("name", entry.View().ScientificName))

	return ctx.JSON(http.StatusOK, entry.View())
}

// queryAndLimit reads the required q parameter and the clamped limit.
func (c *Controller) queryAndLimit(ctx echo.Context, limits conf.LimitSettings) (string, int, error) {
	query := strings.TrimSpace(ctx.QueryParam("q"))
	if query == "" {
		return "", 0, validationError("query parameter 'q' is required")
	}
	limit, err := parseLimit(ctx, limits)
	if err != nil {
		return "", 0, err
	}
	return query, limit, nil
}

func (c *Controller) limits() *conf.SpeciesSettings {
	return &c.Settings.Species
}
