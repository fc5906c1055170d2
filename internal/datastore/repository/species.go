package repository

import (
	"context"

	"github.com/tphakala/wildlife-go/internal/datastore/entities"
)

// Classification levels accepted by GetByClassification.
const (
	LevelClass  = "class"
	LevelOrder  = "order"
	LevelFamily = "family"
	LevelGenus  = "genus"
)

// SpeciesRepository provides access to the species table.
type SpeciesRepository interface {
	// GetByID retrieves a species by its internal id.
	// Returns ErrSpeciesNotFound if not found.
	GetByID(ctx context.Context, id uint) (*entities.Species, error)

	// GetByTaxonID retrieves a species by its provider taxon id.
	// Returns ErrSpeciesNotFound if not found.
	GetByTaxonID(ctx context.Context, taxonID int64) (*entities.Species, error)

	// Search finds species whose common name, scientific name or genus
	// contains term, case-insensitively. Common-name prefix matches sort
	// first, then scientific-name prefix matches, then by display name.
	Search(ctx context.Context, term string, limit int) ([]*entities.Species, error)

	// GetByClassification lists species whose class, order, family or genus
	// equals value, case-insensitively. Unknown levels yield no rows.
	GetByClassification(ctx context.Context, level, value string, limit int) ([]*entities.Species, error)

	// Insert stores a new species and assigns its id.
	// Returns ErrDuplicateTaxon when the taxon id is already present.
	Insert(ctx context.Context, species *entities.Species) error

	// ListPreloaded lists catalog species ordered by display name.
	ListPreloaded(ctx context.Context, limit int) ([]*entities.Species, error)

	// Count returns the number of catalog species.
	Count(ctx context.Context) (int64, error)
}
