package repository

import (
	"context"
	stderrors "errors"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/wildlife-go/internal/datastore/entities"
	"github.com/tphakala/wildlife-go/internal/errors"
)

const (
	mysqlDuplicateEntry = 1062
	likeEscape          = "!"
)

// classificationColumns maps a classification level to its folded column.
var classificationColumns = map[string]string{
	LevelClass:  "search_class",
	LevelOrder:  "search_order",
	LevelFamily: "search_family",
	LevelGenus:  "search_genus",
}

// displayNameOrder sorts by common name falling back to scientific name.
const displayNameOrder = "COALESCE(common_name, scientific_name) ASC, id ASC"

// speciesRepository implements SpeciesRepository.
type speciesRepository struct {
	db *gorm.DB
}

// NewSpeciesRepository creates a new SpeciesRepository.
func NewSpeciesRepository(db *gorm.DB) SpeciesRepository {
	return &speciesRepository{db: db}
}

// GetByID retrieves a species by its internal id.
func (r *speciesRepository) GetByID(ctx context.Context, id uint) (*entities.Species, error) {
	var s entities.Species
	err := r.db.WithContext(ctx).First(&s, id).Error
	if err != nil {
		return nil, r.lookupError(err, "get_by_id", "id", id)
	}
	return &s, nil
}

// GetByTaxonID retrieves a species by its provider taxon id.
func (r *speciesRepository) GetByTaxonID(ctx context.Context, taxonID int64) (*entities.Species, error) {
	var s entities.Species
	err := r.db.WithContext(ctx).Where("taxon_id = ?", taxonID).First(&s).Error
	if err != nil {
		return nil, r.lookupError(err, "get_by_taxon_id", "taxon_id", taxonID)
	}
	return &s, nil
}

func (r *speciesRepository) lookupError(err error, operation, key string, value any) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.New(ErrSpeciesNotFound).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Context("operation", operation).
			Context(key, value).
			Build()
	}
	return dbError(err, operation)
}

// Search finds species matching term.
func (r *speciesRepository) Search(ctx context.Context, term string, limit int) ([]*entities.Species, error) {
	term = entities.FoldKey(term)
	if term == "" {
		return []*entities.Species{}, nil
	}

	escaped := escapeLike(term)
	contains := "%" + escaped + "%"
	prefix := escaped + "%"

	var species []*entities.Species
	err := r.db.WithContext(ctx).
		Where("search_common LIKE ? ESCAPE '"+likeEscape+"' OR search_scientific LIKE ? ESCAPE '"+likeEscape+"' OR search_genus LIKE ? ESCAPE '"+likeEscape+"'",
			contains, contains, contains).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL: "CASE WHEN search_common LIKE ? ESCAPE '" + likeEscape + "' THEN 0 " +
				"WHEN search_scientific LIKE ? ESCAPE '" + likeEscape + "' THEN 1 ELSE 2 END, " +
				displayNameOrder,
			Vars:               []any{prefix, prefix},
			WithoutParentheses: true,
		}}).
		Limit(normalizeLimit(limit)).
		Find(&species).Error
	if err != nil {
		return nil, dbError(err, "search")
	}
	return species, nil
}

// GetByClassification lists species at a classification level.
func (r *speciesRepository) GetByClassification(ctx context.Context, level, value string, limit int) ([]*entities.Species, error) {
	column, ok := classificationColumns[strings.ToLower(strings.TrimSpace(level))]
	value = entities.FoldKey(value)
	if !ok || value == "" {
		return []*entities.Species{}, nil
	}

	var species []*entities.Species
	err := r.db.WithContext(ctx).
		Where(column+" = ?", value).
		Order(displayNameOrder).
		Limit(normalizeLimit(limit)).
		Find(&species).Error
	if err != nil {
		return nil, dbError(err, "get_by_classification")
	}
	return species, nil
}

// Insert stores a new species. The unique index on taxon_id makes a
// concurrent insert of the same taxon fail with ErrDuplicateTaxon.
func (r *speciesRepository) Insert(ctx context.Context, species *entities.Species) error {
	err := r.db.WithContext(ctx).Create(species).Error
	if err == nil {
		return nil
	}
	if isDuplicateKey(err) {
		return errors.New(ErrDuplicateTaxon).
			Component("datastore").
			Category(errors.CategoryConflict).
			Context("operation", "insert").
			Context("taxon_id", species.TaxonID).
			Build()
	}
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Priority(errors.PriorityHigh).
		Context("operation", "insert").
		Context("taxon_id", species.TaxonID).
		Build()
}

// ListPreloaded lists catalog species ordered by display name.
func (r *speciesRepository) ListPreloaded(ctx context.Context, limit int) ([]*entities.Species, error) {
	var species []*entities.Species
	err := r.db.WithContext(ctx).
		Order(displayNameOrder).
		Limit(normalizeLimit(limit)).
		Find(&species).Error
	if err != nil {
		return nil, dbError(err, "list_preloaded")
	}
	return species, nil
}

// Count returns the number of catalog species.
func (r *speciesRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.Species{}).Count(&count).Error; err != nil {
		return 0, dbError(err, "count")
	}
	return count, nil
}

// isDuplicateKey reports a unique constraint violation from either driver,
// with or without GORM error translation.
func isDuplicateKey(err error) bool {
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var mysqlErr *mysqldriver.MySQLError
	if stderrors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return true
	}

	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return true
	}

	return false
}

func dbError(err error, operation string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}

// normalizeLimit maps non-positive limits to GORM's "no limit".
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_").Replace(s)
}
