// Package species resolves free-text queries and provider taxon ids to
// catalog species, importing from the taxonomy provider on a miss.
package species

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/tphakala/wildlife-go/internal/datastore/entities"
	"github.com/tphakala/wildlife-go/internal/datastore/repository"
	"github.com/tphakala/wildlife-go/internal/errors"
	"github.com/tphakala/wildlife-go/internal/inaturalist"
	"github.com/tphakala/wildlife-go/internal/logger"
	"github.com/tphakala/wildlife-go/internal/observability/metrics"
	"github.com/tphakala/wildlife-go/internal/vision"
)

// Default page sizes used when a caller passes a non-positive limit.
const (
	DefaultFindLimit           = 10
	DefaultSearchLimit         = 20
	DefaultPopularLimit        = 50
	DefaultClassificationLimit = 20

	// DefaultMinQueryLength is the shortest query sent to the provider.
	DefaultMinQueryLength = 4
)

// Import messages attached to identification results.
const (
	MsgImported      = "Species imported"
	MsgAlreadyStored = "Species already in catalog"
	MsgNoTaxonID     = "Top candidate has no taxon id"
	MsgImportFailed  = "Import failed: "
)

var (
	// ErrSpeciesNotFound indicates the catalog has no such species.
	ErrSpeciesNotFound = repository.ErrSpeciesNotFound

	// ErrTaxonNotFound indicates the taxonomy provider has no such taxon.
	ErrTaxonNotFound = errors.NewStd("taxon not found")
)

// TaxaLookup is the taxonomy provider. *inaturalist.Client implements it.
type TaxaLookup interface {
	SearchByName(ctx context.Context, name string) inaturalist.Outcome
	GetByTaxonID(ctx context.Context, taxonID int64) inaturalist.Outcome
}

// Config tunes the service.
type Config struct {
	// MinQueryLength is the shortest trimmed query, in characters, that Find
	// forwards to the provider.
	MinQueryLength int
}

// Service resolves species against the catalog and the taxonomy provider.
type Service struct {
	repo    repository.SpeciesRepository
	taxa    TaxaLookup
	config  Config
	metrics metrics.Recorder
	imports singleflight.Group
}

// NewService creates a resolution service. A nil recorder disables metrics.
func NewService(repo repository.SpeciesRepository, taxa TaxaLookup, config Config, recorder metrics.Recorder) *Service {
	if config.MinQueryLength <= 0 {
		config.MinQueryLength = DefaultMinQueryLength
	}
	return &Service{
		repo:    repo,
		taxa:    taxa,
		config:  config,
		metrics: metrics.OrNoOp(recorder),
	}
}

// Find searches the catalog and, when it has fewer than limit matches and the
// query is long enough, asks the provider for one more species. A provider
// species already in the catalog is never added twice. Provider failures
// degrade to the local results.
func (s *Service) Find(ctx context.Context, query string, limit int) ([]Entry, error) {
	start := time.Now()
	defer func() { s.metrics.RecordDuration(metrics.OpFind, time.Since(start).Seconds()) }()

	if limit <= 0 {
		limit = DefaultFindLimit
	}
	log := GetLogger().WithContext(ctx)

	local, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		s.metrics.RecordError(metrics.OpFind, string(errors.CategoryOf(err)))
		return nil, err
	}
	entries := persistedAll(local)

	if len(entries) >= limit {
		s.metrics.RecordOperation(metrics.OpFind, metrics.SourceLocal)
		return entries, nil
	}

	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < s.config.MinQueryLength {
		s.metrics.RecordOperation(metrics.OpFind, metrics.SourceLocal)
		return entries, nil
	}

	outcome := s.taxa.SearchByName(ctx, query)
	switch outcome.Status {
	case inaturalist.Found:
		_, err := s.repo.GetByTaxonID(ctx, outcome.Record.TaxonID)
		switch {
		case errors.Is(err, repository.ErrSpeciesNotFound):
			entries = append(entries, unimported(outcome.Record))
		case err != nil:
			s.metrics.RecordError(metrics.OpFind, string(errors.CategoryOf(err)))
			return nil, err
		}

	case inaturalist.ProviderError:
		s.metrics.RecordError(metrics.OpFind, string(errors.CategoryIntegration))
		log.Warn("taxonomy provider failed, returning local results only",
			logger.String("query", query),
			logger.Int("local_results", len(entries)),
			logger.Error(outcome.Err))
	}

	source := metrics.SourceLocal
	if len(entries) > len(local) {
		source = metrics.SourceExternal
	}
	s.metrics.RecordOperation(metrics.OpFind, source)

	if len(entries) > limit {
		entries = entries[:limit]
	}

	log.Debug("find completed",
		logger.String("query", query),
		logger.Int("results", len(entries)),
		logger.String("source", source))
	return entries, nil
}

// Search returns catalog matches only.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	local, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return persistedAll(local), nil
}

// GetByID returns a catalog species. A missing row is ErrSpeciesNotFound.
func (s *Service) GetByID(ctx context.Context, id uint) (*Entry, error) {
	sp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	e := persisted(sp)
	return &e, nil
}

// GetByClassification lists catalog species at level (class, order, family
// or genus) whose name equals value.
func (s *Service) GetByClassification(ctx context.Context, level, value string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultClassificationLimit
	}
	list, err := s.repo.GetByClassification(ctx, level, value, limit)
	if err != nil {
		return nil, err
	}
	return persistedAll(list), nil
}

// ByClass lists catalog species of a class.
func (s *Service) ByClass(ctx context.Context, name string, limit int) ([]Entry, error) {
	return s.GetByClassification(ctx, repository.LevelClass, name, limit)
}

// ByOrder lists catalog species of an order.
func (s *Service) ByOrder(ctx context.Context, name string, limit int) ([]Entry, error) {
	return s.GetByClassification(ctx, repository.LevelOrder, name, limit)
}

// ByFamily lists catalog species of a family.
func (s *Service) ByFamily(ctx context.Context, name string, limit int) ([]Entry, error) {
	return s.GetByClassification(ctx, repository.LevelFamily, name, limit)
}

// Popular returns the preloaded catalog listing.
func (s *Service) Popular(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	list, err := s.repo.ListPreloaded(ctx, limit)
	if err != nil {
		return nil, err
	}
	return persistedAll(list), nil
}

// Count returns the number of catalog species.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// importResult is the outcome of one import, shared between collapsed callers.
type importResult struct {
	entry   Entry
	outcome string
}

// ImportByTaxonID returns the catalog species for taxonID, fetching and
// storing it first when absent. Repeated and concurrent calls for the same
// id yield the same row.
func (s *Service) ImportByTaxonID(ctx context.Context, taxonID int64) (*Entry, error) {
	res, err := s.importTaxon(ctx, taxonID)
	if err != nil {
		return nil, err
	}
	return &res.entry, nil
}

// importTaxon collapses concurrent imports of one id. The shared work is
// detached from the caller's cancellation so one impatient caller does not
// fail the others; each caller still stops waiting when its own ctx ends.
func (s *Service) importTaxon(ctx context.Context, taxonID int64) (importResult, error) {
	ch := s.imports.DoChan(strconv.FormatInt(taxonID, 10), func() (res any, err error) {
		// DoChan re-panics on its own goroutine, where nothing can recover
		defer func() {
			if r := recover(); r != nil {
				GetLogger().Error("import panicked",
					logger.Int64("taxon_id", taxonID),
					logger.Any("panic", r))
				res, err = nil, errors.Newf("import of taxon %d panicked: %v", taxonID, r).
					Component("species").
					Category(errors.CategorySystem).
					Priority(errors.PriorityCritical).
					Context("operation", "import").
					Build()
			}
		}()
		return s.doImport(context.WithoutCancel(ctx), taxonID)
	})

	select {
	case <-ctx.Done():
		return importResult{}, errors.New(ctx.Err()).
			Component("species").
			Category(errors.CategoryCancellation).
			Context("operation", "import").
			Context("taxon_id", taxonID).
			Build()
	case r := <-ch:
		if r.Err != nil {
			return importResult{}, r.Err
		}
		return r.Val.(importResult), nil
	}
}

func (s *Service) doImport(ctx context.Context, taxonID int64) (importResult, error) {
	start := time.Now()
	defer func() { s.metrics.RecordDuration(metrics.OpImport, time.Since(start).Seconds()) }()
	log := GetLogger().WithContext(ctx).With(logger.Int64("taxon_id", taxonID))

	existing, err := s.repo.GetByTaxonID(ctx, taxonID)
	switch {
	case err == nil:
		s.metrics.RecordOperation(metrics.OpImport, metrics.ImportExisting)
		return importResult{entry: persisted(existing), outcome: metrics.ImportExisting}, nil
	case !errors.Is(err, repository.ErrSpeciesNotFound):
		return importResult{}, s.importFailed(err)
	}

	outcome := s.taxa.GetByTaxonID(ctx, taxonID)
	switch outcome.Status {
	case inaturalist.Found:
	case inaturalist.NotFound:
		s.metrics.RecordOperation(metrics.OpImport, metrics.StatusNotFound)
		return importResult{}, errors.New(ErrTaxonNotFound).
			Component("species").
			Category(errors.CategoryNotFound).
			Context("taxon_id", taxonID).
			Build()
	default:
		return importResult{}, s.importFailed(errors.Newf("taxonomy provider lookup for taxon %d failed: %w", taxonID, outcome.Err).
			Component("species").
			Category(errors.CategoryIntegration).
			Context("taxon_id", taxonID).
			Build())
	}

	row := toEntity(&outcome.Record)
	err = s.repo.Insert(ctx, row)
	switch {
	case err == nil:
		s.metrics.RecordOperation(metrics.OpImport, metrics.ImportCreated)
		log.Info("species imported",
			logger.Any("species_id", row.ID),
			logger.String("scientific_name", entities.StringValue(row.ScientificName)))
		return importResult{entry: persisted(row), outcome: metrics.ImportCreated}, nil

	case errors.Is(err, repository.ErrDuplicateTaxon):
		// Another process stored it first
		winner, rerr := s.repo.GetByTaxonID(ctx, row.TaxonID)
		if rerr != nil {
			return importResult{}, s.importFailed(rerr)
		}
		s.metrics.RecordOperation(metrics.OpImport, metrics.ImportRaced)
		log.Debug("species import raced, returning stored row", logger.Any("species_id", winner.ID))
		return importResult{entry: persisted(winner), outcome: metrics.ImportRaced}, nil

	default:
		return importResult{}, s.importFailed(err)
	}
}

func (s *Service) importFailed(err error) error {
	s.metrics.RecordOperation(metrics.OpImport, metrics.StatusError)
	s.metrics.RecordError(metrics.OpImport, string(errors.CategoryOf(err)))
	GetLogger().Warn("species import failed", logger.Error(err))
	return err
}

// ImportTop imports the top candidate of a successful identification and
// annotates the result. Failed results are returned unchanged and import
// failures only set ImportMessage.
func (s *Service) ImportTop(ctx context.Context, result vision.Result) vision.Result {
	if !result.Success {
		return result
	}

	top, ok := result.Top()
	if !ok || top.TaxonID == nil {
		result.ImportMessage = MsgNoTaxonID
		return result
	}

	res, err := s.importTaxon(ctx, *top.TaxonID)
	if err != nil {
		result.ImportMessage = MsgImportFailed + err.Error()
		return result
	}

	id := res.entry.Species.ID
	result.ImportedSpeciesID = &id
	result.ImportMessage = MsgImported
	if res.outcome == metrics.ImportExisting {
		result.ImportMessage = MsgAlreadyStored
	}
	return result
}

func persistedAll(list []*entities.Species) []Entry {
	entries := make([]Entry, 0, len(list))
	for _, sp := range list {
		entries = append(entries, persisted(sp))
	}
	return entries
}
