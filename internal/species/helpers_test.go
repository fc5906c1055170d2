package species

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/wildlife-go/internal/datastore"
	"github.com/tphakala/wildlife-go/internal/datastore/entities"
	"github.com/tphakala/wildlife-go/internal/datastore/repository"
	"github.com/tphakala/wildlife-go/internal/inaturalist"
	"github.com/tphakala/wildlife-go/internal/observability/metrics"
	"github.com/tphakala/wildlife-go/internal/taxonomy"
)

// fakeTaxa serves canned provider outcomes and counts calls. When release is
// non-nil, GetByTaxonID blocks until it is closed.
type fakeTaxa struct {
	mu          sync.Mutex
	searchCalls int
	getCalls    int
	searchQuery string

	search  inaturalist.Outcome
	get     inaturalist.Outcome
	release chan struct{}
}

func (f *fakeTaxa) SearchByName(_ context.Context, name string) inaturalist.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.searchQuery = name
	return f.search
}

func (f *fakeTaxa) GetByTaxonID(_ context.Context, _ int64) inaturalist.Outcome {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	return f.get
}

func (f *fakeTaxa) calls() (search, get int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls, f.getCalls
}

func redFox() taxonomy.Record {
	return taxonomy.Record{
		TaxonID:        42069,
		ScientificName: "Vulpes vulpes",
		CommonName:     "Red Fox",
		IconicTaxon:    "Mammalia",
		Lineage: taxonomy.Lineage{
			Kingdom: "Animalia",
			Class:   "Mammalia",
			Order:   "Carnivora",
			Family:  "Canidae",
			Genus:   "Vulpes",
			Species: "Vulpes vulpes",
		},
	}
}

func foundOutcome(rec taxonomy.Record) inaturalist.Outcome {
	return inaturalist.Outcome{Status: inaturalist.Found, Record: rec}
}

func setupRepo(t *testing.T) repository.SpeciesRepository {
	t.Helper()

	m, err := datastore.NewSQLiteManager(datastore.SQLiteConfig{Path: datastore.MemoryPath})
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	t.Cleanup(func() { _ = m.Close() })

	return repository.NewSpeciesRepository(m.DB())
}

func setupService(t *testing.T, taxa *fakeTaxa) (*Service, repository.SpeciesRepository, *metrics.TestRecorder) {
	t.Helper()

	repo := setupRepo(t)
	recorder := metrics.NewTestRecorder()
	return NewService(repo, taxa, Config{}, recorder), repo, recorder
}

func store(t *testing.T, repo repository.SpeciesRepository, taxonID int64, common, sci string) *entities.Species {
	t.Helper()

	s := &entities.Species{
		TaxonID:        taxonID,
		CommonName:     entities.StringPtr(common),
		ScientificName: entities.StringPtr(sci),
	}
	require.NoError(t, repo.Insert(t.Context(), s))
	return s
}
