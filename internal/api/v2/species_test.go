package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/wildlife-go/internal/errors"
	"github.com/tphakala/wildlife-go/internal/species"
)

func categorized(category errors.ErrorCategory, msg string) error {
	return errors.Newf("%s", msg).Component("test").Category(category).Build()
}

func TestGetSpecies(t *testing.T) {
	t.Parallel()
	t.Attr("component", "api")

	entry := persistedEntry(42, 13660, "Eurasian Magpie")
	e := setupController(t, &fakeResolver{entry: &entry}, nil)

	rec := get(t, e, "/api/v2/species/42")
	require.Equal(t, http.StatusOK, rec.Code)

	var view species.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotNil(t, view.ID)
	assert.Equal(t, uint(42), *view.ID)
	assert.Equal(t, int64(13660), view.TaxonID)
	assert.True(t, view.Imported)
}

func TestGetSpeciesErrors(t *testing.T) {
	t.Parallel()

	notFound := errors.New(species.ErrSpeciesNotFound).Category(errors.CategoryNotFound).Build()

	tests := []struct {
		name string
		path string
		err  error
		code int
	}{
		{"non numeric id", "/api/v2/species/abc", nil, http.StatusBadRequest},
		{"zero id", "/api/v2/species/0", nil, http.StatusBadRequest},
		{"missing species", "/api/v2/species/7", notFound, http.StatusNotFound},
		{"database failure", "/api/v2/species/7", categorized(errors.CategoryDatabase, "db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := setupController(t, &fakeResolver{err: tt.err}, nil)
			requireErrorResponse(t, get(t, e, tt.path), tt.code)
		})
	}
}

func TestSearchAndFindLimits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		method    string
		wantLimit int
	}{
		{"search default", "/api/v2/species/search?q=magpie", "search", 20},
		{"search capped", "/api/v2/species/search?q=magpie&limit=1000", "search", 100},
		{"search explicit", "/api/v2/species/search?q=magpie&limit=5", "search", 5},
		{"find default", "/api/v2/species/find?q=magpie", "find", 10},
		{"find capped", "/api/v2/species/find?q=magpie&limit=51", "find", 50},
		{"popular default", "/api/v2/species/popular", "popular", 50},
		{"popular capped", "/api/v2/species/popular?limit=500", "popular", 200},
		{"class default", "/api/v2/species/class/Aves", "class", 20},
		{"order capped", "/api/v2/species/order/Passeriformes?limit=101", "order", 100},
		{"family explicit", "/api/v2/species/family/Corvidae?limit=3", "family", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resolver := &fakeResolver{entries: []species.Entry{persistedEntry(1, 13660, "Eurasian Magpie")}}
			e := setupController(t, resolver, nil)

			rec := get(t, e, tt.path)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.method, resolver.lastMethod)
			assert.Equal(t, tt.wantLimit, resolver.lastLimit)

			var resp ListResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, 1, resp.Count)
		})
	}
}

func TestClassificationRoutesPassName(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{}
	e := setupController(t, resolver, nil)

	rec := get(t, e, "/api/v2/species/family/Corvidae")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "family", resolver.lastMethod)
	assert.Equal(t, "Corvidae", resolver.lastQuery)
}

func TestQueryValidation(t *testing.T) {
	t.Parallel()

	e := setupController(t, &fakeResolver{}, nil)

	for _, path := range []string{
		"/api/v2/species/search",
		"/api/v2/species/search?q=%20%20",
		"/api/v2/species/find",
		"/api/v2/species/search?q=magpie&limit=abc",
		"/api/v2/species/find?q=magpie&limit=0",
		"/api/v2/species/popular?limit=-1",
	} {
		requireErrorResponse(t, get(t, e, path), http.StatusBadRequest)
	}
}

func TestFindEmptyIsNotFound(t *testing.T) {
	t.Parallel()

	e := setupController(t, &fakeResolver{}, nil)

	resp := requireErrorResponse(t, get(t, e, "/api/v2/species/find?q=unicorn"), http.StatusNotFound)
	assert.Equal(t, "No species found for 'unicorn' in local database or iNaturalist", resp.Message)
}

func TestFindTrimsQuery(t *testing.T) {
	t.Parallel()

	local := persistedEntry(1, 1, "Red Fox")
	resolver := &fakeResolver{entries: []species.Entry{local}}
	e := setupController(t, resolver, nil)

	rec := get(t, e, "/api/v2/species/find?q=%20red%20fox%20")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "red fox", resolver.lastQuery, "query is trimmed")
}

func TestImportSpecies(t *testing.T) {
	t.Parallel()

	entry := persistedEntry(5, 42069, "Red Fox")

	tests := []struct {
		name    string
		path    string
		err     error
		code    int
		message string
	}{
		{"created", "/api/v2/species/import/42069", nil, http.StatusOK, ""},
		{"bad id", "/api/v2/species/import/fox", nil, http.StatusBadRequest, "Invalid taxon ID"},
		{"unknown taxon", "/api/v2/species/import/999", errors.New(species.ErrTaxonNotFound).Category(errors.CategoryNotFound).Build(), http.StatusNotFound, "Taxon 999 not found on iNaturalist"},
		{"provider down", "/api/v2/species/import/42069", categorized(errors.CategoryIntegration, "iNaturalist returned 503"), http.StatusBadGateway, "iNaturalist is unavailable"},
		{"persistence failure", "/api/v2/species/import/42069", categorized(errors.CategoryDatabase, "disk full"), http.StatusInternalServerError, "Failed to import species"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resolver := &fakeResolver{entry: &entry, err: tt.err}
			e := setupController(t, resolver, nil)
			rec := doRequest(t, e, http.MethodPost, tt.path, "", nil)

			if tt.code != http.StatusOK {
				resp := requireErrorResponse(t, rec, tt.code)
				assert.Equal(t, tt.message, resp.Message)
				return
			}

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, int64(42069), resolver.lastTaxon)

			var view species.View
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
			assert.Equal(t, "Red Fox", view.CommonName)
		})
	}
}

func TestStatusForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{categorized(errors.CategoryNotFound, "x"), http.StatusNotFound},
		{categorized(errors.CategoryValidation, "x"), http.StatusBadRequest},
		{categorized(errors.CategoryConflict, "x"), http.StatusConflict},
		{categorized(errors.CategoryIntegration, "x"), http.StatusBadGateway},
		{categorized(errors.CategoryTimeout, "x"), http.StatusGatewayTimeout},
		{categorized(errors.CategoryDatabase, "x"), http.StatusInternalServerError},
		{errors.NewStd("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusForError(tt.err), tt.err.Error())
	}
}
