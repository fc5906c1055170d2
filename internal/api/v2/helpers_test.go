package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/wildlife-go/internal/conf"
	"github.com/tphakala/wildlife-go/internal/datastore/entities"
	"github.com/tphakala/wildlife-go/internal/identify"
	"github.com/tphakala/wildlife-go/internal/species"
	"github.com/tphakala/wildlife-go/internal/vision"
)

// fakeResolver returns canned entries and records the last call.
type fakeResolver struct {
	mu sync.Mutex

	entries []species.Entry
	entry   *species.Entry
	count   int64
	err     error

	lastMethod string
	lastQuery  string
	lastLimit  int
	lastTaxon  int64
	importTop  int
}

func (f *fakeResolver) record(method, query string, limit int) ([]species.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastMethod, f.lastQuery, f.lastLimit = method, query, limit
	return f.entries, f.err
}

func (f *fakeResolver) Find(_ context.Context, q string, limit int) ([]species.Entry, error) {
	return f.record("find", q, limit)
}

func (f *fakeResolver) Search(_ context.Context, q string, limit int) ([]species.Entry, error) {
	return f.record("search", q, limit)
}

func (f *fakeResolver) ByClass(_ context.Context, name string, limit int) ([]species.Entry, error) {
	return f.record("class", name, limit)
}

func (f *fakeResolver) ByOrder(_ context.Context, name string, limit int) ([]species.Entry, error) {
	return f.record("order", name, limit)
}

func (f *fakeResolver) ByFamily(_ context.Context, name string, limit int) ([]species.Entry, error) {
	return f.record("family", name, limit)
}

func (f *fakeResolver) Popular(_ context.Context, limit int) ([]species.Entry, error) {
	return f.record("popular", "", limit)
}

func (f *fakeResolver) GetByID(context.Context, uint) (*species.Entry, error) {
	return f.entry, f.err
}

func (f *fakeResolver) Count(context.Context) (int64, error) {
	return f.count, f.err
}

func (f *fakeResolver) ImportByTaxonID(_ context.Context, taxonID int64) (*species.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTaxon = taxonID
	return f.entry, f.err
}

func (f *fakeResolver) ImportTop(_ context.Context, result vision.Result) vision.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.importTop++
	result.ImportMessage = species.MsgImported
	return result
}

// fakeIdentifier captures the request it was given.
type fakeIdentifier struct {
	mu      sync.Mutex
	req     identify.Request
	content []byte
	result  vision.Result
}

func (f *fakeIdentifier) Identify(_ context.Context, req identify.Request) vision.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.req = req
	if req.File != nil && req.File.Content != nil {
		f.content, _ = io.ReadAll(req.File.Content)
	}
	return f.result
}

func persistedEntry(id uint, taxonID int64, name string) species.Entry {
	return species.Entry{
		Kind: species.Persisted,
		Species: &entities.Species{
			ID:             id,
			TaxonID:        taxonID,
			CommonName:     entities.StringPtr(name),
			ScientificName: entities.StringPtr("Pica pica"),
		},
	}
}

func setupController(t *testing.T, resolver *fakeResolver, identifier *fakeIdentifier) *echo.Echo {
	t.Helper()

	if identifier == nil {
		identifier = &fakeIdentifier{}
	}
	e := echo.New()
	New(e, conf.DefaultSettings(), resolver, identifier, WithVersion("v1.0.0-test"))
	return e
}

func doRequest(t *testing.T, e *echo.Echo, method, target, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, e *echo.Echo, target string) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, e, http.MethodGet, target, "", nil)
}

func postJSON(t *testing.T, e *echo.Echo, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, e, http.MethodPost, target, echo.MIMEApplicationJSON, strings.NewReader(body))
}

func requireErrorResponse(t *testing.T, rec *httptest.ResponseRecorder, code int) ErrorResponse {
	t.Helper()

	require.Equal(t, code, rec.Code, rec.Body.String())
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, code, resp.Code)
	require.NotEmpty(t, resp.CorrelationID)
	return resp
}
