package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/wildlife-go/internal/observability/metrics"
)

// TestNewMetricsConcurrency verifies that NewMetrics can be called concurrently
// because every instance owns its registry.
func TestNewMetricsConcurrency(t *testing.T) {
	t.Parallel()
	t.Attr("component", "observability")

	const numGoroutines = 50

	var wg sync.WaitGroup
	for range numGoroutines {
		wg.Go(func() {
			m, err := NewMetrics()
			if !assert.NoError(t, err) {
				return
			}
			assert.NotNil(t, m.Registry())
			assert.NotNil(t, m.Provider)
			assert.NotNil(t, m.Resolution)
		})
	}
	wg.Wait()
}

func TestHandlerExposesRecordedMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Provider.ForProvider(metrics.ProviderINaturalist).RecordOperation(metrics.OpTaxaSearch, metrics.StatusSuccess)
	m.Resolution.RecordOperation(metrics.OpImport, metrics.ImportCreated)

	mux := http.NewServeMux()
	m.RegisterHandlers(mux, "")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)

	assert.True(t, strings.Contains(text, `provider_requests_total{operation="taxa_search",provider="inaturalist",status="success"} 1`), text)
	assert.Contains(t, text, `species_imports_total{outcome="imported"} 1`)
	assert.Contains(t, text, "go_goroutines")
}
