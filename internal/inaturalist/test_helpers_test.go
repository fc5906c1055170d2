package inaturalist

import (
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/wildlife-go/internal/observability/metrics"
)

const testBaseURL = "https://api.inaturalist.test/v1"

const magpieTaxon = `{
  "id": 13660,
  "name": "Pica pica",
  "rank": "species",
  "preferred_common_name": "Eurasian Magpie",
  "iconic_taxon_name": "Aves",
  "default_photo": {"medium_url": "https://static.inaturalist.test/photos/magpie.jpg"},
  "ancestors": [
    {"rank": "kingdom", "name": "Animalia"},
    {"rank": "class", "name": "Aves"},
    {"rank": "order", "name": "Passeriformes"},
    {"rank": "family", "name": "Corvidae"},
    {"rank": "genus", "name": "Pica"}
  ]
}`

// setupTestClient creates a client backed by an httpmock transport.
func setupTestClient(tb testing.TB) (*Client, *httpmock.MockTransport, *metrics.TestRecorder) {
	tb.Helper()

	transport := httpmock.NewMockTransport()
	recorder := metrics.NewTestRecorder()

	client, err := NewClient(Config{
		BaseURL:   testBaseURL,
		Timeout:   5 * time.Second,
		CacheTTL:  time.Hour,
		Transport: transport,
	}, recorder)
	require.NoError(tb, err)
	client.retryDelay = time.Millisecond

	if tt, ok := tb.(*testing.T); ok {
		tt.Cleanup(client.Close)
	}

	return client, transport, recorder
}

// jsonResponder returns a JSON responder for a raw body.
func jsonResponder(status int, body string) httpmock.Responder {
	return httpmock.NewStringResponder(status, body).
		HeaderSet(http.Header{"Content-Type": {"application/json; charset=utf-8"}})
}

func resultsBody(taxa ...string) string {
	return `{"total_results": ` + strconv.Itoa(len(taxa)) + `, "results": [` + strings.Join(taxa, ",") + `]}`
}
