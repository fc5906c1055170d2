package vision

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/wildlife-go/internal/observability/metrics"
)

const testURL = "https://api.inaturalist.test/v1/computervision/score_image"

func newMockClient(t *testing.T, responder httpmock.Responder) (*Client, *httpmock.MockTransport, *metrics.TestRecorder) {
	t.Helper()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, testURL, responder)
	recorder := metrics.NewTestRecorder()

	client, err := NewClient(Config{URL: testURL, Timeout: 5 * time.Second, Transport: transport}, recorder)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client, transport, recorder
}

func TestIdentifyOrdersByConfidence(t *testing.T) {
	t.Parallel()
	t.Attr("component", "vision")

	body := `{"results": [
	  {"combined_score": 0.91, "taxon": {"id": 1, "name": "Pica pica", "preferred_common_name": "Eurasian Magpie", "rank": "species", "iconic_taxon_name": "Aves", "default_photo": {"medium_url": "https://img.test/1.jpg"}}},
	  {"combined_score": 0.40, "taxon": {"id": 2, "name": "Corvus corax"}},
	  {"combined_score": 0.77, "taxon": {"id": 3, "name": "Garrulus glandarius", "preferred_common_name": "Eurasian Jay"}}
	]}`
	client, _, recorder := newMockClient(t, httpmock.NewStringResponder(http.StatusOK, body))

	result := client.Identify(t.Context(), []byte("jpeg"), nil)
	require.True(t, result.Success, result.ErrorMessage)
	require.Len(t, result.Candidates, 3)

	got := make([]float64, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		got = append(got, c.Confidence)
	}
	assert.Equal(t, []float64{91.0, 77.0, 40.0}, got)

	assert.Equal(t, "Eurasian Magpie", result.CommonName)
	assert.Equal(t, "Pica pica", result.ScientificName)
	assert.InDelta(t, 91.0, result.Confidence, 0)
	require.NotNil(t, result.TaxonID)
	assert.Equal(t, int64(1), *result.TaxonID)

	top := result.Candidates[0]
	assert.Equal(t, "Aves", top.IconicTaxon)
	assert.Equal(t, "species", top.Rank)
	assert.Equal(t, "https://img.test/1.jpg", top.ImageURL)
	assert.Equal(t, "Unknown", result.Candidates[2].CommonName, "missing common name defaults to Unknown")

	assert.Equal(t, 1, recorder.GetOperationCount(metrics.OpScoreImage, metrics.StatusSuccess))
}

func TestIdentifyKeepsProviderOrderForTies(t *testing.T) {
	t.Parallel()

	body := `{"results": [
	  {"combined_score": 0.5, "taxon": {"name": "first"}},
	  {"combined_score": 0.9, "taxon": {"name": "best"}},
	  {"combined_score": 0.5, "taxon": {"name": "second"}},
	  {"combined_score": 0.5, "taxon": {"name": "third"}}
	]}`
	client, _, _ := newMockClient(t, httpmock.NewStringResponder(http.StatusOK, body))

	result := client.Identify(t.Context(), []byte("jpeg"), nil)
	require.True(t, result.Success)

	names := make([]string, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		names = append(names, c.ScientificName)
	}
	assert.Equal(t, []string{"best", "first", "second", "third"}, names)
}

func TestIdentifyKeepsTopFive(t *testing.T) {
	t.Parallel()

	body := `{"results": [
	  {"combined_score": 0.1, "taxon": {"name": "a"}},
	  {"combined_score": 0.2},
	  {"combined_score": 0.3, "taxon": {"name": "c"}},
	  {"combined_score": 0.4, "taxon": {"name": "d"}},
	  {"combined_score": 0.5, "taxon": {"name": "e"}},
	  {"combined_score": 0.99, "taxon": {"name": "sixth"}}
	]}`
	client, _, _ := newMockClient(t, httpmock.NewStringResponder(http.StatusOK, body))

	result := client.Identify(t.Context(), []byte("jpeg"), nil)
	require.True(t, result.Success)
	assert.Len(t, result.Candidates, 4, "entries without taxon are skipped, sixth entry is beyond the top five")
	assert.Equal(t, "e", result.ScientificName)
	assert.Nil(t, result.TaxonID)
}

func TestIdentifyRoundsConfidence(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 12.35, roundPercent(0.123456), 1e-9)
	assert.InDelta(t, 100.0, roundPercent(1), 0)
	assert.InDelta(t, 0.0, roundPercent(0), 0)
}

func TestIdentifyFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		responder httpmock.Responder
		want      string
	}{
		{"non-success status", httpmock.NewStringResponder(http.StatusServiceUnavailable, "down"), "API returned 503 Service Unavailable"},
		{"unauthorized", httpmock.NewStringResponder(http.StatusUnauthorized, ""), "API returned 401 Unauthorized"},
		{"malformed body", httpmock.NewStringResponder(http.StatusOK, "{not json"), "Failed to parse API response: "},
		{"empty results", httpmock.NewStringResponder(http.StatusOK, `{"results": []}`), ErrNoResults},
		{"absent results", httpmock.NewStringResponder(http.StatusOK, `{"total_results": 0}`), ErrNoResults},
		{"no taxon in results", httpmock.NewStringResponder(http.StatusOK, `{"results": [{"combined_score": 0.5}]}`), ErrNoResults},
		{"network failure", httpmock.NewErrorResponder(fmt.Errorf("connection reset")), "Network error: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, transport, recorder := newMockClient(t, tt.responder)
			result := client.Identify(t.Context(), []byte("jpeg"), nil)

			assert.False(t, result.Success)
			assert.Contains(t, result.ErrorMessage, tt.want)
			assert.Empty(t, result.Candidates)
			assert.Empty(t, result.ScientificName)
			assert.Equal(t, 1, transport.GetTotalCallCount(), "no retries")
			assert.Equal(t, 1, recorder.GetOperationCount(metrics.OpScoreImage, metrics.StatusError))
		})
	}
}

func TestIdentifyRequestShape(t *testing.T) {
	t.Parallel()

	type captured struct {
		auth, ua, filename string
		image              []byte
		lat, lng           string
		hasLat             bool
	}
	requests := make(chan captured, 2)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c captured
		c.auth = r.Header.Get("Authorization")
		c.ua = r.Header.Get("User-Agent")

		if err := r.ParseMultipartForm(1 << 20); err == nil {
			if f, hdr, err := r.FormFile("image"); err == nil {
				c.filename = hdr.Filename
				c.image, _ = io.ReadAll(f)
				_ = f.Close()
			}
			_, c.hasLat = r.MultipartForm.Value["lat"]
			c.lat = r.FormValue("lat")
			c.lng = r.FormValue("lng")
		}
		requests <- c

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [{"combined_score": 0.8, "taxon": {"id": 9, "name": "Pica pica"}}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL, APIToken: "secret"}, nil)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	result := client.Identify(t.Context(), []byte{0xFF, 0xD8, 0xFF}, &GeoHint{Latitude: 60.1699, Longitude: 24.9384})
	require.True(t, result.Success)

	got := <-requests
	assert.Equal(t, "Bearer secret", got.auth)
	assert.Equal(t, "WildlifeApp/1.0", got.ua)
	assert.Equal(t, "uploaded_image.jpg", got.filename)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, got.image)
	assert.Equal(t, "60.1699", got.lat)
	assert.Equal(t, "24.9384", got.lng)

	// Without a geo hint neither coordinate is sent
	require.True(t, client.Identify(t.Context(), []byte{0x01}, nil).Success)
	got = <-requests
	assert.False(t, got.hasLat)
	assert.Empty(t, got.lng)
}

func TestSucceededWithoutCandidatesFails(t *testing.T) {
	t.Parallel()

	r := Succeeded(nil)
	assert.False(t, r.Success)
	assert.Equal(t, ErrNoResults, r.ErrorMessage)

	_, ok := r.Top()
	assert.False(t, ok)
}

func TestResultKeepsZeroConfidence(t *testing.T) {
	t.Parallel()

	r := Succeeded([]Candidate{{CommonName: "Unknown", ScientificName: "Animalia", Confidence: 0}})
	require.True(t, r.Success)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	require.Contains(t, body, "confidence")
	assert.InDelta(t, 0, body["confidence"], 0)
}
