package vision

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/antonholmquist/jason"
	"golang.org/x/time/rate"

	"github.com/tphakala/wildlife-go/internal/errors"
	"github.com/tphakala/wildlife-go/internal/httpclient"
	"github.com/tphakala/wildlife-go/internal/logger"
	"github.com/tphakala/wildlife-go/internal/observability/metrics"
)

const uploadFileName = "uploaded_image.jpg"

// Client sends images to the computer-vision scoring endpoint. It never
// returns a Go error: every failure becomes a failed Result.
type Client struct {
	config  Config
	http    *httpclient.Client
	limiter *rate.Limiter
	metrics metrics.Recorder
}

// NewClient creates a computer-vision client. A nil recorder disables metrics.
func NewClient(config Config, recorder metrics.Recorder) (*Client, error) {
	defaults := DefaultConfig()
	if config.URL == "" {
		config.URL = defaults.URL
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RateLimit < 0 {
		return nil, errors.Newf("rate limit must not be negative, got %g", config.RateLimit).
			Category(errors.CategoryConfiguration).
			Component("vision").
			Build()
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}

	c := &Client{
		config: config,
		http: httpclient.New(&httpclient.Config{
			DefaultTimeout: config.Timeout,
			UserAgent:      config.UserAgent,
			BearerToken:    config.APIToken,
			Transport:      config.Transport,
		}),
		limiter: rate.NewLimiter(limit, max(config.Burst, 1)),
		metrics: metrics.OrNoOp(recorder),
	}

	GetLogger().Info("computer-vision client initialized",
		logger.String("url", config.URL),
		logger.Bool("token_configured", config.APIToken != ""),
		logger.Duration("timeout", config.Timeout))

	return c, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.Close()
}

// Identify scores image and returns up to MaxCandidates candidates ordered
// by descending confidence. The geo hint is sent only when non-nil.
func (c *Client) Identify(ctx context.Context, image []byte, geo *GeoHint) Result {
	start := time.Now()
	result, failure := c.identify(ctx, image, geo)
	c.metrics.RecordDuration(metrics.OpScoreImage, time.Since(start).Seconds())

	if failure != "" {
		c.metrics.RecordOperation(metrics.OpScoreImage, metrics.StatusError)
		c.metrics.RecordError(metrics.OpScoreImage, failure)
		GetLogger().Warn("image identification failed",
			logger.String("reason", result.ErrorMessage),
			logger.Int("image_size", len(image)))
		return result
	}

	c.metrics.RecordOperation(metrics.OpScoreImage, metrics.StatusSuccess)
	GetLogger().Debug("image identified",
		logger.String("top", result.ScientificName),
		logger.Float64("confidence", result.Confidence),
		logger.Int("candidates", len(result.Candidates)),
		logger.Int64("duration_ms", time.Since(start).Milliseconds()))
	return result
}

// identify returns the result and, for failures, a short failure kind used as metric label.
func (c *Client) identify(ctx context.Context, image []byte, geo *GeoHint) (result Result, failure string) {
	body, contentType, err := buildForm(image, geo)
	if err != nil {
		return Failure(networkErrorPrefix + err.Error()), "encode"
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Failure(networkErrorPrefix + err.Error()), "network"
	}

	resp, err := c.http.Post(ctx, c.config.URL, contentType, body)
	if err != nil {
		netErr := errors.NetworkError(err, c.config.URL, c.config.Timeout)
		return Failure(networkErrorPrefix + netErr.Error()), "network"
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			GetLogger().Debug("failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Failure(statusReason(resp)), "http_status"
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Failure(networkErrorPrefix + err.Error()), "network"
	}

	candidates, err := parseCandidates(payload)
	if err != nil {
		return Failure(parseErrorPrefix + err.Error()), "parse"
	}
	if len(candidates) == 0 {
		return Failure(ErrNoResults), "empty"
	}
	return Succeeded(candidates), ""
}

// statusReason renders "API returned 503 Service Unavailable".
func statusReason(resp *http.Response) string {
	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return "API returned " + status
}

// buildForm encodes the image and optional coordinates as multipart/form-data.
func buildForm(image []byte, geo *GeoHint) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("image", uploadFileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}

	if geo != nil {
		if err := w.WriteField("lat", strconv.FormatFloat(geo.Latitude, 'f', -1, 64)); err != nil {
			return nil, "", err
		}
		if err := w.WriteField("lng", strconv.FormatFloat(geo.Longitude, 'f', -1, 64)); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// parseCandidates reads the first MaxCandidates results that carry a taxon
// and orders them by descending confidence, keeping provider order for ties.
func parseCandidates(payload []byte) ([]Candidate, error) {
	obj, err := jason.NewObjectFromBytes(payload)
	if err != nil {
		return nil, err
	}

	results, err := obj.GetObjectArray("results")
	if err != nil {
		// A missing or null results array means nothing was recognised
		return nil, nil
	}

	candidates := make([]Candidate, 0, MaxCandidates)
	for _, r := range results[:min(len(results), MaxCandidates)] {
		taxon, err := r.GetObject("taxon")
		if err != nil {
			continue
		}

		score, _ := r.GetFloat64("combined_score")
		cand := Candidate{
			CommonName:     stringOr(taxon, "Unknown", "preferred_common_name"),
			ScientificName: stringOr(taxon, "", "name"),
			Confidence:     roundPercent(score),
			IconicTaxon:    stringOr(taxon, "", "iconic_taxon_name"),
			Rank:           stringOr(taxon, "", "rank"),
			ImageURL:       stringOr(taxon, "", "default_photo", "medium_url"),
		}
		if id, err := taxon.GetInt64("id"); err == nil {
			cand.TaxonID = &id
		}
		candidates = append(candidates, cand)
	}

	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	return candidates, nil
}

func stringOr(obj *jason.Object, fallback string, keys ...string) string {
	s, err := obj.GetString(keys...)
	if err != nil || s == "" {
		return fallback
	}
	return s
}

// roundPercent scales a 0..1 score to a percentage with two decimals.
func roundPercent(score float64) float64 {
	return math.Round(score*100*100) / 100
}
