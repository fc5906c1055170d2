package inaturalist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/tphakala/wildlife-go/internal/errors"
	"github.com/tphakala/wildlife-go/internal/httpclient"
	"github.com/tphakala/wildlife-go/internal/logger"
	"github.com/tphakala/wildlife-go/internal/observability/metrics"
	"github.com/tphakala/wildlife-go/internal/taxonomy"
)

const (
	maxRetries        = 3
	defaultRetryDelay = 500 * time.Millisecond
	maxPreviewLength  = 500
)

// Client looks up taxa on the iNaturalist API. Found records are cached;
// not-found answers and errors are not.
type Client struct {
	config      Config
	http        *httpclient.Client
	cache       *cache.Cache
	limiter     *rate.Limiter
	metrics     metrics.Recorder
	retryDelay  time.Duration
	firstCallMu sync.Once
}

// NewClient creates a new taxa client. A nil recorder disables metrics.
func NewClient(config Config, recorder metrics.Recorder) (*Client, error) {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	if config.RateLimit < 0 {
		return nil, errors.Newf("rate limit must not be negative, got %g", config.RateLimit).
			Category(errors.CategoryConfiguration).
			Component("inaturalist").
			Build()
	}

	base, err := url.Parse(config.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.Newf("invalid iNaturalist base URL %q", config.BaseURL).
			Category(errors.CategoryConfiguration).
			Component("inaturalist").
			Build()
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}
	burst := max(config.Burst, 1)

	client := &Client{
		config: config,
		http: httpclient.New(&httpclient.Config{
			DefaultTimeout: config.Timeout,
			UserAgent:      config.UserAgent,
			Transport:      config.Transport,
		}),
		cache:      cache.New(config.CacheTTL, config.CacheTTL*2),
		limiter:    rate.NewLimiter(limit, burst),
		metrics:    metrics.OrNoOp(recorder),
		retryDelay: defaultRetryDelay,
	}

	GetLogger().Info("iNaturalist client initialized",
		logger.String("base_url", config.BaseURL),
		logger.Duration("cache_ttl", config.CacheTTL),
		logger.Float64("rate_limit", config.RateLimit),
		logger.Duration("timeout", config.Timeout))

	return client, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.Close()
}

// SearchByName returns the best species-rank match for a free-text name.
func (c *Client) SearchByName(ctx context.Context, name string) Outcome {
	name = strings.TrimSpace(name)
	if name == "" {
		return notFound()
	}

	cacheKey := fmt.Sprintf("search:%s", strings.ToLower(name))
	if rec, ok := c.cached(cacheKey); ok {
		return found(rec)
	}

	endpoint := fmt.Sprintf("%s/taxa?q=%s&rank=species&per_page=1", c.config.BaseURL, url.QueryEscape(name))
	outcome := c.lookup(ctx, metrics.OpTaxaSearch, endpoint)
	if outcome.IsFound() {
		c.cache.Set(cacheKey, outcome.Record, cache.DefaultExpiration)
	}
	return outcome
}

// GetByTaxonID returns the taxon with the given provider id.
func (c *Client) GetByTaxonID(ctx context.Context, taxonID int64) Outcome {
	if taxonID <= 0 {
		return notFound()
	}

	cacheKey := fmt.Sprintf("taxon:%d", taxonID)
	if rec, ok := c.cached(cacheKey); ok {
		return found(rec)
	}

	endpoint := c.config.BaseURL + "/taxa/" + strconv.FormatInt(taxonID, 10)
	outcome := c.lookup(ctx, metrics.OpTaxaGet, endpoint)
	if outcome.IsFound() {
		c.cache.Set(cacheKey, outcome.Record, cache.DefaultExpiration)
	}
	return outcome
}

func (c *Client) cached(key string) (taxonomy.Record, bool) {
	if v, ok := c.cache.Get(key); ok {
		if rec, ok := v.(taxonomy.Record); ok {
			c.metrics.RecordOperation(metrics.OpCacheGet, metrics.StatusHit)
			GetLogger().Debug("taxa cache hit", logger.String("cache_key", key))
			return rec, true
		}
	}
	c.metrics.RecordOperation(metrics.OpCacheGet, metrics.StatusMiss)
	return taxonomy.Record{}, false
}

// lookup fetches endpoint and maps its first result.
func (c *Client) lookup(ctx context.Context, operation, endpoint string) Outcome {
	start := time.Now()
	body, err := c.doRequestWithRetry(ctx, endpoint)
	c.metrics.RecordDuration(operation, time.Since(start).Seconds())

	if err != nil {
		if errors.IsNotFound(err) {
			c.metrics.RecordOperation(operation, metrics.StatusNotFound)
			return notFound()
		}
		c.recordFailure(operation, endpoint, err)
		return providerError(err)
	}

	outcome := parseFirstResult(body)
	switch outcome.Status {
	case Found:
		c.metrics.RecordOperation(operation, metrics.StatusSuccess)
	case NotFound:
		c.metrics.RecordOperation(operation, metrics.StatusNotFound)
	case ProviderError:
		c.recordFailure(operation, endpoint, outcome.Err)
	}
	return outcome
}

func (c *Client) recordFailure(operation, endpoint string, err error) {
	c.metrics.RecordOperation(operation, metrics.StatusError)
	c.metrics.RecordError(operation, string(errors.CategoryOf(err)))
	GetLogger().Warn("iNaturalist lookup failed",
		logger.String("operation", operation),
		logger.String("url", endpoint),
		logger.Error(err))
}

// parseFirstResult maps results[0] of a taxa response. Missing or empty
// results mean the provider has no match.
func parseFirstResult(body []byte) Outcome {
	obj, err := jason.NewObjectFromReader(bytes.NewReader(body))
	if err != nil {
		return providerError(errors.Newf("failed to parse taxa response: %w", err).
			Category(errors.CategoryFileParsing).
			Context("response_size", len(body)).
			Component("inaturalist").
			Build())
	}

	results, err := obj.GetObjectArray("results")
	if err != nil || len(results) == 0 {
		return notFound()
	}

	taxon, err := taxonomy.ParseTaxon(results[0])
	if err != nil {
		return providerError(err)
	}
	return found(taxonomy.ToRecord(taxon))
}

// doRequest performs a single GET. A 404 returns a not-found error.
func (c *Client) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryCancellation).
			Context("url", endpoint).
			Component("inaturalist").
			Build()
	}

	start := time.Now()
	resp, err := c.http.Get(ctx, endpoint)
	if err != nil {
		category := errors.CategoryNetwork
		if ctx.Err() != nil {
			category = errors.CategoryTimeout
		}
		return nil, errors.Newf("HTTP request failed: %w", err).
			Category(category).
			NetworkContext(endpoint, c.config.Timeout).
			Timing("http_get", time.Since(start)).
			Component("inaturalist").
			Build()
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			GetLogger().Debug("failed to close response body", logger.Error(err))
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", endpoint).
			Context("status_code", resp.StatusCode).
			Component("inaturalist").
			Build()
	}

	if resp.StatusCode >= http.StatusBadRequest {
		GetLogger().Warn("iNaturalist API error response",
			logger.Int("status_code", resp.StatusCode),
			logger.String("url", endpoint),
			logger.String("response_preview", preview(bodyBytes)))
		return nil, errors.Newf("iNaturalist API error (status %d)", resp.StatusCode).
			Category(getErrorCategory(resp.StatusCode)).
			Timing("http_get", time.Since(start)).
			Context("status_code", resp.StatusCode).
			Context("url", endpoint).
			Component("inaturalist").
			Build()
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "json") {
		return nil, errors.Newf("iNaturalist API returned non-JSON response (Content-Type: %s)", contentType).
			Category(errors.CategoryFileParsing).
			Context("status_code", resp.StatusCode).
			Context("url", endpoint).
			Component("inaturalist").
			Build()
	}

	c.firstCallMu.Do(func() {
		GetLogger().Info("iNaturalist API reachable", logger.String("first_successful_request", endpoint))
	})
	GetLogger().Debug("iNaturalist API response",
		logger.Int("status_code", resp.StatusCode),
		logger.String("url", endpoint),
		logger.Int64("duration_ms", time.Since(start).Milliseconds()),
		logger.Int("response_size", len(bodyBytes)))

	return bodyBytes, nil
}

// doRequestWithRetry wraps doRequest with retry logic for transient failures
func (c *Client) doRequestWithRetry(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error

	for attempt := range maxRetries {
		body, err := c.doRequest(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !isRetryable(err) || ctx.Err() != nil {
			return nil, err
		}

		if attempt < maxRetries-1 {
			delay := time.Duration(attempt+1) * c.retryDelay
			GetLogger().Warn("iNaturalist API request failed, retrying",
				logger.Int("attempt", attempt+1),
				logger.Int("max_retries", maxRetries),
				logger.Int64("delay_ms", delay.Milliseconds()),
				logger.String("url", endpoint),
				logger.Error(err))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, lastErr
			}
		}
	}

	return nil, lastErr
}

// isRetryable reports whether a failed request may succeed on a later attempt.
// Client errors other than 429 are final.
func isRetryable(err error) bool {
	var enhancedErr *errors.EnhancedError
	if !errors.As(err, &enhancedErr) {
		return true
	}

	switch enhancedErr.Category {
	case errors.CategoryConfiguration, errors.CategoryNotFound, errors.CategoryValidation,
		errors.CategoryCancellation, errors.CategoryFileParsing:
		return false
	}

	if statusCode, ok := enhancedErr.GetContext()["status_code"].(int); ok {
		if statusCode >= 400 && statusCode < 500 && statusCode != http.StatusTooManyRequests {
			return false
		}
	}
	return true
}

// ClearCache clears all cached data
func (c *Client) ClearCache() {
	c.cache.Flush()
	GetLogger().Info("iNaturalist cache cleared")
}

// GetCacheStats returns the number of cached records. go-cache does not
// report memory size, so size is always 0.
func (c *Client) GetCacheStats() (itemCount int, size int64) {
	return c.cache.ItemCount(), 0
}

// getErrorCategory determines the appropriate error category based on HTTP status code
func getErrorCategory(statusCode int) errors.ErrorCategory {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.CategoryConfiguration
	case http.StatusTooManyRequests:
		return errors.CategoryLimit
	case http.StatusNotFound:
		return errors.CategoryNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errors.CategoryValidation
	default:
		return errors.CategoryIntegration
	}
}

func preview(body []byte) string {
	if len(body) > maxPreviewLength {
		return string(body[:maxPreviewLength]) + "..."
	}
	return string(body)
}
