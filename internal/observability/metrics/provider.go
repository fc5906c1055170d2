package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics contains Prometheus metrics for outbound provider calls,
// labelled by provider so the taxa and vision clients share one set of collectors.
type ProviderMetrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheTotal      *prometheus.CounterVec
}

// NewProviderMetrics creates and registers provider metrics.
func NewProviderMetrics(registry *prometheus.Registry) (*ProviderMetrics, error) {
	m := &ProviderMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ProviderMetrics) initMetrics() {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of provider operations by outcome",
		},
		[]string{"provider", "operation", "status"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_errors_total",
			Help: "Total number of provider errors by category",
		},
		[]string{"provider", "operation", "error_type"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "provider_request_duration_seconds",
			Help: "Time taken by provider requests",
			// 10ms to ~40s, the upper end covers the 30s request timeout
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
		},
		[]string{"provider", "operation"},
	)

	m.cacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_cache_lookups_total",
			Help: "Total number of provider response cache lookups",
		},
		[]string{"provider", "result"}, // result: hit, miss
	)
}

// ForProvider returns a Recorder that labels everything with provider.
func (m *ProviderMetrics) ForProvider(provider string) Recorder {
	return &providerRecorder{m: m, provider: provider}
}

// Collect implements the prometheus.Collector interface.
func (m *ProviderMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.errorsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
	m.cacheTotal.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *ProviderMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.errorsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
	m.cacheTotal.Describe(ch)
}

type providerRecorder struct {
	m        *ProviderMetrics
	provider string
}

func (r *providerRecorder) RecordOperation(operation, status string) {
	if operation == OpCacheGet {
		r.m.cacheTotal.WithLabelValues(r.provider, status).Inc()
		return
	}
	r.m.requestsTotal.WithLabelValues(r.provider, operation, status).Inc()
}

func (r *providerRecorder) RecordDuration(operation string, seconds float64) {
	r.m.requestDuration.WithLabelValues(r.provider, operation).Observe(seconds)
}

func (r *providerRecorder) RecordError(operation, errorType string) {
	r.m.errorsTotal.WithLabelValues(r.provider, operation, errorType).Inc()
}
