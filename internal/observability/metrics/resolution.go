package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ResolutionMetrics contains Prometheus metrics for species resolution:
// find result sources, import outcomes and identification outcomes.
type ResolutionMetrics struct {
	registry *prometheus.Registry

	findResultsTotal     *prometheus.CounterVec
	importsTotal         *prometheus.CounterVec
	identificationsTotal *prometheus.CounterVec
	operationErrorsTotal *prometheus.CounterVec
	operationDuration    *prometheus.HistogramVec
}

// NewResolutionMetrics creates and registers resolution metrics.
func NewResolutionMetrics(registry *prometheus.Registry) (*ResolutionMetrics, error) {
	m := &ResolutionMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ResolutionMetrics) initMetrics() {
	m.findResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "species_find_results_total",
			Help: "Total number of find requests, by whether the provider contributed a result",
		},
		[]string{"source"}, // local, external
	)

	m.importsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "species_imports_total",
			Help: "Total number of species import attempts by outcome",
		},
		[]string{"outcome"}, // existing, imported, raced, not_found, error
	)

	m.identificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "species_identifications_total",
			Help: "Total number of photo identifications by outcome",
		},
		[]string{"outcome"}, // success, rejected, failed
	)

	m.operationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "species_operation_errors_total",
			Help: "Total number of resolution errors by operation and category",
		},
		[]string{"operation", "error_type"},
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "species_operation_duration_seconds",
			Help:    "Time taken by resolution operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		},
		[]string{"operation"},
	)
}

// RecordOperation implements Recorder. The status is the find source,
// import outcome or identification outcome depending on operation.
func (m *ResolutionMetrics) RecordOperation(operation, status string) {
	switch operation {
	case OpFind:
		m.findResultsTotal.WithLabelValues(status).Inc()
	case OpImport:
		m.importsTotal.WithLabelValues(status).Inc()
	case OpIdentify:
		m.identificationsTotal.WithLabelValues(status).Inc()
	}
}

// RecordDuration implements Recorder.
func (m *ResolutionMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *ResolutionMetrics) RecordError(operation, errorType string) {
	m.operationErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *ResolutionMetrics) Collect(ch chan<- prometheus.Metric) {
	m.findResultsTotal.Collect(ch)
	m.importsTotal.Collect(ch)
	m.identificationsTotal.Collect(ch)
	m.operationErrorsTotal.Collect(ch)
	m.operationDuration.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *ResolutionMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.findResultsTotal.Describe(ch)
	m.importsTotal.Describe(ch)
	m.identificationsTotal.Describe(ch)
	m.operationErrorsTotal.Describe(ch)
	m.operationDuration.Describe(ch)
}
