// Package observability provides Prometheus metrics for the wildlife service.
// Sentry error telemetry is handled in the telemetry package.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/wildlife-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry   *prometheus.Registry
	Provider   *metrics.ProviderMetrics
	Resolution *metrics.ResolutionMetrics
}

// NewMetrics creates a new instance of Metrics on a private registry.
// It returns an error if any metric collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register Go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	providerMetrics, err := metrics.NewProviderMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider metrics: %w", err)
	}

	resolutionMetrics, err := metrics.NewResolutionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolution metrics: %w", err)
	}

	return &Metrics{
		registry:   registry,
		Provider:   providerMetrics,
		Resolution: resolutionMetrics,
	}, nil
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      promErrorLog{},
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// RegisterHandlers registers the metrics endpoint at path with mux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux, path string) {
	if path == "" {
		path = "/metrics"
	}
	mux.Handle(path, m.Handler())
}

// promErrorLog routes promhttp errors to the module logger.
type promErrorLog struct{}

func (promErrorLog) Println(v ...any) {
	GetLogger().Error("metrics handler: " + fmt.Sprint(v...))
}
