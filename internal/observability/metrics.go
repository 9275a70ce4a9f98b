// Package observability wires the Prometheus registry and exposes it over
// HTTP.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/birdnet-ingest/internal/observability/metrics"
)

// Metrics holds all metric collectors of the application.
type Metrics struct {
	registry    *prometheus.Registry
	Pipeline    *metrics.PipelineMetrics
	SpeciesInfo *metrics.SpeciesInfoMetrics
	HTTP        *metrics.HTTPMetrics
}

// NewMetrics creates a fresh registry with process and Go runtime collectors
// plus the application collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pipelineMetrics, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	speciesMetrics, err := metrics.NewSpeciesInfoMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create species info metrics: %w", err)
	}
	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	return &Metrics{
		registry:    registry,
		Pipeline:    pipelineMetrics,
		SpeciesInfo: speciesMetrics,
		HTTP:        httpMetrics,
	}, nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
