package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Lookup result label values.
const (
	LookupMemoryHit   = "memory_hit"
	LookupDatabaseHit = "database_hit"
	LookupFetched     = "fetched"
	LookupNotFound    = "not_found"
	LookupError       = "error"
)

// SpeciesInfoMetrics covers the species metadata cache.
type SpeciesInfoMetrics struct {
	LookupsTotal  *prometheus.CounterVec
	FetchDuration prometheus.Histogram
}

// NewSpeciesInfoMetrics creates the collectors and registers them.
func NewSpeciesInfoMetrics(registry prometheus.Registerer) (*SpeciesInfoMetrics, error) {
	m := &SpeciesInfoMetrics{
		LookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "birdnet_ingest_species_lookups_total",
			Help: "Species metadata lookups by result.",
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "birdnet_ingest_species_fetch_duration_seconds",
			Help:    "Duration of remote species metadata fetches in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register species info metrics: %w", err)
	}
	return m, nil
}

// RecordLookup counts one lookup with the given result.
func (m *SpeciesInfoMetrics) RecordLookup(result string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(result).Inc()
}

// ObserveFetch records the duration of a remote fetch.
func (m *SpeciesInfoMetrics) ObserveFetch(seconds float64) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(seconds)
}

// Describe implements prometheus.Collector.
func (m *SpeciesInfoMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.LookupsTotal.Describe(ch)
	ch <- m.FetchDuration.Desc()
}

// Collect implements prometheus.Collector.
func (m *SpeciesInfoMetrics) Collect(ch chan<- prometheus.Metric) {
	m.LookupsTotal.Collect(ch)
	ch <- m.FetchDuration
}
