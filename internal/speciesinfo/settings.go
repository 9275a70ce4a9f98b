package speciesinfo

import (
	"golang.org/x/time/rate"

	"github.com/tphakala/birdnet-ingest/internal/conf"
	"github.com/tphakala/birdnet-ingest/internal/httpclient"
	"github.com/tphakala/birdnet-ingest/internal/observability/metrics"
)

// NewFromSettings builds a Wikipedia backed cache over store. The returned
// client must be closed by the caller when the cache is no longer used.
func NewFromSettings(s *conf.SpeciesInfoSettings, store Store, m *metrics.SpeciesInfoMetrics) (*Cache, *httpclient.Client) {
	client := httpclient.New(&httpclient.Config{
		DefaultTimeout: s.Timeout,
		UserAgent:      s.UserAgent,
	})
	source := NewWikipediaSource(client, s.Endpoint)
	return NewCache(store, source, WithTTL(s.CacheTTL), WithMetrics(m)), client
}

// NewLimiter returns the limiter used for bulk lookups. A non-positive rate
// means unlimited.
func NewLimiter(requestsPerSecond float64) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
}
