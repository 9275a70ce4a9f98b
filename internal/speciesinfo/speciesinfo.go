// Package speciesinfo resolves species common names to descriptive metadata.
// Lookups go through an in-process cache, then the species table, then a
// remote Source. Successful remote results are written back; misses are not
// remembered, so a later call retries the remote source.
package speciesinfo

import (
	"context"
	"time"

	"github.com/jinzhu/copier"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/tphakala/birdnet-ingest/internal/datastore"
	"github.com/tphakala/birdnet-ingest/internal/errors"
	"github.com/tphakala/birdnet-ingest/internal/logger"
	"github.com/tphakala/birdnet-ingest/internal/observability/metrics"
)

// ErrSpeciesNotFound is returned when no source knows the species. Callers
// treat it as absent metadata.
var ErrSpeciesNotFound = datastore.ErrSpeciesNotFound

// ErrSourceUnavailable wraps remote lookup failures such as timeouts and
// server errors. The species may still exist.
var ErrSourceUnavailable = errors.NewStd("species source unavailable")

const defaultCacheTTL = 24 * time.Hour

// Info is the resolved metadata of one species.
type Info struct {
	Name               string  `json:"name"`
	ScientificName     *string `json:"scientific_name"`
	ImageURL           *string `json:"image_url"`
	Description        *string `json:"description"`
	Region             *string `json:"region"`
	Habitat            *string `json:"habitat"`
	ConservationStatus *string `json:"conservation_status"`
}

// PhotoURL returns the image URL or nil.
func (i *Info) PhotoURL() *string {
	if i == nil {
		return nil
	}
	return i.ImageURL
}

// Source fetches metadata from an external authority. It returns
// ErrSpeciesNotFound when the species is unknown.
type Source interface {
	Lookup(ctx context.Context, name string) (*Info, error)
}

// Store is the persistent layer of the cache.
type Store interface {
	GetSpecies(ctx context.Context, name string) (*datastore.Species, error)
	UpsertSpecies(ctx context.Context, sp *datastore.Species) error
}

// Cache resolves names through memory, store and source. Safe for
// concurrent use; concurrent misses for one name share a single fetch.
type Cache struct {
	store   Store
	source  Source
	memory  *cache.Cache
	group   singleflight.Group
	metrics *metrics.SpeciesInfoMetrics
	logger  logger.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets how long resolved entries stay in memory.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.memory = cache.New(ttl, 2*ttl)
		}
	}
}

// WithMetrics attaches lookup metrics.
func WithMetrics(m *metrics.SpeciesInfoMetrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithLogger replaces the package logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// GetLogger returns the package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("speciesinfo")
}

// NewCache creates a Cache over store and source.
func NewCache(store Store, source Source, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		source: source,
		memory: cache.New(defaultCacheTTL, 2*defaultCacheTTL),
		logger: GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns metadata for name. A cached name never causes network
// traffic. Unknown species yield ErrSpeciesNotFound; remote failures yield
// an error matching ErrSourceUnavailable.
func (c *Cache) Resolve(ctx context.Context, name string) (*Info, error) {
	if name == "" {
		return nil, ErrSpeciesNotFound
	}
	if v, ok := c.memory.Get(name); ok {
		c.metrics.RecordLookup(metrics.LookupMemoryHit)
		return clone(v.(*Info)), nil
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		return c.load(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return clone(v.(*Info)), nil
}

func (c *Cache) load(ctx context.Context, name string) (*Info, error) {
	sp, err := c.store.GetSpecies(ctx, name)
	switch {
	case err == nil:
		info := fromEntity(sp)
		c.memory.SetDefault(name, info)
		c.metrics.RecordLookup(metrics.LookupDatabaseHit)
		return info, nil
	case !errors.Is(err, datastore.ErrSpeciesNotFound):
		// Degrade to the remote source; the write back below may still work.
		c.logger.Warn("species store lookup failed",
			logger.String("species", name), logger.Error(err))
	}

	start := time.Now()
	info, err := c.source.Lookup(ctx, name)
	c.metrics.ObserveFetch(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, ErrSpeciesNotFound) {
			c.metrics.RecordLookup(metrics.LookupNotFound)
			return nil, ErrSpeciesNotFound
		}
		c.metrics.RecordLookup(metrics.LookupError)
		return nil, errors.Join(ErrSourceUnavailable, err)
	}
	info.Name = name

	if err := c.store.UpsertSpecies(ctx, toEntity(info)); err != nil {
		c.logger.Warn("failed to persist species metadata",
			logger.String("species", name), logger.Error(err))
	}
	c.memory.SetDefault(name, info)
	c.metrics.RecordLookup(metrics.LookupFetched)
	return info, nil
}

// Invalidate drops name from memory so the next Resolve consults the store.
func (c *Cache) Invalidate(name string) {
	c.memory.Delete(name)
}

// WarmReport summarizes a Warm run.
type WarmReport struct {
	Resolved int
	Missing  []string
}

// Warm resolves every name, waiting on limiter before each one that is not
// already in memory. It stops early only when ctx is cancelled.
func (c *Cache) Warm(ctx context.Context, names []string, limiter *rate.Limiter) (WarmReport, error) {
	var report WarmReport
	for _, name := range names {
		if _, ok := c.memory.Get(name); !ok && limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return report, err
			}
		}
		if _, err := c.Resolve(ctx, name); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Missing = append(report.Missing, name)
			continue
		}
		report.Resolved++
	}
	return report, nil
}

func fromEntity(sp *datastore.Species) *Info {
	info := &Info{}
	_ = copier.Copy(info, sp)
	return info
}

func toEntity(info *Info) *datastore.Species {
	sp := &datastore.Species{}
	_ = copier.Copy(sp, info)
	return sp
}

func clone(info *Info) *Info {
	out := *info
	return &out
}
