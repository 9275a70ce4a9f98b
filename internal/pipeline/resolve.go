package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/birdnet-ingest/internal/detection"
	"github.com/tphakala/birdnet-ingest/internal/errors"
	"github.com/tphakala/birdnet-ingest/internal/logger"
	"github.com/tphakala/birdnet-ingest/internal/speciesinfo"
)

// uniqueSpecies returns species names in order of first appearance.
func uniqueSpecies(dets []detection.Detection) []string {
	seen := make(map[string]struct{}, len(dets))
	names := make([]string, 0, len(dets))
	for _, d := range dets {
		if _, ok := seen[d.SpeciesName]; ok {
			continue
		}
		seen[d.SpeciesName] = struct{}{}
		names = append(names, d.SpeciesName)
	}
	return names
}

// resolveAll resolves every name once. Unresolved names are absent from
// the result. With ResolveConcurrency > 1 up to that many lookups run at
// once.
func (o *Orchestrator) resolveAll(ctx context.Context, log logger.Logger, names []string) map[string]*speciesinfo.Info {
	out := make(map[string]*speciesinfo.Info, len(names))
	var mu sync.Mutex

	resolveOne := func(name string) {
		info, err := o.resolver.Resolve(ctx, name)
		if err != nil {
			if errors.Is(err, speciesinfo.ErrSpeciesNotFound) {
				log.Info("no metadata for species", logger.String("species", name))
			} else {
				log.Warn("species metadata resolution failed",
					logger.String("species", name),
					logger.Error(err))
			}
			return
		}
		mu.Lock()
		out[name] = info
		mu.Unlock()
	}

	if o.cfg.ResolveConcurrency <= 1 {
		for _, name := range names {
			resolveOne(name)
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(o.cfg.ResolveConcurrency)
	for _, name := range names {
		g.Go(func() error {
			resolveOne(name)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
