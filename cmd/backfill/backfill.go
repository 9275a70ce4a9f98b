// Package backfill provides commands that fill species metadata and photo
// URLs for detections stored before the metadata was available.
package backfill

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/tphakala/birdnet-ingest/internal/conf"
	"github.com/tphakala/birdnet-ingest/internal/datastore"
	"github.com/tphakala/birdnet-ingest/internal/errors"
	"github.com/tphakala/birdnet-ingest/internal/logger"
	"github.com/tphakala/birdnet-ingest/internal/speciesinfo"
)

// Store is the datastore surface used by the backfill commands.
type Store interface {
	speciesinfo.Store
	DistinctDetectedSpecies(ctx context.Context) ([]string, error)
	UpdateMissingPhotoURLs(ctx context.Context, species, photoURL string) (int64, error)
}

// Resolver resolves and bulk-resolves species names.
type Resolver interface {
	Resolve(ctx context.Context, name string) (*speciesinfo.Info, error)
	Warm(ctx context.Context, names []string, limiter *rate.Limiter) (speciesinfo.WarmReport, error)
}

// Command creates the backfill command group.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Fill missing species metadata and detection photos",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "species",
			Short: "Resolve metadata for every detected species missing from the cache",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd.Context(), settings, func(ctx context.Context, ds datastore.Interface, cache *speciesinfo.Cache) error {
					return Species(ctx, cmd.OutOrStdout(), ds, cache, speciesinfo.NewLimiter(settings.SpeciesInfo.RateLimit))
				})
			},
		},
		&cobra.Command{
			Use:   "photos",
			Short: "Set bird_photo_url on detections that have none",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd.Context(), settings, func(ctx context.Context, ds datastore.Interface, cache *speciesinfo.Cache) error {
					return Photos(ctx, cmd.OutOrStdout(), ds, cache, speciesinfo.NewLimiter(settings.SpeciesInfo.RateLimit))
				})
			},
		},
	)
	return cmd
}

func withStore(ctx context.Context, settings *conf.Settings, fn func(context.Context, datastore.Interface, *speciesinfo.Cache) error) error {
	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer ds.Close()

	cache, client := speciesinfo.NewFromSettings(&settings.SpeciesInfo, ds, nil)
	defer client.Close()

	return fn(ctx, ds, cache)
}

// Species resolves every distinct detected species through the cache,
// fetching the ones not yet stored at most at the limiter's rate.
func Species(ctx context.Context, out io.Writer, ds Store, cache Resolver, limiter *rate.Limiter) error {
	names, err := ds.DistinctDetectedSpecies(ctx)
	if err != nil {
		return err
	}

	report, err := cache.Warm(ctx, names, limiter)
	if err != nil {
		return err
	}

	logger.Global().Module("backfill").Info("species backfill complete",
		logger.Int("species", len(names)),
		logger.Int("resolved", report.Resolved),
		logger.Int("missing", len(report.Missing)))

	fmt.Fprintf(out, "Resolved %d of %d species\n", report.Resolved, len(names))
	for _, name := range report.Missing {
		fmt.Fprintf(out, "  not found: %s\n", name)
	}
	return nil
}

// Photos sets the photo URL of detections that lack one, per species.
func Photos(ctx context.Context, out io.Writer, ds Store, cache Resolver, limiter *rate.Limiter) error {
	log := logger.Global().Module("backfill")

	names, err := ds.DistinctDetectedSpecies(ctx)
	if err != nil {
		return err
	}

	var updated int64
	for _, name := range names {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		info, err := cache.Resolve(ctx, name)
		if err != nil {
			if !errors.Is(err, speciesinfo.ErrSpeciesNotFound) {
				log.Warn("species lookup failed", logger.String("species", name), logger.Error(err))
			}
			continue
		}
		photo := info.PhotoURL()
		if photo == nil {
			continue
		}
		n, err := ds.UpdateMissingPhotoURLs(ctx, name, *photo)
		if err != nil {
			return err
		}
		updated += n
	}

	fmt.Fprintf(out, "Updated %d detections across %d species\n", updated, len(names))
	return nil
}
