// Package serve provides the serve command: the upload pipeline behind the
// HTTP API.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/birdnet-ingest/internal/api"
	"github.com/tphakala/birdnet-ingest/internal/conf"
	"github.com/tphakala/birdnet-ingest/internal/datastore"
	"github.com/tphakala/birdnet-ingest/internal/detection"
	"github.com/tphakala/birdnet-ingest/internal/httpclient"
	"github.com/tphakala/birdnet-ingest/internal/logger"
	"github.com/tphakala/birdnet-ingest/internal/myaudio"
	"github.com/tphakala/birdnet-ingest/internal/observability"
	"github.com/tphakala/birdnet-ingest/internal/pipeline"
	"github.com/tphakala/birdnet-ingest/internal/speciesinfo"
	"github.com/tphakala/birdnet-ingest/internal/spectrogram"
	"github.com/tphakala/birdnet-ingest/internal/workerpool"
)

const (
	lockFileName       = ".birdnet-ingest.lock"
	storagePermissions = 0o755
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the upload and API server",
		Long:  "Accept audio uploads, run detection, render spectrograms and clips, and serve the results over HTTP.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, settings)
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "error setting up flags: %v\n", err)
		os.Exit(1)
	}
	return cmd
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("listen", "", "Listen address, host:port")
	cmd.Flags().String("storage", "", "Directory for uploads and rendered artifacts")
	cmd.Flags().Int("workers", 0, "Render worker count")

	bindings := map[string]string{
		"listen":  "server.listen",
		"storage": "storage.path",
		"workers": "render.workers",
	}
	for flag, key := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// Run wires every component and serves until ctx is cancelled.
func Run(ctx context.Context, settings *conf.Settings) error {
	log := logger.Global().Module("serve")

	if err := os.MkdirAll(settings.Storage.Path, storagePermissions); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	lock := flock.New(filepath.Join(settings.Storage.Path, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock storage directory: %w", err)
	}
	if !locked {
		return fmt.Errorf("storage directory %s is in use by another instance", settings.Storage.Path)
	}
	defer func() { _ = lock.Unlock() }()

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			log.Warn("datastore close failed", logger.Error(err))
		}
	}()

	cache, speciesClient := speciesinfo.NewFromSettings(&settings.SpeciesInfo, ds, m.SpeciesInfo)
	defer speciesClient.Close()

	engineClient := httpclient.New(detection.ClientConfig(&settings.Detection.HTTP))
	defer engineClient.Close()
	engine, err := detection.NewEngine(&settings.Detection, engineClient)
	if err != nil {
		return err
	}
	detector := detection.NewAdapter(engine, detection.WithMetrics(m.Pipeline))

	pool := workerpool.New(settings.Render.Workers)
	pool.Start()
	defer pool.Stop()

	generator := spectrogram.NewGenerator(spectrogram.OptionsFromSettings(&settings.Render.Spectrogram), nil)
	coordinator := pipeline.NewCoordinator(pool, generator, myaudio.TrimClip, m.Pipeline, nil)

	orchestrator := pipeline.NewOrchestrator(pipeline.Config{
		StorageDir:         settings.Storage.Path,
		URLPrefix:          settings.Storage.URLPrefix,
		MinConfidence:      settings.Detection.MinConfidence,
		ResolveConcurrency: settings.SpeciesInfo.ResolveConcurrency,
	}, detector, coordinator, cache, ds, pipeline.WithMetrics(m.Pipeline))

	server, err := api.New(settings,
		api.WithDataStore(ds),
		api.WithUploader(orchestrator),
		api.WithSpeciesResolver(cache),
		api.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	log.Info("birdnet-ingest ready",
		logger.String("version", settings.Version),
		logger.String("engine", engine.Name()),
		logger.String("storage", settings.Storage.Path),
		logger.Int("render_workers", pool.Workers()))

	return server.Run(ctx)
}
