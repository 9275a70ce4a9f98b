// Package cmd assembles the birdnet-ingest command line.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/birdnet-ingest/cmd/backfill"
	"github.com/tphakala/birdnet-ingest/cmd/export"
	"github.com/tphakala/birdnet-ingest/cmd/serve"
	"github.com/tphakala/birdnet-ingest/cmd/species"
	"github.com/tphakala/birdnet-ingest/internal/conf"
	"github.com/tphakala/birdnet-ingest/internal/errors"
	"github.com/tphakala/birdnet-ingest/internal/logger"
)

const telemetryFlushTimeout = 2 * time.Second

// Execute builds the command tree and runs it.
func Execute(version string) error {
	settings := &conf.Settings{}
	var central *logger.CentralLogger

	rootCmd := RootCommand(settings, version, &central)
	err := rootCmd.Execute()

	errors.FlushTelemetry(telemetryFlushTimeout)
	if central != nil {
		_ = central.Close()
	}
	return err
}

// RootCommand creates and returns the root command. settings is filled from
// the configuration before any subcommand runs; central receives the
// process logger so the caller can close it.
func RootCommand(settings *conf.Settings, version string, central **logger.CentralLogger) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "birdnet-ingest",
		Short:        "Bird audio upload ingestion and detection service",
		Version:      version,
		SilenceUsage: true,
	}

	if err := setupFlags(rootCmd, &configFile); err != nil {
		fmt.Fprintf(os.Stderr, "error setting up flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(
		serve.Command(settings),
		backfill.Command(settings),
		export.Command(settings),
		species.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		loaded, err := conf.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		*settings = *loaded
		settings.Version = version
		return initialize(settings, central)
	}

	return rootCmd
}

// initialize sets up logging and telemetry once the configuration is known.
func initialize(settings *conf.Settings, central **logger.CentralLogger) error {
	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(cl)
	*central = cl

	if settings.Sentry.Enabled && settings.Sentry.DSN != "" {
		if err := errors.InitSentry(settings.Sentry.DSN, settings.Sentry.Environment, settings.Version); err != nil {
			cl.Module("main").Warn("sentry disabled", logger.Error(err))
		}
	}
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	rootCmd.PersistentFlags().StringVarP(configFile, "config", "c", "", "Path to config.yaml (default: search standard locations)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
