// Package api provides the HTTP server of the ingest service: the upload
// endpoint, the JSON read API over stored detections and species, static
// artifact serving and the metrics endpoint.
package api

import (
	"fmt"
	"net"
	"time"

	"github.com/tphakala/birdnet-ingest/internal/conf"
	"github.com/tphakala/birdnet-ingest/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultWriteTimeout covers a whole upload: the response is written
	// only after detection, rendering and persistence finish.
	DefaultWriteTimeout = 10 * time.Minute
)

// Config holds the HTTP server configuration.
type Config struct {
	Listen         string
	AllowedOrigins []string
	BodyLimit      int64 // bytes, 0 disables

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	StorageDir    string // served read-only under StoragePrefix
	StoragePrefix string

	MetricsEnabled bool
	MetricsPath    string

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:          ":8000",
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		StoragePrefix:   "/storage",
		MetricsPath:     "/metrics",
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()

	if settings.Server.Listen != "" {
		cfg.Listen = settings.Server.Listen
	}
	if len(settings.Server.CORSOrigins) > 0 {
		cfg.AllowedOrigins = settings.Server.CORSOrigins
	}
	cfg.BodyLimit = settings.Server.MaxUploadSize
	if settings.Server.ShutdownGrace > 0 {
		cfg.ShutdownTimeout = settings.Server.ShutdownGrace
	}

	cfg.StorageDir = settings.Storage.Path
	if settings.Storage.URLPrefix != "" {
		cfg.StoragePrefix = settings.Storage.URLPrefix
	}

	cfg.MetricsEnabled = settings.Metrics.Enabled
	if settings.Metrics.Path != "" {
		cfg.MetricsPath = settings.Metrics.Path
	}

	cfg.Debug = settings.Debug
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Listen, err)
	}
	if c.StorageDir == "" {
		return fmt.Errorf("storage directory is required")
	}
	if c.StoragePrefix == "" || c.StoragePrefix[0] != '/' {
		return fmt.Errorf("storage prefix must start with '/', got %q", c.StoragePrefix)
	}
	if c.MetricsEnabled && (c.MetricsPath == "" || c.MetricsPath[0] != '/') {
		return fmt.Errorf("metrics path must start with '/', got %q", c.MetricsPath)
	}
	return nil
}
