// Package conf loads birdnet-ingest settings from config.yaml, an optional
// .env file, environment variables and command line flags.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/birdnet-ingest/internal/errors"
	"github.com/tphakala/birdnet-ingest/internal/logger"
)

// Settings is the root configuration.
type Settings struct {
	Debug bool `mapstructure:"debug" yaml:"debug"`

	Logging     logger.LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Server      ServerSettings       `mapstructure:"server" yaml:"server"`
	Storage     StorageSettings      `mapstructure:"storage" yaml:"storage"`
	Database    DatabaseSettings     `mapstructure:"database" yaml:"database"`
	Detection   DetectionSettings    `mapstructure:"detection" yaml:"detection"`
	Render      RenderSettings       `mapstructure:"render" yaml:"render"`
	SpeciesInfo SpeciesInfoSettings  `mapstructure:"speciesinfo" yaml:"speciesinfo"`
	Sentry      SentrySettings       `mapstructure:"sentry" yaml:"sentry"`
	Metrics     MetricsSettings      `mapstructure:"metrics" yaml:"metrics"`

	Version string `mapstructure:"-" yaml:"-"` // build version, runtime value
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Listen        string        `mapstructure:"listen" yaml:"listen"`               // host:port
	MaxUploadSize int64         `mapstructure:"maxuploadsize" yaml:"maxuploadsize"` // bytes, 0 = unlimited
	CORSOrigins   []string      `mapstructure:"corsorigins" yaml:"corsorigins"`
	ShutdownGrace time.Duration `mapstructure:"shutdowngrace" yaml:"shutdowngrace"`
}

// StorageSettings configures where uploads and artifacts are written.
type StorageSettings struct {
	Path      string `mapstructure:"path" yaml:"path"`           // directory for audio, clips and images
	URLPrefix string `mapstructure:"urlprefix" yaml:"urlprefix"` // public prefix, e.g. /storage
}

// DatabaseSettings selects and configures the persistent store.
type DatabaseSettings struct {
	Type               string           `mapstructure:"type" yaml:"type"` // sqlite, mysql or postgres
	SQLite             SQLiteSettings   `mapstructure:"sqlite" yaml:"sqlite"`
	MySQL              MySQLSettings    `mapstructure:"mysql" yaml:"mysql"`
	Postgres           PostgresSettings `mapstructure:"postgres" yaml:"postgres"`
	SlowQueryThreshold time.Duration    `mapstructure:"slowquerythreshold" yaml:"slowquerythreshold"`
}

type SQLiteSettings struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type MySQLSettings struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
}

type PostgresSettings struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// DetectionSettings configures the external classifier.
type DetectionSettings struct {
	Engine        string                   `mapstructure:"engine" yaml:"engine"` // command or http
	MinConfidence float64                  `mapstructure:"minconfidence" yaml:"minconfidence"`
	Command       DetectionCommandSettings `mapstructure:"command" yaml:"command"`
	HTTP          DetectionHTTPSettings    `mapstructure:"http" yaml:"http"`
}

// DetectionCommandSettings describes a classifier run as a child process.
// Args may contain {input}, {lat}, {lon}, {date}, {week} and {min_conf}.
type DetectionCommandSettings struct {
	Path    string        `mapstructure:"path" yaml:"path"`
	Args    []string      `mapstructure:"args" yaml:"args"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DetectionHTTPSettings describes a classifier reachable over HTTP.
type DetectionHTTPSettings struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// RenderSettings configures artifact rendering.
type RenderSettings struct {
	Workers     int                 `mapstructure:"workers" yaml:"workers"`
	Spectrogram SpectrogramSettings `mapstructure:"spectrogram" yaml:"spectrogram"`
}

type SpectrogramSettings struct {
	FFTSize       int     `mapstructure:"fftsize" yaml:"fftsize"`
	HopSize       int     `mapstructure:"hopsize" yaml:"hopsize"`
	MelBands      int     `mapstructure:"melbands" yaml:"melbands"`
	MaxFrequency  float64 `mapstructure:"maxfrequency" yaml:"maxfrequency"`
	PixelsPerInch int     `mapstructure:"pixelsperinch" yaml:"pixelsperinch"`
	Height        int     `mapstructure:"height" yaml:"height"`
}

// SpeciesInfoSettings configures species metadata resolution.
type SpeciesInfoSettings struct {
	Endpoint           string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout            time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent          string        `mapstructure:"useragent" yaml:"useragent"`
	CacheTTL           time.Duration `mapstructure:"cachettl" yaml:"cachettl"`
	RateLimit          float64       `mapstructure:"ratelimit" yaml:"ratelimit"` // requests per second for backfill
	ResolveConcurrency int           `mapstructure:"resolveconcurrency" yaml:"resolveconcurrency"`
}

type SentrySettings struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

type MetricsSettings struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configFile (or searches the default locations when empty),
// applies .env and environment overrides, validates and stores the result.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settings, nil
}

// GetSettings returns the settings stored by the last successful Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// loadDotEnv reads .env from the working directory when present. Existing
// environment variables win.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "load_dotenv").
			Build()
	}
	return nil
}

func initViper(configFile string) error {
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		return viper.ReadInConfig()
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	paths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, p := range paths {
		viper.AddConfigPath(p)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig(filepath.Join(paths[0], "config.yaml"))
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// createDefaultConfig writes the defaults to path and reads them back.
func createDefaultConfig(path string) error {
	defaults := &Settings{}
	if err := viper.Unmarshal(defaults); err != nil {
		return fmt.Errorf("error building default config: %w", err)
	}
	if err := SaveYAMLConfig(path, defaults); err != nil {
		return err
	}
	viper.SetConfigFile(path)
	return viper.ReadInConfig()
}

// SaveYAMLConfig writes settings to path atomically.
func SaveYAMLConfig(path string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("error writing temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// GetDefaultConfigPaths lists the directories searched for config.yaml.
func GetDefaultConfigPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "get_home_directory").
			Build()
	}
	return []string{
		".",
		filepath.Join(home, ".config", "birdnet-ingest"),
		"/etc/birdnet-ingest",
	}, nil
}
