package conf

import (
	"fmt"
	"strings"

	"github.com/tphakala/birdnet-ingest/internal/errors"
)

const (
	DatabaseSQLite   = "sqlite"
	DatabaseMySQL    = "mysql"
	DatabasePostgres = "postgres"

	EngineCommand = "command"
	EngineHTTP    = "http"
)

// ValidateSettings checks cross-field constraints after unmarshalling.
func ValidateSettings(s *Settings) error {
	var problems []string

	if s.Storage.Path == "" {
		problems = append(problems, "storage.path must be set")
	}
	if !strings.HasPrefix(s.Storage.URLPrefix, "/") {
		problems = append(problems, "storage.urlprefix must start with /")
	}

	switch s.Database.Type {
	case DatabaseSQLite:
		if s.Database.SQLite.Path == "" {
			problems = append(problems, "database.sqlite.path must be set")
		}
	case DatabaseMySQL:
		if s.Database.MySQL.Host == "" || s.Database.MySQL.Database == "" {
			problems = append(problems, "database.mysql.host and database.mysql.database must be set")
		}
	case DatabasePostgres:
		if s.Database.Postgres.Host == "" || s.Database.Postgres.Database == "" {
			problems = append(problems, "database.postgres.host and database.postgres.database must be set")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported database.type %q", s.Database.Type))
	}

	switch s.Detection.Engine {
	case EngineCommand:
		if s.Detection.Command.Path == "" {
			problems = append(problems, "detection.command.path must be set")
		}
	case EngineHTTP:
		if s.Detection.HTTP.URL == "" {
			problems = append(problems, "detection.http.url must be set")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported detection.engine %q", s.Detection.Engine))
	}
	if s.Detection.MinConfidence < 0 || s.Detection.MinConfidence > 1 {
		problems = append(problems, "detection.minconfidence must be between 0 and 1")
	}

	if s.Render.Workers < 1 {
		problems = append(problems, "render.workers must be at least 1")
	}
	sp := s.Render.Spectrogram
	if sp.FFTSize < 64 || sp.FFTSize&(sp.FFTSize-1) != 0 {
		problems = append(problems, "render.spectrogram.fftsize must be a power of two >= 64")
	}
	if sp.HopSize < 1 || sp.HopSize > sp.FFTSize {
		problems = append(problems, "render.spectrogram.hopsize must be between 1 and fftsize")
	}
	if sp.MelBands < 8 || sp.MaxFrequency <= 0 || sp.Height < 100 || sp.PixelsPerInch < 10 {
		problems = append(problems, "render.spectrogram geometry is out of range")
	}

	if s.SpeciesInfo.Endpoint == "" {
		problems = append(problems, "speciesinfo.endpoint must be set")
	}
	if s.SpeciesInfo.Timeout <= 0 {
		problems = append(problems, "speciesinfo.timeout must be positive")
	}
	if s.SpeciesInfo.ResolveConcurrency < 1 {
		problems = append(problems, "speciesinfo.resolveconcurrency must be at least 1")
	}

	if s.Sentry.Enabled && s.Sentry.DSN == "" {
		problems = append(problems, "sentry.dsn must be set when sentry is enabled")
	}

	if len(problems) > 0 {
		return errors.Newf("invalid configuration: %s", strings.Join(problems, "; ")).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("problem_count", len(problems)).
			Build()
	}
	return nil
}
