package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding maps an environment variable onto a config key.
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "BIRDNET_INGEST_DEBUG", validateEnvBool},
		{"server.listen", "BIRDNET_INGEST_LISTEN", nil},
		{"storage.path", "BIRDNET_INGEST_STORAGE_PATH", nil},

		{"database.type", "BIRDNET_INGEST_DB_TYPE", validateEnvDatabaseType},
		{"database.sqlite.path", "BIRDNET_INGEST_SQLITE_PATH", nil},
		{"database.mysql.host", "BIRDNET_INGEST_MYSQL_HOST", nil},
		{"database.mysql.port", "BIRDNET_INGEST_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "BIRDNET_INGEST_MYSQL_USERNAME", nil},
		{"database.mysql.password", "BIRDNET_INGEST_MYSQL_PASSWORD", nil},
		{"database.mysql.database", "BIRDNET_INGEST_MYSQL_DATABASE", nil},
		{"database.postgres.host", "BIRDNET_INGEST_POSTGRES_HOST", nil},
		{"database.postgres.port", "BIRDNET_INGEST_POSTGRES_PORT", validateEnvPort},
		{"database.postgres.username", "BIRDNET_INGEST_POSTGRES_USERNAME", nil},
		{"database.postgres.password", "BIRDNET_INGEST_POSTGRES_PASSWORD", nil},
		{"database.postgres.database", "BIRDNET_INGEST_POSTGRES_DATABASE", nil},

		{"detection.engine", "BIRDNET_INGEST_ENGINE", validateEnvEngine},
		{"detection.minconfidence", "BIRDNET_INGEST_MIN_CONFIDENCE", validateEnvConfidence},
		{"detection.command.path", "BIRDNET_INGEST_ENGINE_COMMAND", nil},
		{"detection.http.url", "BIRDNET_INGEST_ENGINE_URL", nil},

		{"render.workers", "BIRDNET_INGEST_RENDER_WORKERS", validateEnvPositiveInt},
		{"speciesinfo.useragent", "BIRDNET_INGEST_USER_AGENT", nil},

		{"sentry.enabled", "BIRDNET_INGEST_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "BIRDNET_INGEST_SENTRY_DSN", nil},
	}
}

// bindEnvVars binds every environment variable and validates values that
// are set. All problems are reported together.
func bindEnvVars() error {
	var problems []string
	for _, b := range getEnvBindings() {
		if err := viper.BindEnv(b.ConfigKey, b.EnvVar); err != nil {
			problems = append(problems, fmt.Sprintf("failed to bind %s: %v", b.EnvVar, err))
			continue
		}
		if b.Validate == nil {
			continue
		}
		if value := os.Getenv(b.EnvVar); value != "" {
			if err := b.Validate(value); err != nil {
				problems = append(problems, fmt.Sprintf("invalid %s value %q: %v", b.EnvVar, value, err))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	_, err := strconv.ParseBool(value)
	return err
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1")
	}
	return nil
}

func validateEnvConfidence(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	if f < 0 || f > 1 {
		return fmt.Errorf("must be between 0 and 1")
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch value {
	case DatabaseSQLite, DatabaseMySQL, DatabasePostgres:
		return nil
	}
	return fmt.Errorf("must be one of sqlite, mysql, postgres")
}

func validateEnvEngine(value string) error {
	switch value {
	case EngineCommand, EngineHTTP:
		return nil
	}
	return fmt.Errorf("must be command or http")
}
