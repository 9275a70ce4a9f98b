package datastore

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tphakala/birdnet-ingest/internal/errors"
)

// PostgresStore implements Interface for PostgreSQL.
type PostgresStore struct {
	DataStore
}

// Open connects to PostgreSQL and migrates the schema.
func (store *PostgresStore) Open() error {
	cfg := store.Settings.Database.Postgres
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), gormConfig(store.Settings.Database.SlowQueryThreshold))
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "open_postgres").
			Context("host", cfg.Host).
			Build()
	}

	store.DB = db
	return performAutoMigration(db, "PostgreSQL", fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database))
}
