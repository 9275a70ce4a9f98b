// Package datastore persists detections and species metadata through GORM.
// SQLite is the default backend; MySQL and PostgreSQL are selected with
// database.type.
package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/birdnet-ingest/internal/conf"
)

// Interface is the storage surface used by the pipeline, the species cache,
// the HTTP API and the CLI.
type Interface interface {
	Open() error
	Close() error

	// SaveDetections inserts all records in a single transaction. On error
	// nothing is written.
	SaveDetections(ctx context.Context, records []Detection) error
	ListDetections(ctx context.Context, opts ListOptions) ([]Detection, error)
	AllDetections(ctx context.Context, fn func([]Detection) error) error
	CountDetections(ctx context.Context, species string) (int64, error)
	DistinctDetectedSpecies(ctx context.Context) ([]string, error)
	UpdateMissingPhotoURLs(ctx context.Context, species, photoURL string) (int64, error)

	GetSpecies(ctx context.Context, name string) (*Species, error)
	UpsertSpecies(ctx context.Context, sp *Species) error
	ListSpecies(ctx context.Context) ([]Species, error)
	SpeciesSummary(ctx context.Context) ([]SpeciesSummary, error)

	Summary(ctx context.Context) (*Summary, error)
	SpeciesDistribution(ctx context.Context, limit int) ([]SpeciesCount, error)
	Trends(ctx context.Context, period TrendPeriod, since time.Time) ([]TrendPoint, error)
	HourlyActivity(ctx context.Context) ([]HourlyCount, error)
	ConfidenceDistribution(ctx context.Context) ([]ConfidenceBucket, error)
}

// DataStore implements Interface on top of a *gorm.DB. The concrete backend
// types embed it and only differ in how Open builds the connection.
type DataStore struct {
	DB       *gorm.DB
	Settings *conf.Settings
}

// New returns an unopened store for the configured backend.
func New(settings *conf.Settings) Interface {
	switch settings.Database.Type {
	case conf.DatabaseMySQL:
		return &MySQLStore{DataStore: DataStore{Settings: settings}}
	case conf.DatabasePostgres:
		return &PostgresStore{DataStore: DataStore{Settings: settings}}
	default:
		return &SQLiteStore{DataStore: DataStore{Settings: settings}}
	}
}

// NewFromDB wraps an already opened connection and migrates the schema. It
// is used by tests and by callers that manage the connection themselves.
func NewFromDB(db *gorm.DB) (*DataStore, error) {
	ds := &DataStore{DB: db}
	if err := ds.migrate(); err != nil {
		return nil, err
	}
	return ds, nil
}
