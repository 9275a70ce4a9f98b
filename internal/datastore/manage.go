package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/birdnet-ingest/internal/errors"
	"github.com/tphakala/birdnet-ingest/internal/logger"
)

func getLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

// gormConfig returns the GORM configuration shared by every backend.
func gormConfig(slowThreshold time.Duration) *gorm.Config {
	return &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(getLogger().Module("gorm"), slowThreshold),
	}
}

// Open is a no-op for a DataStore that already holds a connection.
func (ds *DataStore) Open() error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// Close releases the underlying connection pool.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "get_sql_db")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close")
	}
	return nil
}

func (ds *DataStore) migrate() error {
	return performAutoMigration(ds.DB, "", "")
}

func performAutoMigration(db *gorm.DB, dbType, connectionInfo string) error {
	start := time.Now()
	log := getLogger().With(logger.String("db_type", dbType))

	if err := db.AutoMigrate(&Detection{}, &Species{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Context("db_type", dbType).
			Build()
	}

	log.Debug("database schema migrated",
		logger.String("connection", connectionInfo),
		logger.Duration("duration", time.Since(start)))
	return nil
}

func dbError(err error, operation string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}
