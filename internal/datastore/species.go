package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/birdnet-ingest/internal/errors"
)

// ErrSpeciesNotFound is returned when no species row exists for a name.
var ErrSpeciesNotFound = errors.NewStd("species not found")

// GetSpecies loads a species by its exact common name.
func (ds *DataStore) GetSpecies(ctx context.Context, name string) (*Species, error) {
	var sp Species
	err := ds.DB.WithContext(ctx).Where("name = ?", name).First(&sp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSpeciesNotFound
		}
		return nil, dbError(err, "get_species")
	}
	return &sp, nil
}

// UpsertSpecies inserts sp or, when a row with the same name exists,
// overwrites its metadata. The last write wins.
func (ds *DataStore) UpsertSpecies(ctx context.Context, sp *Species) error {
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = time.Now()
	}
	err := ds.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"scientific_name", "image_url", "description", "region",
			"habitat", "conservation_status", "updated_at",
		}),
	}).Create(sp).Error
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "upsert_species").
			Context("species", sp.Name).
			Build()
	}
	return nil
}

// ListSpecies returns every cached species ordered by name.
func (ds *DataStore) ListSpecies(ctx context.Context) ([]Species, error) {
	var species []Species
	if err := ds.DB.WithContext(ctx).Order("name").Find(&species).Error; err != nil {
		return nil, dbError(err, "list_species")
	}
	return species, nil
}
