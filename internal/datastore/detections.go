package datastore

import (
	"context"

	"gorm.io/gorm"
)

const (
	saveBatchSize    = 100
	defaultListLimit = 100
	maxListLimit     = 1000
)

// SaveDetections inserts records in one transaction, chunked to stay below
// driver placeholder limits. An empty slice is a no-op.
func (ds *DataStore) SaveDetections(ctx context.Context, records []Detection) error {
	if len(records) == 0 {
		return nil
	}
	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(records); start += saveBatchSize {
			end := min(start+saveBatchSize, len(records))
			if err := tx.Create(records[start:end]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return dbError(err, "save_detections")
	}
	return nil
}

// ListDetections returns detections newest first, optionally filtered by
// species.
func (ds *DataStore) ListDetections(ctx context.Context, opts ListOptions) ([]Detection, error) {
	limit := opts.Limit
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	query := ds.DB.WithContext(ctx).Model(&Detection{})
	if opts.Species != "" {
		query = query.Where("species = ?", opts.Species)
	}

	var detections []Detection
	err := query.Order("timestamp DESC").Order("id DESC").
		Limit(limit).Offset(max(opts.Offset, 0)).
		Find(&detections).Error
	if err != nil {
		return nil, dbError(err, "list_detections")
	}
	return detections, nil
}

// AllDetections streams every detection in id order to fn, in batches.
func (ds *DataStore) AllDetections(ctx context.Context, fn func([]Detection) error) error {
	var batch []Detection
	result := ds.DB.WithContext(ctx).Order("id").FindInBatches(&batch, 500, func(_ *gorm.DB, _ int) error {
		return fn(batch)
	})
	if result.Error != nil {
		return dbError(result.Error, "all_detections")
	}
	return nil
}

// CountDetections counts detections, optionally for one species.
func (ds *DataStore) CountDetections(ctx context.Context, species string) (int64, error) {
	query := ds.DB.WithContext(ctx).Model(&Detection{})
	if species != "" {
		query = query.Where("species = ?", species)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, dbError(err, "count_detections")
	}
	return count, nil
}

// DistinctDetectedSpecies lists every species name present in detections.
func (ds *DataStore) DistinctDetectedSpecies(ctx context.Context) ([]string, error) {
	var names []string
	err := ds.DB.WithContext(ctx).Model(&Detection{}).
		Distinct("species").Order("species").
		Pluck("species", &names).Error
	if err != nil {
		return nil, dbError(err, "distinct_species")
	}
	return names, nil
}

// UpdateMissingPhotoURLs fills bird_photo_url on detections of species that
// have none yet and returns the number of rows touched.
func (ds *DataStore) UpdateMissingPhotoURLs(ctx context.Context, species, photoURL string) (int64, error) {
	result := ds.DB.WithContext(ctx).Model(&Detection{}).
		Where("species = ? AND (bird_photo_url IS NULL OR bird_photo_url = '')", species).
		Update("bird_photo_url", photoURL)
	if result.Error != nil {
		return 0, dbError(result.Error, "update_photo_urls")
	}
	return result.RowsAffected, nil
}
