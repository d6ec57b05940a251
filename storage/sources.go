package storage

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paperscout/models"
)

// SourceStore is the registry of queryable sources and their health
// counters. All counter mutations are single atomic UPDATE statements
// because concurrent runs for different questions hit the same rows.
type SourceStore struct {
	db *gorm.DB
}

// NewSourceStore wires a gorm.DB implementation.
func NewSourceStore(db *gorm.DB) *SourceStore {
	return &SourceStore{db: db}
}

// ListActive returns every active registry entry.
func (s *SourceStore) ListActive(ctx context.Context) ([]models.AvailableSource, error) {
	var entries []models.AvailableSource
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&entries).Error
	return entries, err
}

// List returns all registry entries, active or not.
func (s *SourceStore) List(ctx context.Context) ([]models.AvailableSource, error) {
	var entries []models.AvailableSource
	err := s.db.WithContext(ctx).Order("name").Find(&entries).Error
	return entries, err
}

// RecordSuccess bumps the query counter and refreshes the last-query fields
// after a successful adapter call.
func (s *SourceStore) RecordSuccess(ctx context.Context, name string, found int) error {
	now := time.Now()
	return s.db.WithContext(ctx).
		Model(&models.AvailableSource{}).
		Where("name = ?", name).
		Updates(map[string]any{
			"query_count":      gorm.Expr("query_count + 1"),
			"last_found_count": found,
			"last_queried_at":  now,
		}).Error
}

// RecordFailure bumps the error counter after a failed adapter call.
func (s *SourceStore) RecordFailure(ctx context.Context, name string) error {
	now := time.Now()
	return s.db.WithContext(ctx).
		Model(&models.AvailableSource{}).
		Where("name = ?", name).
		Updates(map[string]any{
			"error_count":     gorm.Expr("error_count + 1"),
			"last_queried_at": now,
		}).Error
}

// SyncAdapters upserts a registry row per configured adapter so wildcard
// resolution sees every deployed source. Existing rows keep their counters
// and active flag; deactivation stays an administrative action.
func (s *SourceStore) SyncAdapters(ctx context.Context, names []string) error {
	for _, name := range names {
		entry := models.AvailableSource{Name: name, IsActive: true}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&entry).Error
		if err != nil {
			return err
		}
	}
	return nil
}
