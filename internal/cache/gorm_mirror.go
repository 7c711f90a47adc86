package cache

import (
	"context"
	"errors"

	"warehouse-sync-agent/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMirror persists cache records in the cache_records table.
type GormMirror struct {
	db *gorm.DB
}

// NewGormMirror expects db to be migrated (see database.Migrate).
func NewGormMirror(db *gorm.DB) *GormMirror {
	return &GormMirror{db: db}
}

// Put upserts the record by key
func (m *GormMirror) Put(ctx context.Context, rec models.CacheRecord) error {
	// store empty bodies as a zero-length blob, not NULL
	if rec.Value == nil {
		rec.Value = []byte{}
	}
	return m.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
}

func (m *GormMirror) Get(ctx context.Context, key string) (models.CacheRecord, bool, error) {
	var rec models.CacheRecord
	err := m.db.WithContext(ctx).Where("cache_key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.CacheRecord{}, false, nil
	}
	if err != nil {
		return models.CacheRecord{}, false, err
	}
	return rec, true, nil
}

func (m *GormMirror) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return m.db.WithContext(ctx).Where("cache_key IN ?", keys).Delete(&models.CacheRecord{}).Error
}

func (m *GormMirror) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := m.db.WithContext(ctx).Model(&models.CacheRecord{}).Pluck("cache_key", &keys).Error
	return keys, err
}

func (m *GormMirror) List(ctx context.Context) ([]models.CacheRecord, error) {
	var records []models.CacheRecord
	err := m.db.WithContext(ctx).Order("stored_at asc").Find(&records).Error
	return records, err
}

var _ Mirror = (*GormMirror)(nil)
