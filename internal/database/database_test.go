package database

import (
	"path/filepath"
	"testing"
	"time"

	"warehouse-sync-agent/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestOpen_CreatesCacheTable(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "cache.db"), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.True(t, db.Migrator().HasTable(&models.CacheRecord{}))

	rec := models.CacheRecord{Key: "/inventory/positions", Value: []byte(`[]`), StoredAt: time.Now(), TTL: time.Minute, SizeBytes: 22}
	require.NoError(t, db.Create(&rec).Error)

	var got models.CacheRecord
	require.NoError(t, db.First(&got, "cache_key = ?", rec.Key).Error)
	require.Equal(t, time.Minute, got.TTL)
	require.Equal(t, []byte(`[]`), got.Value)
}
