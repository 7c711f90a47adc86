package models

import "time"

// CacheRecord is the durable mirror row of a response cache entry
type CacheRecord struct {
	Key       string        `json:"key" gorm:"column:cache_key;primaryKey"`
	Value     []byte        `json:"value"`
	StoredAt  time.Time     `json:"storedAt" gorm:"column:stored_at;index"`
	TTL       time.Duration `json:"ttl" gorm:"column:ttl_ns"`
	SizeBytes int           `json:"sizeBytes" gorm:"column:size_bytes"`
}

// TableName specifies the table name for CacheRecord Model
func (CacheRecord) TableName() string {
	return "cache_records"
}

// Expired reports whether the record is past its TTL at t. A non-positive TTL never expires.
func (r CacheRecord) Expired(t time.Time) bool {
	if r.TTL <= 0 {
		return false
	}
	return t.Sub(r.StoredAt) > r.TTL
}
