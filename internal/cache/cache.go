package cache

import (
	"context"
	"errors"
	"time"

	"warehouse-sync-agent/internal/models"
)

// ErrEntryTooLarge is returned by Set when a single value exceeds the whole byte budget.
var ErrEntryTooLarge = errors.New("cache entry larger than budget")

// Cache defines the response cache API used by the request gateway.
// Every mutating method updates the in-process table and the durable mirror before returning.
type Cache interface {
	// Get returns the value when present and not expired. Expired entries are purged.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Peek returns the entry even if it is expired, without purging anything.
	Peek(ctx context.Context, key string) (models.CacheRecord, bool)

	// Set stores the value for ttl, evicting the oldest entries first when over budget.
	// If ttl <= 0, the entry does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key if present.
	Delete(ctx context.Context, key string) error

	// ClearMatching removes every key accepted by match and returns how many were removed.
	ClearMatching(ctx context.Context, match func(key string) bool) (int, error)

	// PurgeExpired scans and removes expired entries.
	PurgeExpired(ctx context.Context) (int, error)
}

// Mirror is the durable key/value store behind the in-process table.
type Mirror interface {
	Put(ctx context.Context, rec models.CacheRecord) error
	Get(ctx context.Context, key string) (models.CacheRecord, bool, error)
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context) ([]string, error)
	List(ctx context.Context) ([]models.CacheRecord, error)
}

// Stats is a snapshot of cache usage.
type Stats struct {
	Entries   int    `json:"entries"`
	Bytes     int    `json:"bytes"`
	MaxBytes  int    `json:"maxBytes"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}
