package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"warehouse-sync-agent/internal/models"
)

// evictFraction is the share of entries dropped per eviction round, oldest first.
const evictFraction = 5 // 1/5 = 20%

// Options controls construction of a ResponseCache.
type Options struct {
	// MaxBytes is the budget for the sum of entry sizes.
	MaxBytes int
	// Mirror is the durable store; nil selects a MemoryMirror.
	Mirror Mirror
	Logger *slog.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// ResponseCache is a byte-budgeted TTL cache of remote API responses.
// The in-process table and the mirror are only mutated here, under one lock.
type ResponseCache struct {
	mu       sync.Mutex
	entries  map[string]models.CacheRecord
	total    int
	maxBytes int
	mirror   Mirror
	logger   *slog.Logger
	now      func() time.Time

	hits      uint64
	misses    uint64
	evictions uint64
}

// NewResponseCache constructs an empty ResponseCache. Call Load to warm it from the mirror.
func NewResponseCache(opts Options) *ResponseCache {
	mirror := opts.Mirror
	if mirror == nil {
		mirror = NewMemoryMirror()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &ResponseCache{
		entries:  make(map[string]models.CacheRecord),
		maxBytes: opts.MaxBytes,
		mirror:   mirror,
		logger:   logger,
		now:      now,
	}
}

func entrySize(key string, value []byte) int {
	return len(key) + len(value)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// Load replaces the in-process table with the live records of the mirror.
// Expired records, and the oldest records that do not fit the budget, are deleted from the mirror.
func (c *ResponseCache) Load(ctx context.Context) error {
	records, err := c.mirror.List(ctx)
	if err != nil {
		return fmt.Errorf("load cache mirror: %w", err)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].StoredAt.After(records[j].StoredAt)
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entries := make(map[string]models.CacheRecord, len(records))
	total := 0
	var drop []string
	for _, rec := range records {
		rec.SizeBytes = entrySize(rec.Key, rec.Value)
		if rec.Expired(now) || total+rec.SizeBytes > c.maxBytes {
			drop = append(drop, rec.Key)
			continue
		}
		entries[rec.Key] = rec
		total += rec.SizeBytes
	}
	if len(drop) > 0 {
		if err := c.mirror.Delete(ctx, drop...); err != nil {
			return fmt.Errorf("load cache mirror: drop %d records: %w", len(drop), err)
		}
	}
	c.entries = entries
	c.total = total
	c.logger.Info("response cache loaded", "entries", len(entries), "bytes", total, "dropped", len(drop))
	return nil
}

// Get implements Cache.Get.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if rec, ok := c.entries[key]; ok {
		if !rec.Expired(now) {
			c.hits++
			return cloneBytes(rec.Value), true
		}
		if err := c.removeLocked(ctx, key); err != nil {
			c.logger.Warn("lazy purge failed", "key", key, "error", err)
		}
		c.misses++
		return nil, false
	}

	rec, ok, err := c.mirror.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache mirror read failed", "key", key, "error", err)
		c.misses++
		return nil, false
	}
	if !ok {
		c.misses++
		return nil, false
	}
	if rec.Expired(now) {
		if err := c.mirror.Delete(ctx, key); err != nil {
			c.logger.Warn("lazy purge failed", "key", key, "error", err)
		}
		c.misses++
		return nil, false
	}

	rec.SizeBytes = entrySize(rec.Key, rec.Value)
	if c.total+rec.SizeBytes <= c.maxBytes {
		c.entries[key] = rec
		c.total += rec.SizeBytes
	} else if err := c.mirror.Delete(ctx, key); err != nil {
		// Get never evicts, so a record that does not fit is served once and forgotten.
		c.logger.Warn("drop unfitting mirror record failed", "key", key, "error", err)
	}
	c.hits++
	return cloneBytes(rec.Value), true
}

// Peek implements Cache.Peek.
func (c *ResponseCache) Peek(ctx context.Context, key string) (models.CacheRecord, bool) {
	c.mu.Lock()
	rec, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		rec.Value = cloneBytes(rec.Value)
		return rec, true
	}
	rec, ok, err := c.mirror.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache mirror read failed", "key", key, "error", err)
		return models.CacheRecord{}, false
	}
	return rec, ok
}

// Set implements Cache.Set.
func (c *ResponseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	size := entrySize(key, value)
	if size > c.maxBytes {
		return fmt.Errorf("%w: %s is %d bytes, budget %d", ErrEntryTooLarge, key, size, c.maxBytes)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for c.total-c.sizeOfLocked(key)+size > c.maxBytes && len(c.entries) > 0 {
		if err := c.evictOldestLocked(ctx); err != nil {
			return err
		}
	}

	rec := models.CacheRecord{
		Key:       key,
		Value:     cloneBytes(value),
		StoredAt:  c.now(),
		TTL:       ttl,
		SizeBytes: size,
	}
	if err := c.mirror.Put(ctx, rec); err != nil {
		return fmt.Errorf("cache mirror put %s: %w", key, err)
	}
	c.total += size - c.sizeOfLocked(key)
	c.entries[key] = rec
	return nil
}

// Delete implements Cache.Delete.
func (c *ResponseCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(ctx, key)
}

// ClearMatching implements Cache.ClearMatching. Keys known only to the mirror are matched too.
func (c *ResponseCache) ClearMatching(ctx context.Context, match func(key string) bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mirrorKeys, err := c.mirror.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("cache mirror keys: %w", err)
	}
	seen := make(map[string]struct{}, len(c.entries)+len(mirrorKeys))
	var keys []string
	collect := func(key string) {
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		if match(key) {
			keys = append(keys, key)
		}
	}
	for key := range c.entries {
		collect(key)
	}
	for _, key := range mirrorKeys {
		collect(key)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := c.mirror.Delete(ctx, keys...); err != nil {
		return 0, fmt.Errorf("cache mirror delete: %w", err)
	}
	for _, key := range keys {
		c.forgetLocked(key)
	}
	return len(keys), nil
}

// Clear removes every entry from both stores.
func (c *ResponseCache) Clear(ctx context.Context) (int, error) {
	return c.ClearMatching(ctx, func(string) bool { return true })
}

// PurgeExpired implements Cache.PurgeExpired.
func (c *ResponseCache) PurgeExpired(ctx context.Context) (int, error) {
	records, err := c.mirror.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("cache mirror list: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	seen := make(map[string]struct{})
	var keys []string
	for key, rec := range c.entries {
		if rec.Expired(now) {
			keys = append(keys, key)
			seen[key] = struct{}{}
		}
	}
	for _, rec := range records {
		if _, dup := seen[rec.Key]; dup {
			continue
		}
		// the in-process table is authoritative for keys it holds; it may have been refreshed since List
		if live, ok := c.entries[rec.Key]; ok && !live.Expired(now) {
			continue
		}
		if rec.Expired(now) {
			keys = append(keys, rec.Key)
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := c.mirror.Delete(ctx, keys...); err != nil {
		return 0, fmt.Errorf("cache mirror delete: %w", err)
	}
	for _, key := range keys {
		c.forgetLocked(key)
	}
	return len(keys), nil
}

// Run sweeps expired entries every interval until ctx is done.
func (c *ResponseCache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := c.PurgeExpired(ctx)
			if err != nil {
				c.logger.Warn("cache sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				c.logger.Debug("cache sweep", "removed", removed)
			}
		}
	}
}

// Stats returns a snapshot of the cache counters.
func (c *ResponseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   len(c.entries),
		Bytes:     c.total,
		MaxBytes:  c.maxBytes,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func (c *ResponseCache) sizeOfLocked(key string) int {
	if rec, ok := c.entries[key]; ok {
		return rec.SizeBytes
	}
	return 0
}

func (c *ResponseCache) removeLocked(ctx context.Context, key string) error {
	if err := c.mirror.Delete(ctx, key); err != nil {
		return fmt.Errorf("cache mirror delete %s: %w", key, err)
	}
	c.forgetLocked(key)
	return nil
}

func (c *ResponseCache) forgetLocked(key string) {
	if rec, ok := c.entries[key]; ok {
		c.total -= rec.SizeBytes
		delete(c.entries, key)
	}
}

// evictOldestLocked drops the oldest 20% of entries (at least one) by StoredAt.
func (c *ResponseCache) evictOldestLocked(ctx context.Context) error {
	ordered := make([]models.CacheRecord, 0, len(c.entries))
	for _, rec := range c.entries {
		ordered = append(ordered, rec)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].StoredAt.Equal(ordered[j].StoredAt) {
			return ordered[i].Key < ordered[j].Key
		}
		return ordered[i].StoredAt.Before(ordered[j].StoredAt)
	})
	n := (len(ordered) + evictFraction - 1) / evictFraction
	keys := make([]string, 0, n)
	for _, rec := range ordered[:n] {
		keys = append(keys, rec.Key)
	}
	if err := c.mirror.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("evict %d entries: %w", n, err)
	}
	for _, key := range keys {
		c.forgetLocked(key)
	}
	c.evictions += uint64(n)
	c.logger.Debug("cache eviction", "evicted", n, "bytes", c.total, "budget", c.maxBytes)
	return nil
}

// Ensure ResponseCache implements Cache at compile time.
var _ Cache = (*ResponseCache)(nil)
