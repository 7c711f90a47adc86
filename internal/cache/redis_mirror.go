package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"warehouse-sync-agent/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisMirror stores each record as a JSON string under prefix+key and tracks keys in an index set.
// Records carry no Redis expiry: expired entries must stay readable for stale fallback until swept.
type RedisMirror struct {
	client *redis.Client
	prefix string
}

func NewRedisMirror(client *redis.Client, prefix string) *RedisMirror {
	if prefix == "" {
		prefix = "warehouse:cache:"
	}
	return &RedisMirror{client: client, prefix: prefix}
}

func (m *RedisMirror) indexKey() string {
	return m.prefix + "__keys"
}

func (m *RedisMirror) recordKey(key string) string {
	return m.prefix + key
}

func (m *RedisMirror) Put(ctx context.Context, rec models.CacheRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode cache record: %w", err)
	}
	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, m.recordKey(rec.Key), raw, 0)
		pipe.SAdd(ctx, m.indexKey(), rec.Key)
		return nil
	})
	return err
}

func (m *RedisMirror) Get(ctx context.Context, key string) (models.CacheRecord, bool, error) {
	raw, err := m.client.Get(ctx, m.recordKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.CacheRecord{}, false, nil
	}
	if err != nil {
		return models.CacheRecord{}, false, err
	}
	var rec models.CacheRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.CacheRecord{}, false, fmt.Errorf("decode cache record %s: %w", key, err)
	}
	return rec, true, nil
}

func (m *RedisMirror) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	recordKeys := make([]string, len(keys))
	members := make([]any, len(keys))
	for i, key := range keys {
		recordKeys[i] = m.recordKey(key)
		members[i] = key
	}
	_, err := m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, recordKeys...)
		pipe.SRem(ctx, m.indexKey(), members...)
		return nil
	})
	return err
}

func (m *RedisMirror) Keys(ctx context.Context) ([]string, error) {
	return m.client.SMembers(ctx, m.indexKey()).Result()
}

func (m *RedisMirror) List(ctx context.Context) ([]models.CacheRecord, error) {
	keys, err := m.Keys(ctx)
	if err != nil || len(keys) == 0 {
		return nil, err
	}
	recordKeys := make([]string, len(keys))
	for i, key := range keys {
		recordKeys[i] = m.recordKey(key)
	}
	values, err := m.client.MGet(ctx, recordKeys...).Result()
	if err != nil {
		return nil, err
	}
	records := make([]models.CacheRecord, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// indexed but missing; the record was deleted outside the agent
			continue
		}
		var rec models.CacheRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("decode cache record %s: %w", keys[i], err)
		}
		records = append(records, rec)
	}
	return records, nil
}

var _ Mirror = (*RedisMirror)(nil)
