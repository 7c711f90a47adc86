package cache

import (
	"context"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"warehouse-sync-agent/internal/models"
	"warehouse-sync-agent/internal/testutil"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func exerciseMirror(t *testing.T, m Mirror) {
	t.Helper()
	ctx := context.Background()
	stored := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	_, ok, err := m.Get(ctx, "/positions")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.Put(ctx, models.CacheRecord{Key: "/positions", Value: []byte(`[1]`), StoredAt: stored, TTL: time.Minute, SizeBytes: 13}))
	require.NoError(t, m.Put(ctx, models.CacheRecord{Key: "/orders", Value: []byte(`[]`), StoredAt: stored, TTL: time.Minute, SizeBytes: 9}))
	// upsert
	require.NoError(t, m.Put(ctx, models.CacheRecord{Key: "/positions", Value: []byte(`[2]`), StoredAt: stored.Add(time.Second), TTL: time.Hour, SizeBytes: 13}))

	rec, ok, err := m.Get(ctx, "/positions")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[2]`, string(rec.Value))
	require.Equal(t, time.Hour, rec.TTL)
	require.True(t, rec.StoredAt.Equal(stored.Add(time.Second)))

	keys, err := m.Keys(ctx)
	require.NoError(t, err)
	sort.Strings(keys)
	require.Equal(t, []string{"/orders", "/positions"}, keys)

	records, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.NoError(t, m.Delete(ctx, "/orders", "/positions"))
	keys, err = m.Keys(ctx)
	require.NoError(t, err)
	require.Empty(t, keys)

	// an empty response body is still a record
	require.NoError(t, m.Put(ctx, models.CacheRecord{Key: "/empty", Value: nil, StoredAt: stored, SizeBytes: 6}))
	rec, ok, err = m.Get(ctx, "/empty")
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, rec.Value)
	require.NoError(t, m.Delete(ctx, "/empty"))
}

func TestMemoryMirror(t *testing.T) {
	exerciseMirror(t, NewMemoryMirror())
}

func TestGormMirror(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	exerciseMirror(t, NewGormMirror(db))
}

func TestGormMirror_BacksResponseCache(t *testing.T) {
	ctx := context.Background()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	first := NewResponseCache(Options{MaxBytes: 1024, Mirror: NewGormMirror(db)})
	require.NoError(t, first.Set(ctx, "/inventory/positions?bin=A1", []byte(`{"qty":3}`), time.Hour))

	// a second process over the same database sees the entry after Load
	second := NewResponseCache(Options{MaxBytes: 1024, Mirror: NewGormMirror(db)})
	require.NoError(t, second.Load(ctx))
	v, ok := second.Get(ctx, "/inventory/positions?bin=A1")
	require.True(t, ok)
	require.Equal(t, `{"qty":3}`, string(v))
}

func TestGormMirror_EmptyValue(t *testing.T) {
	ctx := context.Background()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	c := NewResponseCache(Options{MaxBytes: 1024, Mirror: NewGormMirror(db)})
	require.NoError(t, c.Set(ctx, "/inventory/holds", nil, time.Minute))

	fresh := NewResponseCache(Options{MaxBytes: 1024, Mirror: NewGormMirror(db)})
	v, ok := fresh.Get(ctx, "/inventory/holds")
	require.True(t, ok)
	require.Empty(t, v)
}

func TestRedisMirror(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("WAREHOUSE_TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("set WAREHOUSE_TEST_REDIS_ADDR to run Redis mirror tests")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	prefix := "warehouse:test:" + time.Now().Format("150405.000000") + ":"
	exerciseMirror(t, NewRedisMirror(client, prefix))
}
