package ratelimit

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redisTestStore connects to a local Redis (or REDIS_TEST_ADDR) and skips the
// test when none is reachable.
func redisTestStore(t *testing.T) *RedisStore {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	store, err := NewRedisStore(ctx, client)
	if err != nil {
		client.Close()
		t.Skipf("Skipping integration test: Redis not available (%v)", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func redisTestKey(t *testing.T, store *RedisStore) string {
	t.Helper()
	key := fmt.Sprintf("gatekeeper-test:%s:%d", t.Name(), time.Now().UnixNano())
	t.Cleanup(func() { store.Clear(context.Background(), key) })
	return key
}

func TestRedisStore_Integration_RecordAndCount(t *testing.T) {
	store := redisTestStore(t)
	key := redisTestKey(t, store)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Record(ctx, key, now.Add(time.Duration(i)*time.Second), time.Minute))
	}

	count, err := store.PruneAndCount(ctx, key, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestRedisStore_Integration_SameMillisecondEntriesStayDistinct(t *testing.T) {
	store := redisTestStore(t)
	key := redisTestKey(t, store)
	ctx := context.Background()
	at := time.Now()

	// Identical timestamps must not collapse into a single set member.
	require.NoError(t, store.Record(ctx, key, at, time.Minute))
	require.NoError(t, store.Record(ctx, key, at, time.Minute))

	count, err := store.PruneAndCount(ctx, key, at.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRedisStore_Integration_PruneDropsExpiredEntries(t *testing.T) {
	store := redisTestStore(t)
	key := redisTestKey(t, store)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Record(ctx, key, now.Add(-2*time.Minute), time.Hour))
	require.NoError(t, store.Record(ctx, key, now, time.Hour))

	count, err := store.PruneAndCount(ctx, key, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// An entry exactly at the floor stays inside the window.
	count, err = store.PruneAndCount(ctx, key, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRedisStore_Integration_CountSinceIsReadOnly(t *testing.T) {
	store := redisTestStore(t)
	key := redisTestKey(t, store)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Record(ctx, key, now.Add(-2*time.Minute), time.Hour))
	require.NoError(t, store.Record(ctx, key, now, time.Hour))

	count, err := store.CountSince(ctx, key, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// The stale entry outside the floor must still be present.
	count, err = store.CountSince(ctx, key, now.Add(-3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRedisStore_Integration_Clear(t *testing.T) {
	store := redisTestStore(t)
	key := redisTestKey(t, store)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Record(ctx, key, now, time.Minute))
	require.NoError(t, store.Clear(ctx, key))

	count, err := store.CountSince(ctx, key, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// Clearing nothing is a no-op, not an error.
	assert.NoError(t, store.Clear(ctx))
}

func TestRedisStore_Integration_LimiterEndToEnd(t *testing.T) {
	store := redisTestStore(t)
	ctx := context.Background()

	prefix := fmt.Sprintf("gatekeeper-test:%d:", time.Now().UnixNano())
	limiter := New(store, TierFree, testCatalog(3, 100, 1000), WithKeyPrefix(prefix))
	t.Cleanup(func() { limiter.Reset(context.Background(), "u1") })

	for i := 0; i < 3; i++ {
		result, err := limiter.Consume(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 3-i-1, result.Remaining)
	}

	_, err := limiter.Consume(ctx, "u1")
	var exceeded *LimitExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, WindowMinute, exceeded.Window)

	require.NoError(t, limiter.Reset(ctx, "u1"))
	result, err := limiter.Consume(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Remaining)
}
