package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PruneAndCount(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, "k", base, time.Hour))
	require.NoError(t, store.Record(ctx, "k", base.Add(10*time.Second), time.Hour))
	require.NoError(t, store.Record(ctx, "k", base.Add(70*time.Second), time.Hour))

	// Floor past the first two entries: only the third survives.
	count, err := store.PruneAndCount(ctx, "k", base.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Pruned entries are gone for good.
	count, err = store.PruneAndCount(ctx, "k", base)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStore_PruneAndCount_FloorIsExclusive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, "k", at, time.Hour))

	// An entry exactly on the floor stays in the window.
	count, err := store.PruneAndCount(ctx, "k", at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStore_PruneRemovesEmptyKeys(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, "k", base, time.Hour))
	require.Equal(t, 1, store.Len())

	count, err := store.PruneAndCount(ctx, "k", base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, 0, store.Len(), "fully pruned keys should be evicted")
}

func TestMemoryStore_CountSinceIsReadOnly(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, "k", base, time.Hour))
	require.NoError(t, store.Record(ctx, "k", base.Add(time.Second), time.Hour))

	count, err := store.CountSince(ctx, "k", base.Add(500*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// The older entry was outside the floor but must not have been removed.
	count, err = store.CountSince(ctx, "k", base)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMemoryStore_CountSince_MissingKey(t *testing.T) {
	store := NewMemoryStore()

	count, err := store.CountSince(context.Background(), "absent", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestMemoryStore_Clear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Record(ctx, "a", now, time.Hour))
	require.NoError(t, store.Record(ctx, "b", now, time.Hour))
	require.NoError(t, store.Record(ctx, "c", now, time.Hour))

	require.NoError(t, store.Clear(ctx, "a", "b", "missing"))
	assert.Equal(t, 1, store.Len())

	count, err := store.CountSince(ctx, "c", now.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStore_TTLEviction(t *testing.T) {
	store := NewMemoryStore()
	clock := newFakeClock()
	store.now = clock.Now
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "k", clock.Now(), time.Minute))

	clock.Advance(30 * time.Second)
	count, err := store.CountSince(ctx, "k", clock.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	clock.Advance(31 * time.Second)
	count, err = store.CountSince(ctx, "k", clock.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "lapsed TTL should evict the key")
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_RecordRefreshesTTL(t *testing.T) {
	store := NewMemoryStore()
	clock := newFakeClock()
	store.now = clock.Now
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "k", clock.Now(), time.Minute))
	clock.Advance(45 * time.Second)
	require.NoError(t, store.Record(ctx, "k", clock.Now(), time.Minute))
	clock.Advance(45 * time.Second)

	// 90s after the first record the key survives because the second record
	// pushed the deadline out.
	count, err := store.CountSince(ctx, "k", clock.Now().Add(-2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMemoryStore_Close(t *testing.T) {
	assert.NoError(t, NewMemoryStore().Close())
}
