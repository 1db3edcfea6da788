package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTier_RoundTrip(t *testing.T) {
	mt, err := NewMemoryTier(MemoryTierConfig{MaxEntries: 8, TTL: time.Hour})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, mt.Set(ctx, "k1", []byte("payload"), 0))

	got, found, err := mt.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("payload"), got)

	_, found, err = mt.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, found)

	stats := mt.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(7), stats.SizeBytes)
}

func TestMemoryTier_GetReturnsCopy(t *testing.T) {
	mt, err := NewMemoryTier(MemoryTierConfig{})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, mt.Set(ctx, "k", []byte("abc"), 0))
	got, _, err := mt.Get(ctx, "k")
	require.NoError(t, err)
	got[0] = 'X'

	again, _, err := mt.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryTier_EvictsLeastRecentlyUsed(t *testing.T) {
	mt, err := NewMemoryTier(MemoryTierConfig{MaxEntries: 2, TTL: time.Hour})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, mt.Set(ctx, "a", []byte("aa"), 0))
	require.NoError(t, mt.Set(ctx, "b", []byte("bb"), 0))
	// Touch a so b becomes the eviction victim.
	_, _, err = mt.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, mt.Set(ctx, "c", []byte("cc"), 0))

	_, found, _ := mt.Get(ctx, "b")
	assert.False(t, found)
	_, found, _ = mt.Get(ctx, "a")
	assert.True(t, found)
	_, found, _ = mt.Get(ctx, "c")
	assert.True(t, found)

	stats := mt.Stats()
	assert.Equal(t, uint64(1), stats.Evictions)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(4), stats.SizeBytes)
}

func TestMemoryTier_LazyTTLExpiry(t *testing.T) {
	mt, err := NewMemoryTier(MemoryTierConfig{MaxEntries: 8, TTL: time.Hour})
	require.NoError(t, err)
	ctx := context.Background()

	current := time.Now()
	mt.now = func() time.Time { return current }

	require.NoError(t, mt.Set(ctx, "k", []byte("v"), time.Minute))

	_, found, err := mt.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)

	current = current.Add(2 * time.Minute)

	// Stale entry reads as a miss and is discarded on the way out.
	_, found, err = mt.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, mt.Stats().Entries)
	assert.Equal(t, uint64(1), mt.Stats().Misses)
}

func TestMemoryTier_ZeroTTLUsesDefault(t *testing.T) {
	mt, err := NewMemoryTier(MemoryTierConfig{MaxEntries: 8, TTL: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	current := time.Now()
	mt.now = func() time.Time { return current }

	require.NoError(t, mt.Set(ctx, "k", []byte("v"), 0))

	current = current.Add(30 * time.Second)
	_, found, _ := mt.Get(ctx, "k")
	assert.True(t, found)

	current = current.Add(31 * time.Second)
	_, found, _ = mt.Get(ctx, "k")
	assert.False(t, found)
}

func TestMemoryTier_ReplaceKeepsAccounting(t *testing.T) {
	mt, err := NewMemoryTier(MemoryTierConfig{MaxEntries: 8})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, mt.Set(ctx, "k", []byte("0123456789"), 0))
	require.NoError(t, mt.Set(ctx, "k", []byte("abcd"), 0))

	stats := mt.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(4), stats.SizeBytes)

	got, _, err := mt.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), got)
}

func TestMemoryTier_DeleteAndClear(t *testing.T) {
	mt, err := NewMemoryTier(MemoryTierConfig{MaxEntries: 8})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, mt.Set(ctx, "a", []byte("aa"), 0))
	require.NoError(t, mt.Set(ctx, "b", []byte("bb"), 0))

	require.NoError(t, mt.Delete(ctx, "a"))
	_, found, _ := mt.Get(ctx, "a")
	assert.False(t, found)

	require.NoError(t, mt.Clear(ctx))
	assert.Equal(t, 0, mt.Stats().Entries)
	assert.Equal(t, int64(0), mt.Stats().SizeBytes)
}
