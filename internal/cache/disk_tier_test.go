package cache

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parsemill/internal/domain"
)

func newDiskTier(t *testing.T, limitBytes int64) *DiskTier {
	t.Helper()
	dt, err := NewDiskTier(DiskTierConfig{Dir: t.TempDir(), SizeLimitBytes: limitBytes})
	require.NoError(t, err)
	t.Cleanup(func() { dt.Close() })
	return dt
}

func TestDiskTier_RoundTrip(t *testing.T) {
	dt := newDiskTier(t, 1<<20)
	ctx := context.Background()

	require.NoError(t, dt.Set(ctx, "k1", []byte("persistent"), 0))

	got, found, err := dt.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("persistent"), got)

	_, found, err = dt.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, found)

	stats := dt.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(len("persistent")), stats.SizeBytes)
}

func TestDiskTier_ReplaceKeepsAccounting(t *testing.T) {
	dt := newDiskTier(t, 1<<20)
	ctx := context.Background()

	require.NoError(t, dt.Set(ctx, "k", bytes.Repeat([]byte("a"), 100), 0))
	require.NoError(t, dt.Set(ctx, "k", []byte("tiny"), 0))

	stats := dt.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(4), stats.SizeBytes)

	got, _, err := dt.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("tiny"), got)
}

func TestDiskTier_EvictsOldestWhenOverByteCap(t *testing.T) {
	dt := newDiskTier(t, 100)
	ctx := context.Background()

	payload := bytes.Repeat([]byte("x"), 60)
	require.NoError(t, dt.Set(ctx, "first", payload, 0))
	require.NoError(t, dt.Set(ctx, "second", payload, 0))
	require.NoError(t, dt.Set(ctx, "third", payload, 0))

	// 3 x 60B against a 100B cap: each insert evicts the previous entry.
	_, found, _ := dt.Get(ctx, "first")
	assert.False(t, found)
	_, found, _ = dt.Get(ctx, "second")
	assert.False(t, found)
	_, found, _ = dt.Get(ctx, "third")
	assert.True(t, found)

	stats := dt.Stats()
	assert.Equal(t, uint64(2), stats.Evictions)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(60), stats.SizeBytes)
}

func TestDiskTier_DeleteIsIdempotent(t *testing.T) {
	dt := newDiskTier(t, 1<<20)
	ctx := context.Background()

	require.NoError(t, dt.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, dt.Delete(ctx, "k"))
	require.NoError(t, dt.Delete(ctx, "k"))

	_, found, err := dt.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, dt.Stats().Entries)
	assert.Equal(t, int64(0), dt.Stats().SizeBytes)
}

func TestDiskTier_Clear(t *testing.T) {
	dt := newDiskTier(t, 1<<20)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, dt.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), 0))
	}
	require.NoError(t, dt.Clear(ctx))

	assert.Equal(t, 0, dt.Stats().Entries)
	assert.Equal(t, int64(0), dt.Stats().SizeBytes)
	_, found, err := dt.Get(ctx, "k0")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDiskTier_ClosedOperationsFail(t *testing.T) {
	dt, err := NewDiskTier(DiskTierConfig{Dir: t.TempDir(), SizeLimitBytes: 1 << 20})
	require.NoError(t, err)
	require.NoError(t, dt.Close())
	require.NoError(t, dt.Close()) // idempotent

	_, _, err = dt.Get(context.Background(), "k")
	assert.ErrorIs(t, err, domain.ErrCacheClosed)
	assert.ErrorIs(t, dt.Set(context.Background(), "k", []byte("v"), 0), domain.ErrCacheClosed)
	assert.ErrorIs(t, dt.Delete(context.Background(), "k"), domain.ErrCacheClosed)
	assert.ErrorIs(t, dt.Clear(context.Background()), domain.ErrCacheClosed)
}

func TestDiskTier_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	dt, err := NewDiskTier(DiskTierConfig{Dir: dir, SizeLimitBytes: 1 << 20})
	require.NoError(t, err)
	require.NoError(t, dt.Set(ctx, "k", []byte("durable"), 0))
	require.NoError(t, dt.Close())

	reopened, err := NewDiskTier(DiskTierConfig{Dir: dir, SizeLimitBytes: 1 << 20})
	require.NoError(t, err)
	defer reopened.Close()

	got, found, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("durable"), got)

	// Counters are rebuilt from the surviving entries.
	stats := reopened.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(len("durable")), stats.SizeBytes)
}
