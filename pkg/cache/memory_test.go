package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	Date string
	P50  float64
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	in := []point{{"2026-01-01", 150.2}, {"2026-01-02", 150.9}}
	require.NoError(t, mc.Set(ctx, "forecast:daily:USD:JPY:2", in, time.Minute))

	var out []point
	require.NoError(t, mc.Get(ctx, "forecast:daily:USD:JPY:2", &out))
	assert.Equal(t, in, out)

	assert.ErrorIs(t, mc.Get(ctx, "forecast:daily:USD:EUR:2", &out), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", 1, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var v int
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))
	time.Sleep(time.Millisecond)

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &v))
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	for _, k := range []string{
		GenerateKey("forecast:daily", "USD", "JPY", 30),
		GenerateKey("forecast:daily", "USD", "JPY", 90),
		GenerateKey("forecast:daily", "USD", "EUR", 30),
	} {
		require.NoError(t, mc.Set(ctx, k, 1, time.Minute))
	}

	pattern := BuildPattern(GenerateKey("forecast:daily", "USD", "JPY") + ":")
	assert.Equal(t, "forecast:daily:USD:JPY:*", pattern)
	require.NoError(t, mc.DeleteByPattern(ctx, pattern))

	assert.Equal(t, 1, mc.Len())
	ok, _ := mc.Exists(ctx, "forecast:daily:USD:EUR:30")
	assert.True(t, ok)
}

func TestMemoryCacheLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "lock"))
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	assert.True(t, ok)
}
