package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisCache(t *testing.T) (*miniredis.Miniredis, *RedisSlotCache) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisSlotCache(client, time.Minute)
}

func TestRedisSlotCacheRoundtrip(t *testing.T) {
	_, cache := newMiniredisCache(t)
	ctx := context.Background()

	_, ok, err := cache.GetSlots(ctx, "2026-09-20")
	require.NoError(t, err)
	assert.False(t, ok, "miss before set")

	require.NoError(t, cache.SetSlots(ctx, "2026-09-20", []string{"09:00", "15:00"}))

	slots, ok, err := cache.GetSlots(ctx, "2026-09-20")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"09:00", "15:00"}, slots)

	require.NoError(t, cache.Invalidate(ctx, "2026-09-20"))
	_, ok, err = cache.GetSlots(ctx, "2026-09-20")
	require.NoError(t, err)
	assert.False(t, ok, "miss after invalidate")
}

func TestRedisSlotCacheTTL(t *testing.T) {
	mr, cache := newMiniredisCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetSlots(ctx, "2026-09-20", []string{"09:00"}))
	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.GetSlots(ctx, "2026-09-20")
	require.NoError(t, err)
	assert.False(t, ok, "entry expired")
}

func TestMemorySlotCache(t *testing.T) {
	cache := NewMemorySlotCache(50 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, cache.SetSlots(ctx, "2026-09-20", []string{"12:00"}))

	slots, ok, err := cache.GetSlots(ctx, "2026-09-20")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"12:00"}, slots)

	time.Sleep(60 * time.Millisecond)
	_, ok, err = cache.GetSlots(ctx, "2026-09-20")
	require.NoError(t, err)
	assert.False(t, ok, "entry expired")
}

func TestFailoverSlotCacheFallsBack(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zerolog.New(os.Stdout)
	primary := NewRedisSlotCache(client, time.Minute)
	fallback := NewMemorySlotCache(time.Minute)
	cache := NewFailoverSlotCache(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, cache.SetSlots(ctx, "2026-09-20", []string{"09:00"}))

	slots, ok, err := cache.GetSlots(ctx, "2026-09-20")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"09:00"}, slots)

	// Kill the primary: writes and reads keep working via memory.
	mr.Close()

	require.NoError(t, cache.SetSlots(ctx, "2026-09-21", []string{"12:00"}))
	slots, ok, err = cache.GetSlots(ctx, "2026-09-21")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"12:00"}, slots)
}
