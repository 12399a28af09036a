package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayash-Bera/mathgate/backend/internal/models"
	"github.com/Ayash-Bera/mathgate/backend/pkg/utils"
)

type cachedOutcome struct {
	Solved   bool   `json:"solved"`
	Solution string `json:"solution"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCache(client, time.Minute, utils.NopLogger()), mr
}

func TestCache_OutcomeRoundTrip(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	var miss cachedOutcome
	found, err := cache.GetCachedOutcome(ctx, "solve x", &miss)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.CacheOutcome(ctx, "Solve  X", cachedOutcome{Solved: true, Solution: "x = 1"}))

	var got cachedOutcome
	found, err = cache.GetCachedOutcome(ctx, "solve x", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "x = 1", got.Solution)

	mr.FastForward(2 * time.Minute)
	found, err = cache.GetCachedOutcome(ctx, "solve x", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_InvalidateAndClear(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.CacheOutcome(ctx, "a", cachedOutcome{Solved: true}))
	require.NoError(t, cache.CacheOutcome(ctx, "b", cachedOutcome{Solved: true}))
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, cache.Invalidate(ctx, "a"))
	found, err := cache.GetCachedOutcome(ctx, "a", &cachedOutcome{})
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.ClearAll(ctx))
	found, err = cache.GetCachedOutcome(ctx, "b", &cachedOutcome{})
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, mr.Exists("unrelated"))
}

func TestCache_CorruptEntryIsAMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	require.NoError(t, mr.Set(outcomeKey("q"), "{not json"))

	found, err := cache.GetCachedOutcome(context.Background(), "q", &cachedOutcome{})
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, mr.Exists(outcomeKey("q")))
}

func TestCache_SystemHealth(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, found, err := cache.GetCachedSystemHealth(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.CacheSystemHealth(ctx, []models.SystemHealth{{ServiceName: "qdrant", Status: "healthy"}}, time.Minute))
	health, found, err := cache.GetCachedSystemHealth(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, health, 1)
	assert.Equal(t, "qdrant", health[0].ServiceName)
}

func TestManager_Unconfigured(t *testing.T) {
	m, err := NewManager(&Config{}, utils.NopLogger())
	require.NoError(t, err)
	assert.False(t, m.HasDB())
	assert.False(t, m.HasRedis())
	assert.ErrorIs(t, m.PingDatabase(context.Background()), ErrNotConfigured)
	assert.ErrorIs(t, m.Migrate(), ErrNotConfigured)
	assert.NoError(t, m.Close())
}

func TestManager_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	m, err := NewManager(&Config{RedisURL: "redis://" + mr.Addr()}, utils.NopLogger())
	require.NoError(t, err)
	defer m.Close()

	assert.True(t, m.HasRedis())
	assert.NoError(t, m.PingRedis(context.Background()))
}
