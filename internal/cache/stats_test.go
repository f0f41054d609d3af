package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/consultdesk/internal/domain"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.Ping(context.Background()).Err())
	return client, mr
}

func TestRedisStats(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewRedisStats(client, time.Minute)
	ctx := context.Background()

	stats := &domain.TicketStats{
		ByStatus:   []domain.StatusCount{{Status: domain.TicketStatusOpen, Count: 2}},
		ByPriority: []domain.PriorityCount{{Priority: domain.TicketPriorityHigh, Count: 2}},
		ByType:     []domain.TypeCount{},
	}

	t.Run("miss", func(t *testing.T) {
		got, gen, err := c.Get(ctx, "owner-1")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, Generation(0), gen)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "owner-1", 0, stats))
		assert.True(t, mr.Exists("consultdesk:stats:owner-1:0"))

		got, _, err := c.Get(ctx, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, stats, got)

		other, _, err := c.Get(ctx, "owner-2")
		require.NoError(t, err)
		assert.Nil(t, other)
	})

	t.Run("expires", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "owner-3", 0, stats))
		mr.FastForward(2 * time.Minute)

		got, _, err := c.Get(ctx, "owner-3")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("invalidate", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "owner-1", 0, stats))
		require.NoError(t, c.Invalidate(ctx, "owner-1"))

		got, gen, err := c.Get(ctx, "owner-1")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, Generation(1), gen)
	})

	t.Run("fill after invalidate is not served", func(t *testing.T) {
		_, gen, err := c.Get(ctx, "owner-5")
		require.NoError(t, err)

		require.NoError(t, c.Invalidate(ctx, "owner-5"))
		require.NoError(t, c.Set(ctx, "owner-5", gen, stats))

		got, current, err := c.Get(ctx, "owner-5")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, gen+1, current)

		require.NoError(t, c.Set(ctx, "owner-5", current, stats))
		got, _, err = c.Get(ctx, "owner-5")
		require.NoError(t, err)
		assert.Equal(t, stats, got)
	})

	t.Run("corrupt entry", func(t *testing.T) {
		require.NoError(t, mr.Set("consultdesk:stats:owner-4:0", "{not json"))
		_, _, err := c.Get(ctx, "owner-4")
		assert.Error(t, err)
	})

	t.Run("corrupt generation", func(t *testing.T) {
		require.NoError(t, mr.Set("consultdesk:stats-gen:owner-6", "abc"))
		_, _, err := c.Get(ctx, "owner-6")
		assert.Error(t, err)
	})
}

func TestConnect(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	client.Close()

	_, err = Connect(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var c StatsCache = Noop{}
	require.NoError(t, c.Set(context.Background(), "o", 0, &domain.TicketStats{}))
	got, gen, err := c.Get(context.Background(), "o")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, Generation(0), gen)
	require.NoError(t, c.Invalidate(context.Background(), "o"))
}
