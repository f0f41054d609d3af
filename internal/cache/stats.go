// Package cache holds the per-owner ticket statistics cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sumire/consultdesk/internal/domain"
)

const (
	statsKeyPrefix = "consultdesk:stats:"     // consultdesk:stats:{owner_id}:{generation}
	statsGenPrefix = "consultdesk:stats-gen:" // consultdesk:stats-gen:{owner_id}
)

// Generation is the owner's cache generation observed by Get. Invalidate
// moves the owner to a new generation, so a Set carrying an older one lands
// where no later Get looks and simply expires.
type Generation int64

// StatsCache stores ticket statistics per owner. Get reports a miss with a
// nil result; the Generation it returns must be passed to the following Set.
type StatsCache interface {
	Get(ctx context.Context, ownerID string) (*domain.TicketStats, Generation, error)
	Set(ctx context.Context, ownerID string, gen Generation, stats *domain.TicketStats) error
	Invalidate(ctx context.Context, ownerID string) error
}

// RedisStats is a StatsCache backed by Redis.
type RedisStats struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStats creates a RedisStats whose entries expire after ttl.
func NewRedisStats(client *redis.Client, ttl time.Duration) *RedisStats {
	return &RedisStats{client: client, ttl: ttl}
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func statsKey(ownerID string, gen Generation) string {
	return statsKeyPrefix + ownerID + ":" + strconv.FormatInt(int64(gen), 10)
}

func (c *RedisStats) Get(ctx context.Context, ownerID string) (*domain.TicketStats, Generation, error) {
	n, err := c.client.Get(ctx, statsGenPrefix+ownerID).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("get stats generation: %w", err)
	}
	gen := Generation(n)

	data, err := c.client.Get(ctx, statsKey(ownerID, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, nil
	}
	if err != nil {
		return nil, gen, fmt.Errorf("get stats: %w", err)
	}

	var stats domain.TicketStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, gen, fmt.Errorf("unmarshal stats: %w", err)
	}
	return &stats, gen, nil
}

func (c *RedisStats) Set(ctx context.Context, ownerID string, gen Generation, stats *domain.TicketStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := c.client.Set(ctx, statsKey(ownerID, gen), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set stats: %w", err)
	}
	return nil
}

// Invalidate advances the owner's generation. Entries of earlier
// generations are left to expire.
func (c *RedisStats) Invalidate(ctx context.Context, ownerID string) error {
	if err := c.client.Incr(ctx, statsGenPrefix+ownerID).Err(); err != nil {
		return fmt.Errorf("invalidate stats: %w", err)
	}
	return nil
}

// Noop is used when no Redis is configured: every Get misses.
type Noop struct{}

func (Noop) Get(context.Context, string) (*domain.TicketStats, Generation, error) {
	return nil, 0, nil
}

func (Noop) Set(context.Context, string, Generation, *domain.TicketStats) error {
	return nil
}

func (Noop) Invalidate(context.Context, string) error {
	return nil
}
