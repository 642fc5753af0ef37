// Package cache keeps recently computed dashboard stats in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"technovit/internal/analytics/models"
)

const keyPrefix = "technovit:stats:"

// RedisStats caches Stats per scope key with a fixed TTL.
type RedisStats struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStats(client *redis.Client, ttl time.Duration) *RedisStats {
	return &RedisStats{client: client, ttl: ttl}
}

// Get returns (nil, false, nil) on a miss.
func (c *RedisStats) Get(ctx context.Context, scopeKey string) (*models.Stats, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+scopeKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached stats: %w", err)
	}
	var stats models.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, false, fmt.Errorf("decode cached stats: %w", err)
	}
	return &stats, true, nil
}

func (c *RedisStats) Set(ctx context.Context, scopeKey string, stats *models.Stats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+scopeKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached stats: %w", err)
	}
	return nil
}

// Invalidate drops every cached scope. Registration writes call it so the
// dashboard reflects them on the next read.
func (c *RedisStats) Invalidate(ctx context.Context) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cached stats: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete cached stats: %w", err)
	}
	return nil
}

// InMemoryStats is the process-local fallback used when Redis is not configured.
type InMemoryStats struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]inMemoryEntry
}

type inMemoryEntry struct {
	stats     models.Stats
	expiresAt time.Time
}

func NewInMemoryStats(ttl time.Duration) *InMemoryStats {
	return &InMemoryStats{ttl: ttl, now: time.Now, entries: make(map[string]inMemoryEntry)}
}

func (c *InMemoryStats) Get(_ context.Context, scopeKey string) (*models.Stats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[scopeKey]
	if !ok || !c.now().Before(e.expiresAt) {
		delete(c.entries, scopeKey)
		return nil, false, nil
	}
	stats := e.stats
	return &stats, true, nil
}

func (c *InMemoryStats) Set(_ context.Context, scopeKey string, stats *models.Stats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[scopeKey] = inMemoryEntry{stats: *stats, expiresAt: c.now().Add(c.ttl)}
	return nil
}

func (c *InMemoryStats) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	return nil
}
