// Package debounce limits how often an expensive per-user action may run.
package debounce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard admits at most one call per key within a window.
type Guard interface {
	// Allow reports whether key may run now. A true result starts a new
	// window for key.
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}

// RedisGuard shares windows across server instances.
type RedisGuard struct {
	client *redis.Client
	prefix string
}

func NewRedisGuard(client *redis.Client, prefix string) *RedisGuard {
	return &RedisGuard{client: client, prefix: prefix}
}

// NewRedisGuardFromURL parses a redis:// URL and checks connectivity.
func NewRedisGuardFromURL(ctx context.Context, redisURL, prefix string) (*RedisGuard, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis not accessible: %w", err)
	}

	return NewRedisGuard(client, prefix), nil
}

func (g *RedisGuard) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.prefix+key, time.Now().Unix(), window).Result()
	if err != nil {
		return false, fmt.Errorf("debounce %s: %w", key, err)
	}
	return ok, nil
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}

// MemoryGuard keeps windows in process memory.
type MemoryGuard struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{until: make(map[string]time.Time), now: time.Now}
}

func (g *MemoryGuard) Allow(_ context.Context, key string, window time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if until, ok := g.until[key]; ok && now.Before(until) {
		return false, nil
	}

	g.until[key] = now.Add(window)

	// Drop expired keys so the map does not grow without bound.
	for k, until := range g.until {
		if !now.Before(until) {
			delete(g.until, k)
		}
	}

	return true, nil
}
