// Package rediscache implements backend.CacheBackend against Redis,
// following the thin client-wrapper shape of
// yanolja-ogem/monitor/schema/redis_cache.go (construct a
// *redis.Client, forward each method, translate redis.Nil into a
// plain miss instead of an error).
package rediscache

import (
	"context"
	goerrors "errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/samas-it-services/smart-search/pkg/backend"
)

// Cache adapts a *redis.Client to backend.CacheBackend.
type Cache struct {
	client *redis.Client
}

// New builds a Cache over an already-constructed *redis.Client so
// callers can share one client across multiple consumers, or point it
// at miniredis in tests.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if goerrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Clear removes every key matching pattern (a prefix with at most one
// trailing "*"), using SCAN rather than KEYS so a large keyspace
// doesn't block the server.
func (c *Cache) Clear(ctx context.Context, pattern string) error {
	scanPattern := pattern
	if !strings.HasSuffix(scanPattern, "*") {
		scanPattern += "*"
	}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, scanPattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return nil
}

func (c *Cache) HealthProbe(ctx context.Context) (backend.HealthSnapshot, error) {
	start := time.Now()
	err := c.client.Ping(ctx).Err()
	latency := time.Since(start)

	if err != nil {
		return backend.HealthSnapshot{
			IsConnected: false,
			Errors:      []string{err.Error()},
			Latency:     latency,
			CapturedAt:  time.Now(),
		}, nil
	}

	return backend.HealthSnapshot{
		IsConnected:       true,
		IsSearchAvailable: true,
		Latency:           latency,
		CapturedAt:        time.Now(),
	}, nil
}

func (c *Cache) Connect(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Disconnect(ctx context.Context) error {
	return c.client.Close()
}
