package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/samas-it-services/smart-search/pkg/backend"
)

type cacheEntry struct {
	value    []byte
	expireAt time.Time
}

// Cache is a trivial in-process CacheBackend with TTL expiry on read.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]cacheEntry
	connected bool
	failNext  error
}

// NewCache builds an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry), connected: true}
}

// FailNext arms the cache to return err on its next Get/Set/Delete/Clear
// call only.
func (c *Cache) FailNext(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = err
}

// SetConnected controls what HealthProbe reports.
func (c *Cache) SetConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
}

func (c *Cache) takeFailure() error {
	if c.failNext != nil {
		err := c.failNext
		c.failNext = nil
		return err
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.takeFailure(); err != nil {
		return nil, false, err
	}

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(e.expireAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	out := append([]byte(nil), e.value...)
	return out, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.takeFailure(); err != nil {
		return err
	}

	stored := append([]byte(nil), value...)
	c.entries[key] = cacheEntry{value: stored, expireAt: time.Now().Add(ttl)}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.takeFailure(); err != nil {
		return err
	}
	delete(c.entries, key)
	return nil
}

func (c *Cache) Clear(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.takeFailure(); err != nil {
		return err
	}

	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *Cache) HealthProbe(ctx context.Context) (backend.HealthSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return backend.HealthSnapshot{IsConnected: c.connected, IsSearchAvailable: c.connected, CapturedAt: time.Now()}, nil
}

func (c *Cache) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

func (c *Cache) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}
