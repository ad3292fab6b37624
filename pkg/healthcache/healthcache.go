// Package healthcache caps the rate of backend health probes by
// memoizing the most recent snapshot for a short TTL.
package healthcache

import (
	"context"
	"sync"
	"time"

	"github.com/samas-it-services/smart-search/pkg/backend"
)

// Prober is the subset of a backend's contract the health cache needs.
type Prober interface {
	HealthProbe(ctx context.Context) (backend.HealthSnapshot, error)
}

// Config configures one Cache instance.
type Config struct {
	TTL     time.Duration // default 30s
	Timeout time.Duration // default 2s, bounds the probe call itself
}

func (c Config) withDefaults() Config {
	if c.TTL == 0 {
		c.TTL = 30 * time.Second
	}
	if c.Timeout == 0 {
		c.Timeout = 2 * time.Second
	}
	return c
}

// Cache memoizes health snapshots per named backend.
type Cache struct {
	cfg Config

	mu    sync.Mutex
	cache map[string]entry
}

type entry struct {
	snapshot backend.HealthSnapshot
}

// New creates a health Cache.
func New(cfg Config) *Cache {
	return &Cache{cfg: cfg.withDefaults(), cache: make(map[string]entry)}
}

// Get returns the cached snapshot for name if it is newer than the
// configured TTL; otherwise it probes prober, bounded by the
// configured timeout, and stores the result. A probe error never
// propagates to the caller: it is synthesized into a disconnected
// snapshot instead, per spec.md §4.3 — health probe failures are not
// the same failure channel as request failures and must never trip a
// breaker.
func (c *Cache) Get(ctx context.Context, name string, prober Prober) backend.HealthSnapshot {
	c.mu.Lock()
	e, ok := c.cache[name]
	c.mu.Unlock()

	if ok && time.Since(e.snapshot.CapturedAt) < c.cfg.TTL {
		return e.snapshot
	}

	snapshot := c.probe(ctx, prober)

	c.mu.Lock()
	c.cache[name] = entry{snapshot: snapshot}
	c.mu.Unlock()

	return snapshot
}

func (c *Cache) probe(ctx context.Context, prober Prober) backend.HealthSnapshot {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	snapshot, err := prober.HealthProbe(ctx)
	latency := time.Since(start)

	if err != nil {
		return backend.HealthSnapshot{
			IsConnected:       false,
			IsSearchAvailable: false,
			Latency:           latency,
			Errors:            []string{err.Error()},
			CapturedAt:        time.Now(),
		}
	}

	snapshot.CapturedAt = time.Now()
	if snapshot.Latency == 0 {
		snapshot.Latency = latency
	}
	return snapshot
}

// Invalidate drops the cached snapshot for name so the next Get
// re-probes regardless of TTL.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	delete(c.cache, name)
	c.mu.Unlock()
}
