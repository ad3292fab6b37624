// Package cachelayer wraps a backend.CacheBackend with the breaker,
// serialization, and request-coalescing semantics the orchestrator
// needs from its cache tier, per spec.md §4.5.
package cachelayer

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/singleflight"

	"github.com/samas-it-services/smart-search/pkg/backend"
	"github.com/samas-it-services/smart-search/pkg/breaker"
	"github.com/samas-it-services/smart-search/pkg/smartsearch/types"
)

// Layer mediates every cache read and write through the breaker so a
// flapping cache backend degrades the request to a database-only path
// instead of cascading timeouts into callers.
type Layer struct {
	cache   backend.CacheBackend
	breaker *breaker.Breaker
	logger  log.Logger

	// maxValueBytes caps the serialized size of a single cache entry,
	// per spec.md's CacheEntry invariant ("serialized size <= configured
	// max-value, default 1 MiB"). A write that would exceed it is
	// skipped rather than truncated.
	maxValueBytes int

	// sf coalesces concurrent write-throughs for the same key so a
	// thundering herd of cache misses for one popular query issues a
	// single Set instead of one per goroutine. Grounded on the
	// singleflight-guarded write path in the cache-orchestrator
	// reference (other_examples).
	sf singleflight.Group
}

// New builds a Layer over cache, guarded by br. maxValueBytes bounds
// the serialized size of any single entry written through TrySet;
// pass 0 to disable the bound (every write is attempted regardless of
// size).
func New(cache backend.CacheBackend, br *breaker.Breaker, logger log.Logger, maxValueBytes int) *Layer {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Layer{cache: cache, breaker: br, logger: logger, maxValueBytes: maxValueBytes}
}

// TryGet attempts a cache read for key. ok is false on breaker denial,
// backend error, miss, or a corrupt/unrecognized stored entry — every
// one of those cases is a plain cache miss from the orchestrator's
// point of view, per spec.md §4.5 and §6 (unknown schema versions are
// treated as misses, not hard errors).
func (l *Layer) TryGet(ctx context.Context, key string) (types.ResultEnvelope, bool) {
	permit, allowed := l.breaker.Allow()
	if !allowed {
		return types.ResultEnvelope{}, false
	}

	raw, found, err := l.cache.Get(ctx, key)
	if err != nil {
		permit.Failure()
		level.Warn(l.logger).Log("msg", "cache get failed", "key", key, "err", err)
		return types.ResultEnvelope{}, false
	}
	permit.Success()

	if !found {
		return types.ResultEnvelope{}, false
	}

	env, err := Decode(raw)
	if err != nil {
		level.Debug(l.logger).Log("msg", "cache entry unreadable, treating as miss", "key", key, "err", err)
		return types.ResultEnvelope{}, false
	}

	return env, true
}

// TrySet writes env through to the cache under key with the given
// ttl. It never returns an error: a write-through failure degrades
// silently to "not cached this time", logged at warn, since it must
// never fail the caller's search. Concurrent TrySet calls for the same
// key are coalesced into a single backend.Set.
func (l *Layer) TrySet(ctx context.Context, key string, env types.ResultEnvelope, ttl time.Duration) {
	permit, allowed := l.breaker.Allow()
	if !allowed {
		return
	}

	// v is true when the write was skipped for size, shared across any
	// concurrent callers coalesced onto the same singleflight call so a
	// follower sees the same outcome the leader computed.
	v, err, _ := l.sf.Do(key, func() (interface{}, error) {
		raw, encErr := Encode(env)
		if encErr != nil {
			return false, encErr
		}
		if l.maxValueBytes > 0 && len(raw) > l.maxValueBytes {
			return true, nil
		}
		return false, l.cache.Set(ctx, key, raw, ttl)
	})

	if err != nil {
		permit.Failure()
		level.Warn(l.logger).Log("msg", "cache set failed", "key", key, "err", err)
		return
	}
	if skipped, _ := v.(bool); skipped {
		level.Debug(l.logger).Log("msg", "cache entry exceeds max value size, skipping write", "key", key)
	}
	permit.Success()
}

// Invalidate removes a single key, guarded by the breaker like every
// other cache operation.
func (l *Layer) Invalidate(ctx context.Context, key string) {
	permit, allowed := l.breaker.Allow()
	if !allowed {
		return
	}
	if err := l.cache.Delete(ctx, key); err != nil {
		permit.Failure()
		level.Warn(l.logger).Log("msg", "cache delete failed", "key", key, "err", err)
		return
	}
	permit.Success()
}

// InvalidateByPattern removes every key matching pattern (a prefix
// with at most one trailing "*"), used to drop all cached entries for
// one result type after a write to the source of truth.
func (l *Layer) InvalidateByPattern(ctx context.Context, pattern string) {
	permit, allowed := l.breaker.Allow()
	if !allowed {
		return
	}
	if err := l.cache.Clear(ctx, pattern); err != nil {
		permit.Failure()
		level.Warn(l.logger).Log("msg", "cache clear failed", "pattern", pattern, "err", err)
		return
	}
	permit.Success()
}
