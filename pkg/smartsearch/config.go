package smartsearch

import (
	"time"

	"github.com/samas-it-services/smart-search/pkg/breaker"
)

// Config is the full injected configuration surface for a SmartSearch
// instance, per spec.md §6. Every field has a documented default
// applied by withDefaults so a caller can construct Config{} and get a
// reasonable orchestrator.
type Config struct {
	// CacheEnabledByDefault is the per-request cacheEnabled value used
	// when a SearchRequest leaves it unset.
	CacheEnabledByDefault bool
	// DefaultCacheTTL is used when a SearchRequest leaves cacheTTL unset.
	DefaultCacheTTL time.Duration
	// MaxLimit caps SearchRequest.Limit; requests above it are rejected
	// with a ValidationError rather than silently clamped.
	MaxLimit int
	// MaxValueBytes caps the serialized size of a single CacheEntry
	// written through the cache layer. An envelope that would exceed
	// it is not cached at all (logged at debug), per spec.md's
	// CacheEntry invariant and scenario S6 ("large result bypasses
	// cache") rather than rejected or truncated.
	MaxValueBytes int
	// MaxFilterValueBytes caps the length of a single filter value
	// string during request validation, rejecting requests that would
	// otherwise build unbounded fingerprint input. This is unrelated
	// to MaxValueBytes above; it bounds request shape, not cache entry
	// size.
	MaxFilterValueBytes int
	// HealthCacheTTL bounds how often backend health is re-probed.
	HealthCacheTTL time.Duration
	// SearchDeadline bounds one call's database Search operation.
	SearchDeadline time.Duration
	// CacheOperationDeadline bounds one cache Get or Set call.
	CacheOperationDeadline time.Duration
	// OverallDeadline bounds the entire orchestrated search, wrapping
	// both the primary and any fallback attempt.
	OverallDeadline time.Duration
	// CacheBreaker and DatabaseBreaker configure the two circuit
	// breakers the orchestrator constructs at startup.
	CacheBreaker    breaker.Config
	DatabaseBreaker breaker.Config
	// LogQueries, when true, includes the raw query text in debug
	// logs. Default false: query text may carry user-identifying data.
	LogQueries bool
	// MaxConcurrentWriteThroughs bounds how many cache write-throughs
	// may be in flight at once, so a sudden traffic spike after a cold
	// cache can't open unbounded concurrent Set calls against the
	// cache backend.
	MaxConcurrentWriteThroughs int
}

func (c Config) withDefaults() Config {
	if c.DefaultCacheTTL == 0 {
		c.DefaultCacheTTL = 5 * time.Minute
	}
	if c.MaxLimit == 0 {
		c.MaxLimit = 100
	}
	if c.MaxValueBytes == 0 {
		c.MaxValueBytes = 1 << 20 // 1 MiB, per spec.md's CacheEntry invariant
	}
	if c.MaxFilterValueBytes == 0 {
		c.MaxFilterValueBytes = 256
	}
	if c.HealthCacheTTL == 0 {
		c.HealthCacheTTL = 30 * time.Second
	}
	if c.SearchDeadline == 0 {
		c.SearchDeadline = 5 * time.Second
	}
	if c.CacheOperationDeadline == 0 {
		c.CacheOperationDeadline = 500 * time.Millisecond
	}
	if c.OverallDeadline == 0 {
		c.OverallDeadline = 10 * time.Second
	}
	if c.MaxConcurrentWriteThroughs == 0 {
		c.MaxConcurrentWriteThroughs = 32
	}
	return c
}
