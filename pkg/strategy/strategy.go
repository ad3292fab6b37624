// Package strategy chooses, per request, which backend to try first
// and what to fall back to if it fails. The selector is pure: given
// the same inputs it always returns the same Strategy, and it performs
// no I/O of its own.
package strategy

import (
	"github.com/samas-it-services/smart-search/pkg/backend"
	"github.com/samas-it-services/smart-search/pkg/breaker"
)

// Path identifies which backend a phase of execution should use.
type Path string

const (
	PathCache    Path = "cache"
	PathDatabase Path = "database"
	PathNone     Path = "none"
)

// Reason is one of the enumerated machine-readable tags from
// spec.md §4.4.
type Reason string

const (
	ReasonForcedDatabase     Reason = "forced-database"
	ReasonNoCacheConfigured  Reason = "no-cache-configured"
	ReasonBreakerOpen        Reason = "breaker-open"
	ReasonCacheUnhealthy     Reason = "cache-unhealthy"
	ReasonDatabaseBreakerOpen Reason = "database-breaker-open"
	ReasonCacheHealthy       Reason = "cache-healthy"
)

// Strategy is the selector's output: the chosen execution plan.
type Strategy struct {
	Primary  Path
	Fallback Path
	Reason   Reason
}

// Input bundles everything the selector needs to decide, all of it
// already-observed state (no I/O happens here).
type Input struct {
	CacheEnabled     bool // the effective per-request override, already resolved against config default
	CacheConfigured  bool // whether a CacheBackend was supplied to the orchestrator at all
	CacheBreaker     breaker.Snapshot
	DatabaseBreaker  breaker.Snapshot
	CacheHealth      backend.HealthSnapshot
	CacheHealthKnown bool
}

// Select applies the decision table from spec.md §4.4, top-down, first
// match wins.
func Select(in Input) Strategy {
	if !in.CacheEnabled {
		return Strategy{Primary: PathDatabase, Fallback: PathNone, Reason: ReasonForcedDatabase}
	}

	if !in.CacheConfigured {
		return Strategy{Primary: PathDatabase, Fallback: PathNone, Reason: ReasonNoCacheConfigured}
	}

	if in.CacheBreaker.State == breaker.StateOpen {
		return Strategy{Primary: PathDatabase, Fallback: PathNone, Reason: ReasonBreakerOpen}
	}

	if in.CacheHealthKnown && !in.CacheHealth.IsConnected {
		return Strategy{Primary: PathDatabase, Fallback: PathCache, Reason: ReasonCacheUnhealthy}
	}

	if in.DatabaseBreaker.State == breaker.StateOpen {
		return Strategy{Primary: PathCache, Fallback: PathNone, Reason: ReasonDatabaseBreakerOpen}
	}

	return Strategy{Primary: PathCache, Fallback: PathDatabase, Reason: ReasonCacheHealthy}
}
