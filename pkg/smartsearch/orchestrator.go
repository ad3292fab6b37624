// Package smartsearch is the federated search facade: it composes a
// database backend, an optional cache backend, per-backend circuit
// breakers, health memoization, and strategy selection into a single
// Search entry point that returns a self-describing result envelope.
package smartsearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "errors"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/samas-it-services/smart-search/pkg/backend"
	"github.com/samas-it-services/smart-search/pkg/breaker"
	"github.com/samas-it-services/smart-search/pkg/cachelayer"
	"github.com/samas-it-services/smart-search/pkg/fingerprint"
	"github.com/samas-it-services/smart-search/pkg/healthcache"
	"github.com/samas-it-services/smart-search/pkg/stats"
	"github.com/samas-it-services/smart-search/pkg/strategy"
	"github.com/samas-it-services/smart-search/pkg/smartsearch/types"
)

// SmartSearch is the orchestration core. Construct one with New and
// call Search for every incoming query; a single instance is safe for
// concurrent use and is meant to live for the lifetime of the host
// process.
type SmartSearch struct {
	db    backend.DatabaseBackend
	cache backend.CacheBackend // nil when no cache tier is configured

	cfg Config

	dbBreaker    *breaker.Breaker
	cacheBreaker *breaker.Breaker // nil when cache is nil
	cacheLayer   *cachelayer.Layer // nil when cache is nil

	health *healthcache.Cache
	stats  *stats.Aggregator
	logger log.Logger

	writeSem chan struct{}
}

// New constructs a SmartSearch over db and the optional cache. Pass a
// nil cache to run database-only, per spec.md's "cache is optional"
// requirement; every strategy decision for a request with caching
// enabled then resolves to no-cache-configured (a request with caching
// disabled still resolves to forced-database) and the breaker/health
// machinery around the
// cache tier is simply never built.
func New(db backend.DatabaseBackend, cache backend.CacheBackend, cfg Config, logger log.Logger) *SmartSearch {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	cfg = cfg.withDefaults()

	s := &SmartSearch{
		db:        db,
		cache:     cache,
		cfg:       cfg,
		dbBreaker: breaker.New("database", cfg.DatabaseBreaker),
		health:    healthcache.New(healthcache.Config{TTL: cfg.HealthCacheTTL}),
		stats:     stats.New(),
		logger:    logger,
		writeSem:  make(chan struct{}, cfg.MaxConcurrentWriteThroughs),
	}

	if cache != nil {
		s.cacheBreaker = breaker.New("cache", cfg.CacheBreaker)
		s.cacheLayer = cachelayer.New(cache, s.cacheBreaker, log.With(logger, "component", "cachelayer"), cfg.MaxValueBytes)
	}

	return s
}

// Failure reasons attached to an envelope's Strategy.Reason when
// execute could not produce results from any viable path. These are
// distinct from the strategy package's selection reasons: a selection
// reason explains which path was chosen and why; these explain why
// that choice ultimately yielded nothing.
const (
	reasonDatabaseFailed      = "database-failed"
	reasonBothFailed          = "both-failed"
	reasonDatabaseUnavailable = "database-unavailable"
)

// Stats returns a point-in-time snapshot of every counter.
func (s *SmartSearch) Stats() stats.Snapshot {
	return s.stats.Snapshot()
}

// Collector exposes the aggregator as a prometheus.Collector so a host
// can register it: prometheus.MustRegister(ss.Collector()).
func (s *SmartSearch) Collector() *stats.Aggregator {
	return s.stats
}

// Health probes every configured backend, each capped by the
// configured health-cache TTL, and returns their current snapshots
// keyed by backend name ("database", and "cache" if configured).
func (s *SmartSearch) Health(ctx context.Context) map[string]backend.HealthSnapshot {
	out := map[string]backend.HealthSnapshot{
		"database": s.health.Get(ctx, "database", s.db),
	}
	if s.cache != nil {
		out["cache"] = s.health.Get(ctx, "cache", s.cache)
	}
	return out
}

// Search runs the full orchestration pipeline for req and returns a
// ResultEnvelope describing what was found, how it was found, and any
// non-fatal errors encountered along the way.
func (s *SmartSearch) Search(ctx context.Context, req types.SearchRequest) (types.ResultEnvelope, error) {
	start := time.Now()
	requestID := uuid.NewString()
	logger := log.With(s.logger, "requestId", requestID)
	if s.cfg.LogQueries {
		logger = log.With(logger, "query", req.Query)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OverallDeadline)
	defer cancel()

	if err := s.validate(&req); err != nil {
		s.stats.IncError(types.KindValidation)
		s.stats.IncSearch()
		return types.ResultEnvelope{}, err
	}

	fp := fingerprint.Fingerprint(fingerprint.Input{
		Query:      req.Query,
		Limit:      req.Limit,
		Offset:     req.Offset,
		Filters:    req.Filters,
		SortBy:     string(req.SortBy),
		SortOrder:  string(req.SortOrder),
		ResultType: req.ResultType,
	})

	cacheEnabled := s.cfg.CacheEnabledByDefault
	if req.CacheEnabled != nil {
		cacheEnabled = *req.CacheEnabled
	}

	var cacheHealth backend.HealthSnapshot
	cacheHealthKnown := false
	if s.cacheLayer != nil && cacheEnabled {
		cacheHealth = s.health.Get(ctx, "cache", s.cache)
		cacheHealthKnown = true
	}

	cacheBreakerState := breaker.Snapshot{State: breaker.StateClosed}
	if s.cacheBreaker != nil {
		cacheBreakerState = s.cacheBreaker.State()
	}

	strat := strategy.Select(strategy.Input{
		CacheEnabled:     cacheEnabled,
		CacheConfigured:  s.cacheLayer != nil,
		CacheBreaker:     cacheBreakerState,
		DatabaseBreaker:  s.dbBreaker.State(),
		CacheHealth:      cacheHealth,
		CacheHealthKnown: cacheHealthKnown,
	})
	s.stats.IncStrategyChosen(string(strat.Primary), string(strat.Reason))

	results, cacheHit, errs, failReason, err := s.execute(ctx, strat, req, fp, logger)
	if err != nil {
		// Only ValidationError (handled above, before execute runs) and
		// CancellationError reach here: every backend-failure kind is
		// recovered into failReason + errs instead, per spec.md §7's
		// propagation policy.
		s.stats.IncError(errorKindOf(err))
		s.stats.IncSearch()
		return types.ResultEnvelope{}, err
	}

	if failReason != "" {
		for _, e := range errs {
			s.stats.IncError(e.Kind)
		}
		s.stats.IncSearch()
		s.stats.IncCacheMiss()
		return types.ResultEnvelope{
			Results: []types.SearchResult{},
			Performance: types.Performance{
				SearchTime:  time.Since(start),
				CacheHit:    false,
				ResultCount: 0,
			},
			Strategy: types.StrategyInfo{
				Primary:  types.Path(strat.Primary),
				Fallback: types.Path(strat.Fallback),
				Reason:   failReason,
			},
			Errors:    errs,
			RequestID: requestID,
		}, nil
	}

	ttl := s.cfg.DefaultCacheTTL
	cacheTTLIsZero := false
	if req.CacheTTL != nil {
		ttl = *req.CacheTTL
		cacheTTLIsZero = ttl == 0
	}
	if !cacheHit && !cacheTTLIsZero && strat.Reason != strategy.ReasonForcedDatabase {
		s.writeThroughAsync(fp, results, ttl)
	}

	envelope := types.ResultEnvelope{
		Results: results,
		Performance: types.Performance{
			SearchTime:  time.Since(start),
			CacheHit:    cacheHit,
			ResultCount: len(results),
		},
		Strategy: types.StrategyInfo{
			Primary:  types.Path(strat.Primary),
			Fallback: types.Path(strat.Fallback),
			Reason:   string(strat.Reason),
		},
		Errors:    errs,
		RequestID: requestID,
	}

	s.stats.IncSearch()
	if cacheHit {
		s.stats.IncCacheHit()
	} else {
		s.stats.IncCacheMiss()
	}

	return envelope, nil
}

// execute runs the chosen primary path, falling through to the
// fallback path when the primary misses or errors, per spec.md §4.6.
// A cache miss is not itself a failure: it falls through to the
// database when the strategy's fallback is the database, and otherwise
// ends in reasonDatabaseUnavailable. A database error is recorded into
// errs and triggers the cache fallback when there is one. A cache read
// error is not recorded into errs: the cache layer logs it and reports
// it to execute as a plain miss.
//
// The returned err is non-nil only for CancellationError: the
// caller's own context was canceled or expired, which must surface
// immediately rather than be absorbed into a degraded-but-successful
// envelope. Every other terminal failure — no viable path remains, or
// both the primary and its fallback failed to produce results — is
// reported through a non-empty failReason instead, with err nil, per
// spec.md §7's propagation policy ("BothBackendsFailed: return empty
// envelope with errors; do not throw").
func (s *SmartSearch) execute(ctx context.Context, strat strategy.Strategy, req types.SearchRequest, fp string, logger log.Logger) (results []types.SearchResult, cacheHit bool, errs []types.ErrorSummary, failReason string, err error) {
	switch strat.Primary {
	case strategy.PathCache:
		cctx, ccancel := context.WithTimeout(ctx, s.cfg.CacheOperationDeadline)
		env, hit := s.cacheLayer.TryGet(cctx, fp)
		ccancel()
		if hit {
			return env.Results, true, nil, "", nil
		}
		if strat.Fallback != strategy.PathDatabase {
			unavailable := newBackendUnavailable("database", "database circuit breaker open and cache missed", nil)
			return nil, false, []types.ErrorSummary{unavailable.Summary()}, reasonDatabaseUnavailable, nil
		}
		dbResults, dbErr := s.queryDatabase(ctx, req, logger)
		if dbErr != nil {
			if isCancellation(dbErr) {
				return nil, false, nil, "", dbErr
			}
			return nil, false, []types.ErrorSummary{errorSummaryOf(dbErr)}, reasonBothFailed, nil
		}
		return dbResults, false, nil, "", nil

	case strategy.PathDatabase:
		dbResults, dbErr := s.queryDatabase(ctx, req, logger)
		if dbErr == nil {
			return dbResults, false, nil, "", nil
		}
		if isCancellation(dbErr) {
			return nil, false, nil, "", dbErr
		}
		errs = append(errs, errorSummaryOf(dbErr))

		if strat.Fallback == strategy.PathCache {
			cctx, ccancel := context.WithTimeout(ctx, s.cfg.CacheOperationDeadline)
			env, hit := s.cacheLayer.TryGet(cctx, fp)
			ccancel()
			if hit {
				level.Warn(logger).Log("msg", "serving stale cache after database failure", "err", dbErr)
				return env.Results, true, errs, "", nil
			}
			return nil, false, errs, reasonBothFailed, nil
		}
		return nil, false, errs, reasonDatabaseFailed, nil

	default:
		unavailable := newBackendUnavailable("database", "no viable execution path", nil)
		return nil, false, []types.ErrorSummary{unavailable.Summary()}, reasonDatabaseUnavailable, nil
	}
}

// isCancellation reports whether err is the package's CancellationError
// kind, the one backend-facing error that must propagate as a real Go
// error instead of being recovered into an envelope.
func isCancellation(err error) bool {
	return errorKindOf(err) == types.KindCancellation
}

// validate normalizes req in place and rejects anything the
// orchestrator can't safely act on.
func (s *SmartSearch) validate(req *types.SearchRequest) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return newValidationError("query must not be empty")
	}
	if req.Limit == 0 {
		req.Limit = 20
	}
	if req.Limit < 0 {
		return newValidationError("limit must not be negative")
	}
	if req.Limit > s.cfg.MaxLimit {
		return newValidationError(fmt.Sprintf("limit %d exceeds configured maximum %d", req.Limit, s.cfg.MaxLimit))
	}
	if req.Offset < 0 {
		return newValidationError("offset must not be negative")
	}
	for name, f := range req.Filters {
		for _, v := range f.Values {
			if len(v) > s.cfg.MaxFilterValueBytes {
				return newValidationError(fmt.Sprintf("filter %q value exceeds the maximum size", name))
			}
		}
	}
	return nil
}

// queryDatabase runs one breaker-guarded, deadline-bounded database
// search and returns sorted, paginated, score-normalized wire results.
func (s *SmartSearch) queryDatabase(ctx context.Context, req types.SearchRequest, logger log.Logger) ([]types.SearchResult, error) {
	permit, allowed := s.dbBreaker.Allow()
	if !allowed {
		return nil, newBackendUnavailable("database", "circuit breaker open", nil)
	}

	dctx, cancel := context.WithTimeout(ctx, s.cfg.SearchDeadline)
	defer cancel()

	opts := backend.SearchOptions{
		Limit:     req.Offset + req.Limit,
		Filters:   req.Filters,
		SortBy:    string(req.SortBy),
		SortOrder: string(req.SortOrder),
	}

	s.stats.IncDatabaseQuery()
	raw, err := s.db.Search(dctx, req.Query, opts)
	if err != nil {
		permit.Failure()
		if goerrors.Is(dctx.Err(), context.DeadlineExceeded) {
			return nil, newBackendTimeout("database", err)
		}
		if goerrors.Is(ctx.Err(), context.Canceled) {
			return nil, newCancellationError(err)
		}
		return nil, newBackendUnavailable("database", "search failed", err)
	}
	permit.Success()

	scores := normalizeScores(raw)
	wire := promote(raw, scores)
	sortResults(wire)
	page := paginate(wire, req.Offset, req.Limit)

	level.Debug(logger).Log("msg", "database search completed", "rawResults", len(raw), "page", len(page))
	return page, nil
}

// writeThroughAsync caches results under fp in the background, bounded
// by a semaphore so a burst of misses can't open unbounded concurrent
// writes against the cache backend. It uses its own context detached
// from the caller's, since the write should complete even if the
// caller that triggered it has already received its response and
// moved on.
func (s *SmartSearch) writeThroughAsync(fp string, results []types.SearchResult, ttl time.Duration) {
	if s.cacheLayer == nil {
		return
	}

	select {
	case s.writeSem <- struct{}{}:
	default:
		return // at capacity; drop the write-through rather than block the request
	}

	env := types.ResultEnvelope{Results: results}
	go func() {
		defer func() { <-s.writeSem }()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CacheOperationDeadline)
		defer cancel()
		s.cacheLayer.TrySet(ctx, fp, env, ttl)
	}()
}

func errorSummaryOf(err error) types.ErrorSummary {
	var se *Error
	if goerrors.As(err, &se) {
		return se.Summary()
	}
	return types.ErrorSummary{Kind: types.KindBackendUnavailable, Message: err.Error()}
}

func errorKindOf(err error) types.ErrorKind {
	var se *Error
	if goerrors.As(err, &se) {
		return se.Kind
	}
	return types.KindBackendUnavailable
}
