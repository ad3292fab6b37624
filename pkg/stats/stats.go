// Package stats aggregates orchestrator-wide counters for search
// volume, cache effectiveness, and error rates, and exposes them both
// as an in-process snapshot and as Prometheus metrics, following the
// counter-and-init-time-registration idiom of
// cmd/tempo-vulture/metrics.go in the teacher repo — adapted here into
// an injectable, per-instance Aggregator instead of package globals, so
// more than one SmartSearch instance (as in tests) never collide on a
// shared default registry.
package stats

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	uatomic "go.uber.org/atomic"

	"github.com/samas-it-services/smart-search/pkg/smartsearch/types"
)

const namespace = "smart_search"

// Snapshot is a point-in-time, dependency-free read of every counter,
// for callers that don't want to scrape Prometheus to inspect health.
type Snapshot struct {
	SearchesTotal        int64
	CacheHitsTotal       int64
	CacheMissesTotal     int64
	DatabaseQueriesTotal int64
	ErrorsByKind         map[types.ErrorKind]int64
	StrategyChosen       map[string]int64 // keyed by "<primary>/<reason>"
}

// Aggregator owns the counters for one SmartSearch instance. It
// implements prometheus.Collector so a caller can register it with
// their own registry; it is equally usable with Snapshot alone,
// without ever touching Prometheus.
type Aggregator struct {
	searches        uatomic.Int64
	cacheHits       uatomic.Int64
	cacheMisses     uatomic.Int64
	databaseQueries uatomic.Int64

	mu             sync.Mutex
	errorsByKind   map[types.ErrorKind]*uatomic.Int64
	strategyChosen map[string]*uatomic.Int64

	promSearches        prometheus.Counter
	promCacheHits       prometheus.Counter
	promCacheMisses     prometheus.Counter
	promDatabaseQueries prometheus.Counter
	promErrors          *prometheus.CounterVec
	promStrategy        *prometheus.CounterVec
}

// New builds an Aggregator. It is not registered with any Prometheus
// registry; call prometheus.Register(agg) (or Registerer.MustRegister)
// if metrics export is wanted.
func New() *Aggregator {
	return &Aggregator{
		errorsByKind:   make(map[types.ErrorKind]*uatomic.Int64),
		strategyChosen: make(map[string]*uatomic.Int64),

		promSearches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "total number of search calls completed, regardless of outcome",
		}),
		promCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "total number of searches served entirely from cache",
		}),
		promCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "total number of searches that missed the cache tier",
		}),
		promDatabaseQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_queries_total",
			Help:      "total number of searches that reached the database backend",
		}),
		promErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "total number of search errors, by kind",
		}, []string{"kind"}),
		promStrategy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_chosen_total",
			Help:      "total number of times each execution strategy was chosen, by primary path and reason",
		}, []string{"primary", "reason"}),
	}
}

// IncSearch records one completed search call.
func (a *Aggregator) IncSearch() {
	a.searches.Inc()
	a.promSearches.Inc()
}

// IncCacheHit records a search served from cache.
func (a *Aggregator) IncCacheHit() {
	a.cacheHits.Inc()
	a.promCacheHits.Inc()
}

// IncCacheMiss records a search that missed the cache tier.
func (a *Aggregator) IncCacheMiss() {
	a.cacheMisses.Inc()
	a.promCacheMisses.Inc()
}

// IncDatabaseQuery records a search that reached the database.
func (a *Aggregator) IncDatabaseQuery() {
	a.databaseQueries.Inc()
	a.promDatabaseQueries.Inc()
}

// IncError records one occurrence of the given error kind.
func (a *Aggregator) IncError(kind types.ErrorKind) {
	a.counterFor(kind).Inc()
	a.promErrors.WithLabelValues(string(kind)).Inc()
}

// IncStrategyChosen records one use of the given primary/reason pair.
func (a *Aggregator) IncStrategyChosen(primary, reason string) {
	a.strategyCounterFor(primary + "/" + reason).Inc()
	a.promStrategy.WithLabelValues(primary, reason).Inc()
}

func (a *Aggregator) counterFor(kind types.ErrorKind) *uatomic.Int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.errorsByKind[kind]
	if !ok {
		c = uatomic.NewInt64(0)
		a.errorsByKind[kind] = c
	}
	return c
}

func (a *Aggregator) strategyCounterFor(key string) *uatomic.Int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.strategyChosen[key]
	if !ok {
		c = uatomic.NewInt64(0)
		a.strategyChosen[key] = c
	}
	return c
}

// Snapshot returns a copy of every counter's current value.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	errs := make(map[types.ErrorKind]int64, len(a.errorsByKind))
	for k, v := range a.errorsByKind {
		errs[k] = v.Load()
	}
	strat := make(map[string]int64, len(a.strategyChosen))
	for k, v := range a.strategyChosen {
		strat[k] = v.Load()
	}

	return Snapshot{
		SearchesTotal:        a.searches.Load(),
		CacheHitsTotal:       a.cacheHits.Load(),
		CacheMissesTotal:     a.cacheMisses.Load(),
		DatabaseQueriesTotal: a.databaseQueries.Load(),
		ErrorsByKind:         errs,
		StrategyChosen:       strat,
	}
}

// Describe implements prometheus.Collector.
func (a *Aggregator) Describe(ch chan<- *prometheus.Desc) {
	a.promSearches.Describe(ch)
	a.promCacheHits.Describe(ch)
	a.promCacheMisses.Describe(ch)
	a.promDatabaseQueries.Describe(ch)
	a.promErrors.Describe(ch)
	a.promStrategy.Describe(ch)
}

// Collect implements prometheus.Collector.
func (a *Aggregator) Collect(ch chan<- prometheus.Metric) {
	a.promSearches.Collect(ch)
	a.promCacheHits.Collect(ch)
	a.promCacheMisses.Collect(ch)
	a.promDatabaseQueries.Collect(ch)
	a.promErrors.Collect(ch)
	a.promStrategy.Collect(ch)
}
