// Package backend defines the minimal contracts the orchestration core
// consumes. Concrete database and cache drivers are adapters built
// against these interfaces; the core never imports adapter code.
package backend

import (
	"context"
	"time"
)

// SearchResult is one ranked hit returned by a DatabaseBackend, promoted
// into the core's typed shape. The orchestrator reads RelevanceScore as
// a native 0..1 fraction and scales it into a [0,100] integer; values
// outside 0..1 are clamped to 0 or 100.
type SearchResult struct {
	ID              string         `json:"id"`
	Type            string         `json:"type"`
	Title           string         `json:"title"`
	Subtitle        string         `json:"subtitle,omitempty"`
	Description     string         `json:"description,omitempty"`
	Category        string         `json:"category,omitempty"`
	Language        string         `json:"language,omitempty"`
	Visibility      string         `json:"visibility,omitempty"`
	CreatedAt       *time.Time     `json:"createdAt,omitempty"`
	MatchType       string         `json:"matchType"`
	RelevanceScore  float64        `json:"relevanceScore"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// DateRange bounds a filter on a date-valued field.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Filter is one field's constraint: either a set of allowed values or
// a date range. Exactly one of Values or Range should be populated.
type Filter struct {
	Values []string   `json:"values,omitempty"`
	Range  *DateRange `json:"range,omitempty"`
}

// SearchOptions carries the non-query parts of a search request that a
// DatabaseBackend needs to honor.
type SearchOptions struct {
	Limit     int
	Offset    int
	Filters   map[string]Filter
	SortBy    string
	SortOrder string
}

// DatabaseBackend is the primary source of truth. Adapters must
// tolerate concurrent calls.
type DatabaseBackend interface {
	// Search returns results for query/options. Results may be
	// unsorted or pre-sorted; the orchestrator re-sorts regardless.
	Search(ctx context.Context, query string, options SearchOptions) ([]SearchResult, error)
	// HealthProbe reports current connectivity and search readiness.
	HealthProbe(ctx context.Context) (HealthSnapshot, error)
	// Connect and Disconnect are lifecycle hooks invoked by the host,
	// never by the orchestrator itself.
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// CacheBackend is the optional read-through cache tier. Adapters must
// tolerate concurrent calls and must not retain references to the byte
// slice passed to Set after Set returns.
type CacheBackend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear removes every entry whose key matches pattern, a prefix
	// with at most one trailing "*" wildcard. Visibility of the
	// removal may be eventual; see SPEC_FULL.md §9.
	Clear(ctx context.Context, pattern string) error
	HealthProbe(ctx context.Context) (HealthSnapshot, error)
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// HealthSnapshot is a point-in-time health probe result.
type HealthSnapshot struct {
	IsConnected       bool
	IsSearchAvailable bool
	Latency           time.Duration
	Errors            []string
	CapturedAt        time.Time
}
