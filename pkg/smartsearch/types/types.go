// Package types holds the wire-level data model shared by the
// orchestrator and the cache layer: requests, results, and the
// envelope returned to callers. It depends on no smart-search package
// other than pkg/backend, so it can sit underneath both the orchestrator
// and the cache codec without creating an import cycle.
package types

import (
	"time"

	"github.com/samas-it-services/smart-search/pkg/backend"
)

// SortBy enumerates the supported sort fields.
type SortBy string

const (
	SortByRelevance   SortBy = "relevance"
	SortByDate        SortBy = "date"
	SortByViews       SortBy = "views"
	SortByName        SortBy = "name"
	SortByCustomField SortBy = "custom-field"
)

// SortOrder enumerates ascending/descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// MatchType enumerates why a result matched the query.
type MatchType string

const (
	MatchTitle       MatchType = "title"
	MatchAuthor      MatchType = "author"
	MatchUsername    MatchType = "username"
	MatchName        MatchType = "name"
	MatchDescription MatchType = "description"
	MatchCategory    MatchType = "category"
	MatchQuestion    MatchType = "question"
	MatchAnswer      MatchType = "answer"
	MatchCustom      MatchType = "custom"
)

// SearchRequest is the caller-facing request shape.
type SearchRequest struct {
	Query        string
	Limit        int
	Offset       int
	Filters      map[string]backend.Filter
	SortBy       SortBy
	SortOrder    SortOrder
	CacheEnabled *bool          // nil means "use the configured default"
	CacheTTL     *time.Duration // nil means "use the default TTL for this entry"
	ResultType   string         // optional, narrows the fingerprint invalidation tag
}

// SearchResult is the caller-facing result shape, a promoted and
// score-normalized view of backend.SearchResult.
type SearchResult struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Title          string         `json:"title"`
	Subtitle       string         `json:"subtitle,omitempty"`
	Description    string         `json:"description,omitempty"`
	Category       string         `json:"category,omitempty"`
	Language       string         `json:"language,omitempty"`
	Visibility     string         `json:"visibility,omitempty"`
	CreatedAt      *time.Time     `json:"createdAt,omitempty"`
	MatchType      MatchType      `json:"matchType"`
	RelevanceScore int            `json:"relevanceScore"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Path mirrors strategy.Path without importing the strategy package,
// keeping this package dependency-free aside from backend.
type Path string

const (
	PathCache    Path = "cache"
	PathDatabase Path = "database"
	PathNone     Path = "none"
)

// StrategyInfo is the provenance of which execution plan was chosen
// and why, attached to every envelope.
type StrategyInfo struct {
	Primary  Path   `json:"primary"`
	Fallback Path   `json:"fallback"`
	Reason   string `json:"reason"`
}

// ErrorKind enumerates the error taxonomy from spec.md §7.
type ErrorKind string

const (
	KindValidation         ErrorKind = "ValidationError"
	KindBackendTimeout     ErrorKind = "BackendTimeout"
	KindBackendUnavailable ErrorKind = "BackendUnavailable"
	KindSerialization      ErrorKind = "SerializationError"
	KindCancellation       ErrorKind = "CancellationError"
	KindBothFailed         ErrorKind = "BothBackendsFailed"
)

// ErrorSummary is a non-fatal error recorded into an envelope so a
// caller can observe degraded mode without an exception.
type ErrorSummary struct {
	Kind    ErrorKind `json:"kind"`
	Backend string    `json:"backend"`
	Message string    `json:"message"`
}

// Performance carries timing and hit/miss provenance.
type Performance struct {
	SearchTime  time.Duration `json:"searchTime"`
	CacheHit    bool          `json:"cacheHit"`
	ResultCount int           `json:"resultCount"`
}

// ResultEnvelope is the top-level return value of a search call.
type ResultEnvelope struct {
	Results     []SearchResult `json:"results"`
	Performance Performance    `json:"performance"`
	Strategy    StrategyInfo   `json:"strategy"`
	Errors      []ErrorSummary `json:"errors,omitempty"`
	RequestID   string         `json:"requestId,omitempty"`
}
