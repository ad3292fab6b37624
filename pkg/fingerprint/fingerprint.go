// Package fingerprint turns a search request into a deterministic,
// bounded-length cache key.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/samas-it-services/smart-search/pkg/backend"
)

const (
	namespace = "search:v1:"
	maxLen    = 249
)

var sanitizePattern = regexp.MustCompile(`[^A-Za-z0-9:_\-.]`)

// Input is the normalized slice of a request the fingerprint is
// computed over. Callers build this from backend.SearchOptions plus
// the query string; it intentionally excludes fields that never
// affect backend results (cacheEnabled, cacheTTL).
type Input struct {
	Query     string
	Limit     int
	Offset    int
	Filters   map[string]backend.Filter
	SortBy    string
	SortOrder string
	// ResultType, if non-empty, becomes a short invalidation tag
	// prefix so pattern-based clears can target one result type.
	ResultType string
}

// Fingerprint computes the deterministic cache key for in.
func Fingerprint(in Input) string {
	canon := canonicalize(in)
	sum := sha256.Sum256([]byte(canon))
	hash := hex.EncodeToString(sum[:])

	var b strings.Builder
	b.WriteString(namespace)
	if tag := sanitizeTag(in.ResultType); tag != "" {
		b.WriteString(tag)
		b.WriteByte(':')
	}
	b.WriteString(hash)

	return sanitize(b.String())
}

// canonicalize renders in into a stable string: query normalized,
// options with sorted keys and sorted set values, defaults omitted.
func canonicalize(in Input) string {
	var b strings.Builder

	b.WriteString("q=")
	b.WriteString(normalizeQuery(in.Query))

	if in.Limit != 0 && in.Limit != 20 {
		fmt.Fprintf(&b, "&limit=%d", in.Limit)
	}
	if in.Offset != 0 {
		fmt.Fprintf(&b, "&offset=%d", in.Offset)
	}
	if in.SortBy != "" && in.SortBy != "relevance" {
		fmt.Fprintf(&b, "&sortBy=%s", in.SortBy)
	}
	if in.SortOrder != "" && in.SortOrder != "desc" {
		fmt.Fprintf(&b, "&sortOrder=%s", in.SortOrder)
	}

	if len(in.Filters) > 0 {
		keys := make([]string, 0, len(in.Filters))
		for k := range in.Filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			f := in.Filters[k]
			if len(f.Values) > 0 {
				vals := append([]string(nil), f.Values...)
				sort.Strings(vals)
				fmt.Fprintf(&b, "&f.%s=%s", k, strings.Join(vals, ","))
			}
			if f.Range != nil {
				from, to := "", ""
				if f.Range.From != nil {
					from = f.Range.From.UTC().Format("2006-01-02T15:04:05Z")
				}
				if f.Range.To != nil {
					to = f.Range.To.UTC().Format("2006-01-02T15:04:05Z")
				}
				fmt.Fprintf(&b, "&f.%s=range(%s,%s)", k, from, to)
			}
		}
	}

	return b.String()
}

// normalizeQuery trims, collapses internal whitespace, and lower-cases
// the query so semantically equivalent queries canonicalize identically.
func normalizeQuery(q string) string {
	fields := strings.Fields(q)
	return strings.ToLower(strings.Join(fields, " "))
}

func sanitizeTag(resultType string) string {
	tag := sanitize(resultType)
	if len(tag) > 24 {
		tag = tag[:24]
	}
	return tag
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = sanitizePattern.ReplaceAllString(s, "")
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
