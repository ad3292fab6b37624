package smartsearch

import (
	"math"
	"sort"

	"github.com/samas-it-services/smart-search/pkg/backend"
	"github.com/samas-it-services/smart-search/pkg/smartsearch/types"
)

// normalizeScores scales each backend's native relevance score (a
// 0..1 fraction) into a [0,100] integer independently of every other
// result in the batch, so a score is comparable across responses and
// across backends: a single strong match reports the same number
// whether it arrives alone or alongside a page of weaker ones.
// Out-of-range native scores are clamped rather than rescaled.
func normalizeScores(results []backend.SearchResult) []int {
	out := make([]int, len(results))
	for i, r := range results {
		score := r.RelevanceScore * 100
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		out[i] = int(math.Round(score))
	}
	return out
}

// promote converts backend results into wire results, with relevance
// scores already normalized by normalizeScores.
func promote(results []backend.SearchResult, scores []int) []types.SearchResult {
	out := make([]types.SearchResult, len(results))
	for i, r := range results {
		out[i] = types.SearchResult{
			ID:             r.ID,
			Type:           r.Type,
			Title:          r.Title,
			Subtitle:       r.Subtitle,
			Description:    r.Description,
			Category:       r.Category,
			Language:       r.Language,
			Visibility:     r.Visibility,
			CreatedAt:      r.CreatedAt,
			MatchType:      types.MatchType(r.MatchType),
			RelevanceScore: scores[i],
			Metadata:       r.Metadata,
		}
	}
	return out
}

// sortResults orders results by relevanceScore descending, then
// createdAt descending (nil sorts last), then id ascending, per
// spec.md §4.6 step 7. The sort is a stable final tiebreaker on id so
// two runs over identical input always produce identical order.
func sortResults(results []types.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]

		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}

		if a.CreatedAt == nil && b.CreatedAt != nil {
			return false
		}
		if a.CreatedAt != nil && b.CreatedAt == nil {
			return true
		}
		if a.CreatedAt != nil && b.CreatedAt != nil && !a.CreatedAt.Equal(*b.CreatedAt) {
			return a.CreatedAt.After(*b.CreatedAt)
		}

		return a.ID < b.ID
	})
}

// paginate applies offset/limit to an already-sorted slice.
func paginate(results []types.SearchResult, offset, limit int) []types.SearchResult {
	if offset >= len(results) {
		return []types.SearchResult{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}
