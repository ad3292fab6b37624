package cachelayer

import (
	"context"
	"testing"
	"time"

	"github.com/go-kit/log"

	"github.com/samas-it-services/smart-search/pkg/adapters/memory"
	"github.com/samas-it-services/smart-search/pkg/breaker"
	"github.com/samas-it-services/smart-search/pkg/smartsearch/types"
)

func newTestLayer(maxValueBytes int) (*Layer, *memory.Cache) {
	cache := memory.NewCache()
	br := breaker.New("cache", breaker.Config{Threshold: 2, RecoveryTimeout: 20 * time.Millisecond})
	return New(cache, br, log.NewNopLogger(), maxValueBytes), cache
}

func TestTrySetThenTryGetRoundTrips(t *testing.T) {
	layer, _ := newTestLayer(0)
	env := types.ResultEnvelope{Results: []types.SearchResult{{ID: "1", Title: "go"}}}

	layer.TrySet(context.Background(), "k", env, time.Minute)

	got, hit := layer.TryGet(context.Background(), "k")
	if !hit {
		t.Fatalf("expected a cache hit after TrySet")
	}
	if len(got.Results) != 1 || got.Results[0].ID != "1" {
		t.Fatalf("unexpected round-tripped envelope: %+v", got)
	}
}

// TestLargeEntryBypassesCache is scenario S6 from spec.md §8: a result
// set whose serialized size exceeds maxValueBytes must not be cached,
// but the write must not be treated as a cache failure either.
func TestLargeEntryBypassesCache(t *testing.T) {
	layer, cache := newTestLayer(64)

	big := make([]types.SearchResult, 20)
	for i := range big {
		big[i] = types.SearchResult{ID: "id", Title: "a very long title that pads out the serialized size considerably"}
	}
	env := types.ResultEnvelope{Results: big}

	layer.TrySet(context.Background(), "k", env, time.Minute)

	if _, hit := layer.TryGet(context.Background(), "k"); hit {
		t.Fatalf("expected oversized entry to be skipped, not cached")
	}
	if layer.breaker.State().State != breaker.StateClosed {
		t.Fatalf("skipping an oversized write must not trip the breaker")
	}
	_ = cache
}

func TestTryGetMissOnBreakerOpen(t *testing.T) {
	layer, _ := newTestLayer(0)

	for i := 0; i < 2; i++ {
		permit, ok := layer.breaker.Allow()
		if !ok {
			t.Fatalf("expected breaker to allow attempt %d", i)
		}
		permit.Failure()
	}
	if layer.breaker.State().State != breaker.StateOpen {
		t.Fatalf("expected breaker open after repeated failures")
	}

	if _, hit := layer.TryGet(context.Background(), "k"); hit {
		t.Fatalf("expected a miss while the breaker is open")
	}
}
