package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client), mr
}

func TestSetThenGetRoundTrips(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "search:v1:abc", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	raw, found, err := c.Get(ctx, "search:v1:abc")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found {
		t.Fatalf("expected entry to be found")
	}
	if string(raw) != "payload" {
		t.Fatalf("unexpected payload: %q", raw)
	}
}

func TestGetMissReturnsFalseNotError(t *testing.T) {
	c, _ := newTestCache(t)

	_, found, err := c.Get(context.Background(), "search:v1:missing")
	if err != nil {
		t.Fatalf("expected a miss, not an error: %v", err)
	}
	if found {
		t.Fatalf("expected found=false for a missing key")
	}
}

func TestClearRemovesMatchingPrefix(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "search:v1:articles:1", []byte("a"), time.Minute)
	_ = c.Set(ctx, "search:v1:articles:2", []byte("b"), time.Minute)
	_ = c.Set(ctx, "search:v1:videos:1", []byte("c"), time.Minute)

	if err := c.Clear(ctx, "search:v1:articles:*"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	if _, found, _ := c.Get(ctx, "search:v1:articles:1"); found {
		t.Fatalf("expected articles:1 to be cleared")
	}
	if _, found, _ := c.Get(ctx, "search:v1:videos:1"); !found {
		t.Fatalf("expected videos:1 to survive the clear")
	}
}

func TestHealthProbeReportsConnected(t *testing.T) {
	c, mr := newTestCache(t)

	snap, err := c.HealthProbe(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snap.IsConnected {
		t.Fatalf("expected connected snapshot while miniredis is up")
	}

	mr.Close()
	snap, err = c.HealthProbe(context.Background())
	if err != nil {
		t.Fatalf("HealthProbe should report failure in the snapshot, not return an error: %v", err)
	}
	if snap.IsConnected {
		t.Fatalf("expected disconnected snapshot after miniredis shutdown")
	}
}
