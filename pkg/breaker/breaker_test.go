package breaker

import (
	"testing"
	"time"
)

func TestOpensAfterThresholdConsecutiveFailures(t *testing.T) {
	b := New("db", Config{Threshold: 3, RecoveryTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		permit, ok := b.Allow()
		if !ok {
			t.Fatalf("expected allow while closed, attempt %d", i)
		}
		permit.Failure()
	}

	if got := b.State().State; got != StateOpen {
		t.Fatalf("expected breaker open after %d consecutive failures, got %s", 3, got)
	}

	if _, ok := b.Allow(); ok {
		t.Fatalf("expected allow to deny requests while open")
	}
}

func TestSuccessResetsConsecutiveFailureCount(t *testing.T) {
	b := New("db", Config{Threshold: 3, RecoveryTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		permit, _ := b.Allow()
		permit.Failure()
	}

	permit, _ := b.Allow()
	permit.Success()

	if got := b.State().State; got != StateClosed {
		t.Fatalf("expected breaker to remain closed, got %s", got)
	}

	for i := 0; i < 2; i++ {
		permit, _ := b.Allow()
		permit.Failure()
	}
	if got := b.State().State; got != StateClosed {
		t.Fatalf("expected breaker still closed after reset + 2 failures, got %s", got)
	}
}

func TestHalfOpenAllowsOneProbeThenCloses(t *testing.T) {
	b := New("cache", Config{Threshold: 1, RecoveryTimeout: 10 * time.Millisecond, HalfOpenProbes: 1})

	permit, _ := b.Allow()
	permit.Failure()
	if got := b.State().State; got != StateOpen {
		t.Fatalf("expected open, got %s", got)
	}

	time.Sleep(20 * time.Millisecond)

	probe, ok := b.Allow()
	if !ok {
		t.Fatalf("expected a half-open probe to be allowed after recovery timeout")
	}
	probe.Success()

	if got := b.State().State; got != StateClosed {
		t.Fatalf("expected breaker closed after successful half-open probe, got %s", got)
	}
}

func TestHalfOpenProbeFailureReopens(t *testing.T) {
	b := New("cache", Config{Threshold: 1, RecoveryTimeout: 10 * time.Millisecond, HalfOpenProbes: 1})

	permit, _ := b.Allow()
	permit.Failure()
	time.Sleep(20 * time.Millisecond)

	probe, ok := b.Allow()
	if !ok {
		t.Fatalf("expected half-open probe to be allowed")
	}
	probe.Failure()

	if got := b.State().State; got != StateOpen {
		t.Fatalf("expected breaker back to open after failed probe, got %s", got)
	}
}
