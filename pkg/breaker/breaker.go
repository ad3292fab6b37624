// Package breaker isolates a flapping or down backend without starving
// callers, built on top of github.com/sony/gobreaker.
package breaker

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// State mirrors spec.md's BreakerState enum.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Config holds the per-backend breaker configuration. Zero values are
// replaced with the documented defaults by New.
type Config struct {
	Threshold       uint32        // consecutive failures before opening; default 5
	RecoveryTimeout time.Duration // time open before allowing a half-open probe; default 60s
	HalfOpenProbes  uint32        // requests allowed through while half-open; default 1
}

func (c Config) withDefaults() Config {
	if c.Threshold == 0 {
		c.Threshold = 5
	}
	if c.RecoveryTimeout == 0 {
		c.RecoveryTimeout = 60 * time.Second
	}
	if c.HalfOpenProbes == 0 {
		c.HalfOpenProbes = 1
	}
	return c
}

// Snapshot is an observation of a breaker's current state, returned by
// Breaker.State and safe to read without holding any lock.
type Snapshot struct {
	State               State
	ConsecutiveFailures uint32
	OpenedAt            time.Time
	Config              Config
}

// Permit is the token returned by a successful Allow call. The caller
// must resolve it with exactly one of Success or Failure.
type Permit struct {
	done func(bool)
}

// Success records that the permitted operation succeeded.
func (p *Permit) Success() {
	if p != nil && p.done != nil {
		p.done(true)
	}
}

// Failure records that the permitted operation failed, timed out, or
// hit an unambiguous unavailability signal.
func (p *Permit) Failure() {
	if p != nil && p.done != nil {
		p.done(false)
	}
}

// Breaker guards one backend. A single instance is constructed per
// named backend at orchestrator construction time and is safe for
// concurrent use.
//
// spec.md describes the contract as allow()/recordSuccess()/
// recordFailure(), but under concurrent callers a parameterless
// recordSuccess/recordFailure can't tell which in-flight Allow() it
// resolves. We thread a per-call Permit instead, built on gobreaker's
// TwoStepCircuitBreaker (its Allow returns exactly this kind of
// per-call done callback, which is what that type exists for).
type Breaker struct {
	name string
	cfg  Config
	cb   *gobreaker.TwoStepCircuitBreaker

	mu       sync.Mutex
	openedAt time.Time
}

// New creates a Breaker named name with the given configuration.
func New(name string, cfg Config) *Breaker {
	cfg = cfg.withDefaults()
	b := &Breaker{name: name, cfg: cfg}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenProbes,
		Timeout:     cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Threshold
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				b.mu.Lock()
				b.openedAt = time.Now()
				b.mu.Unlock()
			}
		},
	}

	b.cb = gobreaker.NewTwoStepCircuitBreaker(st)
	return b
}

// Allow reports whether a caller may proceed to the backend right now.
// When ok is true, the returned Permit must be resolved with Success
// or Failure once the backend operation's outcome is known.
func (b *Breaker) Allow() (permit *Permit, ok bool) {
	done, err := b.cb.Allow()
	if err != nil {
		return nil, false
	}
	return &Permit{done: done}, true
}

// State returns a point-in-time observation of the breaker.
func (b *Breaker) State() Snapshot {
	counts := b.cb.Counts()

	b.mu.Lock()
	openedAt := b.openedAt
	b.mu.Unlock()

	return Snapshot{
		State:               fromGobreakerState(b.cb.State()),
		ConsecutiveFailures: counts.ConsecutiveFailures,
		OpenedAt:            openedAt,
		Config:              b.cfg,
	}
}

func fromGobreakerState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
