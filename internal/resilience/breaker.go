// Package resilience shields the generation pipeline from flapping provider
// backends. A three-state circuit breaker (closed, open, half-open) guards
// each backend, and provider chains compose several backends so a tripped
// primary is bypassed in favour of the next healthy one.
//
// This sits below the availability monitor: the monitor decides which model
// to ask for, the breaker decides whether asking the backend at all is worth
// it right now.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned without invoking the call while a breaker is
// open and its cool-down has not elapsed.
var ErrBreakerOpen = errors.New("resilience: circuit breaker open")

// BreakerState is the operating mode of a Breaker.
type BreakerState int

const (
	// BreakerClosed forwards every call.
	BreakerClosed BreakerState = iota

	// BreakerOpen rejects calls until the cool-down elapses.
	BreakerOpen

	// BreakerHalfOpen lets a bounded number of probe calls through to decide
	// between closing and re-opening.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a Breaker. Zero fields take defaults.
type BreakerConfig struct {
	// Name labels the breaker in logs.
	Name string

	// TripAfter is the consecutive-failure count that opens the breaker.
	// Default 5.
	TripAfter int

	// CoolDown is how long the breaker stays open before probing. Default
	// 30s.
	CoolDown time.Duration

	// ProbeBudget bounds the probe calls allowed while half-open. Default 3.
	ProbeBudget int
}

// Breaker is a classic three-state circuit breaker.
type Breaker struct {
	name        string
	tripAfter   int
	coolDown    time.Duration
	probeBudget int

	mu         sync.Mutex
	state      BreakerState
	failStreak int
	openedAt   time.Time
	probesSent int
	probeFails int
}

// NewBreaker creates a closed Breaker from cfg.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.TripAfter <= 0 {
		cfg.TripAfter = 5
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 30 * time.Second
	}
	if cfg.ProbeBudget <= 0 {
		cfg.ProbeBudget = 3
	}
	return &Breaker{
		name:        cfg.Name,
		tripAfter:   cfg.TripAfter,
		coolDown:    cfg.CoolDown,
		probeBudget: cfg.ProbeBudget,
	}
}

// Do runs fn unless the breaker rejects the call. Failures and successes
// feed the state machine.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case BreakerOpen:
		if time.Since(b.openedAt) < b.coolDown {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		b.state = BreakerHalfOpen
		b.probesSent = 0
		b.probeFails = 0
		slog.Info("circuit breaker half-open", "name", b.name)
	case BreakerHalfOpen:
		if b.probesSent >= b.probeBudget {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
	}
	probing := b.state == BreakerHalfOpen
	if probing {
		b.probesSent++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure(probing)
	} else {
		b.onSuccess(probing)
	}
	return err
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure(probing bool) {
	b.openedAt = time.Now()
	if probing {
		// One failed probe re-opens immediately.
		b.probeFails++
		b.state = BreakerOpen
		b.failStreak = b.tripAfter
		slog.Warn("circuit breaker re-opened", "name", b.name)
		return
	}
	b.failStreak++
	if b.failStreak >= b.tripAfter {
		b.state = BreakerOpen
		slog.Warn("circuit breaker opened", "name", b.name, "failStreak", b.failStreak)
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess(probing bool) {
	if probing {
		if b.probesSent-b.probeFails >= b.probeBudget {
			b.state = BreakerClosed
			b.failStreak = 0
			slog.Info("circuit breaker closed", "name", b.name)
		}
		return
	}
	b.failStreak = 0
}

// State reports the effective state. An open breaker past its cool-down
// reports half-open; the transition itself happens on the next Do.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(b.openedAt) >= b.coolDown {
		return BreakerHalfOpen
	}
	return b.state
}

// Reset forces the breaker closed and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failStreak = 0
	b.probesSent = 0
	b.probeFails = 0
}
