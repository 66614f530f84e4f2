// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resilience implements the per-provider circuit breaker,
// per-operation-kind retry budget, exponential-backoff retrier, and
// fallback chain that sit between the plan executor and the LLM
// abstraction.
//
// # Description
//
// The four primitives compose: a fallback chain walks an ordered list
// of providers, skipping any whose circuit breaker is open without
// consuming retry budget, and retries each attempted provider with
// exponential backoff up to its own per-operation-kind budget.
//
// # State Diagram
//
//	CLOSED ──[failure threshold]──► OPEN ◄──[any failure]──┐
//	   ▲                             │                    │
//	   │                     [timeout elapsed]            │
//	   │                             ▼                    │
//	   └────[success threshold]── HALF_OPEN ──────────────┘
//
// # Thread Safety
//
// CircuitBreaker and RetryBudget are safe for concurrent use; all
// mutable counters are protected by a mutex. No lock is held across
// the caller's function invocation.
package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is one of the three circuit breaker states.
type State int

const (
	// StateClosed is normal operation: requests flow through.
	StateClosed State = iota

	// StateOpen rejects requests immediately until the timeout elapses.
	StateOpen

	// StateHalfOpen allows probe requests to test recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// CircuitBreakerConfig configures threshold and timeout behavior.
// Zero values are replaced with the documented defaults by
// NewCircuitBreaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is consecutive failures before opening.
	// Default: 5.
	FailureThreshold int

	// SuccessThreshold is consecutive successes in half-open before
	// closing. Default: 2.
	SuccessThreshold int

	// OpenTimeout is how long the circuit stays open before allowing a
	// half-open probe. Default: 60s.
	OpenTimeout time.Duration
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 60 * time.Second
	}
	return c
}

// ErrCircuitOpen is returned by Allow when the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Stats is a point-in-time snapshot of a CircuitBreaker's counters.
type Stats struct {
	Provider       string
	State          State
	FailureCount   int
	SuccessCount   int
	TotalRequests  int64
	TotalFailures  int64
	TotalSuccesses int64
	OpenedAt       time.Time
}

// FailureRate returns TotalFailures/TotalRequests, or 0 if no
// requests have been made.
func (s Stats) FailureRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.TotalFailures) / float64(s.TotalRequests)
}

// CircuitBreaker guards calls to a single named provider.
type CircuitBreaker struct {
	provider string
	config   CircuitBreakerConfig

	mu             sync.Mutex
	state          State
	failureCount   int
	successCount   int
	totalRequests  int64
	totalFailures  int64
	totalSuccesses int64
	openedAt       time.Time

	// onTransition, if set, is called after every state change with the
	// provider name and new state. internal/telemetry uses this to
	// record circuit breaker transitions as span events.
	onTransition func(provider string, state State)
}

// SetOnTransition installs a callback invoked after every state
// transition. Passing nil disables the callback.
func (b *CircuitBreaker) SetOnTransition(fn func(provider string, state State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTransition = fn
}

// NewCircuitBreaker creates a breaker for provider, starting closed.
func NewCircuitBreaker(provider string, config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		provider: provider,
		config:   config.withDefaults(),
		state:    StateClosed,
	}
}

// Allow reports whether a request may proceed. If the circuit is open
// and the timeout has elapsed, Allow transitions to half-open and
// permits the probe. Call RecordSuccess/RecordFailure after the
// attempt to advance state.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalRequests++

	if b.state == StateOpen {
		if time.Since(b.openedAt) >= b.config.OpenTimeout {
			b.state = StateHalfOpen
			b.successCount = 0
			circuitStateGauge.WithLabelValues(b.provider).Set(float64(StateHalfOpen))
			if b.onTransition != nil {
				b.onTransition(b.provider, StateHalfOpen)
			}
			return nil
		}
		return fmt.Errorf("%s: %w", b.provider, ErrCircuitOpen)
	}
	return nil
}

// RecordSuccess advances the breaker's state after a successful call.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalSuccesses++

	switch b.state {
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.config.SuccessThreshold {
			b.closeLocked()
		}
	case StateClosed:
		b.failureCount = 0
	}
}

// RecordFailure advances the breaker's state after a failed call.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalFailures++

	switch b.state {
	case StateHalfOpen:
		b.openLocked()
	case StateClosed:
		b.failureCount++
		if b.failureCount >= b.config.FailureThreshold {
			b.openLocked()
		}
	}
}

func (b *CircuitBreaker) openLocked() {
	b.state = StateOpen
	b.openedAt = time.Now()
	b.failureCount = 0
	b.successCount = 0
	circuitStateGauge.WithLabelValues(b.provider).Set(float64(StateOpen))
	if b.onTransition != nil {
		b.onTransition(b.provider, StateOpen)
	}
}

func (b *CircuitBreaker) closeLocked() {
	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
	b.openedAt = time.Time{}
	circuitStateGauge.WithLabelValues(b.provider).Set(float64(StateClosed))
	if b.onTransition != nil {
		b.onTransition(b.provider, StateClosed)
	}
}

// State returns the breaker's current state.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns a snapshot of the breaker's counters.
func (b *CircuitBreaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Provider:       b.provider,
		State:          b.state,
		FailureCount:   b.failureCount,
		SuccessCount:   b.successCount,
		TotalRequests:  b.totalRequests,
		TotalFailures:  b.totalFailures,
		TotalSuccesses: b.totalSuccesses,
		OpenedAt:       b.openedAt,
	}
}

// Reset forces the breaker back to closed, for tests and operator
// intervention.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeLocked()
}

// Registry holds one CircuitBreaker per provider name, replacing the
// source system's module-level dict of breakers with an explicit,
// constructor-injected value (see SPEC_FULL.md's "global singletons"
// redesign note).
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	config   CircuitBreakerConfig
}

// NewRegistry creates an empty Registry; breakers are created lazily
// on first Get with the given default config.
func NewRegistry(defaultConfig CircuitBreakerConfig) *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		config:   defaultConfig,
	}
}

// Get returns the CircuitBreaker for provider, creating one with the
// registry's default config if it does not yet exist.
func (r *Registry) Get(provider string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[provider]
	if !ok {
		b = NewCircuitBreaker(provider, r.config)
		r.breakers[provider] = b
	}
	return b
}

// All returns a snapshot of every breaker's stats, for CLI/health
// reporting.
func (r *Registry) All() map[string]Stats {
	r.mu.Lock()
	providers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		providers = append(providers, b)
	}
	r.mu.Unlock()

	out := make(map[string]Stats, len(providers))
	for _, b := range providers {
		out[b.provider] = b.Stats()
	}
	return out
}
