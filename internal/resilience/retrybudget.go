// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrBudgetExceeded is returned by RetryBudget.Take when the rolling
// window has no remaining allowance for operation.
var ErrBudgetExceeded = errors.New("retry budget exceeded")

// RetryBudgetConfig bounds the number of retry attempts allowed per
// operation kind within a rolling time window. Ported 1:1 from
// zenus_core/error/retry_budget.py's RetryBudget defaults.
type RetryBudgetConfig struct {
	// Total is the maximum number of retries allowed within Window.
	// Default: 100.
	Total int

	// Window is the rolling period over which Total is enforced.
	// Default: 10 minutes.
	Window time.Duration
}

func (c RetryBudgetConfig) withDefaults() RetryBudgetConfig {
	if c.Total <= 0 {
		c.Total = 100
	}
	if c.Window <= 0 {
		c.Window = 10 * time.Minute
	}
	return c
}

// RetryBudget enforces a global cap on retry attempts per operation
// kind, independent of per-provider circuit breaker state. It
// prevents a degraded provider from burning unbounded wall-clock time
// in retries even while its circuit remains closed.
type RetryBudget struct {
	config RetryBudgetConfig

	mu         sync.Mutex
	timestamps map[string][]time.Time
}

// NewRetryBudget creates a RetryBudget with the given config.
func NewRetryBudget(config RetryBudgetConfig) *RetryBudget {
	return &RetryBudget{
		config:     config.withDefaults(),
		timestamps: make(map[string][]time.Time),
	}
}

// Take records a retry attempt for operation and returns
// ErrBudgetExceeded if the rolling window is already at capacity.
func (b *RetryBudget) Take(operation string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-b.config.Window)
	kept := b.timestamps[operation][:0]
	for _, ts := range b.timestamps[operation] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= b.config.Total {
		b.timestamps[operation] = kept
		retryBudgetExhaustedTotal.WithLabelValues(operation).Inc()
		return fmt.Errorf("%s: %w (limit %d per %s)", operation, ErrBudgetExceeded, b.config.Total, b.config.Window)
	}

	b.timestamps[operation] = append(kept, now)
	retryAttemptsTotal.WithLabelValues(operation).Inc()
	return nil
}

// Remaining reports how many attempts are left in the current window
// for operation.
func (b *RetryBudget) Remaining(operation string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := time.Now().Add(-b.config.Window)
	count := 0
	for _, ts := range b.timestamps[operation] {
		if ts.After(cutoff) {
			count++
		}
	}
	remaining := b.config.Total - count
	if remaining < 0 {
		return 0
	}
	return remaining
}
