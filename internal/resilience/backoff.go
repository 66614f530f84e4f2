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
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffConfig controls exponential backoff with optional jitter,
// ported 1:1 from zenus_core/error/retry_budget.py's delay formula:
// delay = min(initial * base^(attempt-1), max) * uniform[0.5, 1.5)
// when jitter is enabled.
type BackoffConfig struct {
	// MaxAttempts is the number of attempts including the first.
	// Default: 3.
	MaxAttempts int

	// InitialDelay is the delay before the second attempt.
	// Default: 1s.
	InitialDelay time.Duration

	// MaxDelay caps the computed delay. Default: 30s.
	MaxDelay time.Duration

	// Base is the exponential growth factor. Default: 2.0.
	Base float64

	// Jitter enables uniform jitter in [0.5, 1.5) applied to the
	// computed delay. Default: false (withDefaults leaves it unset).
	Jitter bool
}

func (c BackoffConfig) withDefaults() BackoffConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Base <= 0 {
		c.Base = 2.0
	}
	return c
}

// Delay computes the backoff delay before attempt (1-indexed: the
// delay preceding the attempt'th try). Delay(1) is always 0.
func (c BackoffConfig) Delay(attempt int) time.Duration {
	c = c.withDefaults()
	if attempt <= 1 {
		return 0
	}
	raw := float64(c.InitialDelay) * math.Pow(c.Base, float64(attempt-2))
	if raw > float64(c.MaxDelay) {
		raw = float64(c.MaxDelay)
	}
	if c.Jitter {
		raw *= 0.5 + rand.Float64()
	}
	return time.Duration(raw)
}

// Retrier runs fn up to config.MaxAttempts times, sleeping the
// computed backoff delay between attempts and stopping early if ctx
// is canceled or fn returns a nil error.
type Retrier struct {
	config BackoffConfig
}

// NewRetrier creates a Retrier with the given config.
func NewRetrier(config BackoffConfig) *Retrier {
	return &Retrier{config: config.withDefaults()}
}

// Do runs fn, retrying on error up to MaxAttempts times. It returns
// the last error if every attempt fails, or nil on the first success.
func (r *Retrier) Do(ctx context.Context, operation string, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := r.config.Delay(attempt)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}
