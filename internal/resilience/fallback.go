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
	"errors"
	"fmt"

	"github.com/zenus-ai/zenus/internal/telemetry"
)

// ErrAllFallbacksFailed is returned by Chain.Run when every provider
// in the chain was either open-circuited or exhausted its retries.
var ErrAllFallbacksFailed = errors.New("all fallback providers failed")

// Attempt is a single named operation a Chain can run against a
// provider, e.g. an LLM translate/reflect call.
type Attempt func(ctx context.Context, provider string) error

// Chain composes a CircuitBreaker Registry, a RetryBudget, and a
// Retrier to walk an ordered list of providers: skip any whose
// breaker is open, retry each attempted provider with backoff up to
// its retry budget, and fall through to the next provider on
// exhaustion.
type Chain struct {
	breakers  *Registry
	budget    *RetryBudget
	backoff   BackoffConfig
	operation string
	limiter   *Limiter
}

// NewChain creates a fallback chain for a named operation kind (used
// as the RetryBudget bucket key, e.g. "llm.translate").
func NewChain(operation string, breakers *Registry, budget *RetryBudget, backoff BackoffConfig) *Chain {
	return &Chain{
		operation: operation,
		breakers:  breakers,
		budget:    budget,
		backoff:   backoff.withDefaults(),
	}
}

// WithLimiter attaches a rate limiter that every attempt must
// acquire a token from before dispatch, regardless of circuit or
// budget state. Returns c for chaining. A nil limiter leaves the
// chain unbounded.
func (c *Chain) WithLimiter(limiter *Limiter) *Chain {
	c.limiter = limiter
	return c
}

// Run walks providers in order, invoking attempt against the first
// whose circuit is closed (or half-open for a probe), retrying with
// backoff within the shared retry budget. It returns nil on the first
// success, or ErrAllFallbacksFailed wrapping the last error if every
// provider is exhausted.
func (c *Chain) Run(ctx context.Context, providers []string, attempt Attempt) error {
	var lastErr error
	retrier := NewRetrier(c.backoff)

	for _, provider := range providers {
		breaker := c.breakers.Get(provider)
		breaker.SetOnTransition(func(provider string, state State) {
			telemetry.AddEvent(ctx, "circuitbreaker.transition", map[string]string{
				"provider": provider,
				"state":    state.String(),
				"chain":    c.operation,
			})
		})
		if err := breaker.Allow(); err != nil {
			lastErr = err
			continue
		}

		err := retrier.Do(ctx, c.operation, func(attemptNum int) error {
			if attemptNum > 1 {
				if budgetErr := c.budget.Take(c.operation); budgetErr != nil {
					return budgetErr
				}
			}
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
			return attempt(ctx, provider)
		})

		if err == nil {
			breaker.RecordSuccess()
			return nil
		}

		breaker.RecordFailure()
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no providers configured for %s", c.operation)
	}
	return fmt.Errorf("%s: %w: %v", c.operation, ErrAllFallbacksFailed, lastErr)
}
