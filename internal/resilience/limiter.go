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

	"golang.org/x/time/rate"
)

// Limiter rate-limits outbound provider requests independently of the
// circuit breaker and retry budget: even a closed-circuit,
// budget-available call waits for a token before dispatch. It is a
// token bucket, so it limits how often requests start, not how many
// are in flight at once.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter creates a Limiter refilling at ratePerSecond tokens/sec
// with burst capacity burst. ratePerSecond <= 0 means unlimited.
func NewLimiter(ratePerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	if ratePerSecond <= 0 {
		return &Limiter{rl: rate.NewLimiter(rate.Inf, burst)}
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Wait blocks until a token is available or ctx is done. A nil
// receiver is treated as unlimited.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.rl == nil {
		return nil
	}
	return l.rl.Wait(ctx)
}
