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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffConfigDelayGrowthWithoutJitter(t *testing.T) {
	c := BackoffConfig{InitialDelay: time.Second, MaxDelay: time.Minute, Base: 2.0, Jitter: false}

	assert.Equal(t, time.Duration(0), c.Delay(1))
	assert.Equal(t, time.Second, c.Delay(2))
	assert.Equal(t, 2*time.Second, c.Delay(3))
	assert.Equal(t, 4*time.Second, c.Delay(4))
}

func TestBackoffConfigDelayCapsAtMax(t *testing.T) {
	c := BackoffConfig{InitialDelay: time.Second, MaxDelay: 3 * time.Second, Base: 2.0, Jitter: false}
	assert.Equal(t, 3*time.Second, c.Delay(10))
}

func TestBackoffConfigJitterStaysInBounds(t *testing.T) {
	c := BackoffConfig{InitialDelay: time.Second, MaxDelay: time.Minute, Base: 2.0, Jitter: true}
	for i := 0; i < 50; i++ {
		d := c.Delay(2)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 2*time.Second)
	}
}

func TestRetrierSucceedsOnSecondAttempt(t *testing.T) {
	r := NewRetrier(BackoffConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, Jitter: false})
	attempts := 0
	err := r.Do(context.Background(), "test.op", func(attempt int) error {
		attempts++
		if attempt < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetrierReturnsLastErrorAfterExhaustion(t *testing.T) {
	r := NewRetrier(BackoffConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, Jitter: false})
	sentinel := errors.New("permanent")
	attempts := 0
	err := r.Do(context.Background(), "test.op", func(attempt int) error {
		attempts++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 2, attempts)
}

func TestRetrierRespectsContextCancellation(t *testing.T) {
	r := NewRetrier(BackoffConfig{MaxAttempts: 5, InitialDelay: time.Second, Jitter: false})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := r.Do(ctx, "test.op", func(attempt int) error {
		attempts++
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 0, attempts, "an already-canceled context should short-circuit before the first attempt")
}
