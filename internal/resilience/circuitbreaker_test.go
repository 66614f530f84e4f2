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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAtExactThreshold(t *testing.T) {
	b := NewCircuitBreaker("openai", CircuitBreakerConfig{FailureThreshold: 3})

	for i := 0; i < 2; i++ {
		require.NoError(t, b.Allow())
		b.RecordFailure()
		assert.Equal(t, StateClosed, b.State(), "should remain closed before threshold")
	}

	require.NoError(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State(), "should open at exactly the configured count")
}

func TestCircuitBreakerSetOnTransition_FiresOnOpenAndClose(t *testing.T) {
	b := NewCircuitBreaker("anthropic", CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1})

	var transitions []State
	b.SetOnTransition(func(provider string, state State) {
		assert.Equal(t, "anthropic", provider)
		transitions = append(transitions, state)
	})

	require.NoError(t, b.Allow())
	b.RecordFailure()
	require.Equal(t, []State{StateOpen}, transitions)

	b.config.OpenTimeout = 0
	require.NoError(t, b.Allow())
	require.Equal(t, []State{StateOpen, StateHalfOpen}, transitions)

	b.RecordSuccess()
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestCircuitBreakerSetOnTransition_NilDisablesCallback(t *testing.T) {
	b := NewCircuitBreaker("ollama", CircuitBreakerConfig{FailureThreshold: 1})
	b.SetOnTransition(func(provider string, state State) { t.Fatal("should not be called") })
	b.SetOnTransition(nil)

	require.NoError(t, b.Allow())
	assert.NotPanics(t, b.RecordFailure)
}

func TestCircuitBreakerRejectsWhileOpen(t *testing.T) {
	b := NewCircuitBreaker("openai", CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Hour})
	require.NoError(t, b.Allow())
	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())

	err := b.Allow()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreakerHalfOpenAfterTimeout(t *testing.T) {
	b := NewCircuitBreaker("openai", CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Millisecond})
	require.NoError(t, b.Allow())
	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestCircuitBreakerClosesAfterSuccessThreshold(t *testing.T) {
	b := NewCircuitBreaker("openai", CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		OpenTimeout:      time.Millisecond,
	})
	require.NoError(t, b.Allow())
	b.RecordFailure()
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, b.Allow())
	require.Equal(t, StateHalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, StateHalfOpen, b.State(), "one success should not close before success threshold")

	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewCircuitBreaker("openai", CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Millisecond})
	require.NoError(t, b.Allow())
	b.RecordFailure()
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, b.Allow())
	require.Equal(t, StateHalfOpen, b.State())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
}

func TestCircuitBreakerDefaults(t *testing.T) {
	b := NewCircuitBreaker("anthropic", CircuitBreakerConfig{})
	assert.Equal(t, 5, b.config.FailureThreshold)
	assert.Equal(t, 2, b.config.SuccessThreshold)
	assert.Equal(t, 60*time.Second, b.config.OpenTimeout)
}

func TestCircuitBreakerStatsFailureRate(t *testing.T) {
	b := NewCircuitBreaker("openai", CircuitBreakerConfig{FailureThreshold: 10})
	require.NoError(t, b.Allow())
	b.RecordSuccess()
	require.NoError(t, b.Allow())
	b.RecordFailure()

	stats := b.Stats()
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, 0.5, stats.FailureRate())
}

func TestCircuitBreakerReset(t *testing.T) {
	b := NewCircuitBreaker("openai", CircuitBreakerConfig{FailureThreshold: 1})
	require.NoError(t, b.Allow())
	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestRegistryGetCreatesLazily(t *testing.T) {
	reg := NewRegistry(CircuitBreakerConfig{FailureThreshold: 2})
	a := reg.Get("openai")
	b := reg.Get("openai")
	assert.Same(t, a, b, "Get should return the same breaker for the same provider")

	all := reg.All()
	require.Contains(t, all, "openai")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
}
