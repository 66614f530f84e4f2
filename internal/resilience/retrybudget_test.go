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

func TestRetryBudgetEnforcesTotal(t *testing.T) {
	b := NewRetryBudget(RetryBudgetConfig{Total: 2, Window: time.Minute})

	require.NoError(t, b.Take("llm.translate"))
	require.NoError(t, b.Take("llm.translate"))

	err := b.Take("llm.translate")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBudgetExceeded)
}

func TestRetryBudgetIsolatesByOperation(t *testing.T) {
	b := NewRetryBudget(RetryBudgetConfig{Total: 1, Window: time.Minute})

	require.NoError(t, b.Take("llm.translate"))
	require.NoError(t, b.Take("llm.reflect"), "different operation keys should have independent budgets")
}

func TestRetryBudgetWindowExpiry(t *testing.T) {
	b := NewRetryBudget(RetryBudgetConfig{Total: 1, Window: 5 * time.Millisecond})

	require.NoError(t, b.Take("llm.translate"))
	require.Error(t, b.Take("llm.translate"))

	time.Sleep(10 * time.Millisecond)
	assert.NoError(t, b.Take("llm.translate"), "budget should refresh after the window elapses")
}

func TestRetryBudgetRemaining(t *testing.T) {
	b := NewRetryBudget(RetryBudgetConfig{Total: 3, Window: time.Minute})
	assert.Equal(t, 3, b.Remaining("llm.translate"))

	require.NoError(t, b.Take("llm.translate"))
	assert.Equal(t, 2, b.Remaining("llm.translate"))
}

func TestRetryBudgetDefaults(t *testing.T) {
	b := NewRetryBudget(RetryBudgetConfig{})
	assert.Equal(t, 100, b.config.Total)
	assert.Equal(t, 10*time.Minute, b.config.Window)
}
