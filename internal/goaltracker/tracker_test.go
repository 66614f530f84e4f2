// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package goaltracker

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenus-ai/zenus/internal/executor"
	"github.com/zenus-ai/zenus/internal/llm"
	"github.com/zenus-ai/zenus/internal/recovery"
	"github.com/zenus-ai/zenus/internal/resilience"
	"github.com/zenus-ai/zenus/internal/toolregistry"
)

// stubProvider always returns the same translate/reflect text,
// regardless of input, so tests can script a fixed sequence of
// reflections via a counter closure.
type stubProvider struct {
	name        string
	translateFn func(callNum int) (string, error)
	reflectFn   func(callNum int) (string, error)
	translateN  int
	reflectN    int
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Translate(_ context.Context, _ string) (string, error) {
	s.translateN++
	return s.translateFn(s.translateN)
}
func (s *stubProvider) Reflect(_ context.Context, _ string) (string, error) {
	s.reflectN++
	return s.reflectFn(s.reflectN)
}

type noopTool struct{}

func (noopTool) Name() string { return "FileOps" }
func (noopTool) Actions() map[string]toolregistry.ActionFunc {
	return map[string]toolregistry.ActionFunc{
		"scan": func(_ context.Context, _ map[string]any) (string, error) { return "ok", nil },
	}
}

func newTestExecutor() *executor.Executor {
	registry := toolregistry.New(noopTool{})
	return executor.New(registry, recovery.New(1, resilience.BackoffConfig{}), nil, nil)
}

const fixedIntentJSON = `{"goal":"list files","requires_confirmation":false,"steps":[{"tool":"FileOps","action":"scan","args":{"path":"/tmp"},"risk":0}]}`

func TestRun_AchievedTerminatesEarly(t *testing.T) {
	provider := &stubProvider{
		name:        "test",
		translateFn: func(_ int) (string, error) { return fixedIntentJSON, nil },
		reflectFn: func(_ int) (string, error) {
			return "ACHIEVED: Yes\nCONFIDENCE: 0.9\nREASONING: done\nNEXT_STEPS: None", nil
		},
	}
	router := llm.NewRouter(llm.RouterConfig{
		Providers:  []llm.Provider{provider},
		CheapOrder: []string{"test"},
		Classifier: llm.NewComplexityClassifier("cheap", "powerful"),
		Breakers:   resilience.NewRegistry(resilience.CircuitBreakerConfig{}),
		Budget:     resilience.NewRetryBudget(resilience.RetryBudgetConfig{}),
	})

	tracker := New(router, newTestExecutor(), Config{MaxIterations: 10}, nil)
	result, err := tracker.Run(context.Background(), "list files in /tmp")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAchieved, result.Outcome)
	assert.Len(t, result.Iterations, 1)
}

func TestRun_ExhaustsAtMaxIterations(t *testing.T) {
	provider := &stubProvider{
		name:        "test",
		translateFn: func(_ int) (string, error) { return fixedIntentJSON, nil },
		reflectFn: func(_ int) (string, error) {
			return "ACHIEVED: No\nCONFIDENCE: 0.4\nREASONING: still working\nNEXT_STEPS: keep going", nil
		},
	}
	router := llm.NewRouter(llm.RouterConfig{
		Providers:  []llm.Provider{provider},
		CheapOrder: []string{"test"},
		Classifier: llm.NewComplexityClassifier("cheap", "powerful"),
		Breakers:   resilience.NewRegistry(resilience.CircuitBreakerConfig{}),
		Budget:     resilience.NewRetryBudget(resilience.RetryBudgetConfig{}),
	})

	tracker := New(router, newTestExecutor(), Config{MaxIterations: 3}, nil)
	result, err := tracker.Run(context.Background(), "analyze the codebase")
	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, result.Outcome)
	assert.Contains(t, result.Reasoning, "Maximum iterations")
	assert.Len(t, result.Iterations, 3)
	assert.Equal(t, 3, provider.translateN, "must not call the LLM more than MaxIterations times")
}

func TestRun_StuckWhenNoNextSteps(t *testing.T) {
	provider := &stubProvider{
		name:        "test",
		translateFn: func(_ int) (string, error) { return fixedIntentJSON, nil },
		reflectFn: func(_ int) (string, error) {
			return "ACHIEVED: No\nCONFIDENCE: 0.3\nREASONING: cannot proceed\nNEXT_STEPS: None", nil
		},
	}
	router := llm.NewRouter(llm.RouterConfig{
		Providers:  []llm.Provider{provider},
		CheapOrder: []string{"test"},
		Classifier: llm.NewComplexityClassifier("cheap", "powerful"),
		Breakers:   resilience.NewRegistry(resilience.CircuitBreakerConfig{}),
		Budget:     resilience.NewRetryBudget(resilience.RetryBudgetConfig{}),
	})

	tracker := New(router, newTestExecutor(), Config{MaxIterations: 10}, nil)
	result, err := tracker.Run(context.Background(), "do something impossible")
	require.NoError(t, err)
	assert.Equal(t, OutcomeStuck, result.Outcome)
	assert.Len(t, result.Iterations, 1)
}

func TestRun_TranslationErrorPropagates(t *testing.T) {
	provider := &stubProvider{
		name:        "test",
		translateFn: func(_ int) (string, error) { return "not json at all", nil },
		reflectFn:   func(_ int) (string, error) { return "", fmt.Errorf("unused") },
	}
	router := llm.NewRouter(llm.RouterConfig{
		Providers:  []llm.Provider{provider},
		CheapOrder: []string{"test"},
		Classifier: llm.NewComplexityClassifier("cheap", "powerful"),
		Breakers:   resilience.NewRegistry(resilience.CircuitBreakerConfig{}),
		Budget:     resilience.NewRetryBudget(resilience.RetryBudgetConfig{}),
	})

	tracker := New(router, newTestExecutor(), Config{MaxIterations: 10}, nil)
	_, err := tracker.Run(context.Background(), "garbled")
	require.Error(t, err)
}
