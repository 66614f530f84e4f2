// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package adaptive wraps internal/executor with per-step retry and a
// step-adaptation hook, ported from
// zenus_core/brain/adaptive_planner.py's AdaptivePlanner.
//
// # Description
//
// Unlike the executor's own error-recovery retries (which handle
// transient failures within one dispatch), Planner retries at the
// step level across full attempts: when a step fails after recovery
// has given up, Planner calls the caller's Adapt hook with the
// failing step, its result, and the execution history so far. If
// Adapt returns a replacement step, that step is retried in place of
// the original; when retries are exhausted without a successful
// adaptation, OnFailure is invoked once for the failed step and the
// plan aborts.
//
// # Thread Safety
//
// Planner is not safe for concurrent Run calls sharing one instance;
// construct one Planner per plan run, matching the Python original's
// per-invocation execution_history.
package adaptive

import (
	"context"
	"fmt"

	"github.com/zenus-ai/zenus/internal/executor"
	"github.com/zenus-ai/zenus/internal/logging"
	"github.com/zenus-ai/zenus/internal/schema"
	"github.com/zenus-ai/zenus/internal/zerrors"
)

// AdaptFunc is called when a step fails after recovery is exhausted.
// Returning a non-nil Step substitutes it for the next attempt;
// returning nil means no adaptation is possible, and the unmodified
// step is retried until MaxRetries is exhausted, after which it fails.
type AdaptFunc func(step schema.Step, result schema.StepResult, history schema.ExecutionHistory) *schema.Step

// OnFailureFunc is invoked once per exhausted step, after adaptation
// has been attempted and failed.
type OnFailureFunc func(step schema.Step, result schema.StepResult)

// HistoryEntry extends schema.HistoryEntry with the attempt number it
// was produced on, per spec.md §4.7's executionHistory.
type HistoryEntry struct {
	Step    schema.Step
	Result  schema.StepResult
	Attempt int
}

// Planner wraps an *executor.Executor with per-step retry and
// adaptation hooks.
type Planner struct {
	Executor    *executor.Executor
	MaxRetries  int
	Adapt       AdaptFunc
	OnFailure   OnFailureFunc
	Logger      *logging.Logger
	history     []HistoryEntry
}

// New builds a Planner. maxRetries <= 0 uses spec.md §4.7's default
// of 2.
func New(exec *executor.Executor, maxRetries int, logger *logging.Logger) *Planner {
	if maxRetries <= 0 {
		maxRetries = 2
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Planner{Executor: exec, MaxRetries: maxRetries, Logger: logger}
}

// History returns the accumulated (step, result, attempt) records for
// this planner's run so far.
func (p *Planner) History() []HistoryEntry {
	return p.history
}

// Run executes intent step by step (sequential only -- adaptation
// requires observing one step's outcome before the next is attempted,
// so Run never uses the executor's parallel-wave dispatch; a caller
// that wants wave-based dispatch without adaptation calls
// Executor.Run directly with executor.Config.Parallel set).
func (p *Planner) Run(ctx context.Context, intent schema.Intent, confirmed bool) ([]schema.StepResult, error) {
	if intent.RequiresConfirmation && !confirmed {
		return nil, fmt.Errorf("%w: plan requires confirmation", zerrors.ErrConfirmationRequired)
	}

	results := make([]schema.StepResult, len(intent.Steps))
	var execHistory schema.ExecutionHistory

	for idx, step := range intent.Steps {
		current := step
		var lastResult schema.StepResult
		var lastErr error

		for attempt := 0; attempt <= p.MaxRetries; attempt++ {
			single := schema.Intent{Goal: intent.Goal, RequiresConfirmation: intent.RequiresConfirmation, Steps: []schema.Step{current}}
			res, err := p.Executor.Run(ctx, single, executor.Config{Confirmed: confirmed})

			var stepResult schema.StepResult
			if res != nil && len(res.StepResults) == 1 {
				stepResult = res.StepResults[0]
			}

			p.history = append(p.history, HistoryEntry{Step: current, Result: stepResult, Attempt: attempt})
			execHistory.Append(current, stepResult)

			if err == nil {
				lastResult = stepResult
				lastErr = nil
				break
			}

			lastResult = stepResult
			lastErr = err

			if attempt == p.MaxRetries {
				break
			}

			if p.Adapt != nil {
				if adapted := p.Adapt(current, stepResult, execHistory); adapted != nil {
					p.Logger.Info("adapting step after failure", "tool", current.Tool, "action", current.Action, "new_action", adapted.Action)
					current = *adapted
					continue
				}
			}
			// No adaptation available: retry the unmodified step
			// until MaxRetries is exhausted, per spec.md §4.7 ("the
			// step fails permanently after the retry budget is
			// exhausted" implies retrying continues without an
			// adapted step, not an immediate abort).
		}

		results[idx] = lastResult
		if lastErr != nil {
			if p.OnFailure != nil {
				p.OnFailure(current, lastResult)
			}
			return results, fmt.Errorf("step %d: %w", idx, lastErr)
		}
	}

	return results, nil
}
