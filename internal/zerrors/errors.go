// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package zerrors defines the error taxonomy shared across the intent
// execution pipeline.
//
// # Description
//
// Every failure mode named in the error-handling design is a sentinel
// error here, wrapped with context via fmt.Errorf and %w. Callers match
// on the sentinel with errors.Is; Kind classifies a wrapped error for
// logging and CLI "next action" hints without needing type switches at
// every call site.
package zerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy. Wrap these with context using
// fmt.Errorf("...: %w", ErrX) rather than returning them bare.
var (
	// ErrTranslationError means the LLM provider returned invalid or
	// unparsable IR.
	ErrTranslationError = errors.New("translation error")

	// ErrBlockedByPolicy means the safety policy rejected a step.
	ErrBlockedByPolicy = errors.New("blocked by safety policy")

	// ErrToolNotFound means the step named a tool absent from the registry.
	ErrToolNotFound = errors.New("tool not found")

	// ErrActionNotFound means the step named an action the tool does not
	// expose.
	ErrActionNotFound = errors.New("action not found")

	// ErrInvalidArgs means the step's argument map failed validation or
	// decoding for the resolved action.
	ErrInvalidArgs = errors.New("invalid arguments")

	// ErrToolExecutionError wraps an error surfaced by a tool action.
	ErrToolExecutionError = errors.New("tool execution error")

	// ErrCircuitOpen means the resilience layer's circuit breaker is open
	// for the target provider.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrBudgetExceeded means the retry budget for an operation kind is
	// exhausted for the current window.
	ErrBudgetExceeded = errors.New("retry budget exceeded")

	// ErrAllFallbacksFailed means every provider in a fallback chain
	// failed.
	ErrAllFallbacksFailed = errors.New("all fallbacks failed")

	// ErrConfirmationRequired means a destructive plan was presented
	// without an acknowledged confirmation.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrGoalExhausted means the goal tracker reached its iteration
	// limit without achieving the goal.
	ErrGoalExhausted = errors.New("goal exhausted")

	// ErrGoalStuck means the goal tracker received no next steps and the
	// goal was not achieved.
	ErrGoalStuck = errors.New("goal stuck")

	// ErrRollbackError means one or more inverse operations failed during
	// rollback.
	ErrRollbackError = errors.New("rollback error")

	// ErrNotInvertible means a tool/action has no declared inverse and
	// cannot participate in rollback.
	ErrNotInvertible = errors.New("action not invertible")

	// ErrCanceled means the caller's context was canceled (user
	// interrupt or external cancellation).
	ErrCanceled = errors.New("canceled")

	// ErrStepFailed means a step failed and error recovery could not
	// produce a successful outcome.
	ErrStepFailed = errors.New("step failed")
)

// Kind classifies an error for logging, metrics, and CLI hints.
type Kind string

const (
	KindTranslation       Kind = "translation_error"
	KindBlockedByPolicy   Kind = "blocked_by_policy"
	KindToolNotFound      Kind = "tool_not_found"
	KindActionNotFound    Kind = "action_not_found"
	KindInvalidArgs       Kind = "invalid_args"
	KindToolExecution     Kind = "tool_execution_error"
	KindCircuitOpen       Kind = "circuit_open"
	KindBudgetExceeded    Kind = "budget_exceeded"
	KindAllFallbacksFailed Kind = "all_fallbacks_failed"
	KindConfirmationRequired Kind = "confirmation_required"
	KindGoalExhausted     Kind = "goal_exhausted"
	KindGoalStuck         Kind = "goal_stuck"
	KindRollbackError     Kind = "rollback_error"
	KindNotInvertible     Kind = "not_invertible"
	KindCanceled          Kind = "canceled"
	KindStepFailed        Kind = "step_failed"
	KindUnknown           Kind = "unknown"
)

var sentinelKinds = []struct {
	err  error
	kind Kind
}{
	{ErrTranslationError, KindTranslation},
	{ErrBlockedByPolicy, KindBlockedByPolicy},
	{ErrToolNotFound, KindToolNotFound},
	{ErrActionNotFound, KindActionNotFound},
	{ErrInvalidArgs, KindInvalidArgs},
	{ErrToolExecutionError, KindToolExecution},
	{ErrCircuitOpen, KindCircuitOpen},
	{ErrBudgetExceeded, KindBudgetExceeded},
	{ErrAllFallbacksFailed, KindAllFallbacksFailed},
	{ErrConfirmationRequired, KindConfirmationRequired},
	{ErrGoalExhausted, KindGoalExhausted},
	{ErrGoalStuck, KindGoalStuck},
	{ErrRollbackError, KindRollbackError},
	{ErrNotInvertible, KindNotInvertible},
	{ErrCanceled, KindCanceled},
	{ErrStepFailed, KindStepFailed},
}

// Classify returns the Kind of the first sentinel err wraps, or
// KindUnknown if none match.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	for _, sk := range sentinelKinds {
		if errors.Is(err, sk.err) {
			return sk.kind
		}
	}
	return KindUnknown
}

// NextActionHint returns a short, actionable suggestion for a given kind,
// surfaced alongside actionable errors per the error-handling design.
func NextActionHint(kind Kind) string {
	switch kind {
	case KindConfirmationRequired:
		return "rerun with --confirm to acknowledge the destructive step"
	case KindBlockedByPolicy:
		return "rerun with --dry-run to inspect the plan before confirming"
	case KindCircuitOpen, KindAllFallbacksFailed:
		return "wait for the provider's circuit to reset or configure a fallback provider"
	case KindBudgetExceeded:
		return "wait for the retry budget window to roll over"
	case KindGoalExhausted:
		return "break the goal into smaller steps and retry"
	case KindRollbackError:
		return "rerun `zenus rollback --dry-run` to list the actions still pending rollback"
	default:
		return "rerun with --dry-run for a detailed plan preview"
	}
}

// Wrap annotates err with msg while preserving errors.Is/As matching on
// the sentinel it ultimately wraps.
func Wrap(msg string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
