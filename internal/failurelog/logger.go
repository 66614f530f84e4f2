// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package failurelog records execution failures and learns which ones
// recur, ported from zenus_core/memory/failure_logger.py (its test
// suite, tests/test_failure_logger.py, is the only copy of this
// module's expected behavior present in the retrieval pack) and from
// services/code_buddy/patterns' signature-matching idiom.
//
// # Description
//
// Every failed step is logged with its normalized error signature.
// Signatures recurring across calls accumulate a FailurePattern count;
// once a pattern has a human- or learning-system-authored Suggestion
// attached, GetSimilarFailures and Suggest surface it to the CLI
// before a future translate call repeats the same mistake.
//
// # Thread Safety
//
// Logger is safe for concurrent use; all durable state lives in the
// underlying store.FailureStore.
package failurelog

import (
	"context"
	"fmt"
	"sort"

	"github.com/zenus-ai/zenus/internal/store"
)

// Clock returns the current Unix timestamp. Exists so tests can
// control LastSeen/Timestamp values deterministically.
type Clock func() int64

// Logger records failures and serves similarity lookups over them.
type Logger struct {
	failures *store.FailureStore
	clock    Clock
}

// New builds a Logger backed by db. clock defaults to a monotonic
// counter when nil.
func New(db *store.DB, clock Clock) *Logger {
	if clock == nil {
		var n int64
		clock = func() int64 {
			n++
			return n
		}
	}
	return &Logger{failures: store.NewFailureStore(db), clock: clock}
}

// LogFailure records one execution failure and folds its normalized
// signature into the running FailurePattern count for (tool,
// signature), mirroring log_failure's two writes (a `failures` row
// plus a `failure_patterns` upsert).
func (l *Logger) LogFailure(ctx context.Context, userInput, intentGoal, tool, errorType, errorMessage string, errContext map[string]any) (int64, error) {
	id, err := l.failures.NextFailureID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failurelog: log failure: %w", err)
	}

	now := l.clock()
	rec := store.FailureRecord{
		ID:           id,
		UserInput:    userInput,
		IntentGoal:   intentGoal,
		Tool:         tool,
		ErrorType:    errorType,
		ErrorMessage: errorMessage,
		Context:      errContext,
		Timestamp:    now,
	}
	if err := l.failures.SaveFailure(ctx, rec); err != nil {
		return 0, fmt.Errorf("failurelog: save failure: %w", err)
	}

	signature := NormalizeError(errorMessage)
	if _, err := l.failures.UpsertPattern(ctx, tool, signature, errorType, now); err != nil {
		return 0, fmt.Errorf("failurelog: upsert pattern: %w", err)
	}

	return id, nil
}

// LogResolvedFailure is LogFailure plus a human-readable resolution,
// for failures whose recovery path (internal/recovery) found a
// working alternative.
func (l *Logger) LogResolvedFailure(ctx context.Context, userInput, intentGoal, tool, errorType, errorMessage, resolution string, errContext map[string]any) (int64, error) {
	id, err := l.LogFailure(ctx, userInput, intentGoal, tool, errorType, errorMessage, errContext)
	if err != nil {
		return 0, err
	}
	rec, err := l.lookupByID(ctx, id)
	if err != nil {
		return id, err
	}
	rec.Resolution = resolution
	return id, l.failures.SaveFailure(ctx, rec)
}

func (l *Logger) lookupByID(ctx context.Context, id int64) (store.FailureRecord, error) {
	all, err := l.failures.ListFailures(ctx)
	if err != nil {
		return store.FailureRecord{}, err
	}
	for _, rec := range all {
		if rec.ID == id {
			return rec, nil
		}
	}
	return store.FailureRecord{}, fmt.Errorf("failurelog: failure %d not found", id)
}

// scoredFailure pairs a FailureRecord with its token-overlap score
// against a query, used internally by GetSimilarFailures.
type scoredFailure struct {
	record store.FailureRecord
	score  int
}

// GetSimilarFailures ranks every stored failure for the given tool by
// token overlap with userInput, returning at most limit results,
// highest score first -- ported from get_similar_failures.
func (l *Logger) GetSimilarFailures(ctx context.Context, userInput, tool string, limit int) ([]store.FailureRecord, error) {
	all, err := l.failures.ListFailures(ctx)
	if err != nil {
		return nil, fmt.Errorf("failurelog: similar failures: %w", err)
	}

	queryTokens := tokenize(userInput)
	var scored []scoredFailure
	for _, rec := range all {
		if tool != "" && rec.Tool != tool {
			continue
		}
		scored = append(scored, scoredFailure{record: rec, score: overlapScore(queryTokens, tokenize(rec.UserInput))})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].record.Timestamp > scored[j].record.Timestamp
	})

	if limit <= 0 || limit > len(scored) {
		limit = len(scored)
	}
	out := make([]store.FailureRecord, 0, limit)
	for _, s := range scored[:limit] {
		out = append(out, s.record)
	}
	return out, nil
}

// GetFailureStats returns the aggregate summary `history --failures`
// renders, ported from get_failure_stats. recentSince is the cutoff
// timestamp for the "recent" bucket (the caller computes "7 days ago"
// in its own clock domain).
func (l *Logger) GetFailureStats(ctx context.Context, recentSince int64) (store.Summary, error) {
	return l.failures.Summarize(ctx, recentSince)
}

// GetPatternSuggestion returns the suggestion attached to (tool,
// errorSignature)'s pattern, if any, ported from
// get_pattern_suggestions: initially no pattern carries a suggestion,
// matching test_pattern_suggestions' expectation of a nil result on a
// fresh pattern.
func (l *Logger) GetPatternSuggestion(ctx context.Context, tool, errorMessageOrSignature string) (string, bool, error) {
	signature := NormalizeError(errorMessageOrSignature)
	pattern, found, err := l.failures.GetPattern(ctx, tool, signature)
	if err != nil {
		return "", false, fmt.Errorf("failurelog: pattern suggestion: %w", err)
	}
	if !found || pattern.Suggestion == "" {
		return "", false, nil
	}
	return pattern.Suggestion, true, nil
}

// SetPatternSuggestion attaches suggestion to (tool, errorSignature)'s
// pattern, for a learning system or human operator to call once a
// pattern's resolution is known.
func (l *Logger) SetPatternSuggestion(ctx context.Context, tool, errorMessageOrSignature, suggestion string) error {
	signature := NormalizeError(errorMessageOrSignature)
	return l.failures.SetSuggestion(ctx, tool, signature, suggestion, l.clock())
}
