// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const (
	failurePrefix        = "failures/"
	failurePatternPrefix = "failure_patterns/"
)

// FailureRecord is one logged execution failure, the row-equivalent
// of zenus_core/memory/failure_logger.py's `failures` table.
type FailureRecord struct {
	ID           int64          `json:"id"`
	UserInput    string         `json:"user_input"`
	IntentGoal   string         `json:"intent_goal"`
	Tool         string         `json:"tool"`
	ErrorType    string         `json:"error_type"`
	ErrorMessage string         `json:"error_message"`
	Context      map[string]any `json:"context,omitempty"`
	Resolution   string         `json:"resolution,omitempty"`
	Timestamp    int64          `json:"timestamp"`
}

// FailurePattern is the aggregate count for a normalized
// (tool, error_type, signature) triple, the row-equivalent of
// `failure_patterns`.
type FailurePattern struct {
	Signature    string `json:"signature"`
	Tool         string `json:"tool"`
	ErrorType    string `json:"error_type"`
	Count        int    `json:"count"`
	LastSeen     int64  `json:"last_seen"`
	Suggestion   string `json:"suggestion,omitempty"`
	SuggestionAt int64  `json:"suggestion_at,omitempty"`
}

// FailureStore persists FailureRecord and FailurePattern rows in db.
// internal/failurelog wraps this with signature normalization and
// ranking; this type owns only storage.
type FailureStore struct {
	db *DB
}

// NewFailureStore returns a FailureStore backed by db.
func NewFailureStore(db *DB) *FailureStore {
	return &FailureStore{db: db}
}

func failureKey(id int64) string {
	return fmt.Sprintf("%s%020d", failurePrefix, id)
}

func patternKey(tool, signature string) string {
	return fmt.Sprintf("%s%s/%s", failurePatternPrefix, tool, signature)
}

// NextFailureID returns a monotonically increasing id for a new
// FailureRecord, backed by Badger's built-in sequence allocator.
func (s *FailureStore) NextFailureID(ctx context.Context) (int64, error) {
	seq, err := s.db.GetSequence([]byte(failurePrefix+"seq"), 1)
	if err != nil {
		return 0, fmt.Errorf("store: failure sequence: %w", err)
	}
	defer seq.Release()
	n, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("store: next failure id: %w", err)
	}
	return int64(n) + 1, nil
}

// SaveFailure persists rec under its ID.
func (s *FailureStore) SaveFailure(ctx context.Context, rec FailureRecord) error {
	return s.db.PutJSON(ctx, failureKey(rec.ID), rec)
}

// ListFailures returns every stored FailureRecord in ID order.
func (s *FailureStore) ListFailures(ctx context.Context) ([]FailureRecord, error) {
	return ListPrefixJSON[FailureRecord](ctx, s.db, failurePrefix)
}

// UpsertPattern increments the pattern's count and refreshes
// LastSeen, creating it if absent.
func (s *FailureStore) UpsertPattern(ctx context.Context, tool, signature, errorType string, seenAt int64) (FailurePattern, error) {
	key := []byte(patternKey(tool, signature))
	var result FailurePattern
	err := s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		pattern := FailurePattern{Signature: signature, Tool: tool, ErrorType: errorType}
		item, err := txn.Get(key)
		switch err {
		case nil:
			if verr := decodeInto(item, &pattern); verr != nil {
				return verr
			}
		case badger.ErrKeyNotFound:
			// fresh pattern
		default:
			return err
		}
		pattern.Count++
		pattern.LastSeen = seenAt
		result = pattern
		return encodeInto(txn, key, pattern)
	})
	return result, err
}

// GetPattern looks up a stored pattern by (tool, signature).
func (s *FailureStore) GetPattern(ctx context.Context, tool, signature string) (FailurePattern, bool, error) {
	var pattern FailurePattern
	found := false
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(patternKey(tool, signature)))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return decodeInto(item, &pattern)
	})
	return pattern, found, err
}

// SetSuggestion attaches a human- or learning-system-authored
// suggestion to an existing pattern.
func (s *FailureStore) SetSuggestion(ctx context.Context, tool, signature, suggestion string, setAt int64) error {
	key := []byte(patternKey(tool, signature))
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return fmt.Errorf("store: no pattern for %s/%s: %w", tool, signature, err)
		}
		var pattern FailurePattern
		if err := decodeInto(item, &pattern); err != nil {
			return err
		}
		pattern.Suggestion = suggestion
		pattern.SuggestionAt = setAt
		return encodeInto(txn, key, pattern)
	})
}

// ListPatterns returns every stored FailurePattern.
func (s *FailureStore) ListPatterns(ctx context.Context) ([]FailurePattern, error) {
	return ListPrefixJSON[FailurePattern](ctx, s.db, failurePatternPrefix)
}

// Summary is the aggregate view `history --failures` renders, the
// Go-native shape of get_failure_stats()'s return dict.
type Summary struct {
	TotalFailures int            `json:"total_failures"`
	ByTool        map[string]int `json:"by_tool"`
	ByErrorType   map[string]int `json:"by_error_type"`
	Recent        int            `json:"recent_7_days"`
}

// Summarize aggregates every stored FailureRecord whose Timestamp is
// >= since into a Summary.
func (s *FailureStore) Summarize(ctx context.Context, since int64) (Summary, error) {
	records, err := s.ListFailures(ctx)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{ByTool: map[string]int{}, ByErrorType: map[string]int{}}
	for _, rec := range records {
		summary.TotalFailures++
		summary.ByTool[rec.Tool]++
		summary.ByErrorType[rec.ErrorType]++
		if rec.Timestamp >= since {
			summary.Recent++
		}
	}
	return summary, nil
}
