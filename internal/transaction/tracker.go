// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package transaction implements the action tracker and rollback
// engine from spec.md §4.9: an append-only log of completed mutating
// steps, grouped under a Transaction that moves through
// running -> completed|failed, with reverse-order rollback of the
// most recent actions through their declared inverses.
//
// # Description
//
// Tracker implements executor.ActionRecorder: the plan executor calls
// Record once per completed mutating step, and Tracker appends it to
// the currently open Transaction via internal/store. The struct-per-
// concern split (Tracker opens/closes transactions, Engine performs
// rollback) follows services/code_buddy/transaction's PreFlightGuard
// idiom, adapted from a pre-flight checker to a rollback engine since
// the teacher package does not implement rollback itself.
//
// # Thread Safety
//
// A single Tracker instance is meant to back one in-flight plan run;
// Begin/Record/Complete/Fail are not safe to interleave across
// concurrent goals sharing one Tracker.
package transaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/zenus-ai/zenus/internal/logging"
	"github.com/zenus-ai/zenus/internal/schema"
	"github.com/zenus-ai/zenus/internal/store"
)

// Clock returns the current Unix timestamp. Tests inject a fixed
// Clock since the module-wide ban on time.Now() in deterministic
// paths extends here: persisted records must be reproducible.
type Clock func() int64

// Tracker opens a Transaction at the start of a plan run, appends one
// ActionRecord per completed mutating step, and closes the
// Transaction when the run ends.
type Tracker struct {
	db     *store.DB
	world  *store.WorldModel
	clock  Clock
	logger *logging.Logger

	current store.Transaction
}

// New builds a Tracker backed by db. clock defaults to a monotonic
// counter starting at 1 if nil -- callers that need wall-clock
// timestamps should pass their own Clock.
func New(db *store.DB, clock Clock, logger *logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.Default()
	}
	if clock == nil {
		clock = newMonotonicClock()
	}
	return &Tracker{db: db, world: store.NewWorldModel(db), clock: clock, logger: logger}
}

func newMonotonicClock() Clock {
	var n int64
	return func() int64 {
		n++
		return n
	}
}

// Begin opens a new running Transaction for a plan run driven by
// userInput toward goal, and persists it immediately so a crash mid-run
// still leaves a `running` record behind for `history` to surface.
func (t *Tracker) Begin(ctx context.Context, userInput, goal string) (store.Transaction, error) {
	now := t.clock()
	tx := store.Transaction{
		ID:        uuid.NewString(),
		UserInput: userInput,
		Goal:      goal,
		Status:    store.StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.db.SaveTransaction(ctx, tx); err != nil {
		return store.Transaction{}, fmt.Errorf("transaction: begin: %w", err)
	}
	t.current = tx
	return tx, nil
}

// Record implements executor.ActionRecorder. It is only ever invoked
// for mutating (risk >= 1), successful steps, per executor.record.
func (t *Tracker) Record(ctx context.Context, step schema.Step, result schema.StepResult) error {
	seq, err := t.db.NextSequence(ctx, t.current.ID)
	if err != nil {
		return fmt.Errorf("transaction: record: %w", err)
	}

	rec := store.ActionRecord{
		TransactionID: t.current.ID,
		Sequence:      seq,
		Tool:          step.Tool,
		Action:        step.Action,
		Args:          step.Args,
		Risk:          int(step.Risk),
		Output:        result.Output,
		CompletedAt:   t.clock(),
	}
	if err := t.db.AppendAction(ctx, rec); err != nil {
		return fmt.Errorf("transaction: append action: %w", err)
	}

	if path, ok := mutatedPath(step); ok {
		if err := t.world.IncrementPath(ctx, path); err != nil {
			t.logger.Warn("world model increment failed", "path", path, "error", err)
		}
	}
	return nil
}

// Complete marks the currently open transaction completed.
func (t *Tracker) Complete(ctx context.Context) error {
	return t.close(ctx, store.StatusCompleted)
}

// Fail marks the currently open transaction failed, per spec.md
// §4.5's cancellation semantics: a canceled or errored run closes its
// transaction as failed rather than leaving it running forever.
func (t *Tracker) Fail(ctx context.Context) error {
	return t.close(ctx, store.StatusFailed)
}

func (t *Tracker) close(ctx context.Context, status store.Status) error {
	t.current.Status = status
	t.current.UpdatedAt = t.clock()
	if err := t.db.SaveTransaction(ctx, t.current); err != nil {
		return fmt.Errorf("transaction: close: %w", err)
	}
	return nil
}

// Current returns the transaction currently open on this Tracker.
func (t *Tracker) Current() store.Transaction {
	return t.current
}

// mutatedPath extracts the filesystem path a step most plausibly
// touched, for world-model tracking, mirroring the same arg-name
// convention internal/depgraph uses to detect same-target-path edges.
func mutatedPath(step schema.Step) (string, bool) {
	for _, key := range []string{"path", "dst", "src"} {
		if v, ok := step.ArgString(key); ok && v != "" {
			return v, true
		}
	}
	return "", false
}
