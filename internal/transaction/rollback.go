// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transaction

import (
	"context"
	"fmt"

	"github.com/zenus-ai/zenus/internal/logging"
	"github.com/zenus-ai/zenus/internal/safety"
	"github.com/zenus-ai/zenus/internal/schema"
	"github.com/zenus-ai/zenus/internal/store"
	"github.com/zenus-ai/zenus/internal/telemetry"
	"github.com/zenus-ai/zenus/internal/toolregistry"
)

// PlannedInverse is one inverse operation rollback intends to run, or
// tried to run, against a source ActionRecord.
type PlannedInverse struct {
	Source  store.ActionRecord
	Inverse schema.Step
}

// Result is rollback(n, dryRun)'s outcome, matching spec.md §4.9's
// `{actions_rolled_back, actions_failed, errors[]}` shape.
type Result struct {
	Planned       []PlannedInverse
	ActionsRolled int
	ActionsFailed int
	Errors        []string
	DryRun        bool
}

// Engine performs reverse-order rollback of completed mutating
// actions, replaying each inverse through the same tool registry the
// executor dispatches through (spec.md §4.9: "executed through the
// same executor, subject to safety").
type Engine struct {
	db       *store.DB
	registry *toolregistry.Registry
	inverses *toolregistry.InvertibilityTable
	world    *store.WorldModel
	clock    Clock
	logger   *logging.Logger
}

// NewEngine builds a rollback Engine.
func NewEngine(db *store.DB, registry *toolregistry.Registry, inverses *toolregistry.InvertibilityTable, clock Clock, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	if clock == nil {
		clock = newMonotonicClock()
	}
	return &Engine{db: db, registry: registry, inverses: inverses, world: store.NewWorldModel(db), clock: clock, logger: logger}
}

// Rollback selects the last n not-yet-rolled-back mutating actions
// across all transactions, sorted by completion time descending, and
// replays their inverses in that order (spec.md §4.9). When dryRun is
// true it only plans the inverses without dispatching or mutating any
// stored state.
func (e *Engine) Rollback(ctx context.Context, n int, dryRun bool) (*Result, error) {
	if n <= 0 {
		n = 1
	}

	ctx, finish := telemetry.StartSpan(ctx, "transaction.rollback", map[string]string{
		"requested": fmt.Sprintf("%d", n),
		"dry_run":   fmt.Sprintf("%t", dryRun),
	})
	var rollbackErr error
	defer func() { finish(rollbackErr) }()

	pending, err := e.db.PendingActions(ctx)
	if err != nil {
		rollbackErr = err
		return nil, fmt.Errorf("rollback: list pending actions: %w", err)
	}
	if len(pending) > n {
		pending = pending[:n]
	}

	result := &Result{DryRun: dryRun}

	for _, rec := range pending {
		step := schema.Step{Tool: rec.Tool, Action: rec.Action, Args: rec.Args, Risk: schema.RiskLevel(rec.Risk)}
		inverse, err := e.inverses.Inverse(step, rec.Output)
		if err != nil {
			result.ActionsFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s.%s (tx %s seq %d): %v", rec.Tool, rec.Action, rec.TransactionID, rec.Sequence, err))
			continue
		}

		result.Planned = append(result.Planned, PlannedInverse{Source: rec, Inverse: inverse})
		if dryRun {
			continue
		}

		if err := e.apply(ctx, rec, inverse); err != nil {
			result.ActionsFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s.%s (tx %s seq %d): %v", rec.Tool, rec.Action, rec.TransactionID, rec.Sequence, err))
			continue
		}
		result.ActionsRolled++
	}

	if !dryRun && len(pending) > 0 {
		e.markTransactionsRolledBack(ctx, pending)
	}

	return result, nil
}

func (e *Engine) apply(ctx context.Context, rec store.ActionRecord, inverse schema.Step) error {
	if err := safety.Check(inverse, true); err != nil {
		return fmt.Errorf("inverse blocked by safety policy: %w", err)
	}
	if !e.registry.Has(inverse.Tool, inverse.Action) {
		return fmt.Errorf("inverse tool/action not registered: %s.%s", inverse.Tool, inverse.Action)
	}
	if _, err := e.registry.Dispatch(ctx, inverse.Tool, inverse.Action, inverse.Args); err != nil {
		return fmt.Errorf("inverse dispatch failed: %w", err)
	}
	if err := e.db.MarkRolledBack(ctx, rec); err != nil {
		return fmt.Errorf("mark rolled back: %w", err)
	}
	if path, ok := mutatedPath(schema.Step{Tool: rec.Tool, Action: rec.Action, Args: rec.Args}); ok {
		if err := e.world.DecrementPath(ctx, path); err != nil {
			e.logger.Warn("world model decrement failed", "path", path, "error", err)
		}
	}
	return nil
}

// markTransactionsRolledBack flips every affected transaction's status
// to rolled_back once all of its actions have, in fact, been rolled
// back; a transaction with any pending action remains in its prior
// status.
func (e *Engine) markTransactionsRolledBack(ctx context.Context, touched []store.ActionRecord) {
	seen := map[string]bool{}
	for _, rec := range touched {
		if seen[rec.TransactionID] {
			continue
		}
		seen[rec.TransactionID] = true

		actions, err := e.db.ListActionsForTransaction(ctx, rec.TransactionID)
		if err != nil {
			e.logger.Warn("rollback: list actions for transaction failed", "transaction_id", rec.TransactionID, "error", err)
			continue
		}
		allRolledBack := true
		for _, a := range actions {
			if !a.RolledBack {
				allRolledBack = false
				break
			}
		}
		if !allRolledBack {
			continue
		}

		tx, err := e.db.LoadTransaction(ctx, rec.TransactionID)
		if err != nil {
			e.logger.Warn("rollback: load transaction failed", "transaction_id", rec.TransactionID, "error", err)
			continue
		}
		tx.Status = store.StatusRolledBack
		tx.UpdatedAt = e.clock()
		if err := e.db.SaveTransaction(ctx, tx); err != nil {
			e.logger.Warn("rollback: save transaction failed", "transaction_id", rec.TransactionID, "error", err)
		}
	}
}
