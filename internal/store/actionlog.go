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
	"sort"
)

// ActionRecord is one completed mutating step, the append-only
// action-tracker log entry from spec.md §4.9:
// {transaction_id, sequence, tool, action, args, inverse_hint,
// completed_at}. Args and Output carry what the invertibility table
// needs to rebuild the inverse step at rollback time; this package
// does not itself know how to invert anything.
type ActionRecord struct {
	TransactionID string         `json:"transaction_id"`
	Sequence      int            `json:"sequence"`
	Tool          string         `json:"tool"`
	Action        string         `json:"action"`
	Args          map[string]any `json:"args"`
	Risk          int            `json:"risk"`
	Output        string         `json:"output"`
	CompletedAt   int64          `json:"completed_at"`
	RolledBack    bool           `json:"rolled_back"`
}

const (
	actionLogPrefix = "actions/log/"
	actionSeqPrefix = "actions/seq/"
)

func actionKey(rec ActionRecord) string {
	return fmt.Sprintf("%s%020d/%s/%06d", actionLogPrefix, rec.CompletedAt, rec.TransactionID, rec.Sequence)
}

// NextSequence returns the next strictly increasing sequence number
// for txID, satisfying spec.md §4.9's "sequence strictly increases per
// transaction" invariant.
func (d *DB) NextSequence(ctx context.Context, txID string) (int, error) {
	seq, err := d.GetSequence([]byte(actionSeqPrefix+txID), 1)
	if err != nil {
		return 0, fmt.Errorf("store: action sequence for %s: %w", txID, err)
	}
	defer seq.Release()
	n, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("store: next sequence for %s: %w", txID, err)
	}
	return int(n) + 1, nil
}

// AppendAction persists rec under its (completed_at, transaction_id,
// sequence) key.
func (d *DB) AppendAction(ctx context.Context, rec ActionRecord) error {
	return d.PutJSON(ctx, actionKey(rec), rec)
}

// MarkRolledBack flips rec.RolledBack and rewrites it under its
// existing key.
func (d *DB) MarkRolledBack(ctx context.Context, rec ActionRecord) error {
	rec.RolledBack = true
	return d.PutJSON(ctx, actionKey(rec), rec)
}

// ListActions returns every recorded action across all transactions,
// ascending by completion time.
func (d *DB) ListActions(ctx context.Context) ([]ActionRecord, error) {
	recs, err := ListPrefixJSON[ActionRecord](ctx, d, actionLogPrefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CompletedAt < recs[j].CompletedAt })
	return recs, nil
}

// PendingActions returns every not-yet-rolled-back action, most
// recently completed first -- the candidate pool `rollback(n,
// dryRun)` draws its last-n selection from (spec.md §4.9).
func (d *DB) PendingActions(ctx context.Context) ([]ActionRecord, error) {
	all, err := d.ListActions(ctx)
	if err != nil {
		return nil, err
	}
	var pending []ActionRecord
	for _, rec := range all {
		if !rec.RolledBack {
			pending = append(pending, rec)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CompletedAt > pending[j].CompletedAt })
	return pending, nil
}

// ListActionsForTransaction returns a transaction's recorded actions
// in sequence order.
func (d *DB) ListActionsForTransaction(ctx context.Context, txID string) ([]ActionRecord, error) {
	all, err := d.ListActions(ctx)
	if err != nil {
		return nil, err
	}
	var out []ActionRecord
	for _, rec := range all {
		if rec.TransactionID == txID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}
