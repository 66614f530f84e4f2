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
	"sort"

	"context"
)

// Status is a Transaction's lifecycle state (spec.md §3's Transaction
// row: running -> completed|failed, or completed -> rolled_back).
type Status string

const (
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRolledBack Status = "rolled_back"
)

// Transaction is one plan run's persisted record: the row-equivalent
// named in spec.md §3, opened when internal/transaction.Tracker.Begin
// is called and closed when the run ends.
type Transaction struct {
	ID        string `json:"id"`
	UserInput string `json:"user_input"`
	Goal      string `json:"goal"`
	Status    Status `json:"status"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

const transactionPrefix = "transactions/"

func transactionKey(id string) string {
	return transactionPrefix + id
}

// SaveTransaction persists or overwrites tx.
func (d *DB) SaveTransaction(ctx context.Context, tx Transaction) error {
	return d.PutJSON(ctx, transactionKey(tx.ID), tx)
}

// LoadTransaction loads a transaction by id.
func (d *DB) LoadTransaction(ctx context.Context, id string) (Transaction, error) {
	var tx Transaction
	err := d.GetJSON(ctx, transactionKey(id), &tx)
	return tx, err
}

// ListTransactions returns every transaction, most recently created
// first, for the `history` CLI surface (SPEC_FULL.md §5).
func (d *DB) ListTransactions(ctx context.Context) ([]Transaction, error) {
	txs, err := ListPrefixJSON[Transaction](ctx, d, transactionPrefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedAt > txs[j].CreatedAt })
	return txs, nil
}
