// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// recentWindow bounds the failure summary's "recent" bucket to the
// last 7 days, matching the recent_7_days JSON tag of store.Summary's
// Recent field.
const recentWindow = 7 * 24 * time.Hour

// newHistoryCmd implements spec.md §6's `history` and
// `history --failures` surfaces.
func newHistoryCmd(rt *runtime) *cobra.Command {
	var failures bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent transactions, or summarize failures with --failures",
		RunE: func(cmd *cobra.Command, args []string) error {
			if failures {
				return printFailureSummary(cmd.Context(), rt)
			}
			return printTransactionHistory(cmd.Context(), rt)
		},
	}
	cmd.Flags().BoolVar(&failures, "failures", false, "show a failure summary instead of the transaction list")
	return cmd
}

func printTransactionHistory(ctx context.Context, rt *runtime) error {
	txs, err := rt.db.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if len(txs) == 0 {
		fmt.Println("no transactions recorded yet")
		return nil
	}
	for _, tx := range txs {
		fmt.Printf("%s  %-12s %s -- %q\n", time.Unix(tx.CreatedAt, 0).Format(time.RFC3339), tx.Status, tx.ID, tx.Goal)
	}
	return nil
}

func printFailureSummary(ctx context.Context, rt *runtime) error {
	since := time.Now().Add(-recentWindow).Unix()
	summary, err := rt.failures.GetFailureStats(ctx, since)
	if err != nil {
		return fmt.Errorf("history --failures: %w", err)
	}
	fmt.Printf("total failures: %d (recent 7 days: %d)\n", summary.TotalFailures, summary.Recent)
	for tool, count := range summary.ByTool {
		fmt.Printf("  %s: %d\n", tool, count)
	}
	for errType, count := range summary.ByErrorType {
		fmt.Printf("  %s: %d\n", errType, count)
	}
	return nil
}
