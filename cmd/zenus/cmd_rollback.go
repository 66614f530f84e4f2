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
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// newRollbackCmd implements spec.md §6's `rollback [N] [--dry-run]`:
// roll back the last N mutating actions (default 1) in reverse order
// through their declared inverses.
func newRollbackCmd(rt *runtime) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "rollback [N]",
		Short: "Roll back the last N mutating actions (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 1
			if len(args) == 1 {
				parsed, err := strconv.Atoi(args[0])
				if err != nil || parsed <= 0 {
					return fmt.Errorf("rollback: N must be a positive integer, got %q", args[0])
				}
				n = parsed
			}

			result, err := rt.rollback.Rollback(cmd.Context(), n, dryRun)
			if err != nil {
				return fmt.Errorf("rollback: %w", err)
			}

			for _, planned := range result.Planned {
				verb := "rolled back"
				if dryRun {
					verb = "would roll back"
				}
				fmt.Printf("  %s %s.%s -> %s.%s\n", verb, planned.Source.Tool, planned.Source.Action, planned.Inverse.Tool, planned.Inverse.Action)
			}
			for _, e := range result.Errors {
				fmt.Printf("  error: %s\n", e)
			}
			fmt.Printf("rollback: %d rolled back, %d failed", result.ActionsRolled, result.ActionsFailed)
			if dryRun {
				fmt.Print(" (dry run)")
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan the rollback without applying it")
	return cmd
}
