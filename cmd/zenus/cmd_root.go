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
	"strings"

	"github.com/spf13/cobra"

	"github.com/zenus-ai/zenus/internal/logging"
	"github.com/zenus-ai/zenus/internal/zerrors"
)

// cliFlags holds the root command's flag values, read by cmd_run.go
// and cmd_shell.go.
type cliFlags struct {
	dryRun    bool
	iterative bool
	confirm   bool
	parallel  bool
}

// newRootCmd builds the zenus command tree. The root command itself
// implements the free-text "translate and execute" surface from
// spec.md §6; every other surface (shell, rollback, history, version)
// is a named subcommand.
func newRootCmd(rt *runtime) *cobra.Command {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:   "zenus [text...]",
		Short: "Translate natural language into tool calls and execute them",
		Long: `zenus translates a natural language command into a structured plan of
tool calls, checks the plan against the safety policy, and executes it.

Run with no arguments to start an interactive shell.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "zenus %s\n", version)
				return nil
			}
			if len(args) == 0 {
				return runShell(cmd.Context(), rt, flags)
			}
			return runOnce(cmd.Context(), rt, flags, strings.Join(args, " "))
		},
	}

	root.PersistentFlags().BoolP("version", "v", false, "print the zenus version")
	root.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "translate and validate the plan without executing it")
	root.PersistentFlags().BoolVar(&flags.iterative, "iterative", false, "drive the goal tracker's translate/execute/reflect loop instead of a single pass")
	root.PersistentFlags().BoolVar(&flags.confirm, "confirm", false, "acknowledge a plan that requires confirmation (risk=3 steps)")
	root.PersistentFlags().BoolVar(&flags.parallel, "parallel", true, "dispatch independent steps in concurrent waves")

	root.AddCommand(newShellCmd(rt, flags))
	root.AddCommand(newRollbackCmd(rt))
	root.AddCommand(newHistoryCmd(rt))
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the zenus version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "zenus %s\n", version)
			return nil
		},
	}
}

// describeError renders err the way spec.md §7 describes an
// actionable error: the failure itself plus a next-action hint drawn
// from the error taxonomy.
func describeError(err error) string {
	kind := zerrors.Classify(err)
	if kind == "" || kind == zerrors.KindUnknown {
		return err.Error()
	}
	return fmt.Sprintf("%s (next: %s)", err.Error(), zerrors.NextActionHint(kind))
}

func levelFromString(s string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
