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
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// newShellCmd exposes the interactive loop as an explicit `shell`
// subcommand; the root command also falls into it when invoked with
// no arguments, matching spec.md §6's "(no args) or shell" surface.
func newShellCmd(rt *runtime, flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive translate/execute loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd.Context(), rt, flags)
		},
	}
}

// runShell reads one line at a time from stdin, translating and
// executing each as its own plan run, until the context is canceled
// or the user types exit/quit/EOF. Each loop iteration's error is
// reported and the loop continues -- a single bad command should not
// end the session, matching the teacher's chat loop idiom of
// surfacing per-turn errors without exiting the process.
func runShell(ctx context.Context, rt *runtime, flags *cliFlags) error {
	fmt.Println("zenus interactive shell -- type a command, or 'exit' to quit.")
	reader := bufio.NewScanner(os.Stdin)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Print("zenus> ")
		if !reader.Scan() {
			return nil
		}

		line := strings.TrimSpace(reader.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		if err := runOnce(ctx, rt, flags, line); err != nil {
			fmt.Fprintln(os.Stderr, "error:", describeError(err))
		}
	}
}
