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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zenus-ai/zenus/internal/config"
	"github.com/zenus-ai/zenus/internal/telemetry"
	"github.com/zenus-ai/zenus/internal/zerrors"
)

func main() {
	os.Exit(run())
}

// run implements spec.md §6's exit codes: 0 on success, 1 on error,
// 130 on user interrupt (SIGINT/SIGTERM caught as context
// cancellation).
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "zenus: config load:", err)
		return 1
	}
	if err := telemetry.Init("zenus"); err != nil {
		fmt.Fprintln(os.Stderr, "zenus: telemetry init:", err)
	}
	defer func() { _ = telemetry.Shutdown(context.Background()) }()

	rt, err := newRuntime(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "zenus:", err)
		return 1
	}
	defer rt.Close()

	root := newRootCmd(rt)
	root.SetArgs(os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, zerrors.ErrCanceled) {
			return 130
		}
		fmt.Fprintln(os.Stderr, "zenus:", describeError(err))
		return 1
	}
	return 0
}
