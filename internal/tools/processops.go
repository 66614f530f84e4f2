// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"syscall"

	"github.com/zenus-ai/zenus/internal/toolregistry"
)

// ProcessOps exposes read-only process status and a destructive kill
// action (risk 3), ported from zenus_core/tools/process_ops.py.
type ProcessOps struct{}

// Name returns the registry key "ProcessOps".
func (ProcessOps) Name() string { return "ProcessOps" }

// Actions returns the status/kill action table.
func (p ProcessOps) Actions() map[string]toolregistry.ActionFunc {
	return map[string]toolregistry.ActionFunc{
		"status": p.status,
		"kill":   p.kill,
	}
}

func (ProcessOps) status(ctx context.Context, args map[string]any) (string, error) {
	pidRaw, _ := args["pid"].(float64)
	pid := int(pidRaw)
	if pid == 0 {
		if s, ok := args["pid"].(string); ok {
			parsed, err := strconv.Atoi(s)
			if err != nil {
				return "", fmt.Errorf("status: invalid pid %q", s)
			}
			pid = parsed
		}
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return "", fmt.Errorf("status pid=%d: %w", pid, err)
	}
	// On unix, FindProcess always succeeds; signal 0 probes liveness.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return fmt.Sprintf("pid %d: not running", pid), nil
	}
	return fmt.Sprintf("pid %d: running", pid), nil
}

func (ProcessOps) kill(ctx context.Context, args map[string]any) (string, error) {
	pidRaw, _ := args["pid"].(float64)
	pid := int(pidRaw)
	proc, err := os.FindProcess(pid)
	if err != nil {
		return "", fmt.Errorf("kill pid=%d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return "", fmt.Errorf("kill pid=%d: %w", pid, err)
	}
	return fmt.Sprintf("killed pid %d", pid), nil
}
