// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package toolregistry

import (
	"fmt"

	"github.com/zenus-ai/zenus/internal/schema"
	"github.com/zenus-ai/zenus/internal/zerrors"
)

// InverseBuilder produces the inverse step for a completed mutating
// step, given the original step's arguments and its output.
type InverseBuilder func(original schema.Step, output string) (schema.Step, error)

// InvertibilityTable declares, per (tool, action), either an
// InverseBuilder or an explicit "not invertible" marker. This resolves
// the rollback Open Question from spec.md §9: invertibility is
// declared up front rather than guessed at rollback time.
type InvertibilityTable struct {
	entries map[string]InverseBuilder
}

// NotInvertible marks a (tool, action) pair whose mutations cannot be
// reversed. Registering it explicitly means Rollback reports a clear
// ErrNotInvertible instead of silently skipping the action.
var NotInvertible InverseBuilder = nil

// NewInvertibilityTable returns a table seeded with the inverses this
// implementation ships (FileOps.move, FileOps.scan/delete handling),
// plus explicit NotInvertible entries for every tool/action named in
// the domain stack's tool catalogue that this spec does not implement
// a body for (GitOps, NetworkOps, ContainerOps, BrowserOps,
// ServiceOps, PackageOps — see SPEC_FULL.md §4.3).
func NewInvertibilityTable() *InvertibilityTable {
	t := &InvertibilityTable{entries: make(map[string]InverseBuilder)}

	t.Register("FileOps", "move", func(original schema.Step, _ string) (schema.Step, error) {
		src, okSrc := original.ArgString("src")
		dst, okDst := original.ArgString("dst")
		if !okSrc || !okDst {
			return schema.Step{}, fmt.Errorf("FileOps.move inverse: missing src/dst")
		}
		return schema.Step{
			Tool:   "FileOps",
			Action: "move",
			Args:   map[string]any{"src": dst, "dst": src},
			Risk:   schema.RiskCreate,
		}, nil
	})

	// Declared-but-unimplemented tool/action pairs from the wider
	// zenus_core tool catalogue (GitOps, NetworkOps, ContainerOps,
	// BrowserOps, ServiceOps, PackageOps). These are named here so the
	// invertibility story is complete and rollback fails loudly rather
	// than silently for tools this implementation does not carry a
	// body for.
	for _, entry := range []struct{ tool, action string }{
		{"GitOps", "commit"}, {"GitOps", "push"},
		{"NetworkOps", "request"},
		{"ContainerOps", "run"}, {"ContainerOps", "stop"},
		{"BrowserOps", "navigate"},
		{"ServiceOps", "restart"},
		{"PackageOps", "install"}, {"PackageOps", "remove"},
	} {
		t.Register(entry.tool, entry.action, NotInvertible)
	}

	// Reads and scans are risk 0 and never enter the action tracker,
	// so no inverse is needed, but declaring them avoids an
	// ErrNotInvertible surprise if a caller asks anyway.
	t.Register("FileOps", "scan", NotInvertible)
	t.Register("ProcessOps", "status", NotInvertible)
	t.Register("TextOps", "grep", NotInvertible)

	t.Register("FileOps", "delete", NotInvertible)
	t.Register("ProcessOps", "kill", NotInvertible)

	return t
}

func key(tool, action string) string { return tool + "." + action }

// Register adds or replaces the inverse builder for tool.action.
// Pass NotInvertible to explicitly mark the pair as non-reversible.
func (t *InvertibilityTable) Register(tool, action string, builder InverseBuilder) {
	t.entries[key(tool, action)] = builder
}

// Inverse returns the inverse Step for a completed mutating step, or
// ErrNotInvertible if the pair was never registered or was registered
// with NotInvertible.
func (t *InvertibilityTable) Inverse(original schema.Step, output string) (schema.Step, error) {
	builder, declared := t.entries[key(original.Tool, original.Action)]
	if !declared || builder == nil {
		return schema.Step{}, fmt.Errorf("%s.%s: %w", original.Tool, original.Action, zerrors.ErrNotInvertible)
	}
	return builder(original, output)
}
