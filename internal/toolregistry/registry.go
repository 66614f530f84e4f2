// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package toolregistry implements static, reflection-free dispatch from
// (tool, action) names to typed handlers.
//
// # Description
//
// The source system this pipeline was distilled from resolved
// (tool, action) pairs via Python's getattr reflection. This package
// replaces that with an explicit registration table: each Tool
// declares its name and a map of action name to handler function.
// An unknown tool or action name yields ErrToolNotFound/
// ErrActionNotFound without ever touching reflection.
package toolregistry

import (
	"context"
	"fmt"

	"github.com/zenus-ai/zenus/internal/zerrors"
)

// ActionFunc is a typed handler for one (tool, action) pair. It
// receives the step's decoded argument map and returns a
// human-readable result string or an error.
type ActionFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is a named bundle of actions.
type Tool interface {
	// Name returns the tool's registry key, e.g. "FileOps".
	Name() string

	// Actions returns the action name -> handler table.
	Actions() map[string]ActionFunc
}

// Registry maps tool names to Tool implementations.
//
// Thread Safety: Registry is built once at startup via New and is
// read-only thereafter; concurrent Dispatch calls are safe.
type Registry struct {
	tools map[string]Tool
}

// New builds a Registry from the given tools. Later entries with a
// duplicate Name() overwrite earlier ones.
func New(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// Dispatch resolves step.Tool and step.Action and invokes the handler
// with args. Returns ErrToolNotFound or ErrActionNotFound when
// resolution fails, and ErrToolExecutionError wrapping the handler's
// error when the handler itself fails.
func (r *Registry) Dispatch(ctx context.Context, toolName, actionName string, args map[string]any) (string, error) {
	tool, ok := r.tools[toolName]
	if !ok {
		return "", fmt.Errorf("%s: %w", toolName, zerrors.ErrToolNotFound)
	}
	action, ok := tool.Actions()[actionName]
	if !ok {
		return "", fmt.Errorf("%s.%s: %w", toolName, actionName, zerrors.ErrActionNotFound)
	}
	out, err := action(ctx, args)
	if err != nil {
		return "", fmt.Errorf("%s.%s: %w: %v", toolName, actionName, zerrors.ErrToolExecutionError, err)
	}
	return out, nil
}

// HasTool reports whether toolName is registered, independent of any
// particular action, used to distinguish ErrToolNotFound from
// ErrActionNotFound at dispatch time.
func (r *Registry) HasTool(toolName string) bool {
	_, ok := r.tools[toolName]
	return ok
}

// Has reports whether toolName.actionName resolves in the registry
// without executing anything. The executor checks it before running a
// step, and the rollback engine before applying an inverse action.
func (r *Registry) Has(toolName, actionName string) bool {
	tool, ok := r.tools[toolName]
	if !ok {
		return false
	}
	_, ok = tool.Actions()[actionName]
	return ok
}

// Names returns the registered tool names, for CLI help and the
// prompt contract's declared allowed set (SPEC_FULL.md §4.4).
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}
