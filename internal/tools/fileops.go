// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools provides local, minimal stand-in implementations of
// the external tool collaborators spec.md treats as out of scope
// (filesystem, process, network, ...).
//
// # Description
//
// Only enough behavior is implemented to drive the end-to-end
// scenarios in spec.md §8 and to exercise the executor, recovery,
// and rollback packages: FileOps (scan/move/delete/mkdir), ProcessOps
// (status/kill), and TextOps (grep). Richer tools named in the
// original zenus_core tool catalogue (GitOps, NetworkOps,
// ContainerOps, BrowserOps, ServiceOps, PackageOps) are declared in
// internal/toolregistry's invertibility table but have no body here.
package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zenus-ai/zenus/internal/toolregistry"
)

// FileOps exposes read-only and mutating filesystem operations.
type FileOps struct{}

// Name returns the registry key "FileOps".
func (FileOps) Name() string { return "FileOps" }

// Actions returns the scan/move/delete/mkdir action table.
func (f FileOps) Actions() map[string]toolregistry.ActionFunc {
	return map[string]toolregistry.ActionFunc{
		"scan":   f.scan,
		"move":   f.move,
		"delete": f.delete,
		"mkdir":  f.mkdir,
	}
}

func expand(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %q: %w", path, err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

func (FileOps) scan(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	full, err := expand(path)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return strings.Join(names, ", "), nil
}

func (FileOps) move(ctx context.Context, args map[string]any) (string, error) {
	src, _ := args["src"].(string)
	dst, _ := args["dst"].(string)
	fullSrc, err := expand(src)
	if err != nil {
		return "", err
	}
	fullDst, err := expand(dst)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullDst), 0o750); err != nil {
		return "", fmt.Errorf("move %s -> %s: %w", src, dst, err)
	}
	if err := os.Rename(fullSrc, fullDst); err != nil {
		return "", fmt.Errorf("move %s -> %s: %w", src, dst, err)
	}
	return fmt.Sprintf("moved %s -> %s", src, dst), nil
}

func (FileOps) delete(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	full, err := expand(path)
	if err != nil {
		return "", err
	}
	if err := os.RemoveAll(full); err != nil {
		return "", fmt.Errorf("delete %s: %w", path, err)
	}
	return fmt.Sprintf("deleted %s", path), nil
}

func (FileOps) mkdir(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	full, err := expand(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(full, 0o750); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", path, err)
	}
	return fmt.Sprintf("created %s", path), nil
}
