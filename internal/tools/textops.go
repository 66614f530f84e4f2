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
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/zenus-ai/zenus/internal/toolregistry"
)

// TextOps exposes read-only text search, ported from
// zenus_core/tools/text_ops.py's grep-style helper.
type TextOps struct{}

// Name returns the registry key "TextOps".
func (TextOps) Name() string { return "TextOps" }

// Actions returns the grep action table.
func (t TextOps) Actions() map[string]toolregistry.ActionFunc {
	return map[string]toolregistry.ActionFunc{
		"grep": t.grep,
	}
}

func (TextOps) grep(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	pattern, _ := args["pattern"].(string)
	if path == "" || pattern == "" {
		return "", fmt.Errorf("grep: path and pattern are required")
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("grep %s: %w", path, err)
	}
	defer f.Close()

	var matches []string
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		if strings.Contains(scanner.Text(), pattern) {
			matches = append(matches, fmt.Sprintf("%d:%s", lineNo, scanner.Text()))
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("grep %s: %w", path, err)
	}
	return fmt.Sprintf("%d matches: %s", len(matches), strings.Join(matches, " | ")), nil
}
