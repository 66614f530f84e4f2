// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package failurelog

import (
	"context"
	"fmt"
	"sort"
)

// Suggestion is a known-failure-pattern warning the CLI surfaces
// before dispatching a translate call whose input overlaps a past
// failure signature (SPEC_FULL.md §5).
type Suggestion struct {
	Tool      string
	Signature string
	Text      string
	Count     int
}

// Suggest finds the highest-count pattern, across every tool, whose
// signature token-overlaps userInput and carries an attached
// suggestion. It returns ok=false when no pattern has a suggestion
// attached yet, matching test_pattern_suggestions' observation that a
// freshly logged failure has no suggestion until one is set.
func (l *Logger) Suggest(ctx context.Context, userInput string) (Suggestion, bool, error) {
	patterns, err := l.failures.ListPatterns(ctx)
	if err != nil {
		return Suggestion{}, false, fmt.Errorf("failurelog: suggest: %w", err)
	}

	queryTokens := tokenize(userInput)
	var candidates []Suggestion
	for _, p := range patterns {
		if p.Suggestion == "" {
			continue
		}
		if overlapScore(queryTokens, tokenize(p.Signature)) == 0 {
			continue
		}
		candidates = append(candidates, Suggestion{Tool: p.Tool, Signature: p.Signature, Text: p.Suggestion, Count: p.Count})
	}
	if len(candidates) == 0 {
		return Suggestion{}, false, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Count > candidates[j].Count })
	return candidates[0], true, nil
}
