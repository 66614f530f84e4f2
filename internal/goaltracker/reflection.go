// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package goaltracker

import (
	"strconv"
	"strings"
)

// GoalStatus is one reflection's structured self-assessment, ported
// from src/brain/goal_tracker.py's GoalStatus.
type GoalStatus struct {
	Achieved   bool
	Confidence float64
	Reasoning  string
	NextSteps  []string
}

// ParseReflection parses a line-oriented LLM reflection into a
// GoalStatus, tolerating missing fields by defaulting
// achieved=false, confidence=0.5 (spec.md §4.8), exactly as
// _parse_reflection does line-by-line prefix matching rather than
// strict JSON.
func ParseReflection(text string) GoalStatus {
	status := GoalStatus{
		Achieved:   false,
		Confidence: 0.5,
		Reasoning:  "Unknown",
	}

	for _, raw := range strings.Split(strings.TrimSpace(text), "\n") {
		line := strings.TrimSpace(raw)

		switch {
		case hasPrefixFold(line, "ACHIEVED:"):
			value := strings.TrimSpace(line[len("ACHIEVED:"):])
			status.Achieved = strings.Contains(strings.ToLower(value), "yes")

		case hasPrefixFold(line, "CONFIDENCE:"):
			value := strings.TrimSpace(line[len("CONFIDENCE:"):])
			if c, err := strconv.ParseFloat(value, 64); err == nil {
				status.Confidence = clamp(c, 0, 1)
			} else {
				status.Confidence = 0.5
			}

		case hasPrefixFold(line, "REASONING:"):
			status.Reasoning = strings.TrimSpace(line[len("REASONING:"):])

		case hasPrefixFold(line, "NEXT_STEPS:"):
			value := strings.TrimSpace(line[len("NEXT_STEPS:"):])
			if strings.ToLower(value) != "none" && value != "" {
				var steps []string
				for _, s := range strings.Split(value, ",") {
					s = strings.TrimSpace(s)
					if s != "" {
						steps = append(steps, s)
					}
				}
				status.NextSteps = steps
			}
		}
	}

	return status
}

func hasPrefixFold(line, prefix string) bool {
	return len(line) >= len(prefix) && strings.EqualFold(line[:len(prefix)], prefix)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
