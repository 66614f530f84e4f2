// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"regexp"
	"strings"
)

// ComplexityScore is a task complexity assessment in [0.0, 1.0],
// ported 1:1 from zenus_core/brain/task_complexity.py.
type ComplexityScore struct {
	Score            float64
	Reasons          []string
	RecommendedModel string
	Confidence       float64
}

// IsSimple reports whether the task is simple enough for the cheap model.
func (c ComplexityScore) IsSimple() bool { return c.Score < 0.3 }

// IsComplex reports whether the task requires the powerful model.
func (c ComplexityScore) IsComplex() bool { return c.Score > 0.7 }

var complexKeywords = []string{
	"analyze", "refactor", "optimize", "design", "architecture",
	"explain", "debug", "troubleshoot", "investigate", "research",
	"compare", "evaluate", "recommend", "suggest improvements",
	"best practices", "review", "audit", "assess", "plan",
	"strategy", "approach", "solution", "alternatives",
}

var simpleKeywords = []string{
	"list", "show", "display", "get", "check", "status",
	"info", "view", "read", "print", "cat", "ls", "pwd",
	"echo", "which", "whereis", "find file", "locate",
}

var simpleOperations = []string{
	"list files", "show status", "check status", "pwd",
	"whoami", "date", "uptime", "df", "du", "free",
	"ps", "top", "ls", "cat file",
}

var multiStepPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\band\b`),
	regexp.MustCompile(`\bthen\b`),
	regexp.MustCompile(`\bafter\b`),
	regexp.MustCompile(`\bnext\b`),
	regexp.MustCompile(`\bfirst\b.*\bsecond\b`),
	regexp.MustCompile(`\bstep \d+`),
	regexp.MustCompile(`\d+\)`),
}

// ComplexityClassifier scores natural language commands to decide
// whether they should be routed to a cheap or a powerful model.
type ComplexityClassifier struct {
	CheapModel    string
	PowerfulModel string
}

// NewComplexityClassifier creates a classifier with the given cheap
// and powerful model identifiers.
func NewComplexityClassifier(cheapModel, powerfulModel string) *ComplexityClassifier {
	return &ComplexityClassifier{CheapModel: cheapModel, PowerfulModel: powerfulModel}
}

// Analyze scores userInput's complexity, factoring in whether
// iterative (ReAct goal-tracking) mode was requested.
func (c *ComplexityClassifier) Analyze(userInput string, iterative bool) ComplexityScore {
	var reasons []string
	score := 0.0

	normalized := strings.ToLower(strings.TrimSpace(userInput))

	if iterative {
		score += 0.4
		reasons = append(reasons, "Iterative mode requested (complex task)")
	}

	wordCount := len(strings.Fields(normalized))
	switch {
	case wordCount > 30:
		score += 0.3
		reasons = append(reasons, "Long command")
	case wordCount > 15:
		score += 0.15
		reasons = append(reasons, "Medium-length command")
	}

	for _, op := range simpleOperations {
		if strings.Contains(normalized, op) {
			score = max64(0.1, score-0.3)
			reasons = append(reasons, "Simple operation: '"+op+"'")
			break
		}
	}

	var complexFound []string
	for _, kw := range complexKeywords {
		if strings.Contains(normalized, kw) {
			complexFound = append(complexFound, kw)
		}
	}
	if len(complexFound) > 0 {
		boost := min64(0.4, float64(len(complexFound))*0.15)
		score += boost
		reasons = append(reasons, "Complex keywords: "+strings.Join(firstN(complexFound, 3), ", "))
	}

	var simpleFound []string
	for _, kw := range simpleKeywords {
		if strings.Contains(normalized, kw) {
			simpleFound = append(simpleFound, kw)
		}
	}
	if len(simpleFound) > 0 && len(complexFound) == 0 {
		score = max64(0.0, score-0.2)
		reasons = append(reasons, "Simple keywords: "+strings.Join(firstN(simpleFound, 2), ", "))
	}

	multiStepCount := 0
	for _, pattern := range multiStepPatterns {
		if pattern.MatchString(normalized) {
			multiStepCount++
		}
	}
	if multiStepCount >= 2 {
		score += 0.2
		reasons = append(reasons, "Multi-step task detected")
	}

	for _, indicator := range []string{"codebase", "repository", "project", "database"} {
		if strings.Contains(normalized, indicator) {
			score += 0.2
			reasons = append(reasons, "Operating on large scope (codebase/project)")
			break
		}
	}

	for _, word := range []string{"delete", "remove", "destroy", "wipe"} {
		if strings.Contains(normalized, word) {
			reasons = append(reasons, "Destructive operation (not necessarily complex)")
			break
		}
	}

	score = max64(0.0, min64(1.0, score))
	confidence := min64(0.95, 0.5+float64(len(reasons))*0.1)

	recommended := c.CheapModel
	if score > 0.7 {
		recommended = c.PowerfulModel
	}

	return ComplexityScore{
		Score:            score,
		Reasons:          reasons,
		RecommendedModel: recommended,
		Confidence:       confidence,
	}
}

// ShouldUsePowerfulModel is a convenience wrapper returning whether
// Analyze recommends the powerful model.
func (c *ComplexityClassifier) ShouldUsePowerfulModel(userInput string, iterative bool) bool {
	return c.Analyze(userInput, iterative).RecommendedModel == c.PowerfulModel
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
