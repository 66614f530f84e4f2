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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComplexityClassifierSimpleCommand(t *testing.T) {
	c := NewComplexityClassifier("deepseek", "anthropic")
	score := c.Analyze("list files in the current directory", false)
	assert.True(t, score.IsSimple())
	assert.Equal(t, "deepseek", score.RecommendedModel)
}

func TestComplexityClassifierComplexCommand(t *testing.T) {
	c := NewComplexityClassifier("deepseek", "anthropic")
	score := c.Analyze("analyze the codebase architecture and recommend a refactor strategy, then evaluate alternatives", false)
	assert.True(t, score.IsComplex())
	assert.Equal(t, "anthropic", score.RecommendedModel)
}

func TestComplexityClassifierIterativeBoostsScore(t *testing.T) {
	c := NewComplexityClassifier("deepseek", "anthropic")
	withoutIterative := c.Analyze("do something", false)
	withIterative := c.Analyze("do something", true)
	assert.Greater(t, withIterative.Score, withoutIterative.Score)
}

func TestComplexityClassifierScoreClamped(t *testing.T) {
	c := NewComplexityClassifier("deepseek", "anthropic")
	score := c.Analyze("analyze refactor optimize design architecture explain debug troubleshoot investigate research codebase repository project database", true)
	assert.LessOrEqual(t, score.Score, 1.0)
	assert.GreaterOrEqual(t, score.Score, 0.0)
}

func TestComplexityClassifierShouldUsePowerfulModel(t *testing.T) {
	c := NewComplexityClassifier("deepseek", "anthropic")
	assert.False(t, c.ShouldUsePowerfulModel("show status", false))
	assert.True(t, c.ShouldUsePowerfulModel("analyze the codebase architecture and recommend refactor strategy then evaluate alternatives", false))
}

func TestComplexityClassifierEmptyInput(t *testing.T) {
	c := NewComplexityClassifier("deepseek", "anthropic")
	score := c.Analyze("", false)
	assert.Equal(t, 0.0, score.Score)
	assert.Equal(t, "deepseek", score.RecommendedModel)
}
