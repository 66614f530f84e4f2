// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenus-ai/zenus/internal/schema"
)

func TestBuild_IndependentSteps(t *testing.T) {
	steps := []schema.Step{
		{Tool: "FileOps", Action: "scan", Args: map[string]any{"path": "/a"}, Risk: schema.RiskRead},
		{Tool: "FileOps", Action: "scan", Args: map[string]any{"path": "/b"}, Risk: schema.RiskRead},
	}
	g := Build(steps)

	ready := g.ReadySet()
	assert.ElementsMatch(t, []int{0, 1}, ready)
	assert.True(t, g.CanParallelize(ready))
}

func TestBuild_PlaceholderEdge(t *testing.T) {
	steps := []schema.Step{
		{Tool: "FileOps", Action: "scan", Args: map[string]any{"path": "/a"}, Risk: schema.RiskRead},
		{Tool: "TextOps", Action: "grep", Args: map[string]any{"input": "{{step_0.output}}", "pattern": "x"}, Risk: schema.RiskRead},
	}
	g := Build(steps)

	assert.Equal(t, []int{0}, g.Dependencies(1))
	assert.ElementsMatch(t, []int{0}, g.ReadySet())
	waves := g.Waves()
	require.Len(t, waves, 2)
	assert.Equal(t, []int{0}, waves[0])
	assert.Equal(t, []int{1}, waves[1])
	assert.False(t, g.CanParallelize([]int{0, 1}))
}

func TestBuild_SameTargetPathSerializes(t *testing.T) {
	steps := []schema.Step{
		{Tool: "FileOps", Action: "move", Args: map[string]any{"src": "/a", "dst": "/shared"}, Risk: schema.RiskCreate},
		{Tool: "FileOps", Action: "delete", Args: map[string]any{"path": "/shared"}, Risk: schema.RiskDestructive},
	}
	g := Build(steps)

	assert.Equal(t, []int{0}, g.Dependencies(1))
	assert.False(t, g.CanParallelize([]int{0, 1}))
}

func TestWaves_ThreeIndependentSteps(t *testing.T) {
	steps := []schema.Step{
		{Tool: "FileOps", Action: "scan", Args: map[string]any{"path": "/a"}, Risk: schema.RiskRead},
		{Tool: "FileOps", Action: "scan", Args: map[string]any{"path": "/b"}, Risk: schema.RiskRead},
		{Tool: "FileOps", Action: "scan", Args: map[string]any{"path": "/c"}, Risk: schema.RiskRead},
	}
	g := Build(steps)
	waves := g.Waves()
	require.Len(t, waves, 1)
	assert.ElementsMatch(t, []int{0, 1, 2}, waves[0])
}
