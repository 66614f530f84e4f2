// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package depgraph builds the dependency DAG a plan's steps form and
// groups independent steps into parallel-dispatchable waves.
//
// # Description
//
// Unlike a named-node DAG, steps carry no stable identity beyond their
// position in the Intent's step list, so edges are keyed by step
// index rather than by name (SPEC_FULL.md §4.6). An edge j->i (i > j)
// exists when step i's arguments textually reference step j's output
// via a "{{step_j.output}}" placeholder, or when both steps target the
// same write path. Edges only ever point from an earlier index to a
// later one, so the graph this package builds can never contain a
// cycle.
//
// # Thread Safety
//
// Graph is built once and read thereafter; it holds no mutable state.
package depgraph

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/zenus-ai/zenus/internal/schema"
)

// placeholderPattern matches "{{step_N.output}}" references in an
// argument value, the convention spec.md §4.4 defines for wiring one
// step's output into a later step's args.
var placeholderPattern = regexp.MustCompile(`\{\{\s*step_(\d+)\.output\s*\}\}`)

// pathArgKeys are the argument keys this package treats as naming a
// filesystem target for same-target-path edge detection. A step that
// names a path under these keys depends on every earlier mutating
// step that named the same path, even without an explicit placeholder
// reference. An earlier read-only step gets no such edge, so a read
// followed by a later write of the same path is not serialized.
var pathArgKeys = []string{"path", "src", "dst"}

// Graph is the dependency DAG over one Intent's ordered steps.
type Graph struct {
	steps []schema.Step
	// deps[i] holds the indices step i depends on (all < i).
	deps [][]int
	// dependents[j] holds the indices that depend on step j.
	dependents [][]int
}

// Build constructs the dependency graph for steps. Because edges only
// ever point from a lower index to a higher one, the result is
// acyclic by construction -- no cycle detection is required.
func Build(steps []schema.Step) *Graph {
	g := &Graph{
		steps:      steps,
		deps:       make([][]int, len(steps)),
		dependents: make([][]int, len(steps)),
	}

	writesAt := map[string][]int{} // path -> step indices that write it

	for i, step := range steps {
		for _, j := range referencedSteps(step) {
			if j < i {
				g.addEdge(j, i)
			}
		}

		paths := targetPaths(step)
		mutating := step.Risk.Mutating()
		for _, p := range paths {
			for _, j := range writesAt[p] {
				if j < i {
					g.addEdge(j, i)
				}
			}
			if mutating {
				writesAt[p] = append(writesAt[p], i)
			}
		}
	}

	return g
}

func (g *Graph) addEdge(from, to int) {
	for _, d := range g.deps[to] {
		if d == from {
			return
		}
	}
	g.deps[to] = append(g.deps[to], from)
	g.dependents[from] = append(g.dependents[from], to)
}

// referencedSteps returns the step indices this step's args reference
// via "{{step_N.output}}" placeholders.
func referencedSteps(step schema.Step) []int {
	var indices []int
	for _, v := range step.Args {
		s, ok := v.(string)
		if !ok {
			continue
		}
		for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				indices = append(indices, n)
			}
		}
	}
	return indices
}

// targetPaths returns the filesystem-path-shaped argument values a
// step names, used for same-target-path edge detection.
func targetPaths(step schema.Step) []string {
	var paths []string
	for _, key := range pathArgKeys {
		if v, ok := step.ArgString(key); ok && v != "" {
			paths = append(paths, v)
		}
	}
	return paths
}

// Dependencies returns the step indices that index must wait for.
func (g *Graph) Dependencies(index int) []int {
	return g.deps[index]
}

// ReadySet returns the indices of steps with no incoming edges -- the
// first wave the executor may dispatch.
func (g *Graph) ReadySet() []int {
	var ready []int
	for i := range g.steps {
		if len(g.deps[i]) == 0 {
			ready = append(ready, i)
		}
	}
	return ready
}

// Waves partitions every step index into sequential waves: wave 0 is
// ReadySet(), and wave k+1 contains every step whose dependencies are
// all satisfied by waves 0..k. Steps within one wave are independent
// and safe to dispatch concurrently.
func (g *Graph) Waves() [][]int {
	satisfied := make([]bool, len(g.steps))
	remaining := len(g.steps)
	var waves [][]int

	for remaining > 0 {
		var wave []int
		for i := range g.steps {
			if satisfied[i] {
				continue
			}
			if g.allSatisfied(i, satisfied) {
				wave = append(wave, i)
			}
		}
		if len(wave) == 0 {
			// Cannot happen given construction (edges strictly
			// forward), but guards against an infinite loop if that
			// invariant is ever violated.
			break
		}
		for _, i := range wave {
			satisfied[i] = true
		}
		remaining -= len(wave)
		waves = append(waves, wave)
	}
	return waves
}

func (g *Graph) allSatisfied(index int, satisfied []bool) bool {
	for _, d := range g.deps[index] {
		if !satisfied[d] {
			return false
		}
	}
	return true
}

// CanParallelize reports whether at least two steps in indices are
// independent of one another (neither depends, directly or
// transitively, on the other) and therefore may run concurrently.
func (g *Graph) CanParallelize(indices []int) bool {
	if len(indices) < 2 {
		return false
	}
	set := make(map[int]bool, len(indices))
	for _, i := range indices {
		set[i] = true
	}
	for _, i := range indices {
		for _, dep := range g.transitiveDeps(i) {
			if set[dep] {
				return false
			}
		}
	}
	return true
}

func (g *Graph) transitiveDeps(index int) []int {
	visited := map[int]bool{}
	var stack []int
	stack = append(stack, g.deps[index]...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true
		stack = append(stack, g.deps[n]...)
	}
	out := make([]int, 0, len(visited))
	for n := range visited {
		out = append(out, n)
	}
	return out
}

// String renders a human-readable edge listing for debugging and
// dry-run previews.
func (g *Graph) String() string {
	out := ""
	for i := range g.steps {
		out += fmt.Sprintf("step %d depends on %v\n", i, g.deps[i])
	}
	return out
}
