// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transaction

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenus-ai/zenus/internal/schema"
	"github.com/zenus-ai/zenus/internal/store"
	"github.com/zenus-ai/zenus/internal/tools"
	"github.com/zenus-ai/zenus/internal/toolregistry"
)

// TestEngine_RollbackTwoMoves exercises spec.md §8's scenario
// directly: two completed FileOps.move actions (a->b, c->d) must roll
// back as move d->c then move b->a, newest first.
func TestEngine_RollbackTwoMoves(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	a := filepath.Join(dir, "a")
	c := filepath.Join(dir, "c")
	require.NoError(t, os.WriteFile(a, []byte("a-contents"), 0o600))
	require.NoError(t, os.WriteFile(c, []byte("c-contents"), 0o600))

	b := filepath.Join(dir, "b")
	d := filepath.Join(dir, "d")

	db, err := store.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	registry := toolregistry.New(tools.FileOps{})
	tracker := New(db, nil, nil)

	_, err = tracker.Begin(ctx, "move a to b then c to d", "relocate two files")
	require.NoError(t, err)

	moveAB := schema.Step{Tool: "FileOps", Action: "move", Args: map[string]any{"src": a, "dst": b}, Risk: schema.RiskCreate}
	out, err := registry.Dispatch(ctx, moveAB.Tool, moveAB.Action, moveAB.Args)
	require.NoError(t, err)
	require.NoError(t, tracker.Record(ctx, moveAB, schema.StepResult{Success: true, Output: out}))

	moveCD := schema.Step{Tool: "FileOps", Action: "move", Args: map[string]any{"src": c, "dst": d}, Risk: schema.RiskCreate}
	out, err = registry.Dispatch(ctx, moveCD.Tool, moveCD.Action, moveCD.Args)
	require.NoError(t, err)
	require.NoError(t, tracker.Record(ctx, moveCD, schema.StepResult{Success: true, Output: out}))

	require.NoError(t, tracker.Complete(ctx))

	engine := NewEngine(db, registry, toolregistry.NewInvertibilityTable(), nil, nil)
	result, err := engine.Rollback(ctx, 2, false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ActionsRolled)
	assert.Equal(t, 0, result.ActionsFailed)
	require.Len(t, result.Planned, 2)

	assert.Equal(t, d, result.Planned[0].Inverse.Args["src"])
	assert.Equal(t, c, result.Planned[0].Inverse.Args["dst"])
	assert.Equal(t, b, result.Planned[1].Inverse.Args["src"])
	assert.Equal(t, a, result.Planned[1].Inverse.Args["dst"])

	assert.FileExists(t, a)
	assert.FileExists(t, c)
	assert.NoFileExists(t, b)
	assert.NoFileExists(t, d)

	loaded, err := db.LoadTransaction(ctx, tracker.Current().ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusRolledBack, loaded.Status)
}

func TestEngine_Rollback_DryRunDoesNotDispatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("contents"), 0o600))

	db, err := store.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	registry := toolregistry.New(tools.FileOps{})
	tracker := New(db, nil, nil)

	_, err = tracker.Begin(ctx, "move a to b", "relocate file")
	require.NoError(t, err)

	move := schema.Step{Tool: "FileOps", Action: "move", Args: map[string]any{"src": a, "dst": b}, Risk: schema.RiskCreate}
	out, err := registry.Dispatch(ctx, move.Tool, move.Action, move.Args)
	require.NoError(t, err)
	require.NoError(t, tracker.Record(ctx, move, schema.StepResult{Success: true, Output: out}))

	engine := NewEngine(db, registry, toolregistry.NewInvertibilityTable(), nil, nil)
	result, err := engine.Rollback(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ActionsRolled)
	require.Len(t, result.Planned, 1)

	assert.FileExists(t, b)
	assert.NoFileExists(t, a)
}

func TestEngine_Rollback_NotInvertibleReportsError(t *testing.T) {
	ctx := context.Background()

	db, err := store.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	registry := toolregistry.New(tools.FileOps{})
	tracker := New(db, nil, nil)

	_, err = tracker.Begin(ctx, "delete a file", "remove file")
	require.NoError(t, err)

	del := schema.Step{Tool: "FileOps", Action: "delete", Args: map[string]any{"path": "/tmp/whatever"}, Risk: schema.RiskDestructive}
	require.NoError(t, tracker.Record(ctx, del, schema.StepResult{Success: true, Output: "deleted"}))

	engine := NewEngine(db, registry, toolregistry.NewInvertibilityTable(), nil, nil)
	result, err := engine.Rollback(ctx, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ActionsRolled)
	assert.Equal(t, 1, result.ActionsFailed)
	require.Len(t, result.Errors, 1)
}
