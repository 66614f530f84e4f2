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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenus-ai/zenus/internal/schema"
	"github.com/zenus-ai/zenus/internal/store"
)

func newTestTracker(t *testing.T) (*Tracker, *store.DB) {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, nil, nil), db
}

func TestTracker_BeginPersistsRunningTransaction(t *testing.T) {
	ctx := context.Background()
	tracker, db := newTestTracker(t)

	tx, err := tracker.Begin(ctx, "move a to b", "relocate file a")
	require.NoError(t, err)
	assert.Equal(t, store.StatusRunning, tx.Status)

	loaded, err := db.LoadTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusRunning, loaded.Status)
}

func TestTracker_RecordAppendsActionAndIncrementsWorldModel(t *testing.T) {
	ctx := context.Background()
	tracker, db := newTestTracker(t)

	_, err := tracker.Begin(ctx, "move a to b", "relocate file a")
	require.NoError(t, err)

	step := schema.Step{Tool: "FileOps", Action: "move", Args: map[string]any{"src": "a", "dst": "b"}, Risk: schema.RiskCreate}
	require.NoError(t, tracker.Record(ctx, step, schema.StepResult{Success: true, Output: "moved"}))

	actions, err := db.ListActionsForTransaction(ctx, tracker.Current().ID)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "FileOps", actions[0].Tool)
	assert.Equal(t, 1, actions[0].Sequence)

	world := store.NewWorldModel(db)
	count, err := world.PathCountOf(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTracker_RecordSequenceStrictlyIncreases(t *testing.T) {
	ctx := context.Background()
	tracker, db := newTestTracker(t)

	_, err := tracker.Begin(ctx, "two moves", "relocate two files")
	require.NoError(t, err)

	step1 := schema.Step{Tool: "FileOps", Action: "move", Args: map[string]any{"src": "a", "dst": "b"}, Risk: schema.RiskCreate}
	step2 := schema.Step{Tool: "FileOps", Action: "move", Args: map[string]any{"src": "c", "dst": "d"}, Risk: schema.RiskCreate}
	require.NoError(t, tracker.Record(ctx, step1, schema.StepResult{Success: true}))
	require.NoError(t, tracker.Record(ctx, step2, schema.StepResult{Success: true}))

	actions, err := db.ListActionsForTransaction(ctx, tracker.Current().ID)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, 1, actions[0].Sequence)
	assert.Equal(t, 2, actions[1].Sequence)
}

func TestTracker_CompleteAndFailUpdateStatus(t *testing.T) {
	ctx := context.Background()
	tracker, db := newTestTracker(t)

	tx, err := tracker.Begin(ctx, "goal", "goal")
	require.NoError(t, err)
	require.NoError(t, tracker.Complete(ctx))

	loaded, err := db.LoadTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, loaded.Status)
}

func TestTracker_FailMarksTransactionFailed(t *testing.T) {
	ctx := context.Background()
	tracker, db := newTestTracker(t)

	tx, err := tracker.Begin(ctx, "goal", "goal")
	require.NoError(t, err)
	require.NoError(t, tracker.Fail(ctx))

	loaded, err := db.LoadTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, loaded.Status)
}
