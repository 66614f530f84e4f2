// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorldModel(t *testing.T) *WorldModel {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWorldModel(db)
}

func TestWorldModel_IncrementPath(t *testing.T) {
	ctx := context.Background()
	wm := newTestWorldModel(t)

	require.NoError(t, wm.IncrementPath(ctx, "/home/user/project"))
	require.NoError(t, wm.IncrementPath(ctx, "/home/user/project"))

	count, err := wm.PathCountOf(ctx, "/home/user/project")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestWorldModel_DecrementPath(t *testing.T) {
	ctx := context.Background()
	wm := newTestWorldModel(t)

	require.NoError(t, wm.IncrementPath(ctx, "/tmp/a"))
	require.NoError(t, wm.IncrementPath(ctx, "/tmp/a"))
	require.NoError(t, wm.DecrementPath(ctx, "/tmp/a"))

	count, err := wm.PathCountOf(ctx, "/tmp/a")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWorldModel_DecrementPast_RemovesKey(t *testing.T) {
	ctx := context.Background()
	wm := newTestWorldModel(t)

	require.NoError(t, wm.IncrementPath(ctx, "/tmp/b"))
	require.NoError(t, wm.DecrementPath(ctx, "/tmp/b"))

	count, err := wm.PathCountOf(ctx, "/tmp/b")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestWorldModel_RoundTripRollbackThenReplay(t *testing.T) {
	ctx := context.Background()
	wm := newTestWorldModel(t)

	require.NoError(t, wm.IncrementPath(ctx, "/repo/file.go"))
	require.NoError(t, wm.DecrementPath(ctx, "/repo/file.go"))
	require.NoError(t, wm.IncrementPath(ctx, "/repo/file.go"))

	count, err := wm.PathCountOf(ctx, "/repo/file.go")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "rollback then replay must restore the counter")
}

func TestWorldModel_TopPaths(t *testing.T) {
	ctx := context.Background()
	wm := newTestWorldModel(t)

	require.NoError(t, wm.IncrementPath(ctx, "/a"))
	require.NoError(t, wm.IncrementPath(ctx, "/a"))
	require.NoError(t, wm.IncrementPath(ctx, "/a"))
	require.NoError(t, wm.IncrementPath(ctx, "/b"))

	top, err := wm.TopPaths(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "/a", top[0].Path)
	assert.Equal(t, 3, top[0].Count)
}

func TestWorldModel_Snapshot(t *testing.T) {
	ctx := context.Background()
	wm := newTestWorldModel(t)

	require.NoError(t, wm.IncrementPath(ctx, "/a"))
	require.NoError(t, wm.IncrementPath(ctx, "/b"))

	snap, err := wm.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"/a": 1, "/b": 1}, snap)
}
