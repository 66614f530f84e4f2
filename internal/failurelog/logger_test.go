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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenus-ai/zenus/internal/store"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, nil)
}

func TestLogFailure_ReturnsPositiveID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger(t)

	id, err := logger.LogFailure(ctx, "delete system32", "Delete system files", "FileOps",
		"permission_denied", "Permission denied: /system32", map[string]any{"cwd": "/home/user"})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))
}

func TestGetSimilarFailures_FiltersByToolAndLimits(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger(t)

	for i := 0; i < 3; i++ {
		_, err := logger.LogFailure(ctx, fmt.Sprintf("npm install package-%d", i), "Install npm package",
			"PackageOps", "network_error", fmt.Sprintf("ECONNREFUSED: Connection refused at %d", i), nil)
		require.NoError(t, err)
	}

	similar, err := logger.GetSimilarFailures(ctx, "npm install another-package", "PackageOps", 2)
	require.NoError(t, err)
	require.Len(t, similar, 2)
	for _, f := range similar {
		assert.Equal(t, "PackageOps", f.Tool)
	}
}

func TestLogFailure_PatternTrackingAccumulatesCount(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger(t)

	for i := 0; i < 3; i++ {
		_, err := logger.LogFailure(ctx, fmt.Sprintf("read file-%d.txt", i), "Read file", "FileOps",
			"permission_denied", "Permission denied: /root/file.txt", nil)
		require.NoError(t, err)
	}

	suggestion, found, err := logger.GetPatternSuggestion(ctx, "FileOps", "Permission denied: /root/file.txt")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, suggestion)
}

func TestGetFailureStats_AggregatesByToolAndErrorType(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger(t)

	_, err := logger.LogFailure(ctx, "test1", "goal1", "FileOps", "permission_denied", "Error 1", nil)
	require.NoError(t, err)
	_, err = logger.LogFailure(ctx, "test2", "goal2", "FileOps", "file_not_found", "Error 2", nil)
	require.NoError(t, err)
	_, err = logger.LogFailure(ctx, "test3", "goal3", "NetworkOps", "network_error", "Error 3", nil)
	require.NoError(t, err)

	stats, err := logger.GetFailureStats(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalFailures)
	assert.Equal(t, 2, stats.ByTool["FileOps"])
	assert.Contains(t, stats.ByErrorType, "permission_denied")
}

func TestGetPatternSuggestion_InitiallyNone(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger(t)

	_, err := logger.LogFailure(ctx, "docker run image", "Run container", "ContainerOps",
		"permission_denied", "Permission denied: /var/run/docker.sock", nil)
	require.NoError(t, err)

	_, found, err := logger.GetPatternSuggestion(ctx, "ContainerOps", "Permission denied: /var/run/docker.sock")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLogResolvedFailure_StoresResolution(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger(t)

	id, err := logger.LogResolvedFailure(ctx, "npm install", "Install dependencies", "PackageOps",
		"network_error", "ECONNREFUSED", "Switched to yarn and succeeded", nil)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	rec, err := logger.lookupByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Switched to yarn and succeeded", rec.Resolution)
}

func TestGetFailureStats_MultiplePatternsSameTool(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger(t)

	_, err := logger.LogFailure(ctx, "test1", "goal1", "FileOps", "permission_denied", "Permission denied", nil)
	require.NoError(t, err)
	_, err = logger.LogFailure(ctx, "test2", "goal2", "FileOps", "file_not_found", "File not found", nil)
	require.NoError(t, err)
	_, err = logger.LogFailure(ctx, "test3", "goal3", "FileOps", "disk_full", "No space left", nil)
	require.NoError(t, err)

	stats, err := logger.GetFailureStats(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalFailures)
	assert.Len(t, stats.ByErrorType, 3)
}
