// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package toolregistry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenus-ai/zenus/internal/schema"
	"github.com/zenus-ai/zenus/internal/zerrors"
)

type stubTool struct {
	name    string
	actions map[string]ActionFunc
}

func (s stubTool) Name() string                     { return s.name }
func (s stubTool) Actions() map[string]ActionFunc    { return s.actions }

func newStubRegistry() *Registry {
	return New(stubTool{
		name: "FileOps",
		actions: map[string]ActionFunc{
			"scan": func(ctx context.Context, args map[string]any) (string, error) {
				return "ok", nil
			},
			"explode": func(ctx context.Context, args map[string]any) (string, error) {
				return "", errors.New("boom")
			},
		},
	})
}

func TestDispatchUnknownTool(t *testing.T) {
	r := newStubRegistry()
	_, err := r.Dispatch(context.Background(), "Nope", "scan", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, zerrors.ErrToolNotFound))
}

func TestDispatchUnknownAction(t *testing.T) {
	r := newStubRegistry()
	_, err := r.Dispatch(context.Background(), "FileOps", "nope", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, zerrors.ErrActionNotFound))
}

func TestDispatchWrapsHandlerError(t *testing.T) {
	r := newStubRegistry()
	_, err := r.Dispatch(context.Background(), "FileOps", "explode", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, zerrors.ErrToolExecutionError))
}

func TestDispatchSuccess(t *testing.T) {
	r := newStubRegistry()
	out, err := r.Dispatch(context.Background(), "FileOps", "scan", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestHas(t *testing.T) {
	r := newStubRegistry()
	assert.True(t, r.Has("FileOps", "scan"))
	assert.False(t, r.Has("FileOps", "missing"))
	assert.False(t, r.Has("Missing", "scan"))
}

func TestInvertibilityTable(t *testing.T) {
	table := NewInvertibilityTable()

	t.Run("move is invertible", func(t *testing.T) {
		inverse, err := table.Inverse(schema.Step{
			Tool: "FileOps", Action: "move",
			Args: map[string]any{"src": "a", "dst": "b"},
		}, "moved")
		require.NoError(t, err)
		dst, _ := inverse.ArgString("dst")
		src, _ := inverse.ArgString("src")
		assert.Equal(t, "a", dst)
		assert.Equal(t, "b", src)
	})

	t.Run("delete is not invertible", func(t *testing.T) {
		_, err := table.Inverse(schema.Step{Tool: "FileOps", Action: "delete"}, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, zerrors.ErrNotInvertible))
	})

	t.Run("unregistered pair is not invertible", func(t *testing.T) {
		_, err := table.Inverse(schema.Step{Tool: "Unknown", Action: "whatever"}, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, zerrors.ErrNotInvertible))
	})
}
