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
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_InMemory(t *testing.T) {
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer db.Close()

	err = db.WithTxn(context.Background(), func(txn *badger.Txn) error {
		return txn.Set([]byte("k"), []byte("v"))
	})
	require.NoError(t, err)

	err = db.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("k"))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			assert.Equal(t, "v", string(val))
			return nil
		})
	})
	require.NoError(t, err)
}

func TestOpen_PersistentRequiresPath(t *testing.T) {
	_, err := Open(Config{InMemory: false})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestOpen_PersistentRoundTrip(t *testing.T) {
	dir, err := TempDir("zenus-store-test")
	require.NoError(t, err)
	defer CleanupDir(dir)

	db, err := OpenWithPath(dir)
	require.NoError(t, err)

	err = db.WithTxn(context.Background(), func(txn *badger.Txn) error {
		return txn.Set([]byte("durable"), []byte("yes"))
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := OpenWithPath(dir)
	require.NoError(t, err)
	defer reopened.Close()

	err = reopened.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("durable"))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			assert.Equal(t, "yes", string(val))
			return nil
		})
	})
	require.NoError(t, err)
}

func TestWithTxn_HonorsCancellation(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = db.WithTxn(ctx, func(txn *badger.Txn) error {
		t.Fatal("fn must not run once context is cancelled")
		return nil
	})
	require.Error(t, err)
}

func TestNewGCRunner_ValidatesArgs(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewGCRunner(nil, time.Minute, 0.5, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db must not be nil")

	_, err = NewGCRunner(db, 0, 0.5, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval must be positive")

	_, err = NewGCRunner(db, time.Minute, 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ratio must be between 0 and 1")

	_, err = NewGCRunner(db, time.Minute, 1.5, nil)
	require.Error(t, err)

	runner, err := NewGCRunner(db, time.Minute, 0.5, nil)
	require.NoError(t, err)
	assert.NotNil(t, runner)
}

func TestGCRunner_StartStop(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	runner, err := NewGCRunner(db, 10*time.Millisecond, 0.5, nil)
	require.NoError(t, err)

	runner.Start()
	time.Sleep(30 * time.Millisecond)
	runner.Stop()
}

func TestCleanupDir_EmptyPathNoop(t *testing.T) {
	require.NoError(t, CleanupDir(""))
}
