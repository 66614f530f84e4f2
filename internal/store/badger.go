// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store provides the embedded Badger-backed durable storage
// this pipeline uses in place of the flat files spec.md §6 names as
// the persisted-state layout: transactions.jsonl (internal/transaction),
// failures.db (internal/failurelog), and world_model.json (WorldModel
// in this package). Badger is the teacher's durable-storage dependency
// (services/trace/storage/badger), ported here 1:1 in wrapper shape
// and adapted to this pipeline's key-prefixed namespaces.
//
// # Description
//
// DB embeds *badger.DB directly so callers may use badger's native
// Update/View API for simple cases, plus WithTxn/WithReadTxn
// convenience wrappers that honor context cancellation.
//
// # Thread Safety
//
// DB is safe for concurrent use; Badger serializes writers
// internally.
package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Config controls how a DB is opened.
type Config struct {
	// InMemory opens a Badger instance with no on-disk files, for
	// tests and ephemeral runs.
	InMemory bool

	// Path is the on-disk directory Badger stores its files in.
	// Required unless InMemory is true.
	Path string

	// SyncWrites forces an fsync after every write, trading latency
	// for durability on process crash.
	SyncWrites bool

	// NumVersionsToKeep bounds how many versions of a key Badger
	// retains; this pipeline never reads old versions, so the
	// default of 1 keeps compaction cheap.
	NumVersionsToKeep int

	// GCInterval is how often a GCRunner started against this DB
	// invokes value-log garbage collection. Zero disables GC.
	GCInterval time.Duration
}

// DefaultConfig returns the on-disk configuration this pipeline uses
// for its per-user data directory.
func DefaultConfig(path string) Config {
	return Config{
		Path:              path,
		SyncWrites:        true,
		NumVersionsToKeep: 1,
		GCInterval:        5 * time.Minute,
	}
}

// InMemoryConfig returns the configuration used by tests and any
// run that opts out of durable persistence.
func InMemoryConfig() Config {
	return Config{
		InMemory:          true,
		SyncWrites:        false,
		NumVersionsToKeep: 1,
		GCInterval:        0,
	}
}

// DB wraps a Badger database handle.
type DB struct {
	*badger.DB
}

// Open validates cfg and opens a DB via OpenDB. A persistent
// (non-InMemory) config requires a non-empty Path.
func Open(cfg Config) (*DB, error) {
	if cfg.InMemory {
		return OpenDB(cfg)
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("store: path is required for persistent mode")
	}
	return OpenDB(cfg)
}

// OpenDB opens a DB from a fully specified Config.
func OpenDB(cfg Config) (*DB, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts = opts.WithInMemory(cfg.InMemory)
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(cfg.NumVersionsToKeep)
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	return &DB{DB: db}, nil
}

// OpenInMemory opens an ephemeral, in-memory DB for tests.
func OpenInMemory() (*DB, error) {
	return OpenDB(InMemoryConfig())
}

// OpenWithPath opens a persistent DB rooted at dir.
func OpenWithPath(dir string) (*DB, error) {
	return OpenDB(DefaultConfig(dir))
}

// WithTxn runs fn in a read-write transaction, committing on success
// and rolling back on error. It honors ctx cancellation before
// starting the transaction.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("store: context cancelled: %w", err)
	}
	return d.Update(fn)
}

// WithReadTxn runs fn in a read-only transaction. It honors ctx
// cancellation before starting the transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("store: context cancelled: %w", err)
	}
	return d.View(fn)
}

// GCRunner periodically invokes Badger's value-log garbage collection
// on a ticker, matching services/trace/storage/badger's background GC
// pattern.
type GCRunner struct {
	db       *DB
	interval time.Duration
	ratio    float64
	logger   func(format string, args ...any)
	stop     chan struct{}
	done     chan struct{}
}

// NewGCRunner validates its arguments and returns a GCRunner bound to
// db. logger may be nil; it is called with GC errors worth surfacing.
func NewGCRunner(db *DB, interval time.Duration, ratio float64, logger func(format string, args ...any)) (*GCRunner, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db must not be nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("store: interval must be positive")
	}
	if ratio <= 0 || ratio > 1 {
		return nil, fmt.Errorf("store: ratio must be between 0 and 1")
	}
	return &GCRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start launches the GC loop in a background goroutine.
func (g *GCRunner) Start() {
	go func() {
		defer close(g.done)
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-g.stop:
				return
			case <-ticker.C:
				for {
					err := g.db.RunValueLogGC(g.ratio)
					if err != nil {
						if err != badger.ErrNoRewrite && g.logger != nil {
							g.logger("value log gc: %v", err)
						}
						break
					}
				}
			}
		}
	}()
}

// Stop halts the GC loop and waits for it to exit.
func (g *GCRunner) Stop() {
	close(g.stop)
	<-g.done
}

// TempDir creates a temporary directory for a persistent DB under the
// OS temp root, used by tests that exercise OpenWithPath/CleanupDir.
func TempDir(prefix string) (string, error) {
	return os.MkdirTemp("", prefix)
}

// CleanupDir removes a directory created by TempDir. An empty path is
// a no-op.
func CleanupDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}
