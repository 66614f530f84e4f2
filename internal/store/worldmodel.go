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
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const worldModelPathPrefix = "worldmodel/path/"

// WorldModel tracks which filesystem paths mutating steps have
// touched, the persistence side of zenus_core/memory/world_model.py's
// path/preference counters (SPEC_FULL.md §5).
type WorldModel struct {
	db *DB
}

// NewWorldModel returns a WorldModel backed by db.
func NewWorldModel(db *DB) *WorldModel {
	return &WorldModel{db: db}
}

// PathCount is one path's touch counter, used by TopPaths.
type PathCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

func pathKey(path string) string {
	return worldModelPathPrefix + path
}

// IncrementPath atomically increments path's touch counter, called
// once per completed mutating step by internal/transaction so the
// round-trip law (rollback then replay restores the counters) holds.
func (w *WorldModel) IncrementPath(ctx context.Context, path string) error {
	return w.db.WithTxn(ctx, func(txn *badger.Txn) error {
		key := []byte(pathKey(path))
		count := 0
		item, err := txn.Get(key)
		switch err {
		case nil:
			if verr := item.Value(func(val []byte) error {
				n, perr := strconv.Atoi(string(val))
				if perr != nil {
					return perr
				}
				count = n
				return nil
			}); verr != nil {
				return verr
			}
		case badger.ErrKeyNotFound:
			count = 0
		default:
			return err
		}
		count++
		return txn.Set(key, []byte(strconv.Itoa(count)))
	})
}

// DecrementPath undoes one IncrementPath call, used when rollback
// reverses a mutating step that previously incremented path. The
// counter never goes below zero.
func (w *WorldModel) DecrementPath(ctx context.Context, path string) error {
	return w.db.WithTxn(ctx, func(txn *badger.Txn) error {
		key := []byte(pathKey(path))
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		count := 0
		if verr := item.Value(func(val []byte) error {
			n, perr := strconv.Atoi(string(val))
			if perr != nil {
				return perr
			}
			count = n
			return nil
		}); verr != nil {
			return verr
		}
		if count <= 1 {
			return txn.Delete(key)
		}
		return txn.Set(key, []byte(strconv.Itoa(count-1)))
	})
}

// PathCountOf returns path's current touch counter, zero if untouched.
func (w *WorldModel) PathCountOf(ctx context.Context, path string) (int, error) {
	count := 0
	err := w.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(pathKey(path)))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			n, perr := strconv.Atoi(string(val))
			if perr != nil {
				return perr
			}
			count = n
			return nil
		})
	})
	return count, err
}

// TopPaths returns the n most-touched paths, descending by count.
func (w *WorldModel) TopPaths(ctx context.Context, n int) ([]PathCount, error) {
	var counts []PathCount
	err := w.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(worldModelPathPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(worldModelPathPrefix)); it.ValidForPrefix([]byte(worldModelPathPrefix)); it.Next() {
			item := it.Item()
			path := strings.TrimPrefix(string(item.Key()), worldModelPathPrefix)
			err := item.Value(func(val []byte) error {
				count, perr := strconv.Atoi(string(val))
				if perr != nil {
					return perr
				}
				counts = append(counts, PathCount{Path: path, Count: count})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Path < counts[j].Path
	})
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts, nil
}

// Snapshot returns every tracked path and its counter, used by
// `history` reporting and tests; unlike TopPaths it is unsorted JSON
// round-trippable state.
func (w *WorldModel) Snapshot(ctx context.Context) (map[string]int, error) {
	snap := map[string]int{}
	counts, err := w.TopPaths(ctx, 0)
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		snap[c.Path] = c.Count
	}
	return snap, nil
}
