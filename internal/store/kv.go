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
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// PutJSON marshals v and stores it under key.
func (d *DB) PutJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", key, err)
	}
	return d.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// GetJSON reads the value at key and unmarshals it into v. It returns
// an error wrapping ErrKeyNotFound when key is absent.
func (d *DB) GetJSON(ctx context.Context, key string, v any) error {
	return d.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("store: %s: %w", key, ErrKeyNotFound)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

// ListPrefixJSON collects every value whose key starts with prefix,
// decoding each as a T, in Badger's key-sorted iteration order.
func ListPrefixJSON[T any](ctx context.Context, d *DB, prefix string) ([]T, error) {
	var out []T
	err := d.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			var v T
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &v)
			})
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

// DeletePrefix removes every key with the given prefix.
func (d *DB) DeletePrefix(ctx context.Context, prefix string) error {
	return d.WithTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			k := it.Item().KeyCopy(nil)
			keys = append(keys, k)
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// decodeInto unmarshals a Badger item's value into v.
func decodeInto(item *badger.Item, v any) error {
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// encodeInto marshals v and writes it to key within txn.
func encodeInto(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// HasPrefix reports whether any key starts with prefix.
func (d *DB) HasPrefix(ctx context.Context, prefix string) (bool, error) {
	found := false
	err := d.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Seek([]byte(prefix))
		found = it.ValidForPrefix([]byte(prefix))
		return nil
	})
	return found, err
}
