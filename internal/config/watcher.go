// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler is called once per debounced batch of config file
// writes, after Global has already been updated by Reload.
type ChangeHandler func(cfg Config)

// Watcher live-reloads non-secret config fields (log level, provider
// routing weights) by watching config.yaml for writes, debounced the
// way services/trace/graph's FileWatcher debounces editor saves.
//
// # Thread Safety
//
// Safe for concurrent use. The handler is invoked from a single
// goroutine.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	handler  ChangeHandler
	debounce time.Duration

	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// DefaultDebounce is the delay between the last detected write and
// the reload+handler call.
const DefaultDebounce = 200 * time.Millisecond

// NewWatcher builds a Watcher over the resolved config file path. The
// handler receives the freshly reloaded Global on every debounced
// batch of writes; it may be nil if the caller only wants Reload's
// side effect of keeping Global current.
func NewWatcher(handler ChangeHandler) (*Watcher, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		path:     path,
		watcher:  fw,
		handler:  handler,
		debounce: DefaultDebounce,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the config file's directory (fsnotify watches
// directories, not individual files, so editors that replace-on-save
// still fire events) and debouncing reloads until ctx is canceled or
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	go w.loop(ctx)
	return nil
}

// Stop stops the watcher. Safe to call multiple times.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether Start has been called and Stop has not.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			if err := Reload(); err != nil {
				continue
			}
			if w.handler != nil {
				w.handler(Global)
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
