// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zenus-ai/zenus/internal/schema"
)

// sessionLog appends one JSON line per CLI invocation to
// ~/.zenus/logs/session_<unix timestamp>.jsonl, the session log
// spec.md §6 names as this CLI's persisted state. It is deliberately
// simpler than internal/logging's file exporter: it is not a log
// level-filtered operational log, just a flat append-only record of
// what each run was asked to do and how it turned out.
type sessionLog struct {
	f *os.File
}

func newSessionLog(home string) (*sessionLog, error) {
	dir := filepath.Join(home, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("zenus: create session log directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("session_%d.jsonl", time.Now().Unix()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("zenus: open session log: %w", err)
	}
	return &sessionLog{f: f}, nil
}

// Append serializes entry as one JSON line. Marshal/write failures are
// swallowed: the session log is a convenience trail, not the system of
// record (internal/store is).
func (s *sessionLog) Append(entry any) {
	if s == nil || s.f == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = s.f.Write(data)
}

func (s *sessionLog) Close() {
	if s != nil && s.f != nil {
		_ = s.f.Close()
	}
}

// intentHistoryEntry is one line of history/intents_<date>.jsonl.
type intentHistoryEntry struct {
	UserInput string        `json:"user_input"`
	Intent    schema.Intent `json:"intent"`
	At        int64         `json:"at"`
}

// appendIntentHistory records a successfully translated Intent to
// ~/.zenus/history/intents_<YYYY-MM-DD>.jsonl, the per-day intent
// history spec.md §6 names.
func appendIntentHistory(home, userInput string, intent schema.Intent) error {
	dir := filepath.Join(home, "history")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("zenus: create intent history directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("intents_%s.jsonl", time.Now().Format("2006-01-02")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("zenus: open intent history: %w", err)
	}
	defer f.Close()

	entry := intentHistoryEntry{UserInput: userInput, Intent: intent, At: time.Now().Unix()}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("zenus: marshal intent history entry: %w", err)
	}
	data = append(data, '\n')
	_, err = f.Write(data)
	return err
}
