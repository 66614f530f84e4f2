// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package schema defines the Intent intermediate representation: the
// single contract between the LLM translation layer and the plan
// executor.
//
// # Description
//
// An Intent is a goal description plus an ordered list of Step values.
// Steps are immutable once produced by translation; the executor
// consumes them in order (or in dependency-graph waves) and produces one
// StepResult per step.
//
// # Thread Safety
//
// Intent, Step and StepResult are plain value types. They carry no
// synchronization and must not be mutated concurrently; callers that
// need to share an Intent across goroutines should treat it as
// read-only, which is how the executor uses it.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// structValidator runs the `validate` struct tags declared on Step and
// Intent (required fields, risk's min=0,max=3 bound). It is safe for
// concurrent use, matching the teacher's single package-level
// validator instance.
var structValidator = validator.New()

// RiskLevel is the blast-radius classification of a Step, per
// spec.md's risk taxonomy: 0 read-only, 1 create/move, 2 overwrite,
// 3 delete/kill.
type RiskLevel int

const (
	// RiskRead is a read-only operation (list, status, scan).
	RiskRead RiskLevel = 0

	// RiskCreate is a create or move operation.
	RiskCreate RiskLevel = 1

	// RiskOverwrite replaces existing content or state.
	RiskOverwrite RiskLevel = 2

	// RiskDestructive deletes or kills; requires explicit confirmation.
	RiskDestructive RiskLevel = 3
)

// Valid reports whether r is one of the four declared risk levels.
func (r RiskLevel) Valid() bool {
	return r >= RiskRead && r <= RiskDestructive
}

// Mutating reports whether a step at this risk level produces a
// side effect eligible for the action tracker (risk >= 1).
func (r RiskLevel) Mutating() bool {
	return r >= RiskCreate
}

func (r RiskLevel) String() string {
	switch r {
	case RiskRead:
		return "read"
	case RiskCreate:
		return "create"
	case RiskOverwrite:
		return "overwrite"
	case RiskDestructive:
		return "destructive"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// Step is a single, atomic unit of work: a tool name, an action name on
// that tool, an argument map, and a risk level.
//
// Steps are produced by LLM translation and are immutable thereafter;
// the dependency analyzer and executor only ever read them (adaptation,
// see internal/adaptive, produces a *new* Step rather than mutating one
// in place).
type Step struct {
	Tool   string         `json:"tool" validate:"required"`
	Action string         `json:"action" validate:"required"`
	Args   map[string]any `json:"args"`
	Risk   RiskLevel      `json:"risk" validate:"min=0,max=3"`
}

// ArgString returns the string value of key, or ok=false if the key is
// absent or not a string.
func (s Step) ArgString(key string) (string, bool) {
	v, found := s.Args[key]
	if !found {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// ArgInt returns the integer value of key, tolerating both JSON's
// float64 decoding and native int/int64 values.
func (s Step) ArgInt(key string) (int, bool) {
	v, found := s.Args[key]
	if !found {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// Describe renders a human-readable one-liner for plan previews and
// logs: "FileOps.move({src:a, dst:b})".
func (s Step) Describe() string {
	return fmt.Sprintf("%s.%s(%v)", s.Tool, s.Action, s.Args)
}

// Intent is the structured plan emitted by LLM translation: a goal
// description, a confirmation flag, and the ordered steps that
// implement it.
type Intent struct {
	Goal                 string `json:"goal" validate:"required"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
	Steps                []Step `json:"steps" validate:"dive"`
}

// Validate checks the structural invariants from spec.md §3/§4.1:
// every step has a non-empty tool and action and a risk level in
// 0..3, and any step at RiskDestructive forces RequiresConfirmation.
//
// Field-level checks (required tool/action, risk's min=0,max=3 bound)
// run through go-playground/validator against the `validate` struct
// tags; the cross-field RequiresConfirmation rule isn't expressible as
// a tag and is checked separately so the error names the offending
// step index.
func (i Intent) Validate() error {
	if err := structValidator.Struct(i); err != nil {
		return fmt.Errorf("validate intent: %w", err)
	}
	for idx, step := range i.Steps {
		if !step.Risk.Valid() {
			return fmt.Errorf("step %d: risk %d out of range 0..3", idx, int(step.Risk))
		}
		if step.Risk == RiskDestructive && !i.RequiresConfirmation {
			return fmt.Errorf("step %d: risk=3 requires RequiresConfirmation=true", idx)
		}
	}
	return nil
}

// Serialize marshals the Intent to its canonical wire JSON.
func (i Intent) Serialize() ([]byte, error) {
	return json.Marshal(i)
}

// Deserialize parses wire JSON into an Intent. Unknown top-level keys
// are rejected per spec.md §6 ("No additional keys accepted").
func Deserialize(data []byte) (Intent, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var intent Intent
	if err := dec.Decode(&intent); err != nil {
		return Intent{}, fmt.Errorf("deserialize intent: %w", err)
	}
	return intent, nil
}

// StepResult is the outcome of executing one Step.
//
// RecoveredBy is non-nil when the step failed initially but error
// recovery substituted a successful synthetic outcome; it names the
// recovery strategy applied (see internal/recovery). This keeps
// "recovered" distinct from "succeeded on the first try" rather than
// conflating both into a single boolean, per the Open Question this
// spec resolves in SPEC_FULL.md.
type StepResult struct {
	Success     bool    `json:"success"`
	Output      string  `json:"output"`
	Error       string  `json:"error,omitempty"`
	Attempts    int     `json:"attempts"`
	RecoveredBy *string `json:"recovered_by,omitempty"`
}

// HistoryEntry pairs a Step with the StepResult it produced, in
// execution order.
type HistoryEntry struct {
	Step   Step
	Result StepResult
}

// ExecutionHistory is the append-only, ordered record of (Step,
// StepResult) pairs produced by one plan run.
type ExecutionHistory struct {
	Entries []HistoryEntry
}

// Append records one (step, result) pair.
func (h *ExecutionHistory) Append(step Step, result StepResult) {
	h.Entries = append(h.Entries, HistoryEntry{Step: step, Result: result})
}

// Observations renders each entry's output/error as an observation
// string, consumed by the goal tracker's reflection step.
func (h ExecutionHistory) Observations() []string {
	obs := make([]string, 0, len(h.Entries))
	for _, e := range h.Entries {
		if e.Result.Success {
			obs = append(obs, fmt.Sprintf("%s: %s", e.Step.Describe(), e.Result.Output))
		} else {
			obs = append(obs, fmt.Sprintf("%s: FAILED: %s", e.Step.Describe(), e.Result.Error))
		}
	}
	return obs
}
