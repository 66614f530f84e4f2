// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package safety implements the intent execution engine's safety
// policy: a pure function rejecting destructive steps that were not
// explicitly confirmed by the caller.
//
// # Description
//
// Check performs no I/O and holds no state, so it can be exercised
// exhaustively in tests without mocking anything. It is the single
// gate between a translated Intent and dispatch: the plan executor
// calls it once per step before resolving the tool/action in the
// registry.
package safety

import (
	"fmt"

	"github.com/zenus-ai/zenus/internal/schema"
	"github.com/zenus-ai/zenus/internal/zerrors"
)

// Violation explains why a step was blocked.
type Violation struct {
	Step   schema.Step
	Reason string
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s.%s blocked: %s", v.Step.Tool, v.Step.Action, v.Reason)
}

func (v Violation) Unwrap() error {
	return zerrors.ErrBlockedByPolicy
}

// Check verifies that step is safe to execute given the caller's
// confirmation acknowledgement.
//
// A step at RiskDestructive (3) is blocked unless confirmed is true;
// the caller obtains confirmed from Intent.RequiresConfirmation having
// been explicitly acknowledged (e.g. via a --confirm flag or an
// interactive prompt), not merely from the flag being set on the
// Intent. Every other risk level always passes.
func Check(step schema.Step, confirmed bool) error {
	if step.Risk == schema.RiskDestructive && !confirmed {
		return Violation{
			Step:   step,
			Reason: fmt.Sprintf("high risk operation blocked (risk=%d); delete/kill operations require explicit confirmation", int(step.Risk)),
		}
	}
	return nil
}

// CheckAll runs Check over every step in order, returning the first
// Violation encountered, or nil if every step passes.
func CheckAll(steps []schema.Step, confirmed bool) error {
	for _, step := range steps {
		if err := Check(step, confirmed); err != nil {
			return err
		}
	}
	return nil
}
