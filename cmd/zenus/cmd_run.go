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
	"context"
	"fmt"
	"os"

	"github.com/zenus-ai/zenus/internal/executor"
	"github.com/zenus-ai/zenus/internal/goaltracker"
	"github.com/zenus-ai/zenus/internal/llm"
	"github.com/zenus-ai/zenus/internal/schema"
)

// runOnce implements spec.md §6's `--dry-run <text...>`,
// `--iterative <text...>`, and bare `<free text...>` surfaces: one
// natural language command translated into an Intent, checked, and
// (unless --dry-run) dispatched.
func runOnce(ctx context.Context, rt *runtime, flags *cliFlags, text string) error {
	if suggestion, ok, err := rt.failures.Suggest(ctx, text); err == nil && ok {
		fmt.Printf("note: a similar command has failed before (%s): %s\n", suggestion.Tool, suggestion.Text)
	}

	if flags.iterative {
		return runIterative(ctx, rt, flags, text)
	}

	raw, score, err := rt.router.Translate(ctx, text, false)
	if err != nil {
		return fmt.Errorf("translate: %w", err)
	}
	jsonText, err := llm.ExtractJSONObject(raw)
	if err != nil {
		return fmt.Errorf("translate: %w", err)
	}
	intent, err := schema.Deserialize([]byte(jsonText))
	if err != nil {
		return fmt.Errorf("translate: %w", err)
	}
	if err := intent.Validate(); err != nil {
		return fmt.Errorf("translate: invalid plan: %w", err)
	}

	if err := appendIntentHistory(rt.home, text, intent); err != nil {
		rt.logger.Warn("intent history append failed", "error", err)
	}
	rt.session.Append(map[string]any{"input": text, "goal": intent.Goal, "complex": score.IsComplex()})

	if flags.dryRun {
		preview := rt.executor.Preview(intent.Steps, flags.confirm)
		printPreview(preview)
		return nil
	}

	tx, err := rt.tracker.Begin(ctx, text, intent.Goal)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	planner := rt.planner()
	results, runErr := planner.Run(ctx, intent, flags.confirm)

	if runErr != nil {
		if failErr := rt.tracker.Fail(ctx); failErr != nil {
			rt.logger.Warn("mark transaction failed", "transaction_id", tx.ID, "error", failErr)
		}
		printStepResults(results)
		return runErr
	}
	if err := rt.tracker.Complete(ctx); err != nil {
		rt.logger.Warn("mark transaction completed", "transaction_id", tx.ID, "error", err)
	}
	printStepResults(results)
	return nil
}

// runIterative implements --iterative: the bounded ReAct loop from
// spec.md §4.8, driven by internal/goaltracker.
func runIterative(ctx context.Context, rt *runtime, flags *cliFlags, goal string) error {
	tx, err := rt.tracker.Begin(ctx, goal, goal)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	tracker := goaltracker.New(rt.router, rt.executor, goaltracker.Config{
		Confirmed: flags.confirm,
		Parallel:  flags.parallel,
	}, rt.logger)

	result, err := tracker.Run(ctx, goal)
	if err != nil {
		if failErr := rt.tracker.Fail(ctx); failErr != nil {
			rt.logger.Warn("mark transaction failed", "transaction_id", tx.ID, "error", failErr)
		}
		return err
	}

	if result.Outcome == goaltracker.OutcomeAchieved {
		if err := rt.tracker.Complete(ctx); err != nil {
			rt.logger.Warn("mark transaction completed", "transaction_id", tx.ID, "error", err)
		}
	} else if err := rt.tracker.Fail(ctx); err != nil {
		rt.logger.Warn("mark transaction failed", "transaction_id", tx.ID, "error", err)
	}

	printGoalResult(result)
	return nil
}

func printPreview(preview executor.Preview) {
	fmt.Println("plan preview (dry run, nothing executed):")
	for _, step := range preview.Steps {
		status := "ok"
		if step.Blocked {
			status = "BLOCKED: " + step.Violation
		}
		fmt.Printf("  [%d] %s.%s risk=%d -- %s\n", step.Index, step.Step.Tool, step.Step.Action, int(step.Step.Risk), status)
	}
}

func printStepResults(results []schema.StepResult) {
	for i, r := range results {
		if r.Success {
			fmt.Printf("  [%d] ok: %s\n", i, r.Output)
		} else {
			fmt.Fprintf(os.Stderr, "  [%d] failed: %s\n", i, r.Error)
		}
	}
}

func printGoalResult(result *goaltracker.Result) {
	fmt.Printf("goal outcome: %s (%d iteration(s))\n", result.Outcome, len(result.Iterations))
	if result.Reasoning != "" {
		fmt.Printf("  reasoning: %s\n", result.Reasoning)
	}
}
