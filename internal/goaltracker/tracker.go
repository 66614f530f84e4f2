// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package goaltracker drives the bounded ReAct loop for --iterative
// mode: translate -> execute -> reflect -> decide, ported from
// src/brain/goal_tracker.py's GoalTracker.check_goal.
//
// # Description
//
// Tracker never calls the LLM more than MaxIterations times per goal
// (spec.md §4.8's hard bound). Each iteration's reflection is parsed
// tolerantly by ParseReflection; termination is evaluated in the
// fixed order spec.md §4.8 specifies: achieved-with-confidence,
// then iteration exhaustion, then "stuck" (no next steps and not
// achieved), otherwise continue with the concatenated next steps as
// the following iteration's input.
//
// # Thread Safety
//
// Tracker is not safe for concurrent Run calls sharing one instance;
// construct one per goal run.
package goaltracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/zenus-ai/zenus/internal/executor"
	"github.com/zenus-ai/zenus/internal/llm"
	"github.com/zenus-ai/zenus/internal/logging"
	"github.com/zenus-ai/zenus/internal/schema"
	"github.com/zenus-ai/zenus/internal/zerrors"
)

// Outcome names how the loop terminated.
type Outcome string

const (
	OutcomeAchieved  Outcome = "achieved"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeStuck     Outcome = "stuck"
)

// IterationRecord captures one loop pass for CLI reporting and tests.
type IterationRecord struct {
	Iteration  int
	Input      string
	Intent     schema.Intent
	Results    []schema.StepResult
	Reflection GoalStatus
}

// Result is the terminal outcome of Run.
type Result struct {
	Outcome    Outcome
	Iterations []IterationRecord
	Reasoning  string
}

// Config controls one Tracker's bounds.
type Config struct {
	// MaxIterations bounds both LLM calls and execution passes.
	// Default: 10.
	MaxIterations int

	// ConfidenceThreshold is the minimum confidence required alongside
	// Achieved=true to terminate successfully. Default: 0.7.
	ConfidenceThreshold float64

	// Confirmed is forwarded to the executor for risk=3 steps.
	Confirmed bool

	// Parallel enables wave-based dispatch within each iteration.
	Parallel bool
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 10
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = 0.7
	}
	return c
}

// Tracker drives the iterative ReAct loop.
type Tracker struct {
	Router   *llm.Router
	Executor *executor.Executor
	Logger   *logging.Logger
	Config   Config
}

// New builds a Tracker.
func New(router *llm.Router, exec *executor.Executor, config Config, logger *logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Tracker{Router: router, Executor: exec, Logger: logger, Config: config.withDefaults()}
}

// Run drives the loop for the user's initial goal description.
func (t *Tracker) Run(ctx context.Context, goal string) (*Result, error) {
	cfg := t.Config
	result := &Result{}

	currentInput := goal
	var observations []string

	for iteration := 1; iteration <= cfg.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("%w", zerrors.ErrCanceled)
		}

		raw, _, err := t.Router.Translate(ctx, currentInput, true)
		if err != nil {
			return result, fmt.Errorf("iteration %d translate: %w", iteration, err)
		}
		jsonText, err := llm.ExtractJSONObject(raw)
		if err != nil {
			return result, fmt.Errorf("iteration %d: %w", iteration, err)
		}
		intent, err := schema.Deserialize([]byte(jsonText))
		if err != nil {
			return result, fmt.Errorf("iteration %d: %w: %v", iteration, zerrors.ErrTranslationError, err)
		}
		if err := intent.Validate(); err != nil {
			return result, fmt.Errorf("iteration %d: %w: %v", iteration, zerrors.ErrTranslationError, err)
		}

		execResult, execErr := t.Executor.Run(ctx, intent, executor.Config{Confirmed: cfg.Confirmed, Parallel: cfg.Parallel})
		var stepResults []schema.StepResult
		if execResult != nil {
			stepResults = execResult.StepResults
		}

		var history schema.ExecutionHistory
		for i, step := range intent.Steps {
			if i < len(stepResults) {
				history.Append(step, stepResults[i])
			}
		}
		observations = append(observations, history.Observations()...)
		if execErr != nil {
			observations = append(observations, fmt.Sprintf("execution error: %v", execErr))
		}

		reflectionPrompt := buildReflectionPrompt(goal, intent, observations)
		reflectionRaw, err := t.Router.Reflect(ctx, reflectionPrompt)
		var status GoalStatus
		if err != nil {
			// Fallback per spec.md §4.8: missing fields default rather
			// than aborting the loop outright.
			status = GoalStatus{Achieved: false, Confidence: 0.5, Reasoning: fmt.Sprintf("could not determine goal status: %v", err)}
		} else {
			status = ParseReflection(reflectionRaw)
		}

		record := IterationRecord{Iteration: iteration, Input: currentInput, Intent: intent, Results: stepResults, Reflection: status}
		result.Iterations = append(result.Iterations, record)

		if status.Achieved && status.Confidence >= cfg.ConfidenceThreshold {
			result.Outcome = OutcomeAchieved
			result.Reasoning = status.Reasoning
			return result, nil
		}

		if iteration == cfg.MaxIterations {
			result.Outcome = OutcomeExhausted
			result.Reasoning = fmt.Sprintf("Maximum iterations (%d) reached. Task may be too complex or ill-defined.", cfg.MaxIterations)
			return result, nil
		}

		if len(status.NextSteps) == 0 && !status.Achieved {
			result.Outcome = OutcomeStuck
			result.Reasoning = status.Reasoning
			return result, nil
		}

		currentInput = strings.Join(status.NextSteps, "; ")
	}

	result.Outcome = OutcomeExhausted
	result.Reasoning = fmt.Sprintf("Maximum iterations (%d) reached. Task may be too complex or ill-defined.", cfg.MaxIterations)
	return result, nil
}

// reflectionPreamble mirrors internal/llm's reflectionSystemPrompt
// framing but lives here since the tracker, not the provider layer,
// owns the reflection prompt's structure (spec.md §4.8).
const reflectionPreamble = `You are evaluating progress toward a goal given an execution history.
Respond with exactly these lines:

ACHIEVED: Yes|No
CONFIDENCE: 0.0-1.0
REASONING: one sentence
NEXT_STEPS: comma-separated list, or NONE if the goal is achieved`

func buildReflectionPrompt(goal string, intent schema.Intent, observations []string) string {
	var planLines []string
	for i, step := range intent.Steps {
		planLines = append(planLines, fmt.Sprintf("%d. %s", i+1, step.Describe()))
	}
	var obsLines []string
	for i, obs := range observations {
		obsLines = append(obsLines, fmt.Sprintf("%d. %s", i+1, obs))
	}

	return fmt.Sprintf(`%s

# Goal Achievement Reflection

**User's Goal:**
%s

**Original Plan Executed:**
%s

**Observations from Execution:**
%s

Format your response as:
ACHIEVED: [Yes/No]
CONFIDENCE: [0.0-1.0]
REASONING: [Your explanation]
NEXT_STEPS: [Comma-separated list of next actions, or "None" if achieved]`,
		reflectionPreamble, goal, strings.Join(planLines, "\n"), strings.Join(obsLines, "\n"))
}
