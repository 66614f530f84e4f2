// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package executor dispatches an Intent's steps through the safety
// policy, the tool registry, and error recovery -- sequentially or,
// when the dependency graph allows it, in concurrent waves -- and
// records a StepResult per step in original step order.
//
// # Description
//
// Executor is the pipeline's single dispatch point (spec.md §4.5):
// every step passes the safety check, resolves through the tool
// registry, and on failure is handed to internal/recovery before the
// executor gives up and raises ErrStepFailed. Mutating steps (risk
// >= 1) are reported to an optional ActionRecorder so the action
// tracker can persist them for rollback.
//
// # Thread Safety
//
// Executor holds only read-only configuration after construction and
// is safe for concurrent Run calls; each Run gets its own semaphore
// and errgroup.
package executor

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/zenus-ai/zenus/internal/depgraph"
	"github.com/zenus-ai/zenus/internal/logging"
	"github.com/zenus-ai/zenus/internal/recovery"
	"github.com/zenus-ai/zenus/internal/safety"
	"github.com/zenus-ai/zenus/internal/schema"
	"github.com/zenus-ai/zenus/internal/telemetry"
	"github.com/zenus-ai/zenus/internal/toolregistry"
	"github.com/zenus-ai/zenus/internal/zerrors"
)

// ActionRecorder is the action tracker's narrow write surface, kept
// here rather than imported directly so internal/executor does not
// depend on internal/transaction's storage concerns.
type ActionRecorder interface {
	Record(ctx context.Context, step schema.Step, result schema.StepResult) error
}

// PreviewStep is one line of a dry-run plan preview: the step plus
// its safety verdict, without having dispatched anything.
type PreviewStep struct {
	Index     int
	Step      schema.Step
	Blocked   bool
	Violation string
}

// Preview is the dry-run result: every step's safety verdict and no
// action-log entries, satisfying the idempotence law in spec.md §8.
type Preview struct {
	Steps []PreviewStep
}

// Result is the outcome of a (non-dry-run) plan execution.
type Result struct {
	// StepResults is in original step order regardless of whether
	// steps ran sequentially or in parallel waves.
	StepResults []schema.StepResult
	Waves       [][]int
}

// Config controls one Run call's behavior.
type Config struct {
	// Parallel dispatches independent waves concurrently when true.
	Parallel bool

	// DryRun renders a Preview instead of dispatching any step.
	DryRun bool

	// Confirmed is the caller's explicit acknowledgement of a plan
	// that carries RequiresConfirmation, satisfying spec.md §4.5 step 1
	// and the safety policy's risk=3 gate.
	Confirmed bool

	// MaxConcurrency bounds how many steps within one wave run at
	// once. Zero defaults to runtime.NumCPU(), per spec.md §5's
	// resource limiter.
	MaxConcurrency int
}

// Executor is the plan dispatcher.
type Executor struct {
	Registry *toolregistry.Registry
	Recovery *recovery.Recovery
	Recorder ActionRecorder
	Logger   *logging.Logger
}

// New builds an Executor. recorder may be nil when the caller does
// not need action-tracker integration (e.g. rollback replays, which
// record through their own path).
func New(registry *toolregistry.Registry, rec *recovery.Recovery, recorder ActionRecorder, logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Executor{Registry: registry, Recovery: rec, Recorder: recorder, Logger: logger}
}

// Run executes intent per cfg and spec.md §4.5's numbered behavior.
func (e *Executor) Run(ctx context.Context, intent schema.Intent, cfg Config) (*Result, error) {
	if intent.RequiresConfirmation && !cfg.Confirmed {
		return nil, fmt.Errorf("%w: plan requires confirmation", zerrors.ErrConfirmationRequired)
	}

	graph := depgraph.Build(intent.Steps)

	if cfg.DryRun {
		preview := e.Preview(intent.Steps, cfg.Confirmed)
		return &Result{StepResults: previewToSkipped(preview), Waves: graph.Waves()}, nil
	}

	results := make([]schema.StepResult, len(intent.Steps))

	waves := [][]int{allIndices(len(intent.Steps))}
	if cfg.Parallel {
		waves = graph.Waves()
	}

	for waveIdx, wave := range waves {
		if err := ctx.Err(); err != nil {
			return &Result{StepResults: results, Waves: waves}, fmt.Errorf("%w", zerrors.ErrCanceled)
		}

		waveCtx, finishWave := telemetry.StartSpan(ctx, "executor.wave", map[string]string{
			"wave.index": fmt.Sprintf("%d", waveIdx),
			"wave.size":  fmt.Sprintf("%d", len(wave)),
			"parallel":   fmt.Sprintf("%t", cfg.Parallel && len(wave) > 1),
		})

		if cfg.Parallel && len(wave) > 1 {
			err := e.runWaveParallel(waveCtx, intent.Steps, wave, results, cfg)
			finishWave(err)
			if err != nil {
				return &Result{StepResults: results, Waves: waves}, err
			}
			continue
		}

		var stepErr error
		for _, idx := range wave {
			res, err := e.runStep(waveCtx, intent.Steps[idx], cfg.Confirmed)
			results[idx] = res
			if err != nil {
				stepErr = err
				break
			}
		}
		finishWave(stepErr)
		if stepErr != nil {
			return &Result{StepResults: results, Waves: waves}, stepErr
		}
	}

	return &Result{StepResults: results, Waves: waves}, nil
}

// runWaveParallel dispatches every step index in wave concurrently,
// bounded by cfg.MaxConcurrency, via errgroup.WithContext so the
// first step failure cancels the remaining steps in the wave (spec.md
// §4.5 step 4 and §5's cancellation semantics).
func (e *Executor) runWaveParallel(ctx context.Context, steps []schema.Step, wave []int, results []schema.StepResult, cfg Config) error {
	limit := cfg.MaxConcurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var mu sync.Mutex
	for _, idx := range wave {
		idx := idx
		g.Go(func() error {
			res, err := e.runStep(gctx, steps[idx], cfg.Confirmed)
			mu.Lock()
			results[idx] = res
			mu.Unlock()
			return err
		})
	}
	return g.Wait()
}

// runStep runs the safety check, resolves the tool/action, dispatches
// it, and on failure hands off to error recovery, per spec.md §4.5
// steps 2-3. It reports a completed mutating step to the configured
// ActionRecorder.
func (e *Executor) runStep(ctx context.Context, step schema.Step, confirmed bool) (result schema.StepResult, err error) {
	if err := safety.Check(step, confirmed); err != nil {
		return schema.StepResult{Success: false, Error: err.Error(), Attempts: 1}, err
	}

	if !e.Registry.Has(step.Tool, step.Action) {
		err := fmt.Errorf("%s.%s: %w", step.Tool, step.Action, zerrors.ErrToolNotFound)
		if e.Registry.HasTool(step.Tool) {
			err = fmt.Errorf("%s.%s: %w", step.Tool, step.Action, zerrors.ErrActionNotFound)
		}
		return schema.StepResult{Success: false, Error: err.Error(), Attempts: 1}, err
	}

	stepCtx, finishStep := telemetry.StartSpan(ctx, "executor.step", map[string]string{
		"tool":   step.Tool,
		"action": step.Action,
		"risk":   fmt.Sprintf("%d", step.Risk),
	})
	defer func() { finishStep(err) }()

	attempt := 1
	for {
		output, dispatchErr := e.Registry.Dispatch(stepCtx, step.Tool, step.Action, step.Args)
		if dispatchErr == nil {
			result = schema.StepResult{Success: true, Output: output, Attempts: attempt}
			e.record(ctx, step, result)
			return result, nil
		}

		if e.Recovery == nil {
			result = schema.StepResult{Success: false, Error: dispatchErr.Error(), Attempts: attempt}
			return result, fmt.Errorf("%w: %v", zerrors.ErrStepFailed, dispatchErr)
		}

		rec := e.Recovery.Recover(ctx, dispatchErr, attempt)
		if !rec.Success {
			result = schema.StepResult{Success: false, Error: dispatchErr.Error(), Attempts: attempt}
			return result, fmt.Errorf("%w: %v", zerrors.ErrStepFailed, dispatchErr)
		}

		if rec.Strategy == recovery.StrategyRetry {
			attempt++
			continue
		}

		strategyName := string(rec.Strategy)
		result = schema.StepResult{
			Success:     true,
			Output:      rec.Message,
			Attempts:    attempt,
			RecoveredBy: &strategyName,
		}
		e.record(ctx, step, result)
		return result, nil
	}
}

func (e *Executor) record(ctx context.Context, step schema.Step, result schema.StepResult) {
	if e.Recorder == nil || !step.Risk.Mutating() || !result.Success {
		return
	}
	if err := e.Recorder.Record(ctx, step, result); err != nil {
		e.Logger.Warn("action tracker record failed", "tool", step.Tool, "action", step.Action, "error", err)
	}
}

// Preview runs the safety check only, for dry-run mode (spec.md §4.5
// step 6): no step is dispatched and nothing is recorded. The CLI's
// --dry-run surface renders this directly for a numbered plan with
// risk annotations (SPEC_FULL.md §5).
func (e *Executor) Preview(steps []schema.Step, confirmed bool) Preview {
	out := Preview{Steps: make([]PreviewStep, len(steps))}
	for i, step := range steps {
		p := PreviewStep{Index: i, Step: step}
		if err := safety.Check(step, confirmed); err != nil {
			p.Blocked = true
			p.Violation = err.Error()
		}
		out.Steps[i] = p
	}
	return out
}

func previewToSkipped(p Preview) []schema.StepResult {
	out := make([]schema.StepResult, len(p.Steps))
	for i, step := range p.Steps {
		out[i] = schema.StepResult{
			Success: !step.Blocked,
			Output:  "dry-run: not dispatched",
			Error:   step.Violation,
		}
	}
	return out
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
