// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package main is the zenus CLI: translate a natural language command
// into an Intent, validate it against the safety policy, dispatch it
// through the dependency-aware executor, and persist what it did so a
// later `rollback` or `history` call can act on it.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zenus-ai/zenus/internal/adaptive"
	"github.com/zenus-ai/zenus/internal/config"
	"github.com/zenus-ai/zenus/internal/executor"
	"github.com/zenus-ai/zenus/internal/failurelog"
	"github.com/zenus-ai/zenus/internal/llm"
	"github.com/zenus-ai/zenus/internal/logging"
	"github.com/zenus-ai/zenus/internal/recovery"
	"github.com/zenus-ai/zenus/internal/resilience"
	"github.com/zenus-ai/zenus/internal/schema"
	"github.com/zenus-ai/zenus/internal/store"
	"github.com/zenus-ai/zenus/internal/tools"
	"github.com/zenus-ai/zenus/internal/toolregistry"
	"github.com/zenus-ai/zenus/internal/transaction"
)

// version is the CLI's reported version string for `version`,
// `--version`, and `-v`.
const version = "0.1.0"

// runtime bundles every package this CLI wires together, built once
// in newRuntime and threaded into each cobra command.
type runtime struct {
	cfg config.Config

	logger  *logging.Logger
	db      *store.DB
	watcher *config.Watcher

	registry *toolregistry.Registry
	inverses *toolregistry.InvertibilityTable
	router   *llm.Router

	recovery *recovery.Recovery
	executor *executor.Executor
	planner  func() *adaptive.Planner

	tracker  *transaction.Tracker
	rollback *transaction.Engine
	failures *failurelog.Logger

	session *sessionLog
	home    string
}

// newRuntime wires every package this CLI exercises against the
// loaded config.Global, per SPEC_FULL.md's dependency-wiring table.
func newRuntime(ctx context.Context) (*runtime, error) {
	home, err := zenusHome()
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{
		Level:   levelFromString(config.Global.LogLevel),
		Service: "zenus",
		LogDir:  filepath.Join(home, "logs"),
		JSON:    true,
		Quiet:   false,
	})

	db, err := store.OpenWithPath(filepath.Join(home, "data"))
	if err != nil {
		return nil, fmt.Errorf("zenus: open store: %w", err)
	}

	registry := toolregistry.New(tools.FileOps{}, tools.ProcessOps{}, tools.TextOps{})
	inverses := toolregistry.NewInvertibilityTable()

	providers, err := buildProviders(config.Global)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	breakers := resilience.NewRegistry(resilience.CircuitBreakerConfig{})
	budget := resilience.NewRetryBudget(resilience.RetryBudgetConfig{})
	backoff := resilience.BackoffConfig{}

	router := llm.NewRouter(llm.RouterConfig{
		Providers:     providers,
		CheapOrder:    config.Global.Routing.CheapOrder,
		PowerfulOrder: config.Global.Routing.PowerfulOrder,
		Classifier:    llm.NewComplexityClassifier(cheapModel(config.Global), powerfulModel(config.Global)),
		Breakers:      breakers,
		Budget:        budget,
		Backoff:       backoff,
	})

	wallClock := func() int64 { return time.Now().Unix() }

	rec := recovery.New(config.Global.Executor.MaxRetries, backoff)
	tracker := transaction.New(db, wallClock, logger)
	exec := executor.New(registry, rec, tracker, logger)
	rollbackEngine := transaction.NewEngine(db, registry, inverses, wallClock, logger)
	failures := failurelog.New(db, wallClock)

	session, err := newSessionLog(home)
	if err != nil {
		logger.Warn("session log unavailable", "error", err)
	}

	rt := &runtime{
		cfg:      config.Global,
		logger:   logger,
		db:       db,
		registry: registry,
		inverses: inverses,
		router:   router,
		recovery: rec,
		executor: exec,
		tracker:  tracker,
		rollback: rollbackEngine,
		failures: failures,
		session:  session,
		home:     home,
	}
	rt.planner = func() *adaptive.Planner {
		return newPlanner(rt)
	}

	watcher, err := config.NewWatcher(func(cfg config.Config) {
		rt.cfg = cfg
		logger.Info("config reloaded", "log_level", cfg.LogLevel)
	})
	if err != nil {
		logger.Warn("config watcher unavailable", "error", err)
	} else if err := watcher.Start(ctx); err != nil {
		logger.Warn("config watcher failed to start", "error", err)
	} else {
		rt.watcher = watcher
	}

	return rt, nil
}

// newPlanner builds a fresh adaptive.Planner for one plan run. A new
// Planner is built per run rather than reused because Planner
// accumulates a per-run history (see internal/adaptive). Adapt
// substitutes a known alternative argument value (e.g. "npm" ->
// "yarn") when the failing step named one; OnFailure logs the
// exhausted step to the failure log so later Suggest calls learn from
// it.
func newPlanner(rt *runtime) *adaptive.Planner {
	p := adaptive.New(rt.executor, rt.cfg.Executor.MaxRetries, rt.logger)
	p.Adapt = func(step schema.Step, result schema.StepResult, history schema.ExecutionHistory) *schema.Step {
		for key, val := range step.Args {
			str, ok := val.(string)
			if !ok {
				continue
			}
			if alt, found := recovery.Alternative(str); found {
				adapted := step
				adapted.Args = make(map[string]any, len(step.Args))
				for k, v := range step.Args {
					adapted.Args[k] = v
				}
				adapted.Args[key] = alt
				return &adapted
			}
		}
		return nil
	}
	p.OnFailure = func(step schema.Step, result schema.StepResult) {
		if _, err := rt.failures.LogFailure(context.Background(), "", "", step.Tool, "step_failed", result.Error, map[string]any{"action": step.Action}); err != nil {
			rt.logger.Warn("failurelog: record failure", "error", err)
		}
	}
	return p
}

// Close releases every resource newRuntime opened.
func (rt *runtime) Close() {
	if rt.watcher != nil {
		rt.watcher.Stop()
	}
	rt.session.Close()
	if rt.db != nil {
		_ = rt.db.Close()
	}
	if rt.logger != nil {
		_ = rt.logger.Close()
	}
}

func zenusHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("zenus: could not resolve home directory: %w", err)
	}
	return filepath.Join(home, ".zenus"), nil
}

func cheapModel(cfg config.Config) string {
	if p, ok := cfg.Providers["ollama"]; ok && p.Model != "" {
		return p.Model
	}
	return "llama3"
}

func powerfulModel(cfg config.Config) string {
	if p, ok := cfg.Providers["anthropic"]; ok && p.Model != "" {
		return p.Model
	}
	return "claude-3-5-sonnet-latest"
}

// buildProviders constructs one llm.Provider per configured backend,
// skipping any provider whose credentials are not present in the
// environment (openai/anthropic require an API key; ollama does not).
func buildProviders(cfg config.Config) ([]llm.Provider, error) {
	var providers []llm.Provider
	for name, p := range cfg.Providers {
		switch p.Type {
		case "openai":
			if p.APIKey == "" {
				continue
			}
			providers = append(providers, llm.NewOpenAIProvider(p.APIKey, p.Model))
		case "anthropic":
			if p.APIKey == "" {
				continue
			}
			prov, err := llm.NewAnthropicProvider(p.APIKey, p.Model)
			if err != nil {
				return nil, fmt.Errorf("zenus: anthropic provider: %w", err)
			}
			providers = append(providers, prov)
		case "ollama":
			prov, err := llm.NewOllamaProvider(p.Model)
			if err != nil {
				return nil, fmt.Errorf("zenus: ollama provider: %w", err)
			}
			providers = append(providers, prov)
		default:
			return nil, fmt.Errorf("zenus: provider %q: unknown type %q", name, p.Type)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("zenus: no LLM provider is configured; set an API key or run ollama locally")
	}
	return providers, nil
}
