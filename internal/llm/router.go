// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"runtime"

	"github.com/zenus-ai/zenus/internal/resilience"
	"github.com/zenus-ai/zenus/internal/telemetry"
)

// Router selects a provider ordering based on task complexity and
// drives the call through a resilience.Chain so a degraded or
// rate-limited provider falls back automatically.
//
// # Description
//
// The router holds two provider orderings: cheap-first (the common
// case) and powerful-first (for tasks the ComplexityClassifier scores
// as complex; iterative/ReAct mode only raises that score). Each
// ordering is used exactly as configured: a registered provider that
// is missing from the ordering is not tried, and a listed name with no
// registered provider fails that attempt.
type Router struct {
	providers     map[string]Provider
	cheapOrder    []string
	powerfulOrder []string
	classifier    *ComplexityClassifier
	translate     *resilience.Chain
	reflect       *resilience.Chain
}

// RouterConfig wires the providers and resilience primitives a Router
// needs.
type RouterConfig struct {
	Providers     []Provider
	CheapOrder    []string
	PowerfulOrder []string
	Classifier    *ComplexityClassifier
	Breakers      *resilience.Registry
	Budget        *resilience.RetryBudget
	Backoff       resilience.BackoffConfig

	// MaxConcurrentRequests sizes the token-bucket rate limiter shared
	// by the translate and reflect chains: that many requests per
	// second, with a burst of the same size. It does not bound how many
	// requests are in flight at once. <= 0 defaults to runtime.NumCPU().
	MaxConcurrentRequests int
}

// NewRouter builds a Router from config.
func NewRouter(config RouterConfig) *Router {
	providers := make(map[string]Provider, len(config.Providers))
	for _, p := range config.Providers {
		providers[p.Name()] = p
	}
	concurrency := config.MaxConcurrentRequests
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	limiter := resilience.NewLimiter(float64(concurrency), concurrency)
	return &Router{
		providers:     providers,
		cheapOrder:    config.CheapOrder,
		powerfulOrder: config.PowerfulOrder,
		classifier:    config.Classifier,
		translate:     resilience.NewChain("llm.translate", config.Breakers, config.Budget, config.Backoff).WithLimiter(limiter),
		reflect:       resilience.NewChain("llm.reflect", config.Breakers, config.Budget, config.Backoff).WithLimiter(limiter),
	}
}

// Translate routes userInput to the provider ordering selected by the
// complexity classifier and returns the raw response text.
func (r *Router) Translate(ctx context.Context, userInput string, iterative bool) (string, ComplexityScore, error) {
	score := r.classifier.Analyze(userInput, iterative)
	order := r.orderFor(score)

	ctx, finish := telemetry.StartSpan(ctx, "llm.translate", map[string]string{
		"complexity": fmt.Sprintf("%v", score.IsComplex()),
		"iterative":  fmt.Sprintf("%t", iterative),
	})

	var result string
	err := r.translate.Run(ctx, order, func(ctx context.Context, name string) error {
		p, ok := r.providers[name]
		if !ok {
			return fmt.Errorf("router: provider %q not registered", name)
		}
		out, err := p.Translate(ctx, userInput)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	finish(err)
	return result, score, err
}

// Reflect routes a reflection prompt to the powerful-first ordering,
// since reflection quality directly gates the goal tracker's
// termination decision.
func (r *Router) Reflect(ctx context.Context, prompt string) (string, error) {
	order := r.powerfulOrder
	if len(order) == 0 {
		order = r.allProviderNames()
	}

	ctx, finish := telemetry.StartSpan(ctx, "llm.reflect", nil)

	var result string
	err := r.reflect.Run(ctx, order, func(ctx context.Context, name string) error {
		p, ok := r.providers[name]
		if !ok {
			return fmt.Errorf("router: provider %q not registered", name)
		}
		out, err := p.Reflect(ctx, prompt)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	finish(err)
	return result, err
}

func (r *Router) orderFor(score ComplexityScore) []string {
	if score.IsComplex() && len(r.powerfulOrder) > 0 {
		return r.powerfulOrder
	}
	if len(r.cheapOrder) > 0 {
		return r.cheapOrder
	}
	return r.allProviderNames()
}

func (r *Router) allProviderNames() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
