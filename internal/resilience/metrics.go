// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	circuitStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "zenus",
		Subsystem: "resilience",
		Name:      "circuit_state",
		Help:      "Current circuit breaker state per provider (0=closed, 1=open, 2=half_open).",
	}, []string{"provider"})

	retryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zenus",
		Subsystem: "resilience",
		Name:      "retry_attempts_total",
		Help:      "Retry attempts made per operation kind.",
	}, []string{"operation"})

	retryBudgetExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zenus",
		Subsystem: "resilience",
		Name:      "retry_budget_exhausted_total",
		Help:      "Times a retry budget was exhausted per operation kind.",
	}, []string{"operation"})
)
