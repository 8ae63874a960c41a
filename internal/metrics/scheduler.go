// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scheduler Build Metrics
var (
	SchedulerBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_build_duration_seconds",
			Help:    "Wall-clock duration of a schedule build (daily, weekly, or monthly)",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	SchedulerBuildTerminations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_build_terminations_total",
			Help: "Total schedule builds by terminal outcome",
		},
		[]string{"reason"}, // "success", "infinite_loop", "infinite_loop_all_blocked", "insufficient_content", ...
	)

	SchedulerCategoryResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_category_resets_total",
			Help: "Total candidate-provider category-reset safety valve activations",
		},
	)

	SchedulerSlotErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_slot_errors_total",
			Help: "Total store errors encountered while filling a single schedule slot",
		},
	)

	SchedulerDelayReductionRung = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_delay_reduction_rung_total",
			Help: "Count of slots filled at each progressive delay-reduction rung",
		},
		[]string{"rung"}, // "full", "reduced_75", "reduced_50", "reduced_25", "none"
	)
)
