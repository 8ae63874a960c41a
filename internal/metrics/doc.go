// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

/*
Package metrics provides Prometheus instrumentation for the scheduler's HTTP
request pipeline, its asset-store circuit breakers, and the schedule build
pipeline.

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:3857/metrics

# Available Metrics

HTTP Metrics (metrics.go):
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_active_requests: Requests currently in flight (gauge)

Circuit Breaker Metrics (metrics.go, fed by internal/scheduler/resilience):
  - circuit_breaker_state: Current state (gauge)
    Labels: name
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total: Requests routed through the breaker (counter)
    Labels: name, result (success, failure, rejected)
  - circuit_breaker_consecutive_failures: Current failure streak (gauge)
    Labels: name
  - circuit_breaker_state_transitions_total: State transitions (counter)
    Labels: name, from_state, to_state

Schedule Build Metrics (scheduler.go, fed by internal/scheduler/builder and
internal/scheduler/candidate):
  - scheduler_build_duration_seconds: Time to build one schedule (histogram)
  - scheduler_build_terminations_total: Build outcomes (counter)
    Labels: reason (success or a builder.ErrorKind string)
  - scheduler_category_resets_total: Progressive-delay safety-valve resets fired
  - scheduler_slot_errors_total: Slot placement failures
  - scheduler_delay_reduction_rung_total: Progressive delay relaxation rung hit
    per content selection (counter)
    Labels: rung (full, reduced_75, reduced_50, reduced_25, none)

# Usage Example

	import (
	    "github.com/jaypound/broadcast-scheduler/internal/metrics"
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	http.Handle("/metrics", promhttp.Handler())
	metrics.RecordAPIRequest(r.Method, r.URL.Path, strconv.Itoa(status), elapsed)

# Cardinality Management

Endpoint labels use the raw request path (r.URL.Path in
internal/middleware/prometheus.go), not the route template, so every
distinct schedule ID in a path produces its own series. Circuit breaker and
build-termination labels are drawn from small fixed sets (breaker names,
builder.ErrorKind values, rung names).

# See Also

  - internal/middleware: HTTP middleware wired to record these metrics
  - internal/scheduler/resilience: circuit breaker emitting CircuitBreaker* metrics
  - internal/scheduler/builder: schedule build pipeline emitting Scheduler* metrics
  - https://prometheus.io/docs/practices/naming/: Metric naming conventions
*/
package metrics
