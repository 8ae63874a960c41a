// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

/*
Package middleware provides HTTP middleware components for the scheduler's
request pipeline: gzip compression and Prometheus metrics instrumentation.
These wrap the schedule build/list/edit handlers behind the Chi router in
internal/api, which supplies its own request-ID middleware
(RequestIDWithLogging) since that one needs to integrate with Chi directly.

Key Components:

  - Compression: Gzip compression for every response (no size threshold)
  - Prometheus Metrics: HTTP request/response instrumentation

Usage Example - Compression:

	import "github.com/jaypound/broadcast-scheduler/internal/middleware"

	// Wrap handler with gzip compression
	http.HandleFunc("/api/v1/data",
	    middleware.Compression(handler),
	)

	// Responses of any size are compressed
	// Accept-Encoding: gzip header is required

Thread Safety:

All middleware components are thread-safe:
  - Compression uses per-request gzip writers
  - Prometheus metrics use atomic operations

See Also:

  - internal/auth: Authentication middleware
  - internal/api: HTTP handlers wrapped by middleware
  - internal/metrics: Prometheus metrics definitions
*/
package middleware
