// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jaypound/broadcast-scheduler/internal/middleware"
)

// SetupChi builds the full Chi mux: global middleware, health endpoints,
// Prometheus metrics, and the authenticated/rate-limited schedule route
// group. ConfigureScheduler must have been called first: the scheduler
// routes are mounted regardless, and with a nil handler each request to them
// panics (turned into a 500 by the Recoverer middleware).
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(E2EDebugLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(chiMiddleware(APISecurityHeaders()))
	r.Use(chiMiddleware(middleware.Compression))

	r.Get("/health", router.health.Health)
	r.Get("/health/live", router.health.HealthLive)
	r.Get("/health/ready", router.health.HealthReady)
	r.Handle("/metrics", promhttp.Handler())

	router.registerChiSchedulerRoutes(r)

	return r
}

// registerChiSchedulerRoutes mounts the schedule build/list/edit endpoints
// under rate limiting, Prometheus instrumentation, and authentication, in
// that order so a throttled or unauthenticated caller never reaches the
// build service.
func (router *Router) registerChiSchedulerRoutes(r chi.Router) {
	r.Route("/api/v1/schedules", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(router.middleware.Authenticate))

		r.Post("/daily", router.schedulerHandlers.BuildDaily)
		r.Post("/weekly", router.schedulerHandlers.BuildWeekly)
		r.Post("/monthly", router.schedulerHandlers.BuildMonthly)
		r.Get("/build/{jobID}", router.schedulerHandlers.BuildStatus)

		r.Get("/", router.schedulerHandlers.ListSchedules)
		r.Get("/{id}", router.schedulerHandlers.GetSchedule)
		r.Delete("/{id}", router.schedulerHandlers.DeleteSchedule)
		r.Get("/{id}/replay-analysis", router.schedulerHandlers.ReplayAnalysis)

		r.Post("/{id}/items/reorder", router.schedulerHandlers.ReorderItem)
		r.Delete("/{id}/items/{itemId}", router.schedulerHandlers.DeleteItem)
		r.Post("/{id}/items/{itemId}/availability", router.schedulerHandlers.ToggleItemAvailability)
	})
}
