// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

package api

import (
	"net/http"

	"github.com/jaypound/broadcast-scheduler/internal/auth"
)

// Router assembles the scheduler's HTTP handlers behind a Chi mux. It holds
// only what SetupChi needs to wire routes and middleware; request handling
// itself lives on HealthHandler and SchedulerHandler.
type Router struct {
	health            *HealthHandler
	middleware        *auth.Middleware
	chiMiddleware     *ChiMiddleware
	schedulerHandlers *SchedulerHandler
}

// NewRouter builds a Router from the auth middleware and a health handler.
// Call ConfigureScheduler before SetupChi to wire the schedule build/list/
// edit routes; SetupChi mounts those routes either way, and without it their
// handlers dereference a nil SchedulerHandler when a request arrives.
func NewRouter(health *HealthHandler, middleware *auth.Middleware) *Router {
	rateLimitReqs, rateLimitDisabled := middleware.GetRateLimitConfig()
	return &Router{
		health:     health,
		middleware: middleware,
		chiMiddleware: NewChiMiddlewareFromAuth(
			middleware.GetCORSOrigins(),
			rateLimitReqs,
			middleware.GetRateLimitWindow(),
			rateLimitDisabled,
		),
	}
}

// ConfigureScheduler wires the schedule build/list/edit handlers. Must be
// called before SetupChi.
func (router *Router) ConfigureScheduler(h *SchedulerHandler) {
	router.schedulerHandlers = h
}

// chiMiddleware adapts the net/http-style middleware this codebase writes
// elsewhere (func(http.HandlerFunc) http.HandlerFunc) to Chi's
// func(http.Handler) http.Handler shape, so auth.Middleware and
// internal/middleware functions can sit in a Chi Use() chain unchanged.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}
