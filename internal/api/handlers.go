// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jaypound/broadcast-scheduler/internal/models"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/builder"
)

// HealthHandler serves liveness/readiness probes for the scheduler HTTP
// surface. Readiness probes the asset store directly rather than trusting a
// cached flag, since the store is the only thing build requests actually
// depend on.
type HealthHandler struct {
	store     builder.Store
	startTime time.Time
}

func NewHealthHandler(store builder.Store) *HealthHandler {
	return &HealthHandler{store: store, startTime: time.Now()}
}

// Health reports overall status plus uptime.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	connected := h.probeStore(r.Context())
	status := "healthy"
	if !connected {
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"status":          status,
			"store_connected": connected,
			"uptime_seconds":  time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// HealthLive answers the Kubernetes liveness probe: 200 as long as the
// process is handling requests at all, regardless of store health.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// HealthReady answers the Kubernetes readiness probe: 503 if the asset
// store can't be reached, since a build request would fail immediately.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	ready := h.probeStore(r.Context())
	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"store_connected": ready,
			"uptime_seconds":  time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// probeStore issues a cheap, bounded query against the asset store to
// confirm the underlying DuckDB connection is alive.
func (h *HealthHandler) probeStore(ctx context.Context) bool {
	if h.store == nil {
		return false
	}
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	now := time.Now()
	_, err := h.store.ListSchedules(probeCtx, now, now)
	return err == nil
}
