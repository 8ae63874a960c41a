// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/jaypound/broadcast-scheduler/internal/models"
)

func TestHealthLive_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(nil)

	methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}
	for _, method := range methods {
		t.Run(method, func(t *testing.T) {
			req := httptest.NewRequest(method, "/health/live", nil)
			w := httptest.NewRecorder()

			h.HealthLive(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("expected 405 for %s, got %d", method, w.Code)
			}
		})
	}
}

func TestHealthLive_Success(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()

	h.HealthLive(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("expected status success, got %q", resp.Status)
	}
}

func TestHealth_NilStore_Degraded(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	h.Health(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 (Health always returns 200, degraded or not), got %d", w.Code)
	}

	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected data to be a map, got %T", resp.Data)
	}
	if data["status"] != "degraded" {
		t.Errorf("expected status degraded with a nil store, got %v", data["status"])
	}
	if connected, _ := data["store_connected"].(bool); connected {
		t.Error("expected store_connected to be false with a nil store")
	}
}

func TestHealthReady_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/health/ready", nil)
	w := httptest.NewRecorder()

	h.HealthReady(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestHealthReady_NilStore_NotReady(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()

	h.HealthReady(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 with a nil store, got %d", w.Code)
	}
}

func TestHealthHandler_UptimeIncreasesOverTime(t *testing.T) {
	t.Parallel()

	h := &HealthHandler{startTime: time.Now().Add(-1 * time.Hour)}

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()

	h.HealthLive(w, req)

	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected data to be a map, got %T", resp.Data)
	}
	uptime, _ := data["uptime"].(float64)
	if uptime < 3599 {
		t.Errorf("expected uptime close to 3600s, got %v", uptime)
	}
}
