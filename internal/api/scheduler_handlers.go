// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/jaypound/broadcast-scheduler/internal/models"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/builder"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/model"
	"github.com/jaypound/broadcast-scheduler/internal/supervisor/services"
)

const schedulerBuildWait = 25 * time.Second

// apiSuccess wraps a payload in the standard success envelope.
func apiSuccess(data interface{}) *models.APIResponse {
	return &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: models.Metadata{Timestamp: time.Now()},
	}
}

// SchedulerHandler serves the schedule-build and schedule-management
// endpoints of spec.md §6 plus the supplemental replay-analysis report
// (SPEC_FULL.md §3.3). Grounded on internal/api/handlers_recommend.go's
// handler-struct-wraps-engine shape.
type SchedulerHandler struct {
	builds *services.SchedulerBuildService
	store  builder.Store
}

func NewSchedulerHandler(builds *services.SchedulerBuildService, store builder.Store) *SchedulerHandler {
	return &SchedulerHandler{builds: builds, store: store}
}

// dailyBuildRequest is the validated body of POST /schedules/daily.
type dailyBuildRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Name      string `json:"name"`
	MaxErrors int    `json:"max_errors" validate:"min=0,max=1000"`
}

type weeklyBuildRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	Name      string `json:"name"`
}

type monthlyBuildRequest struct {
	Year  int `json:"year" validate:"required,min=1970,max=2200"`
	Month int `json:"month" validate:"required,min=1,max=12"`
}

type reorderItemRequest struct {
	From int `json:"from" validate:"min=1"`
	To   int `json:"to" validate:"min=1"`
}

type availabilityRequest struct {
	Available bool `json:"available"`
}

// buildResponse is the {success, schedule, stats} / {success, error,
// message, stopped_at_hours, days_completed} shape of spec.md §7.
type buildResponse struct {
	Success        bool                          `json:"success"`
	Schedule       *model.Schedule               `json:"schedule,omitempty"`
	ItemCount      int                           `json:"item_count,omitempty"`
	DelayStats     candidateDelayStatsView       `json:"delay_stats,omitempty"`
	CategoryResets map[string]int                `json:"category_resets,omitempty"`
	Advisories     []string                      `json:"advisories,omitempty"`
	ErrorKind      string                        `json:"error,omitempty"`
	Message        string                        `json:"message,omitempty"`
	StoppedAtHours float64                       `json:"stopped_at_hours,omitempty"`
	DaysCompleted  int                           `json:"days_completed,omitempty"`
	JobID          string                        `json:"job_id,omitempty"`
}

type candidateDelayStatsView struct {
	Full       int `json:"full"`
	Reduced75  int `json:"reduced_75"`
	Reduced50  int `json:"reduced_50"`
	Reduced25  int `json:"reduced_25"`
	None       int `json:"none"`
	ResetCount int `json:"reset_count"`
}

// BuildDaily handles POST /api/v1/schedules/daily.
func (h *SchedulerHandler) BuildDaily(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req dailyBuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	airDate, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD", err)
		return
	}

	job := h.builds.Submit(services.BuildRequest{
		Kind:    model.ScheduleDaily,
		AirDate: airDate,
		Name:    req.Name,
	})
	h.awaitAndRespond(w, r, job)
}

// BuildWeekly handles POST /api/v1/schedules/weekly.
func (h *SchedulerHandler) BuildWeekly(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req weeklyBuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_DATE", "start_date must be YYYY-MM-DD", err)
		return
	}

	job := h.builds.Submit(services.BuildRequest{
		Kind:    model.ScheduleWeekly,
		AirDate: startDate,
		Name:    req.Name,
	})
	h.awaitAndRespond(w, r, job)
}

// BuildMonthly handles POST /api/v1/schedules/monthly.
func (h *SchedulerHandler) BuildMonthly(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req monthlyBuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	job := h.builds.Submit(services.BuildRequest{
		Kind:  model.ScheduleMonthly,
		Year:  req.Year,
		Month: time.Month(req.Month),
	})
	h.awaitAndRespond(w, r, job)
}

// awaitAndRespond waits for a submitted build job up to schedulerBuildWait.
// Monthly builds routinely exceed that window, so a still-running job is
// reported back as 202 Accepted with its job id rather than blocking the
// connection indefinitely; the client polls GET /schedules/build/{jobID}.
func (h *SchedulerHandler) awaitAndRespond(w http.ResponseWriter, r *http.Request, job *services.BuildJob) {
	ctx, cancel := context.WithTimeout(r.Context(), schedulerBuildWait)
	defer cancel()

	select {
	case <-job.Done():
		h.respondJobResult(w, job)
	case <-ctx.Done():
		respondJSON(w, http.StatusAccepted, apiSuccess(buildResponse{JobID: job.ID}))
	}
}

// BuildStatus handles GET /api/v1/schedules/build/{jobID}.
func (h *SchedulerHandler) BuildStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	jobID := chi.URLParam(r, "jobID")
	job, ok := h.builds.Job(jobID)
	if !ok {
		respondError(w, http.StatusNotFound, "JOB_NOT_FOUND", "no such build job", nil)
		return
	}
	select {
	case <-job.Done():
		h.respondJobResult(w, job)
	default:
		respondJSON(w, http.StatusOK, apiSuccess(buildResponse{JobID: job.ID}))
	}
}

func (h *SchedulerHandler) respondJobResult(w http.ResponseWriter, job *services.BuildJob) {
	if job.Err != nil {
		respondError(w, http.StatusInternalServerError, "BUILD_ERROR", job.Err.Error(), job.Err)
		return
	}
	res := job.Result
	resp := buildResponse{Success: res.Success, Advisories: res.Advisories, JobID: job.ID}
	if res.Success {
		resp.Schedule = res.Schedule
		resp.ItemCount = len(res.Items)
		resp.CategoryResets = res.CategoryResets
		resp.DelayStats = candidateDelayStatsView{
			Full:       res.DelayStats.FullDelays,
			Reduced75:  res.DelayStats.Reduced75,
			Reduced50:  res.DelayStats.Reduced50,
			Reduced25:  res.DelayStats.Reduced25,
			None:       res.DelayStats.NoDelays,
			ResetCount: res.DelayStats.Resets,
		}
		respondJSON(w, http.StatusCreated, apiSuccess(resp))
		return
	}

	status := http.StatusConflict
	if res.Err != nil && res.Err.Kind == builder.ErrInvalidInput {
		status = http.StatusBadRequest
	}
	if res.Err != nil {
		resp.ErrorKind = string(res.Err.Kind)
		resp.Message = res.Err.Message
		resp.StoppedAtHours = res.Err.StoppedAtHours
		resp.DaysCompleted = res.Err.DaysCompleted
	}
	respondJSON(w, status, apiSuccess(resp))
}

// ListSchedules handles GET /api/v1/schedules?start_date=&end_date=.
func (h *SchedulerHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	start, err := parseDateParam(r, "start_date", time.Now().AddDate(0, 0, -7))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_DATE", "start_date must be YYYY-MM-DD", err)
		return
	}
	end, err := parseDateParam(r, "end_date", time.Now().AddDate(0, 0, 30))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_DATE", "end_date must be YYYY-MM-DD", err)
		return
	}

	schedules, err := h.store.ListSchedules(r.Context(), start, end)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to list schedules", err)
		return
	}
	respondJSON(w, http.StatusOK, apiSuccess(schedules))
}

func parseDateParam(r *http.Request, key string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return time.Parse("2006-01-02", raw)
}

// scheduleIDParam parses the {id} chi path param shared by the
// per-schedule routes below.
func scheduleIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// GetSchedule handles GET /api/v1/schedules/{id}.
func (h *SchedulerHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id, err := scheduleIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "invalid schedule id", err)
		return
	}

	schedule, err := h.store.ScheduleByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to load schedule", err)
		return
	}
	if schedule == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "schedule not found", nil)
		return
	}
	items, err := h.store.ItemsForSchedule(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to load schedule items", err)
		return
	}

	respondJSON(w, http.StatusOK, apiSuccess(map[string]interface{}{
		"schedule": schedule,
		"items":    items,
	}))
}

// DeleteSchedule handles DELETE /api/v1/schedules/{id}.
func (h *SchedulerHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodDelete) {
		return
	}
	id, err := scheduleIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "invalid schedule id", err)
		return
	}
	if err := h.store.DeleteSchedule(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to delete schedule", err)
		return
	}
	respondJSON(w, http.StatusOK, apiSuccess(map[string]bool{"ok": true}))
}

// ReorderItem handles POST /api/v1/schedules/{id}/items/reorder.
func (h *SchedulerHandler) ReorderItem(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	id, err := scheduleIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "invalid schedule id", err)
		return
	}
	var req reorderItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	if err := h.store.ReorderItem(r.Context(), id, req.From, req.To); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to reorder item", err)
		return
	}
	respondJSON(w, http.StatusOK, apiSuccess(map[string]bool{"ok": true}))
}

// DeleteItem handles DELETE /api/v1/schedules/{id}/items/{itemId}.
func (h *SchedulerHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodDelete) {
		return
	}
	id, err := scheduleIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "invalid schedule id", err)
		return
	}
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "invalid item id", err)
		return
	}
	if err := h.store.DeleteItem(r.Context(), id, itemID); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to delete item", err)
		return
	}
	respondJSON(w, http.StatusOK, apiSuccess(map[string]bool{"ok": true}))
}

// ToggleItemAvailability handles POST /api/v1/schedules/{id}/items/{itemId}/availability.
func (h *SchedulerHandler) ToggleItemAvailability(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	id, err := scheduleIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "invalid schedule id", err)
		return
	}
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "invalid item id", err)
		return
	}
	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", err)
		return
	}
	if err := h.store.ToggleItemAvailability(r.Context(), id, itemID, req.Available); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to toggle item availability", err)
		return
	}
	respondJSON(w, http.StatusOK, apiSuccess(map[string]bool{"ok": true}))
}

// replayAnalysisRow is one asset's airing count and theme-separation
// compliance within a schedule, per SPEC_FULL.md §3.3.
type replayAnalysisRow struct {
	AssetID              int64   `json:"asset_id"`
	AiringsInSchedule    int     `json:"airings_in_schedule"`
	ThemeSeparationOK    bool    `json:"theme_separation_ok"`
	MinThemeGapHours     float64 `json:"min_theme_gap_hours"`
}

// ReplayAnalysis handles GET /api/v1/schedules/{id}/replay-analysis, the
// supplemental read-only report restored from
// reports/schedule_replay_analysis.py (SPEC_FULL.md §3.3).
func (h *SchedulerHandler) ReplayAnalysis(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id, err := scheduleIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "invalid schedule id", err)
		return
	}
	items, err := h.store.ItemsForSchedule(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to load schedule items", err)
		return
	}

	byAsset := make(map[int64][]model.ScheduledItem)
	for _, it := range items {
		byAsset[it.AssetID] = append(byAsset[it.AssetID], it)
	}

	rows := make([]replayAnalysisRow, 0, len(byAsset))
	for assetID, plays := range byAsset {
		row := replayAnalysisRow{AssetID: assetID, AiringsInSchedule: len(plays), ThemeSeparationOK: true}
		minGap := -1.0
		for i := 1; i < len(plays); i++ {
			prevSeconds := float64(plays[i-1].DayOffset)*86400 + plays[i-1].ScheduledStartTime.Seconds()
			curSeconds := float64(plays[i].DayOffset)*86400 + plays[i].ScheduledStartTime.Seconds()
			gapHours := (curSeconds - prevSeconds) / 3600
			if plays[i].Theme != "" && plays[i].Theme == plays[i-1].Theme && gapHours < 24 {
				row.ThemeSeparationOK = false
			}
			if minGap < 0 || gapHours < minGap {
				minGap = gapHours
			}
		}
		if minGap >= 0 {
			row.MinThemeGapHours = minGap
		}
		rows = append(rows, row)
	}

	respondJSON(w, http.StatusOK, apiSuccess(rows))
}
