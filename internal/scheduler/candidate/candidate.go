// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

// Package candidate implements the Candidate Provider (C3): progressive
// delay relaxation and the category-reset safety valve of spec.md §4.3.
// Grounded on original_source/backend/scheduler_postgres.py's
// _get_content_with_progressive_delays and _reset_category_delays.
package candidate

import (
	"context"
	"time"

	"github.com/jaypound/broadcast-scheduler/internal/logging"
	"github.com/jaypound/broadcast-scheduler/internal/metrics"
	schedcfg "github.com/jaypound/broadcast-scheduler/internal/scheduler/config"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/model"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/store"
)

// delayReductionSequence is the fixed progressive relaxation ladder of
// spec.md §4.3.
var delayReductionSequence = []float64{1.0, 0.75, 0.5, 0.25, 0.0}

// DelayReductionStats accumulates the advisory counters spec.md §7 returns
// alongside a successful build: full_delays / reduced_75 / reduced_50 /
// reduced_25 / no_delays / resets.
type DelayReductionStats struct {
	FullDelays int
	Reduced75  int
	Reduced50  int
	Reduced25  int
	NoDelays   int
	Resets     int
}

func (s *DelayReductionStats) record(factor float64) {
	var rung string
	switch factor {
	case 1.0:
		s.FullDelays++
		rung = "full"
	case 0.75:
		s.Reduced75++
		rung = "reduced_75"
	case 0.5:
		s.Reduced50++
		rung = "reduced_50"
	case 0.25:
		s.Reduced25++
		rung = "reduced_25"
	default:
		s.NoDelays++
		rung = "none"
	}
	metrics.SchedulerDelayReductionRung.WithLabelValues(rung).Inc()
}

// AssetStoreWithDelay is the subset of the DuckDB store used here; kept as
// its own interface so the Provider only depends on what it calls,
// matching the AssetStore interface plus the delay-aware query entry
// point duckdb.DuckDB exposes.
type AssetStoreWithDelay interface {
	store.AssetStore
	GetAvailableContentWithDelay(ctx context.Context, token model.RotationToken, excludeIDs []int64, scheduleDate time.Time, base, additional, delayReductionFactor float64, ignoreDelays bool) ([]store.Candidate, error)
}

// Provider implements C3 over an AssetStoreWithDelay and the scheduler
// config snapshot.
type Provider struct {
	assetStore AssetStoreWithDelay
	cfg        *schedcfg.Scheduler
	Stats      DelayReductionStats
}

func New(assetStore AssetStoreWithDelay, cfg *schedcfg.Scheduler) *Provider {
	return &Provider{assetStore: assetStore, cfg: cfg}
}

// Get returns the first non-empty candidate set from the progressive
// delay-reduction ladder, performing a category reset and one ignore-delays
// retry if every rung comes up empty (spec.md §4.3).
func (p *Provider) Get(ctx context.Context, token model.RotationToken, excludeIDs []int64, scheduleDate time.Time) ([]store.Candidate, error) {
	base := p.cfg.BaseDelayHours(token)
	additional := p.cfg.AdditionalDelayHours(token)

	for _, factor := range delayReductionSequence {
		cands, err := p.assetStore.GetAvailableContentWithDelay(ctx, token, excludeIDs, scheduleDate, base, additional, factor, factor == 0.0)
		if err != nil {
			return nil, err
		}
		if len(cands) > 0 {
			p.Stats.record(factor)
			for i := range cands {
				cands[i].DelayFactorUsed = factor
			}
			return cands, nil
		}
	}

	return p.tryCategoryReset(ctx, token, excludeIDs, scheduleDate)
}

// tryCategoryReset implements spec.md §4.3 steps 1-4: compute the excluded
// fraction of the valid set, reset when it's total or ≥25%, and retry once
// with ignoreDelays.
func (p *Provider) tryCategoryReset(ctx context.Context, token model.RotationToken, excludeIDs []int64, scheduleDate time.Time) ([]store.Candidate, error) {
	validIDs, err := p.assetStore.ValidAssetIDs(ctx, token, scheduleDate)
	if err != nil {
		return nil, err
	}
	if len(validIDs) == 0 {
		return nil, nil
	}

	excluded := make(map[int64]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	var excludedValid []int64
	for _, id := range validIDs {
		if excluded[id] {
			excludedValid = append(excludedValid, id)
		}
	}

	fraction := float64(len(excludedValid)) / float64(len(validIDs))
	shouldReset := len(excludedValid) == len(validIDs) || fraction >= 0.25
	if !shouldReset {
		return nil, nil
	}

	logging.Warn().
		Str("token", token.String()).
		Int("excluded_valid", len(excludedValid)).
		Int("valid_total", len(validIDs)).
		Msg("candidate provider: category reset fired")

	if err := p.assetStore.ResetCategoryDelays(ctx, token, excludedValid); err != nil {
		return nil, err
	}
	p.Stats.Resets++

	cands, err := p.assetStore.GetAvailableContentWithDelay(ctx, token, excludeIDs, scheduleDate, 0, 0, 0.0, true)
	if err != nil {
		return nil, err
	}
	for i := range cands {
		cands[i].DelayFactorUsed = 0.0
	}
	return cands, nil
}
