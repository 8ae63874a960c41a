// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

// Package featured implements the Featured-Content Selector (C5): minimum
// spacing, daytime bias, meeting-relevance tiers, and round-robin
// placement. Grounded on original_source/backend/scheduler_postgres.py's
// _should_schedule_featured_content, _get_meeting_relevance_tier,
// _should_auto_feature_content, _is_daytime_slot, and
// _should_prioritize_featured_for_daytime, plus
// original_source/backend/meeting_promos.go for the age-band helper.
package featured

import (
	"context"
	"math/rand"
	"strings"
	"time"

	schedcfg "github.com/jaypound/broadcast-scheduler/internal/scheduler/config"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/model"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/store"
)

// MeetingTier re-exports model.MeetingTier so callers that already import
// this package for the Selector don't need a second import for the
// age-band type.
type MeetingTier = model.MeetingTier

const (
	TierFuture   = model.MeetingTierFuture
	TierFresh    = model.MeetingTierFresh
	TierRelevant = model.MeetingTierRelevant
	TierArchive  = model.MeetingTierArchive
	TierExpired  = model.MeetingTierExpired
)

// MeetingAge returns the day delta schedule_date - meeting_date.
func MeetingAge(meetingDate, scheduleDate time.Time) int {
	return model.MeetingAge(meetingDate, scheduleDate)
}

// Tier classifies a meeting age into one of the five bands of spec.md
// §4.5's table, the same bands store.DuckDB's isFeatured applies when
// deciding MTG featured eligibility.
func Tier(ageDays int, cfg schedcfg.MeetingRelevance) MeetingTier {
	return model.MeetingTierFor(ageDays, cfg.FreshDays, cfg.RelevantDays, cfg.ArchiveDays)
}

// Selector implements C5 over the Asset Store's featured-content query and
// the configured spacing/daytime-bias policy.
type Selector struct {
	store    store.AssetStore
	cfg      *schedcfg.FeaturedContent
	criteria store.FeaturedCriteria
	rng      *rand.Rand
	cursor   int
}

// New builds a Selector. priorities and meeting are the scheduler config's
// content_priorities and meeting_relevance sections, converted once into
// the store.FeaturedCriteria the Asset Store's featured query evaluates
// against (spec.md §4.5).
func New(s store.AssetStore, cfg *schedcfg.FeaturedContent, priorities map[string]schedcfg.ContentPriority, meeting schedcfg.MeetingRelevance, rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	rules := make(map[string]store.ContentTypeFeatureRule, len(priorities))
	for contentType, p := range priorities {
		rules[strings.ToLower(contentType)] = store.ContentTypeFeatureRule{
			AlwaysFeatured:   p.AlwaysFeatured,
			EngagementBased:  p.EngagementBased,
			FeatureThreshold: p.FeatureThreshold,
			AutoFeatureDays:  p.AutoFeatureDays,
		}
	}
	criteria := store.FeaturedCriteria{
		ContentPriorities:   rules,
		MeetingFreshDays:    meeting.FreshDays,
		MeetingRelevantDays: meeting.RelevantDays,
	}
	return &Selector{store: s, cfg: cfg, criteria: criteria, rng: rng}
}

// SpacingSatisfied reports whether enough time has elapsed since the last
// featured placement in this run (spec.md §4.5 "Minimum spacing").
func (s *Selector) SpacingSatisfied(nowSeconds, lastFeaturedSeconds float64) bool {
	minGap := s.cfg.MinimumSpacingHours * 3600
	return nowSeconds-lastFeaturedSeconds >= minGap
}

// PrefersFeatured implements the daytime-bias coin flip of spec.md §4.5:
// with probability daytime_probability, featured is preferred inside
// daytime hours; otherwise with probability 1-daytime_probability it's
// preferred outside daytime.
func (s *Selector) PrefersFeatured(nowSeconds float64) bool {
	hour := int(nowSeconds/3600) % 24
	inDaytime := hour >= s.cfg.DaytimeStartHour && hour < s.cfg.DaytimeEndHour
	draw := s.rng.Float64()
	if inDaytime {
		return draw < s.cfg.DaytimeProbability
	}
	return draw < (1 - s.cfg.DaytimeProbability)
}

// Next returns the next featured candidate, round-robin over the ranked
// list the Asset Store returns (composite priority, then
// least-recently-scheduled), advancing an internal cursor modulo the list
// length.
func (s *Selector) Next(ctx context.Context, excludeIDs []int64, scheduleDate time.Time) (store.Candidate, bool, error) {
	cands, err := s.store.GetFeaturedContent(ctx, excludeIDs, scheduleDate, s.criteria)
	if err != nil {
		return store.Candidate{}, false, err
	}
	if len(cands) == 0 {
		return store.Candidate{}, false, nil
	}
	idx := s.cursor % len(cands)
	s.cursor++
	return cands[idx], true, nil
}
