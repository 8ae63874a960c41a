// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

// Package config holds the immutable scheduler configuration snapshot the
// Builder consumes for a single run. It is loaded once per process via
// koanf (see internal/config) and never reloaded mid-build, per spec.md §9
// ("Global mutable configuration: load once per build into an immutable
// snapshot; never reload mid-run").
package config

import (
	"time"

	"github.com/jaypound/broadcast-scheduler/internal/scheduler/model"
)

// Scheduler is the root scheduler configuration section, nested under the
// application's koanf Config as `koanf:"scheduler"`.
type Scheduler struct {
	RotationOrder []model.RotationToken `koanf:"-"` // parsed from RotationOrderRaw

	// RotationOrderRaw is the koanf-loaded string form, e.g.
	// ["id","short_form","long_form","spots"]. Tokens matching one of the
	// four duration categories dispatch as a category; anything else
	// dispatches as a content-type.
	RotationOrderRaw []string `koanf:"rotation_order"`

	ReplayDelays         ReplayDelays         `koanf:"replay_delays"`
	AdditionalDelay      AdditionalDelay      `koanf:"additional_delay_per_airing"`
	FeaturedContent      FeaturedContent      `koanf:"featured_content"`
	MeetingRelevance     MeetingRelevance     `koanf:"meeting_relevance"`
	ContentPriorities    map[string]ContentPriority `koanf:"content_priorities"`
	ContentExpirationDays map[string]int       `koanf:"content_expiration"`
	HolidayGreetings     HolidayGreetings     `koanf:"holiday_greetings"`

	FrameRate float64 `koanf:"frame_rate"` // default 29.976
	MaxErrors int     `koanf:"max_errors"` // default 100
}

// ReplayDelays holds the base hours-before-replay required per duration
// category and per content type, default per spec.md §6.
type ReplayDelays struct {
	Category map[model.DurationCategory]float64 `koanf:"category"`
	Type     map[string]float64                 `koanf:"type"`
}

// AdditionalDelay holds the per-airing additive hours, default 0.5-2 per
// spec.md §6.
type AdditionalDelay struct {
	Category map[model.DurationCategory]float64 `koanf:"category"`
	Type     map[string]float64                 `koanf:"type"`
}

// FeaturedContent configures the Featured-Content Selector (C5).
type FeaturedContent struct {
	MinimumSpacingHours float64       `koanf:"minimum_spacing_hours"`
	DaytimeStartHour    int           `koanf:"daytime_start_hour"`
	DaytimeEndHour      int           `koanf:"daytime_end_hour"`
	DaytimeProbability  float64       `koanf:"daytime_probability"`
}

// MeetingRelevance configures MTG age-band tiers.
type MeetingRelevance struct {
	FreshDays    int `koanf:"fresh_days"`
	RelevantDays int `koanf:"relevant_days"`
	ArchiveDays  int `koanf:"archive_days"`
}

// ContentPriority is the per-content-type featured-content policy.
type ContentPriority struct {
	AlwaysFeatured   bool    `koanf:"always_featured"`
	EngagementBased  bool    `koanf:"engagement_based"`
	FeatureThreshold float64 `koanf:"feature_threshold"`
	AutoFeatureDays  int     `koanf:"auto_feature_days"`
}

// HolidayGreetings toggles the holiday-greeting rotation feature (C4).
type HolidayGreetings struct {
	Enabled bool `koanf:"enabled"`
}

// FrameGap returns the one-frame gap inserted between adjacent items, the
// glossary's "Frame gap", 1/29.976s ≈ 33.360ms by default.
func (s *Scheduler) FrameGap() time.Duration {
	rate := s.FrameRate
	if rate <= 0 {
		rate = 29.976
	}
	return time.Duration(float64(time.Second) / rate)
}

// Default returns the scheduler config defaults, matching spec.md §6 and
// original_source/backend/config_manager.go's get_scheduling_settings
// default values.
func Default() *Scheduler {
	return &Scheduler{
		RotationOrderRaw: []string{"id", "short_form", "long_form", "spots"},
		RotationOrder: []model.RotationToken{
			{Category: model.CategoryID},
			{Category: model.CategoryShortForm},
			{Category: model.CategoryLongForm},
			{Category: model.CategorySpots},
		},
		ReplayDelays: ReplayDelays{
			Category: map[model.DurationCategory]float64{
				model.CategoryID:        6,
				model.CategorySpots:     12,
				model.CategoryShortForm: 24,
				model.CategoryLongForm:  48,
			},
			Type: map[string]float64{
				"an":  2,
				"bmp": 3,
				"mtg": 8,
				"psa": 2,
				"pkg": 3,
			},
		},
		AdditionalDelay: AdditionalDelay{
			Category: map[model.DurationCategory]float64{
				model.CategoryID:        0.5,
				model.CategorySpots:     1,
				model.CategoryShortForm: 1.5,
				model.CategoryLongForm:  2,
			},
			Type: map[string]float64{
				"an":  0.5,
				"bmp": 0.5,
				"mtg": 1,
				"psa": 0.5,
				"pkg": 1,
			},
		},
		FeaturedContent: FeaturedContent{
			MinimumSpacingHours: 2.0,
			DaytimeStartHour:    6,
			DaytimeEndHour:      18,
			DaytimeProbability:  0.75,
		},
		MeetingRelevance: MeetingRelevance{
			FreshDays:    3,
			RelevantDays: 7,
			ArchiveDays:  14,
		},
		ContentPriorities: map[string]ContentPriority{
			"mtg": {AutoFeatureDays: 7},
			"psa": {AlwaysFeatured: true},
		},
		ContentExpirationDays: map[string]int{},
		HolidayGreetings:      HolidayGreetings{Enabled: true},
		FrameRate:             29.976,
		MaxErrors:             100,
	}
}

// ParseRotationOrder resolves RotationOrderRaw into RotationToken values.
// Must be called once after koanf unmarshal populates RotationOrderRaw.
func (s *Scheduler) ParseRotationOrder() {
	if len(s.RotationOrderRaw) == 0 {
		return
	}
	tokens := make([]model.RotationToken, 0, len(s.RotationOrderRaw))
	for _, raw := range s.RotationOrderRaw {
		switch model.DurationCategory(raw) {
		case model.CategoryID, model.CategorySpots, model.CategoryShortForm, model.CategoryLongForm:
			tokens = append(tokens, model.RotationToken{Category: model.DurationCategory(raw)})
		default:
			tokens = append(tokens, model.RotationToken{ContentType: raw})
		}
	}
	s.RotationOrder = tokens
}

// BaseDelayHours returns the configured base replay delay for a rotation
// token, dispatching on category or content type per the token's tag.
func (s *Scheduler) BaseDelayHours(token model.RotationToken) float64 {
	if token.IsCategory() {
		return s.ReplayDelays.Category[token.Category]
	}
	return s.ReplayDelays.Type[lowerASCII(token.ContentType)]
}

// AdditionalDelayHours returns the configured per-airing additive delay.
func (s *Scheduler) AdditionalDelayHours(token model.RotationToken) float64 {
	if token.IsCategory() {
		return s.AdditionalDelay.Category[token.Category]
	}
	return s.AdditionalDelay.Type[lowerASCII(token.ContentType)]
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
