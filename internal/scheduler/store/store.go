// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

// Package store defines the Asset Store (C1) and Scheduled-Items Writer
// (C7) interfaces the Scheduler Core consumes, plus a DuckDB-backed
// implementation. The interfaces are the only suspension point in the
// core (spec.md §5): every method here may block on a database round
// trip, and nothing else in the Builder, Candidate Provider, Holiday
// Rotator, or Featured Selector performs I/O.
package store

import (
	"context"
	"time"

	"github.com/jaypound/broadcast-scheduler/internal/scheduler/model"
)

// Candidate is a ranked asset returned by the Asset Store, already sorted
// by the composite priority of spec.md §4.1.
type Candidate struct {
	Asset          model.Asset
	DelayFactorUsed float64 // the delay-reduction factor actually applied
}

// ContentTypeFeatureRule is the per-content-type featured policy GetFeaturedContent
// evaluates in addition to the manual featured flag (spec.md §4.5).
type ContentTypeFeatureRule struct {
	AlwaysFeatured   bool
	EngagementBased  bool
	FeatureThreshold float64

	// AutoFeatureDays gates the MTG age-band rule: a meeting asset is only
	// eligible for tier-based featuring when its content type's rule has
	// AutoFeatureDays > 0 (original_source's
	// _should_auto_feature_content only checks meeting relevance for
	// content_type == "MTG" with auto_feature_days configured).
	AutoFeatureDays int
}

// FeaturedCriteria configures which assets GetFeaturedContent treats as
// featured beyond the manual featured=true flag: per-content-type rules
// plus the MTG age-band windows (spec.md §4.5).
type FeaturedCriteria struct {
	ContentPriorities   map[string]ContentTypeFeatureRule
	MeetingFreshDays    int
	MeetingRelevantDays int
}

// AssetStore is the C1 read interface.
type AssetStore interface {
	// GetAvailableContent returns up to 200 ranked candidates for the given
	// rotation token, applying expiry/go-live/availability filters and the
	// delay constraint at delayReductionFactor. ignoreDelays drops the
	// delay constraint entirely.
	GetAvailableContent(ctx context.Context, token model.RotationToken, excludeIDs []int64, scheduleDate time.Time, delayReductionFactor float64, ignoreDelays bool) ([]Candidate, error)

	// GetFeaturedContent returns candidates eligible for featured
	// placement per spec.md §4.5 — the manual featured flag plus
	// criteria's always_featured/engagement_based/MTG-tier rules —
	// ordered like GetAvailableContent: composite priority first, then
	// least-recently-scheduled, fewest airings, newest encode.
	GetFeaturedContent(ctx context.Context, excludeIDs []int64, scheduleDate time.Time, criteria FeaturedCriteria) ([]Candidate, error)

	// ValidAssetIDs returns every asset id in the requested rotation token
	// that passes expiry/go-live filters, ignoring delay and exclusion —
	// used by the Candidate Provider's category-reset decision (§4.3).
	ValidAssetIDs(ctx context.Context, token model.RotationToken, scheduleDate time.Time) ([]int64, error)

	// ResetCategoryDelays clears last_scheduled_date for the given assets,
	// making them immediately eligible again.
	ResetCategoryDelays(ctx context.Context, token model.RotationToken, assetIDs []int64) error

	// UpdateAssetLastScheduled upserts scheduling metadata: sets
	// last_scheduled_date = airTime and increments total_airings.
	UpdateAssetLastScheduled(ctx context.Context, assetID int64, airTime time.Time) error

	// HolidayGreetingPool returns the pre-assigned pool of holiday
	// greeting asset ids for a given schedule date.
	HolidayGreetingPool(ctx context.Context, scheduleDate time.Time) ([]int64, error)

	// AssignHolidayGreetingPool materializes up to maxPerDay greetings for
	// the given date, drawn evenly by usage count across the full holiday
	// greeting rotation table (spec.md §4.4 "Pre-assignment").
	AssignHolidayGreetingPool(ctx context.Context, scheduleDate time.Time, maxPerDay int) error

	// RecordHolidayGreetingPlacement increments scheduled_count and sets
	// last_scheduled for the given asset.
	RecordHolidayGreetingPlacement(ctx context.Context, assetID int64, at time.Time) error

	// IsHolidayGreetingAsset reports whether the asset's file name or title
	// matches the holiday-greeting classification regex.
	IsHolidayGreetingAsset(ctx context.Context, assetID int64) (bool, error)
}

// ItemWriter is the C7 Scheduled-Items Writer interface.
type ItemWriter interface {
	CreateSchedule(ctx context.Context, s model.Schedule) (int64, error)
	ScheduleByAirDate(ctx context.Context, airDate time.Time, kind model.ScheduleKind) (*model.Schedule, error)
	ScheduleByID(ctx context.Context, id int64) (*model.Schedule, error)
	ListSchedules(ctx context.Context, start, end time.Time) ([]model.Schedule, error)

	AppendItem(ctx context.Context, item model.ScheduledItem) (int64, error)
	ItemsForSchedule(ctx context.Context, scheduleID int64) ([]model.ScheduledItem, error)

	// ReorderItem moves the item currently at 1-based sequence_number
	// from to sequence_number to, compacting and renumbering
	// sequence_number densely in one transaction.
	ReorderItem(ctx context.Context, scheduleID int64, from, to int) error

	// DeleteItem removes an item, decrements the asset's total_airings
	// (floored at 0), and recomputes dense sequence numbers and the
	// schedule's total_duration_seconds.
	DeleteItem(ctx context.Context, scheduleID int64, itemID int64) error

	ToggleItemAvailability(ctx context.Context, scheduleID int64, itemID int64, available bool) error

	// RecalculateScheduleTimes rewrites every item's scheduled_start_time
	// from 00:00:00.000000 forward using the frame-gap chain.
	RecalculateScheduleTimes(ctx context.Context, scheduleID int64, frameGap time.Duration) error

	// SetScheduleTotalDuration persists the final total duration on the
	// Schedule row.
	SetScheduleTotalDuration(ctx context.Context, scheduleID int64, seconds float64) error

	// DeleteSchedule decrements total_airings for every referenced asset by
	// its in-schedule count, then deletes the schedule (items cascade).
	DeleteSchedule(ctx context.Context, scheduleID int64) error
}

// Store composes AssetStore and ItemWriter; the DuckDB implementation
// satisfies both from one underlying connection.
type Store interface {
	AssetStore
	ItemWriter
}
