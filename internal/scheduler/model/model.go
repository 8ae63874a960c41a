// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

// Package model defines the data types the scheduler core reads and writes:
// assets, their instances and scheduling metadata, built schedules and their
// items, and the holiday-greeting rotation tables.
package model

import "time"

// DurationCategory is one of the four duration buckets assets are grouped
// into for rotation purposes.
type DurationCategory string

const (
	CategoryID        DurationCategory = "id"
	CategorySpots     DurationCategory = "spots"
	CategoryShortForm DurationCategory = "short_form"
	CategoryLongForm  DurationCategory = "long_form"
)

// ShelfLife classifies how long an asset is expected to stay relevant.
type ShelfLife string

const (
	ShelfLifeShort  ShelfLife = "short"
	ShelfLifeMedium ShelfLife = "medium"
	ShelfLifeLong   ShelfLife = "long"
)

// RotationToken is the tagged sum described in spec.md §9: a rotation
// position is either a DurationCategory or a raw content-type string.
// Exactly one of the two fields is populated.
type RotationToken struct {
	Category    DurationCategory
	ContentType string
}

// IsCategory reports whether this token dispatches on duration_category
// rather than content_type.
func (t RotationToken) IsCategory() bool {
	return t.Category != ""
}

// String renders the token for logging.
func (t RotationToken) String() string {
	if t.IsCategory() {
		return string(t.Category)
	}
	return t.ContentType
}

// Tag is a single (type, value) annotation on an Asset.
type TagType string

const (
	TagTopic    TagType = "topic"
	TagPerson   TagType = "person"
	TagEvent    TagType = "event"
	TagLocation TagType = "location"
)

type Tag struct {
	Type  TagType
	Value string
}

// Asset is an analyzed piece of content eligible for scheduling.
type Asset struct {
	ID                 int64
	UUID               string
	ContentType        string
	ContentTitle       string
	DurationSeconds    float64
	DurationCategory   DurationCategory
	EngagementScore    *float64 // 0-100, nullable
	ShelfLifeScore     ShelfLife
	Theme              string
	AnalysisCompleted  bool
	AIAnalysisEnabled  bool
	MeetingDate        *time.Time
	Tags               []Tag

	// Denormalized for convenience; the primary Instance's file fields.
	PrimaryFileName string
	PrimaryFilePath string
	EncodedDate     *time.Time

	Scheduling SchedulingMetadata
}

// Instance is a physical file backing an Asset on a remote server.
type Instance struct {
	ID              int64
	AssetID         int64
	FileName        string
	FilePath        string
	FileSize        int64
	EncodedDate     *time.Time
	StorageLocation string
	Primary         bool
}

// SchedulingMetadata is the 1:1 scheduling-relevant state for an Asset.
type SchedulingMetadata struct {
	AssetID                int64
	AvailableForScheduling bool
	ContentExpiryDate      *time.Time
	GoLiveDate             *time.Time
	LastScheduledDate      *time.Time
	TotalAirings           int

	// Per-timeslot bookkeeping, keyed by Timeslot below.
	LastScheduledInSlot map[Timeslot]*time.Time
	ReplayCountInSlot   map[Timeslot]int

	Featured         bool
	PriorityScore    float64
	OptimalTimeslots []Timeslot
}

// Timeslot is one of the six dayparts used for per-slot replay bookkeeping.
type Timeslot string

const (
	TimeslotOvernight    Timeslot = "overnight"
	TimeslotEarlyMorning Timeslot = "early_morning"
	TimeslotMorning      Timeslot = "morning"
	TimeslotAfternoon    Timeslot = "afternoon"
	TimeslotPrimeTime    Timeslot = "prime_time"
	TimeslotEvening      Timeslot = "evening"
)

// TimeslotFor maps a time-of-day (seconds since midnight) to its daypart.
// Boundaries follow the teacher convention of half-open [start, end) hours.
func TimeslotFor(secondsSinceMidnight float64) Timeslot {
	hour := int(secondsSinceMidnight/3600) % 24
	switch {
	case hour >= 0 && hour < 6:
		return TimeslotOvernight
	case hour >= 6 && hour < 9:
		return TimeslotEarlyMorning
	case hour >= 9 && hour < 12:
		return TimeslotMorning
	case hour >= 12 && hour < 17:
		return TimeslotAfternoon
	case hour >= 17 && hour < 20:
		return TimeslotPrimeTime
	default:
		return TimeslotEvening
	}
}

// ScheduleKind distinguishes the three window sizes a build may target.
type ScheduleKind string

const (
	ScheduleDaily   ScheduleKind = "daily"
	ScheduleWeekly  ScheduleKind = "weekly"
	ScheduleMonthly ScheduleKind = "monthly"
)

// Schedule is a single persisted broadcast schedule.
type Schedule struct {
	ID                  int64
	Name                string
	AirDate             time.Time // logical start date (day 0)
	Kind                ScheduleKind
	Channel             string
	CreatedDate         time.Time
	TotalDurationSeconds float64
}

// ScheduledItem is one entry in a Schedule's contiguous playlist.
type ScheduledItem struct {
	ID                     int64
	ScheduleID             int64
	AssetID                int64
	InstanceID             *int64 // nil for live-input placeholders
	SequenceNumber         int    // 1-based, dense within a Schedule
	ScheduledStartTime     time.Duration // time-of-day, microsecond resolution
	ScheduledDurationSecs  float64
	DayOffset              int // 0 for daily; 0..6 weekly; 0..30 monthly
	LiveInputTitle         string
	AvailableForScheduling bool
	Featured               bool
	Theme                  string
	Category               DurationCategory
}

// ReservedFillAssetID marks the live-input placeholder asset used to pad
// the very tail of a window when nothing else fits; spec.md §3 calls this
// the "live input placeholder".
const ReservedFillAssetID int64 = -1

// FillPathPattern is the reserved Instance.FilePath substring that marks an
// asset as a non-schedulable filler/placeholder row (spec.md §4.1).
const FillPathPattern = "__FILL__"

// HolidayGreetingRotation is the 1:1 fair-rotation counter for a holiday
// greeting asset.
type HolidayGreetingRotation struct {
	AssetID        int64
	ScheduledCount int
	LastScheduled  *time.Time
}

// HolidayGreetingsDays is one row of a per-date holiday-greeting pool.
type HolidayGreetingsDays struct {
	AssetID   int64
	StartDate time.Time
	EndDate   time.Time
	DayNumber int
}

// HolidayGreetingTheme is the reserved theme literal for the holiday
// greeting content class (spec.md §3, case-insensitive elsewhere).
const HolidayGreetingTheme = "HolidayGreeting"

// MeetingTier is one of the five age bands spec.md §4.5 defines for MTG
// assets, relative to meeting_date.
type MeetingTier string

const (
	MeetingTierFuture   MeetingTier = "future"
	MeetingTierFresh    MeetingTier = "fresh"
	MeetingTierRelevant MeetingTier = "relevant"
	MeetingTierArchive  MeetingTier = "archive"
	MeetingTierExpired  MeetingTier = "expired"
)

// MeetingAge returns the day delta schedule_date - meeting_date, the raw
// quantity the tier bands are computed from (original_source's
// meeting_promos.go auto_feature_days logic, exposed as a reusable helper
// per SPEC_FULL.md §3.1).
func MeetingAge(meetingDate, scheduleDate time.Time) int {
	d := scheduleDate.Truncate(24 * time.Hour).Sub(meetingDate.Truncate(24 * time.Hour))
	return int(d.Hours() / 24)
}

// MeetingTierFor classifies a meeting age into one of the five bands of
// spec.md §4.5's table, given the configured fresh/relevant/archive
// windows in days.
func MeetingTierFor(ageDays, freshDays, relevantDays, archiveDays int) MeetingTier {
	switch {
	case ageDays < 0:
		return MeetingTierFuture
	case ageDays <= freshDays:
		return MeetingTierFresh
	case ageDays <= relevantDays:
		return MeetingTierRelevant
	case ageDays <= archiveDays:
		return MeetingTierArchive
	default:
		return MeetingTierExpired
	}
}
