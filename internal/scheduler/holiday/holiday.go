// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

// Package holiday implements the Holiday-Greeting Rotator (C4): per-date
// pool pre-assignment and fair round-robin selection with back-to-back
// prevention. Grounded on
// original_source/backend/holiday_greeting_scheduler.go (pool
// materialization, scheduled_count bookkeeping) and
// original_source/backend/holiday_greeting_integration.py (session
// reset / set_current_schedule hook; here each build creates a fresh
// Rotator instead).
package holiday

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// GreetingPattern is the dynamic classification predicate of spec.md §4.4
// / §9: a case-insensitive match of "holiday greeting" against file name
// or title.
var GreetingPattern = regexp.MustCompile(`(?i)holiday\s*greeting`)

// IsGreeting reports whether the given file name or title identifies a
// holiday greeting asset.
func IsGreeting(fileName, title string) bool {
	return GreetingPattern.MatchString(fileName) || GreetingPattern.MatchString(title)
}

// PoolStore is the subset of the Asset Store the Rotator needs.
type PoolStore interface {
	HolidayGreetingPool(ctx context.Context, scheduleDate time.Time) ([]int64, error)
	AssignHolidayGreetingPool(ctx context.Context, scheduleDate time.Time, maxPerDay int) error
	RecordHolidayGreetingPlacement(ctx context.Context, assetID int64, at time.Time) error
}

// MaxPerDay is the per-date pool size cap of spec.md §4.4 ("up to 4
// greetings").
const MaxPerDay = 4

// Rotator is the per-build holiday-greeting selection engine. One Rotator
// is created per schedule build (New starts it with empty pools and cursors),
// matching the Python source's per-session reset.
type Rotator struct {
	store    PoolStore
	enabled  bool
	pools    map[string][]int64 // date (YYYY-MM-DD) -> pool of asset ids
	cursors  map[string]int     // date -> round-robin cursor into pools[date]
	expired  map[int64]bool     // assets the caller has told us are no longer valid
}

func New(store PoolStore, enabled bool) *Rotator {
	return &Rotator{
		store:   store,
		enabled: enabled,
		pools:   make(map[string][]int64),
		cursors: make(map[string]int),
		expired: make(map[int64]bool),
	}
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Enabled reports whether the holiday-greeting feature is active for this
// build; if false, greetings are ordinary assets and the Builder must not
// consult the Rotator.
func (r *Rotator) Enabled() bool {
	return r.enabled
}

// PreAssignDay materializes (or loads, if already materialized) the pool
// for a single schedule date, per spec.md §4.4 step 1.
func (r *Rotator) PreAssignDay(ctx context.Context, date time.Time) error {
	if !r.enabled {
		return nil
	}
	key := dateKey(date)
	if _, ok := r.pools[key]; ok {
		return nil
	}
	if err := r.store.AssignHolidayGreetingPool(ctx, date, MaxPerDay); err != nil {
		return err
	}
	pool, err := r.store.HolidayGreetingPool(ctx, date)
	if err != nil {
		return err
	}
	r.pools[key] = pool
	r.cursors[key] = 0
	return nil
}

// MarkExpired excludes an asset from further selection for the remainder
// of this build (e.g. because its content_expiry_date has since passed).
func (r *Rotator) MarkExpired(assetID int64) {
	r.expired[assetID] = true
}

// Next returns the next greeting asset id from date's pool, skipping
// expired entries and refusing back-to-back repeats of the
// HolidayGreeting theme (spec.md §4.4 step 3). lastTheme is the theme of
// the immediately previous scheduled item; ok is false when no eligible
// greeting remains for this slot (the Builder then falls through to
// ordinary candidate selection).
func (r *Rotator) Next(date time.Time, lastTheme string) (assetID int64, ok bool) {
	if !r.enabled {
		return 0, false
	}
	if strings.EqualFold(lastTheme, "HolidayGreeting") {
		return 0, false
	}
	key := dateKey(date)
	pool := r.pools[key]
	if len(pool) == 0 {
		return 0, false
	}
	start := r.cursors[key]
	for i := 0; i < len(pool); i++ {
		idx := (start + i) % len(pool)
		candidate := pool[idx]
		if r.expired[candidate] {
			continue
		}
		r.cursors[key] = (idx + 1) % len(pool)
		return candidate, true
	}
	return 0, false
}

// RecordPlacement increments scheduled_count and updates last_scheduled
// for the given asset, per spec.md §4.4 step 4.
func (r *Rotator) RecordPlacement(ctx context.Context, assetID int64, at time.Time) error {
	return r.store.RecordHolidayGreetingPlacement(ctx, assetID, at)
}
