// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

// Package builder implements the Schedule Builder (C6): the main loop that
// fills a daily, weekly, or monthly window with contiguous, frame-accurate
// items, scoring candidates and enforcing theme separation, featured
// spacing, and termination/infinite-loop detection.
//
// Grounded on original_source/backend/scheduler_postgres.go's
// create_daily_schedule / create_single_weekly_schedule /
// create_monthly_schedule, which are one algorithm parametrized by day
// count; this package collapses the three into a single day-iterating
// Build driven by model.ScheduleKind, matching spec.md §4.6's own framing.
package builder

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jaypound/broadcast-scheduler/internal/logging"
	"github.com/jaypound/broadcast-scheduler/internal/metrics"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/candidate"
	schedcfg "github.com/jaypound/broadcast-scheduler/internal/scheduler/config"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/featured"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/holiday"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/model"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/rotation"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/store"
)

const (
	secondsPerDay        = 86400.0
	maxNoProgress        = 50
	maxNoContentCycles   = 3
	tailAcceptWindow     = 1800.0 // 30 minutes
	tailGapAccept        = 60.0   // seconds
	longFormSkipWindow   = 3600.0 // 1 hour
	errorAbortWindow     = 3600.0 // 1 hour
	dayCompletionRatio   = 0.95
	dayCompletionMinSecs = 20 * 3600.0 // 20h placed counts as "tail only missing"
	scoreJitterRange     = 5.0
)

// Store is the full store dependency the Builder needs: C1 read, C7
// write, and the delay-aware query entry point.
type Store interface {
	store.Store
	candidate.AssetStoreWithDelay
}

// Builder owns one Schedule Builder run. A new Builder (and its nested
// rotation.Controller) must be created per Build call — it is not safe to
// reuse across concurrent builds (spec.md §5: slot selection must not be
// parallelized within one schedule, and the per-run state here is not
// synchronized).
type Builder struct {
	store Store
	cfg   *schedcfg.Scheduler
	rng   *rand.Rand
}

func New(s Store, cfg *schedcfg.Scheduler, rng *rand.Rand) *Builder {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Builder{store: s, cfg: cfg, rng: rng}
}

// CancelFunc reports whether the current build has been asked to cancel;
// checked at every loop iteration per spec.md §5.
type CancelFunc func() bool

// Result is the structured success/failure payload of spec.md §7.
type Result struct {
	Success        bool
	Schedule       *model.Schedule
	Items          []model.ScheduledItem
	DelayStats     candidate.DelayReductionStats
	CategoryResets map[string]int
	Advisories     []string
	Err            *BuildError
}

type placement struct {
	globalSeconds float64
	theme         string
}

type runState struct {
	sequenceNumber int
	items          []model.ScheduledItem
	excludeIDs     []int64
	excludeSet     map[int64]bool
	recentPlays    map[int64][]placement // asset id -> placements this run
	lastTheme      string
	lastCategory   model.DurationCategory
	lastFeatured   float64 // global seconds of last featured placement

	noProgressIterations      int
	consecutiveNoContentCycle int
	consecutiveErrors         int
	daysCompleted             int

	delayStats     candidate.DelayReductionStats
	categoryResets map[string]int
}

func newRunState() *runState {
	return &runState{
		excludeSet:     make(map[int64]bool),
		recentPlays:    make(map[int64][]placement),
		categoryResets: make(map[string]int),
	}
}

func (rs *runState) exclude(id int64) {
	if !rs.excludeSet[id] {
		rs.excludeSet[id] = true
		rs.excludeIDs = append(rs.excludeIDs, id)
	}
}

// BuildDaily builds a single-day schedule for the given air date.
func (b *Builder) BuildDaily(ctx context.Context, airDate time.Time, name string, maxErrors int, cancel CancelFunc) (*Result, error) {
	return b.build(ctx, model.ScheduleDaily, airDate, 1, name, maxErrors, cancel)
}

// BuildWeekly builds a 7-day schedule starting on startDate. A non-Sunday
// start is auto-corrected to the preceding Sunday (spec.md §7), logged as
// a warning rather than treated as a hard invalid_input abort.
func (b *Builder) BuildWeekly(ctx context.Context, startDate time.Time, name string, maxErrors int, cancel CancelFunc) (*Result, error) {
	corrected := precedingSunday(startDate)
	if !corrected.Equal(startDate) {
		logging.Warn().
			Time("requested_start", startDate).
			Time("corrected_start", corrected).
			Msg("weekly schedule start date auto-corrected to preceding Sunday")
	}
	return b.build(ctx, model.ScheduleWeekly, corrected, 7, name, maxErrors, cancel)
}

// BuildMonthly builds a schedule covering every day in the given
// calendar month.
func (b *Builder) BuildMonthly(ctx context.Context, year int, month time.Month, maxErrors int, cancel CancelFunc) (*Result, error) {
	airDate := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := daysInMonth(year, month)
	name := fmt.Sprintf("Monthly Schedule %04d-%02d", year, month)
	return b.build(ctx, model.ScheduleMonthly, airDate, days, name, maxErrors, cancel)
}

func precedingSunday(t time.Time) time.Time {
	d := t.Truncate(24 * time.Hour)
	offset := int(d.Weekday())
	return d.AddDate(0, 0, -offset)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func daysInMonth(year int, month time.Month) int {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	lastOfThis := firstOfNext.AddDate(0, 0, -1)
	return lastOfThis.Day()
}

func (b *Builder) build(ctx context.Context, kind model.ScheduleKind, airDate time.Time, days int, name string, maxErrors int, cancel CancelFunc) (*Result, error) {
	if maxErrors <= 0 {
		maxErrors = b.cfg.MaxErrors
	}
	if name == "" {
		name = fmt.Sprintf("%s Schedule for %s", capitalize(string(kind)), airDate.Format("2006-01-02"))
	}

	existing, err := b.store.ScheduleByAirDate(ctx, airDate, kind)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Result{Success: false, Err: &BuildError{
			Kind:    ErrAlreadyExists,
			Message: fmt.Sprintf("schedule already exists for %s", airDate.Format("2006-01-02")),
		}}, nil
	}

	scheduleID, err := b.store.CreateSchedule(ctx, model.Schedule{
		Name: name, AirDate: airDate, Kind: kind, CreatedDate: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rot := rotation.New(b.cfg.RotationOrder)
	cand := candidate.New(b.store, b.cfg)
	hol := holiday.New(b.store, b.cfg.HolidayGreetings.Enabled)
	feat := featured.New(b.store, &b.cfg.FeaturedContent, b.cfg.ContentPriorities, b.cfg.MeetingRelevance, b.rng)
	rs := newRunState()

	var finalErr *BuildError
	for day := 0; day < days; day++ {
		dayDate := airDate.AddDate(0, 0, day)
		rot.Reset()
		if hol.Enabled() {
			if err := hol.PreAssignDay(ctx, dayDate); err != nil {
				logging.Warn().Err(err).Msg("holiday greeting pre-assignment failed, continuing without it")
			}
		}

		dayErr := b.buildDay(ctx, scheduleID, day, dayDate, maxErrors, rot, cand, hol, feat, rs, cancel)
		if dayErr != nil {
			finalErr = dayErr
			break
		}
		rs.daysCompleted++
	}
	rs.delayStats = cand.Stats

	metrics.SchedulerBuildDuration.Observe(time.Since(start).Seconds())

	if finalErr != nil {
		metrics.SchedulerBuildTerminations.WithLabelValues(string(finalErr.Kind)).Inc()
		finalErr.DaysCompleted = rs.daysCompleted
		if err := b.store.DeleteSchedule(ctx, scheduleID); err != nil {
			logging.Error().Err(err).Int64("schedule_id", scheduleID).Msg("failed to roll back partial schedule")
		}
		return &Result{Success: false, Err: finalErr}, nil
	}

	total := totalDuration(rs.items, b.cfg.FrameGap())
	if err := b.store.SetScheduleTotalDuration(ctx, scheduleID, total); err != nil {
		return nil, err
	}

	metrics.SchedulerBuildTerminations.WithLabelValues("success").Inc()
	metrics.SchedulerCategoryResets.Add(float64(rs.delayStats.Resets))

	sched, err := b.store.ScheduleByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	var advisories []string
	if rs.delayStats.Resets > 0 {
		advisories = append(advisories, fmt.Sprintf("%d category reset(s) fired during this build", rs.delayStats.Resets))
	}

	return &Result{
		Success:        true,
		Schedule:       sched,
		Items:          rs.items,
		DelayStats:     rs.delayStats,
		CategoryResets: rs.categoryResets,
		Advisories:     advisories,
	}, nil
}

func totalDuration(items []model.ScheduledItem, frameGap time.Duration) float64 {
	var sum float64
	for _, it := range items {
		sum += it.ScheduledDurationSecs
	}
	if len(items) > 0 {
		sum += float64(len(items)-1) * frameGap.Seconds()
	}
	return sum
}

// buildDay runs the per-day slot-filling loop of spec.md §4.6. dayOffset
// is 0-based within the overall window (0 for daily; 0..6 weekly; 0..N-1
// monthly).
func (b *Builder) buildDay(ctx context.Context, scheduleID int64, dayOffset int, dayDate time.Time, maxErrors int, rot *rotation.Controller, cand *candidate.Provider, hol *holiday.Rotator, feat *featured.Selector, rs *runState, cancel CancelFunc) *BuildError {
	var dayTotal float64 // seconds elapsed within this day

	for dayTotal < secondsPerDay {
		if cancel != nil && cancel() {
			return &BuildError{Kind: ErrInvalidInput, Message: "build canceled", StoppedAtHours: dayTotal / 3600}
		}

		remaining := secondsPerDay - dayTotal
		globalNow := float64(dayOffset)*secondsPerDay + dayTotal

		progressed, placeErr := b.fillSlot(ctx, scheduleID, dayOffset, dayDate, dayTotal, remaining, globalNow, rot, cand, hol, feat, rs)
		if placeErr != nil {
			rs.consecutiveErrors++
			metrics.SchedulerSlotErrors.Inc()
			if rs.consecutiveErrors >= maxErrors && remaining > errorAbortWindow {
				return &BuildError{Kind: ErrInsufficientContent, Message: placeErr.Error(), StoppedAtHours: dayTotal / 3600}
			}
			rot.Advance()
			continue
		}
		rs.consecutiveErrors = 0

		if progressed.placed {
			dayTotal = progressed.newDayTotal
			rs.noProgressIterations = 0
			rs.consecutiveNoContentCycle = 0
			continue
		}

		// No placement this iteration: either the category was empty or
		// everything was filtered by end-of-window fitting.
		rs.noProgressIterations++
		if rot.AtStart() {
			rs.consecutiveNoContentCycle++
		}

		if remaining < tailAcceptWindow {
			// Tail gap accepted; day closes successfully.
			break
		}
		if rs.consecutiveNoContentCycle >= maxNoContentCycles {
			return &BuildError{Kind: ErrInfiniteLoopBlocked, Message: "no category yielded content across 3 full rotation cycles", StoppedAtHours: dayTotal / 3600}
		}
		if rs.noProgressIterations >= maxNoProgress {
			return &BuildError{Kind: ErrInfiniteLoop, Message: "50 iterations without progress", StoppedAtHours: dayTotal / 3600}
		}
	}

	placedSeconds := dayTotal
	ratio := placedSeconds / secondsPerDay
	if ratio < dayCompletionRatio && placedSeconds < dayCompletionMinSecs {
		return &BuildError{Kind: ErrInsufficientContent, Message: fmt.Sprintf("day closed %.1f%% full", ratio*100), StoppedAtHours: placedSeconds / 3600}
	}
	return nil
}

type slotOutcome struct {
	placed      bool
	newDayTotal float64
}

// fillSlot implements one iteration of the main loop's steps 1-5.
func (b *Builder) fillSlot(ctx context.Context, scheduleID int64, dayOffset int, dayDate time.Time, dayTotal, remaining, globalNow float64, rot *rotation.Controller, cand *candidate.Provider, hol *holiday.Rotator, feat *featured.Selector, rs *runState) (slotOutcome, error) {
	// Step 1: decide featured vs normal.
	if feat.SpacingSatisfied(globalNow, rs.lastFeatured) && feat.PrefersFeatured(dayTotal) {
		fc, ok, err := feat.Next(ctx, rs.excludeIDs, dayDate)
		if err != nil {
			return slotOutcome{}, err
		}
		if ok {
			return b.place(ctx, scheduleID, dayOffset, dayTotal, remaining, globalNow, fc, true, rot, rs)
		}
	}

	token := rot.Next()

	// spec.md §4.6 step 4: a long_form rung with less than an hour left in
	// the day is skipped outright rather than queried and then discarded
	// by the fit check in selectBest, so the rotation advances past it
	// immediately instead of burning a no-progress iteration.
	if token.Category == model.CategoryLongForm && remaining < longFormSkipWindow {
		rot.Advance()
		return slotOutcome{placed: false}, nil
	}

	// Holiday greetings take priority for the spots category.
	if hol.Enabled() && token.Category == model.CategorySpots {
		if assetID, ok := hol.Next(dayDate, rs.lastTheme); ok {
			a, found, err := b.lookupAsset(ctx, cand, token, rs.excludeIDs, dayDate, assetID)
			if err != nil {
				return slotOutcome{}, err
			}
			if found {
				out, placeErr := b.place(ctx, scheduleID, dayOffset, dayTotal, remaining, globalNow, a, false, rot, rs)
				if placeErr == nil && out.placed {
					if err := hol.RecordPlacement(ctx, assetID, dayDate.Add(time.Duration(dayTotal*float64(time.Second)))); err != nil {
						logging.Warn().Err(err).Msg("failed to record holiday greeting placement")
					}
				}
				return out, placeErr
			}
		}
	}

	cands, err := cand.Get(ctx, token, rs.excludeIDs, dayDate)
	if err != nil {
		return slotOutcome{}, err
	}
	if len(cands) == 0 {
		rot.Advance()
		return slotOutcome{placed: false}, nil
	}

	best, ok := b.selectBest(cands, token, remaining, globalNow, rs)
	if !ok {
		// Nothing fits even after end-of-window scanning: advance past this
		// rung so the next iteration tries a different category rather than
		// repeating the same empty-for-this-window query.
		rot.Advance()
		return slotOutcome{placed: false}, nil
	}

	return b.place(ctx, scheduleID, dayOffset, dayTotal, remaining, globalNow, best, false, rot, rs)
}

func (b *Builder) lookupAsset(ctx context.Context, cand *candidate.Provider, token model.RotationToken, excludeIDs []int64, dayDate time.Time, assetID int64) (store.Candidate, bool, error) {
	cands, err := cand.Get(ctx, token, excludeIDs, dayDate)
	if err != nil {
		return store.Candidate{}, false, err
	}
	for _, c := range cands {
		if c.Asset.ID == assetID {
			return c, true, nil
		}
	}
	return store.Candidate{}, false, nil
}

// selectBest implements step 2-4: score every candidate, then apply
// end-of-window fitting if the top scorer doesn't fit the remaining time.
func (b *Builder) selectBest(cands []store.Candidate, token model.RotationToken, remaining, globalNow float64, rs *runState) (store.Candidate, bool) {
	type scored struct {
		c     store.Candidate
		score float64
	}
	skipThemePenalty := remaining < 2*3600
	list := make([]scored, len(cands))
	for i, c := range cands {
		list[i] = scored{c: c, score: b.score(c, token, globalNow, rs, skipThemePenalty)}
	}

	// Sort descending by score (stable, simple insertion sort is fine at
	// the ≤200-candidate scale the Asset Store caps to).
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && list[j].score > list[j-1].score; j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}

	for _, s := range list {
		if s.c.Asset.DurationSeconds <= remaining {
			if !b.themeConflict(rs.items, s.c.Asset.Theme, s.c.Asset.DurationCategory) || skipThemePenalty {
				return s.c, true
			}
		}
	}
	// Nothing fits without a theme conflict even scanning the whole pool;
	// fall back to the best that simply fits, conflict or not.
	for _, s := range list {
		if s.c.Asset.DurationSeconds <= remaining {
			return s.c, true
		}
	}
	return store.Candidate{}, false
}

func (b *Builder) score(c store.Candidate, token model.RotationToken, globalNow float64, rs *runState, skipThemePenalty bool) float64 {
	score := 100 + (b.rng.Float64()*2-1)*scoreJitterRange

	if c.Asset.Scheduling.Featured {
		score += 150
	}

	plays := rs.recentPlays[c.Asset.ID]
	score += fatiguePenalty(plays, globalNow)

	if c.Asset.DurationCategory == model.CategoryID {
		score += idPenalty(plays, globalNow)
	}

	if !token.IsCategory() && token.ContentType != "" {
		if minDelay := b.cfg.BaseDelayHours(token); minDelay > 0 {
			if gap, ok := hoursSinceMostRecent(plays, globalNow); ok && gap < minDelay {
				score += -200 * (minDelay - gap) / minDelay
			}
		}
	}

	if !skipThemePenalty && c.Asset.Theme != "" && isShortFormish(c.Asset.DurationCategory) {
		if b.themeConflict(rs.items, c.Asset.Theme, c.Asset.DurationCategory) {
			score -= 400
		}
	}

	return score
}

func isShortFormish(cat model.DurationCategory) bool {
	return cat == model.CategoryID || cat == model.CategorySpots || cat == model.CategoryShortForm
}

// hoursSinceMostRecent returns the elapsed hours between globalNow and the
// asset's most recent placement in this run.
func hoursSinceMostRecent(plays []placement, globalNow float64) (float64, bool) {
	if len(plays) == 0 {
		return 0, false
	}
	last := plays[len(plays)-1]
	return (globalNow - last.globalSeconds) / 3600, true
}

func fatiguePenalty(plays []placement, globalNow float64) float64 {
	if len(plays) == 0 {
		return 0
	}
	gapHours, _ := hoursSinceMostRecent(plays, globalNow)
	var penalty float64
	switch {
	case gapHours < 1:
		penalty = -100
	case gapHours < 2:
		penalty = -50
	case gapHours < 4:
		penalty = -25
	case gapHours < 6:
		penalty = -10
	}
	if len(plays) > 2 {
		penalty += -50 * float64(len(plays)-2)
	}
	return penalty
}

func idPenalty(plays []placement, globalNow float64) float64 {
	if len(plays) == 0 {
		return 50
	}
	var penalty float64
	if gapHours, ok := hoursSinceMostRecent(plays, globalNow); ok && gapHours < 2 {
		penalty -= 300
	}
	if len(plays) > 1 {
		penalty += -50 * float64(len(plays)-1)
	}
	return penalty
}

// themeConflict implements spec.md §4.6 step 3: short-form items sharing a
// theme must be separated by at least one long_form item.
func (b *Builder) themeConflict(items []model.ScheduledItem, theme string, cat model.DurationCategory) bool {
	if theme == "" || !isShortFormish(cat) {
		return false
	}
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		if it.Category == model.CategoryLongForm {
			return false
		}
		if it.Theme != "" && strings.EqualFold(it.Theme, theme) {
			return true
		}
	}
	return false
}

func (b *Builder) place(ctx context.Context, scheduleID int64, dayOffset int, dayTotal, remaining, globalNow float64, c store.Candidate, isFeatured bool, rot *rotation.Controller, rs *runState) (slotOutcome, error) {
	dur := c.Asset.DurationSeconds
	if dur > remaining {
		// Caller already fits candidates against remaining time for the
		// normal path; featured/holiday picks are trusted directly but must
		// never overrun the window (spec.md §8 invariant: at most a single
		// frame-gap tolerance).
		return slotOutcome{placed: false}, nil
	}

	rs.sequenceNumber++
	startOfDay := time.Duration(dayTotal * float64(time.Second))
	item := model.ScheduledItem{
		ScheduleID:             scheduleID,
		AssetID:                c.Asset.ID,
		SequenceNumber:         rs.sequenceNumber,
		ScheduledStartTime:     startOfDay,
		ScheduledDurationSecs:  dur,
		DayOffset:              dayOffset,
		AvailableForScheduling: true,
		Featured:               isFeatured,
		Theme:                  c.Asset.Theme,
		Category:               c.Asset.DurationCategory,
	}

	id, err := b.store.AppendItem(ctx, item)
	if err != nil {
		return slotOutcome{}, err
	}
	item.ID = id
	rs.items = append(rs.items, item)
	rs.exclude(c.Asset.ID)
	rs.recentPlays[c.Asset.ID] = append(rs.recentPlays[c.Asset.ID], placement{globalSeconds: globalNow, theme: c.Asset.Theme})
	rs.lastTheme = c.Asset.Theme
	rs.lastCategory = c.Asset.DurationCategory

	if isFeatured {
		rs.lastFeatured = globalNow
	} else {
		rot.Advance()
	}

	airTime := time.Unix(0, 0).Add(time.Duration(globalNow * float64(time.Second)))
	if err := b.store.UpdateAssetLastScheduled(ctx, c.Asset.ID, airTime); err != nil {
		logging.Warn().Err(err).Int64("asset_id", c.Asset.ID).Msg("failed to update asset last-scheduled state")
	}

	return slotOutcome{placed: true, newDayTotal: dayTotal + dur + b.cfg.FrameGap().Seconds()}, nil
}
