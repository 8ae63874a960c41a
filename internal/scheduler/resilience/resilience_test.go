// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jaypound/broadcast-scheduler/internal/scheduler/model"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/store"
)

// fakeStore implements builder.Store with trivial stubs so tests can focus
// on the resilience wrapper's decision logic rather than real scheduling
// behavior.
type fakeStore struct {
	getAvailableCalls int32
	failNext          atomic.Bool
}

func (f *fakeStore) GetAvailableContent(ctx context.Context, token model.RotationToken, excludeIDs []int64, scheduleDate time.Time, delayReductionFactor float64, ignoreDelays bool) ([]store.Candidate, error) {
	return nil, nil
}

func (f *fakeStore) GetAvailableContentWithDelay(ctx context.Context, token model.RotationToken, excludeIDs []int64, scheduleDate time.Time, base, additional, delayReductionFactor float64, ignoreDelays bool) ([]store.Candidate, error) {
	atomic.AddInt32(&f.getAvailableCalls, 1)
	if f.failNext.Load() {
		return nil, errors.New("simulated store failure")
	}
	return []store.Candidate{{Asset: model.Asset{ID: 1}}}, nil
}

func (f *fakeStore) GetFeaturedContent(ctx context.Context, excludeIDs []int64, scheduleDate time.Time, criteria store.FeaturedCriteria) ([]store.Candidate, error) {
	return nil, nil
}
func (f *fakeStore) ValidAssetIDs(ctx context.Context, token model.RotationToken, scheduleDate time.Time) ([]int64, error) {
	return nil, nil
}
func (f *fakeStore) ResetCategoryDelays(ctx context.Context, token model.RotationToken, assetIDs []int64) error {
	return nil
}
func (f *fakeStore) UpdateAssetLastScheduled(ctx context.Context, assetID int64, airTime time.Time) error {
	return nil
}
func (f *fakeStore) HolidayGreetingPool(ctx context.Context, scheduleDate time.Time) ([]int64, error) {
	return nil, nil
}
func (f *fakeStore) AssignHolidayGreetingPool(ctx context.Context, scheduleDate time.Time, maxPerDay int) error {
	return nil
}
func (f *fakeStore) RecordHolidayGreetingPlacement(ctx context.Context, assetID int64, at time.Time) error {
	return nil
}
func (f *fakeStore) IsHolidayGreetingAsset(ctx context.Context, assetID int64) (bool, error) {
	return false, nil
}
func (f *fakeStore) CreateSchedule(ctx context.Context, s model.Schedule) (int64, error) {
	return 0, nil
}
func (f *fakeStore) ScheduleByAirDate(ctx context.Context, airDate time.Time, kind model.ScheduleKind) (*model.Schedule, error) {
	return nil, nil
}
func (f *fakeStore) ScheduleByID(ctx context.Context, id int64) (*model.Schedule, error) {
	return nil, nil
}
func (f *fakeStore) ListSchedules(ctx context.Context, start, end time.Time) ([]model.Schedule, error) {
	return nil, nil
}
func (f *fakeStore) AppendItem(ctx context.Context, item model.ScheduledItem) (int64, error) {
	return 0, nil
}
func (f *fakeStore) ItemsForSchedule(ctx context.Context, scheduleID int64) ([]model.ScheduledItem, error) {
	return nil, nil
}
func (f *fakeStore) ReorderItem(ctx context.Context, scheduleID int64, from, to int) error {
	return nil
}
func (f *fakeStore) DeleteItem(ctx context.Context, scheduleID int64, itemID int64) error {
	return nil
}
func (f *fakeStore) ToggleItemAvailability(ctx context.Context, scheduleID int64, itemID int64, available bool) error {
	return nil
}
func (f *fakeStore) RecalculateScheduleTimes(ctx context.Context, scheduleID int64, frameGap time.Duration) error {
	return nil
}
func (f *fakeStore) SetScheduleTotalDuration(ctx context.Context, scheduleID int64, seconds float64) error {
	return nil
}
func (f *fakeStore) DeleteSchedule(ctx context.Context, scheduleID int64) error {
	return nil
}

func TestStore_GetAvailableContentWithDelay_PassesThroughOnSuccess(t *testing.T) {
	inner := &fakeStore{}
	s := New(inner, 0, 0) // no rate limiting

	candidates, err := s.GetAvailableContentWithDelay(context.Background(), model.RotationToken{}, nil, time.Now(), 0, 0, 1.0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if atomic.LoadInt32(&inner.getAvailableCalls) != 1 {
		t.Fatalf("expected inner store to be called once")
	}
}

func TestStore_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	inner := &fakeStore{}
	inner.failNext.Store(true)
	s := New(inner, 0, 0)

	ctx := context.Background()
	var lastErr error
	for i := 0; i < 15; i++ {
		_, lastErr = s.GetAvailableContentWithDelay(ctx, model.RotationToken{}, nil, time.Now(), 0, 0, 1.0, false)
	}
	if lastErr == nil {
		t.Fatal("expected failures to propagate an error")
	}

	// One further call should be rejected by the now-open breaker without
	// reaching the inner store.
	callsBeforeRejection := atomic.LoadInt32(&inner.getAvailableCalls)
	_, err := s.GetAvailableContentWithDelay(ctx, model.RotationToken{}, nil, time.Now(), 0, 0, 1.0, false)
	if err == nil {
		t.Fatal("expected circuit breaker to reject the call")
	}
	if atomic.LoadInt32(&inner.getAvailableCalls) != callsBeforeRejection {
		t.Fatal("open circuit should not have reached the inner store")
	}
}

func TestStore_RateLimiterBlocksBurstAboveCapacity(t *testing.T) {
	inner := &fakeStore{}
	s := New(inner, 1, 1) // 1 req/sec, burst of 1

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	// First call consumes the single burst token immediately.
	if _, err := s.GetAvailableContentWithDelay(context.Background(), model.RotationToken{}, nil, time.Now(), 0, 0, 1.0, false); err != nil {
		t.Fatalf("first call should succeed: %v", err)
	}

	// Second call has no tokens left and the context deadline is far
	// shorter than the 1 req/sec refill, so it must time out.
	if _, err := s.GetAvailableContentWithDelay(ctx, model.RotationToken{}, nil, time.Now(), 0, 0, 1.0, false); err == nil {
		t.Fatal("expected rate limiter to block the second call until context deadline")
	}
}
