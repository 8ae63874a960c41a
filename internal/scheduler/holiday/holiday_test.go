// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

package holiday

import (
	"context"
	"testing"
	"time"
)

type fakePoolStore struct {
	pool      []int64
	assigned  bool
	recorded  map[int64]int
}

func newFakePoolStore(pool []int64) *fakePoolStore {
	return &fakePoolStore{pool: pool, recorded: make(map[int64]int)}
}

func (f *fakePoolStore) HolidayGreetingPool(ctx context.Context, scheduleDate time.Time) ([]int64, error) {
	return f.pool, nil
}
func (f *fakePoolStore) AssignHolidayGreetingPool(ctx context.Context, scheduleDate time.Time, maxPerDay int) error {
	f.assigned = true
	return nil
}
func (f *fakePoolStore) RecordHolidayGreetingPlacement(ctx context.Context, assetID int64, at time.Time) error {
	f.recorded[assetID]++
	return nil
}

func TestIsGreetingMatchesCaseInsensitiveWithWhitespace(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"Holiday Greeting - Mayor 2024.mp4", true},
		{"HOLIDAYGREETING_final.mp4", true},
		{"holiday   greeting.mp4", true},
		{"Spring Greeting.mp4", false},
	}
	for _, c := range cases {
		if got := IsGreeting(c.in, ""); got != c.want {
			t.Errorf("IsGreeting(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNextSkipsExpiredAndRoundRobins(t *testing.T) {
	fs := newFakePoolStore([]int64{1, 2, 3})
	r := New(fs, true)
	date := time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC)
	if err := r.PreAssignDay(context.Background(), date); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fs.assigned {
		t.Fatalf("expected AssignHolidayGreetingPool to be called")
	}

	r.MarkExpired(2)

	seen := []int64{}
	for i := 0; i < 4; i++ {
		id, ok := r.Next(date, "")
		if !ok {
			t.Fatalf("expected an eligible greeting at iteration %d", i)
		}
		seen = append(seen, id)
	}
	// Expect 1,3,1,3 since 2 is expired.
	want := []int64{1, 3, 1, 3}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("round-robin mismatch at %d: got %v want %v", i, seen, want)
		}
	}
}

func TestNextRefusesBackToBackHolidayTheme(t *testing.T) {
	fs := newFakePoolStore([]int64{1})
	r := New(fs, true)
	date := time.Now()
	_ = r.PreAssignDay(context.Background(), date)
	if _, ok := r.Next(date, "HolidayGreeting"); ok {
		t.Fatalf("expected Next to refuse when last theme was HolidayGreeting")
	}
	if _, ok := r.Next(date, "holidaygreeting"); ok {
		t.Fatalf("expected case-insensitive refusal")
	}
}

func TestDisabledRotatorAlwaysDeclines(t *testing.T) {
	fs := newFakePoolStore([]int64{1, 2})
	r := New(fs, false)
	date := time.Now()
	if err := r.PreAssignDay(context.Background(), date); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.assigned {
		t.Fatalf("disabled rotator must not materialize a pool")
	}
	if _, ok := r.Next(date, ""); ok {
		t.Fatalf("disabled rotator must never return a greeting")
	}
}
