// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

// Package resilience wraps the Schedule Builder's Store dependency with a
// circuit breaker and a rate limiter, sitting between the Builder and the
// DuckDB-backed store.DuckDB implementation (spec.md §5: the Store is the
// core's only suspension point, so it is also the only place a slow or
// failing database round trip can be contained).
//
// Grounded on internal/sync/circuit_breaker.go's CircuitBreakerClient
// (gobreaker.Settings, OnStateChange metrics wiring) and
// internal/auth/middleware.go's RateLimiter (golang.org/x/time/rate),
// generalized from a single wrapped method to the builder.Store interface.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/jaypound/broadcast-scheduler/internal/logging"
	"github.com/jaypound/broadcast-scheduler/internal/metrics"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/builder"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/lock"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/model"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/store"
)

// assetLockTTL bounds how long a build may hold an asset's advisory lock;
// generous relative to a single UpdateAssetLastScheduled round trip, tight
// enough that a crashed build releases the asset well within one run.
const assetLockTTL = 30 * time.Second

// Store wraps a builder.Store, circuit-breaking GetAvailableContentWithDelay
// (the Candidate Provider's per-slot query), UpdateAssetLastScheduled and
// ResetCategoryDelays (the bulk UPDATE a category-exhaustion reset issues),
// and rate-limiting GetAvailableContentWithDelay only. Every other method
// passes straight through to the embedded Store.
type Store struct {
	builder.Store
	cb      *gobreaker.CircuitBreaker[any]
	limiter *rate.Limiter
	locks   *lock.AssetLocks
	name    string
}

// WithAssetLocks attaches a BadgerDB-backed advisory lock set, making
// UpdateAssetLastScheduled refuse to race two concurrent builds over the
// same asset. Returns s for chaining; a Store with no locks attached
// skips the exclusion check entirely (the default, safe for a
// single-build-at-a-time deployment).
func (s *Store) WithAssetLocks(locks *lock.AssetLocks) *Store {
	s.locks = locks
	return s
}

// New wraps inner. requestsPerSecond <= 0 disables rate limiting (the
// circuit breaker still applies).
func New(inner builder.Store, requestsPerSecond float64, burst int) *Store {
	name := "scheduler-asset-store"

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(n string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Warn().Str("breaker", n).Str("from", fromStr).Str("to", toStr).
				Msg("scheduler asset store circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(n).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(n, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(n).Set(0)
			}
		},
	})

	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}

	return &Store{Store: inner, cb: cb, limiter: limiter, name: name}
}

// GetAvailableContentWithDelay is the Candidate Provider's per-slot query
// (internal/scheduler/candidate.Provider.Get); rate-limited and
// circuit-broken since a long run of category resets can otherwise fire it
// back to back with no pacing.
func (s *Store) GetAvailableContentWithDelay(ctx context.Context, token model.RotationToken, excludeIDs []int64, scheduleDate time.Time, base, additional, delayReductionFactor float64, ignoreDelays bool) ([]store.Candidate, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("scheduler store rate limit: %w", err)
		}
	}
	return execute[[]store.Candidate](s.cb, s.name, func() ([]store.Candidate, error) {
		return s.Store.GetAvailableContentWithDelay(ctx, token, excludeIDs, scheduleDate, base, additional, delayReductionFactor, ignoreDelays)
	})
}

// UpdateAssetLastScheduled takes the asset's advisory lock (if one is
// attached via WithAssetLocks) before the write and releases it after, so
// two parallel builds placing the same asset cannot interleave their
// last_scheduled_date/total_airings updates.
func (s *Store) UpdateAssetLastScheduled(ctx context.Context, assetID int64, airTime time.Time) error {
	if s.locks != nil {
		if err := s.locks.TryLock(ctx, assetID, assetLockTTL); err != nil {
			return fmt.Errorf("lock asset %d: %w", assetID, err)
		}
		defer func() {
			if err := s.locks.Unlock(assetID); err != nil {
				logging.Warn().Err(err).Int64("asset_id", assetID).Msg("failed to release asset lock")
			}
		}()
	}

	_, err := execute[struct{}](s.cb, s.name, func() (struct{}, error) {
		return struct{}{}, s.Store.UpdateAssetLastScheduled(ctx, assetID, airTime)
	})
	return err
}

// ResetCategoryDelays is circuit-broken: it issues a bulk UPDATE across
// every asset in a rotation token and is the call most likely to stall
// under write contention from a concurrent build.
func (s *Store) ResetCategoryDelays(ctx context.Context, token model.RotationToken, assetIDs []int64) error {
	_, err := execute[struct{}](s.cb, s.name, func() (struct{}, error) {
		return struct{}{}, s.Store.ResetCategoryDelays(ctx, token, assetIDs)
	})
	return err
}

// execute runs fn through the circuit breaker, recording outcome metrics,
// and type-asserts the generic gobreaker result back to T.
func execute[T any](cb *gobreaker.CircuitBreaker[any], name string, fn func() (T, error)) (T, error) {
	var zero T
	result, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(name, "failure").Inc()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(float64(cb.Counts().ConsecutiveFailures))
		}
		return zero, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("scheduler store circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
