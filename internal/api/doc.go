// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

// Package api wires the scheduler's HTTP surface: health checks, auth and
// rate-limit middleware, and the schedule build/list/edit endpoints served
// over a Chi router.
package api
