// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

// Package models defines the wire-format envelope shared by every HTTP
// endpoint: APIResponse, Metadata, and APIError. Domain types (schedules,
// schedule items, assets) live in internal/scheduler/model instead.
package models
