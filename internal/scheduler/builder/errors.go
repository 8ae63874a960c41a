// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

package builder

// ErrorKind is the closed taxonomy of spec.md §7. The Builder's loop never
// raises through exceptions (spec.md §9); every internal failure resolves
// to one of these values in a Result.
type ErrorKind string

const (
	ErrAlreadyExists       ErrorKind = "already_exists"
	ErrInfiniteLoop        ErrorKind = "infinite_loop"
	ErrInfiniteLoopBlocked ErrorKind = "infinite_loop_all_blocked"
	ErrInsufficientContent ErrorKind = "insufficient_content"
	ErrInvalidInput        ErrorKind = "invalid_input"
	ErrTransientDB         ErrorKind = "transient_db_error"
)

// BuildError is the structured failure the core surfaces, matching
// spec.md §7's {success: false, error, message, stopped_at_hours,
// days_completed} shape.
type BuildError struct {
	Kind           ErrorKind
	Message        string
	StoppedAtHours float64
	DaysCompleted  int
}

func (e *BuildError) Error() string {
	return string(e.Kind) + ": " + e.Message
}
