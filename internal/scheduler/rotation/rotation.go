// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

// Package rotation implements the Rotation Controller (C2): a cyclic
// pointer over the configured duration-category / content-type rotation
// order. Grounded on original_source/backend/scheduler_postgres.py's
// _get_next_duration_category / _advance_rotation / _reset_rotation.
package rotation

import "github.com/jaypound/broadcast-scheduler/internal/scheduler/model"

// Controller holds the ordered rotation tokens and the cursor into them.
// It is not safe for concurrent use; one Controller belongs to exactly one
// in-progress schedule build (spec.md §5: slot selection is never
// parallelized within a single schedule).
type Controller struct {
	tokens []model.RotationToken
	i      int
}

// New builds a Controller over the given ordered token list. An empty list
// is accepted but Next will panic; callers should always supply the
// configured rotation_order.
func New(tokens []model.RotationToken) *Controller {
	cp := make([]model.RotationToken, len(tokens))
	copy(cp, tokens)
	return &Controller{tokens: cp}
}

// Next returns the token at the current cursor position without advancing.
func (c *Controller) Next() model.RotationToken {
	return c.tokens[c.i]
}

// Advance moves the cursor to the next token, wrapping modulo the rotation
// length. The Builder calls this after a non-featured item is placed, and
// also when a rotation slot places nothing: an empty category, a long_form
// slot skipped in the last hour, no candidate that fits, or a slot error
// (spec.md §4.2).
func (c *Controller) Advance() {
	if len(c.tokens) == 0 {
		return
	}
	c.i = (c.i + 1) % len(c.tokens)
}

// Reset returns the cursor to the start of the rotation. Called at the
// start of each new day being built.
func (c *Controller) Reset() {
	c.i = 0
}

// AtStart reports whether the cursor has wrapped back to position 0; the
// Builder uses this to count consecutive_no_content_cycles (spec.md §4.6
// step 6).
func (c *Controller) AtStart() bool {
	return c.i == 0
}

// Len returns the number of tokens in the rotation.
func (c *Controller) Len() int {
	return len(c.tokens)
}
