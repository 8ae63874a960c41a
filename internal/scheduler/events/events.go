// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

// Package events publishes Schedule Builder completion notices onto a
// Watermill message.Publisher. It is grounded on
// internal/eventprocessor's PublishEvent/SerializeEvent convenience
// wrapper, narrowed to the two topics the build service emits and freed
// from the NATS-only build tag since any Watermill publisher
// (including an in-process GoChannel bus in tests) can carry them.
package events

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/jaypound/broadcast-scheduler/internal/logging"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/model"
)

const (
	// TopicScheduleCompleted is published after a successful build.
	TopicScheduleCompleted = "schedule.completed"
	// TopicScheduleFailed is published after a build errors or returns a
	// non-success Result.
	TopicScheduleFailed = "schedule.failed"
)

// BuildOutcome is the JSON payload carried by both topics.
type BuildOutcome struct {
	JobID        string            `json:"job_id"`
	ScheduleID   int64             `json:"schedule_id,omitempty"`
	Kind         model.ScheduleKind `json:"kind"`
	ItemCount    int               `json:"item_count"`
	StartedAt    time.Time         `json:"started_at"`
	EndedAt      time.Time         `json:"ended_at"`
	ErrorKind    string            `json:"error_kind,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// Publisher publishes BuildOutcome notices. A nil *Publisher is valid
// and every method becomes a no-op, so callers can wire it
// unconditionally and leave it unset when no message bus is configured.
type Publisher struct {
	pub message.Publisher
}

// New wraps a Watermill publisher. Passing a nil pub yields a Publisher
// whose Completed/Failed calls are no-ops.
func New(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

// Completed publishes a schedule.completed notice.
func (p *Publisher) Completed(ctx context.Context, o BuildOutcome) {
	p.publish(ctx, TopicScheduleCompleted, o)
}

// Failed publishes a schedule.failed notice.
func (p *Publisher) Failed(ctx context.Context, o BuildOutcome) {
	p.publish(ctx, TopicScheduleFailed, o)
}

func (p *Publisher) publish(ctx context.Context, topic string, o BuildOutcome) {
	if p == nil || p.pub == nil {
		return
	}

	data, err := json.Marshal(o)
	if err != nil {
		logging.Warn().Err(err).Str("job_id", o.JobID).Msg("marshal schedule build outcome")
		return
	}

	msg := message.NewMessage(uuid.NewString(), data)
	msg.Metadata.Set("job_id", o.JobID)
	msg.Metadata.Set("kind", string(o.Kind))

	if err := p.pub.Publish(topic, msg); err != nil {
		logging.Warn().Err(err).Str("topic", topic).Str("job_id", o.JobID).
			Msg("publish schedule build outcome")
	}
}
