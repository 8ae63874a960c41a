// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jaypound/broadcast-scheduler/internal/scheduler/model"
)

// CreateSchedule inserts a new Schedule row and returns its id.
func (d *DuckDB) CreateSchedule(ctx context.Context, s model.Schedule) (int64, error) {
	row := d.conn.QueryRowContext(ctx, `
		INSERT INTO schedules (name, air_date, kind, channel, created_date)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`, s.Name, s.AirDate, string(s.Kind), s.Channel, s.CreatedDate)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("create schedule: %w", err)
	}
	return id, nil
}

// ScheduleByAirDate looks up an existing schedule of the given kind whose
// air_date matches, used by the Builder's already_exists guard.
func (d *DuckDB) ScheduleByAirDate(ctx context.Context, airDate time.Time, kind model.ScheduleKind) (*model.Schedule, error) {
	row := d.conn.QueryRowContext(ctx, `
		SELECT id, name, air_date, kind, channel, created_date, total_duration_seconds
		FROM schedules WHERE air_date = ? AND kind = ?`, airDate, string(kind))
	return scanSchedule(row)
}

func (d *DuckDB) ScheduleByID(ctx context.Context, id int64) (*model.Schedule, error) {
	row := d.conn.QueryRowContext(ctx, `
		SELECT id, name, air_date, kind, channel, created_date, total_duration_seconds
		FROM schedules WHERE id = ?`, id)
	return scanSchedule(row)
}

func scanSchedule(row *sql.Row) (*model.Schedule, error) {
	var s model.Schedule
	var kind string
	if err := row.Scan(&s.ID, &s.Name, &s.AirDate, &kind, &s.Channel, &s.CreatedDate, &s.TotalDurationSeconds); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	s.Kind = model.ScheduleKind(kind)
	return &s, nil
}

// ListSchedules returns every schedule whose air_date falls in [start, end].
func (d *DuckDB) ListSchedules(ctx context.Context, start, end time.Time) ([]model.Schedule, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, name, air_date, kind, channel, created_date, total_duration_seconds
		FROM schedules WHERE air_date >= ? AND air_date <= ? ORDER BY air_date`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Schedule
	for rows.Next() {
		var s model.Schedule
		var kind string
		if err := rows.Scan(&s.ID, &s.Name, &s.AirDate, &kind, &s.Channel, &s.CreatedDate, &s.TotalDurationSeconds); err != nil {
			return nil, err
		}
		s.Kind = model.ScheduleKind(kind)
		out = append(out, s)
	}
	return out, rows.Err()
}

// AppendItem inserts one scheduled item and returns its id. The Builder is
// the only writer and already assigns dense sequence numbers, so this is a
// plain insert rather than a renumbering operation.
func (d *DuckDB) AppendItem(ctx context.Context, item model.ScheduledItem) (int64, error) {
	var instanceID sql.NullInt64
	if item.InstanceID != nil {
		instanceID = sql.NullInt64{Int64: *item.InstanceID, Valid: true}
	}
	row := d.conn.QueryRowContext(ctx, `
		INSERT INTO scheduled_items (
			schedule_id, asset_id, instance_id, sequence_number,
			scheduled_start_time_us, scheduled_duration_seconds, day_offset,
			live_input_title, available_for_scheduling, featured, theme, category
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		item.ScheduleID, item.AssetID, instanceID, item.SequenceNumber,
		item.ScheduledStartTime.Microseconds(), item.ScheduledDurationSecs, item.DayOffset,
		item.LiveInputTitle, item.AvailableForScheduling, item.Featured, item.Theme, string(item.Category))
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("append item: %w", err)
	}
	return id, nil
}

// ItemsForSchedule returns every item of a schedule ordered by sequence.
func (d *DuckDB) ItemsForSchedule(ctx context.Context, scheduleID int64) ([]model.ScheduledItem, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, schedule_id, asset_id, instance_id, sequence_number,
		       scheduled_start_time_us, scheduled_duration_seconds, day_offset,
		       live_input_title, available_for_scheduling, featured, theme, category
		FROM scheduled_items WHERE schedule_id = ? ORDER BY sequence_number`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ScheduledItem
	for rows.Next() {
		var it model.ScheduledItem
		var instanceID sql.NullInt64
		var startUs int64
		var category string
		if err := rows.Scan(&it.ID, &it.ScheduleID, &it.AssetID, &instanceID, &it.SequenceNumber,
			&startUs, &it.ScheduledDurationSecs, &it.DayOffset,
			&it.LiveInputTitle, &it.AvailableForScheduling, &it.Featured, &it.Theme, &category); err != nil {
			return nil, err
		}
		if instanceID.Valid {
			v := instanceID.Int64
			it.InstanceID = &v
		}
		it.ScheduledStartTime = time.Duration(startUs) * time.Microsecond
		it.Category = model.DurationCategory(category)
		out = append(out, it)
	}
	return out, rows.Err()
}

// ReorderItem moves the item currently at 1-based sequence_number from to
// sequence_number to within a schedule, renumbering sequence_number
// densely (spec.md §6 "move item" operation). Start times are left as
// they were; RecalculateScheduleTimes rewrites them from the new order.
// from/to are 1-based, matching SequenceNumber.
func (d *DuckDB) ReorderItem(ctx context.Context, scheduleID int64, from, to int) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM scheduled_items WHERE schedule_id = ? ORDER BY sequence_number`, scheduleID)
	if err != nil {
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	from, to = from-1, to-1
	if from < 0 || from >= len(ids) || to < 0 || to >= len(ids) {
		return fmt.Errorf("reorder item: position out of range (from=%d to=%d len=%d)", from+1, to+1, len(ids))
	}

	moved := ids[from]
	ids = append(ids[:from], ids[from+1:]...)
	ids = append(ids[:to], append([]int64{moved}, ids[to:]...)...)

	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE scheduled_items SET sequence_number = ? WHERE id = ?`, i+1, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteItem removes an item, decrements the asset's total_airings (floored
// at 0), and renumbers sequence_number densely.
func (d *DuckDB) DeleteItem(ctx context.Context, scheduleID int64, itemID int64) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var assetID int64
	if err := tx.QueryRowContext(ctx, `SELECT asset_id FROM scheduled_items WHERE id = ? AND schedule_id = ?`, itemID, scheduleID).Scan(&assetID); err != nil {
		return fmt.Errorf("delete item: lookup: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scheduled_items WHERE id = ?`, itemID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE scheduling_metadata SET total_airings = GREATEST(total_airings - 1, 0) WHERE asset_id = ?`, assetID); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM scheduled_items WHERE schedule_id = ? ORDER BY sequence_number`, scheduleID)
	if err != nil {
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE scheduled_items SET sequence_number = ? WHERE id = ?`, i+1, id); err != nil {
			return err
		}
	}

	var total sql.NullFloat64
	if err := tx.QueryRowContext(ctx, `SELECT SUM(scheduled_duration_seconds) FROM scheduled_items WHERE schedule_id = ?`, scheduleID).Scan(&total); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE schedules SET total_duration_seconds = ? WHERE id = ?`, total.Float64, scheduleID); err != nil {
		return err
	}

	return tx.Commit()
}

func (d *DuckDB) ToggleItemAvailability(ctx context.Context, scheduleID int64, itemID int64, available bool) error {
	_, err := d.conn.ExecContext(ctx, `
		UPDATE scheduled_items SET available_for_scheduling = ? WHERE id = ? AND schedule_id = ?`, available, itemID, scheduleID)
	return err
}

// RecalculateScheduleTimes rewrites every item's scheduled_start_time from
// 00:00:00.000000 forward using the frame-gap chain, per spec.md §6's
// "recalculate times" maintenance operation (grounded on
// original_source/backend/scheduler_postgres.py's
// recalculate_schedule_times).
func (d *DuckDB) RecalculateScheduleTimes(ctx context.Context, scheduleID int64, frameGap time.Duration) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, day_offset, scheduled_duration_seconds
		FROM scheduled_items WHERE schedule_id = ? ORDER BY sequence_number`, scheduleID)
	if err != nil {
		return err
	}
	type row struct {
		id       int64
		dayOff   int
		duration float64
	}
	var items []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.dayOff, &r.duration); err != nil {
			rows.Close()
			return err
		}
		items = append(items, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	var cursor float64 // seconds elapsed within the current day
	lastDay := -1
	for _, it := range items {
		if it.dayOff != lastDay {
			cursor = 0
			lastDay = it.dayOff
		}
		startUs := int64(cursor * float64(time.Second/time.Microsecond))
		if _, err := tx.ExecContext(ctx, `UPDATE scheduled_items SET scheduled_start_time_us = ? WHERE id = ?`, startUs, it.id); err != nil {
			return err
		}
		cursor += it.duration + frameGap.Seconds()
	}
	return tx.Commit()
}

func (d *DuckDB) SetScheduleTotalDuration(ctx context.Context, scheduleID int64, seconds float64) error {
	_, err := d.conn.ExecContext(ctx, `UPDATE schedules SET total_duration_seconds = ? WHERE id = ?`, seconds, scheduleID)
	return err
}

// DeleteSchedule decrements total_airings for every referenced asset by its
// in-schedule count, then deletes the schedule; scheduled_items cascades via
// the explicit delete below (DuckDB's FK cascade support is limited, so this
// is done manually rather than relying on ON DELETE CASCADE).
func (d *DuckDB) DeleteSchedule(ctx context.Context, scheduleID int64) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE scheduling_metadata sm
		SET total_airings = GREATEST(total_airings - sub.n, 0)
		FROM (SELECT asset_id, COUNT(*) AS n FROM scheduled_items WHERE schedule_id = ? GROUP BY asset_id) sub
		WHERE sm.asset_id = sub.asset_id`, scheduleID); err != nil {
		return fmt.Errorf("delete schedule: decrement airings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scheduled_items WHERE schedule_id = ?`, scheduleID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, scheduleID); err != nil {
		return err
	}
	return tx.Commit()
}
