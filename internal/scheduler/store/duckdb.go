// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/jaypound/broadcast-scheduler/internal/logging"
	"github.com/jaypound/broadcast-scheduler/internal/scheduler/model"
)

// holidayGreetingPattern is the dynamic classification predicate of
// spec.md §4.4 / §9: a case-insensitive match of "holiday greeting" (with
// optional whitespace) against file name or title. It is never embedded in
// the asset table itself.
var holidayGreetingPattern = regexp.MustCompile(`(?i)holiday\s*greeting`)

// DuckDB is the C1/C7 implementation backed by a DuckDB connection,
// grounded on internal/database's connection-bootstrap idiom (pool
// configuration, extension preload, checkpoint-on-close) but kept
// self-contained since the scheduler schema shares nothing with the
// Plex-analytics schema that package otherwise serves.
type DuckDB struct {
	conn *sql.DB
}

// Open creates (or attaches to) a DuckDB database at path and ensures the
// scheduler schema exists.
func Open(ctx context.Context, path string) (*DuckDB, error) {
	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	d := &DuckDB{conn: conn}
	if err := d.createSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return d, nil
}

// Close closes the underlying connection.
func (d *DuckDB) Close() error {
	return d.conn.Close()
}

func (d *DuckDB) createSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE SEQUENCE IF NOT EXISTS assets_id_seq START 1`,
		`CREATE TABLE IF NOT EXISTS assets (
			id BIGINT PRIMARY KEY DEFAULT nextval('assets_id_seq'),
			uuid VARCHAR NOT NULL,
			content_type VARCHAR NOT NULL,
			content_title VARCHAR NOT NULL,
			duration_seconds DOUBLE NOT NULL,
			duration_category VARCHAR NOT NULL,
			engagement_score DOUBLE,
			shelf_life_score VARCHAR,
			theme VARCHAR,
			analysis_completed BOOLEAN NOT NULL DEFAULT false,
			ai_analysis_enabled BOOLEAN NOT NULL DEFAULT false,
			meeting_date TIMESTAMP
		)`,
		`CREATE SEQUENCE IF NOT EXISTS instances_id_seq START 1`,
		`CREATE TABLE IF NOT EXISTS instances (
			id BIGINT PRIMARY KEY DEFAULT nextval('instances_id_seq'),
			asset_id BIGINT NOT NULL,
			file_name VARCHAR NOT NULL,
			file_path VARCHAR NOT NULL,
			file_size BIGINT NOT NULL DEFAULT 0,
			encoded_date TIMESTAMP,
			storage_location VARCHAR,
			is_primary BOOLEAN NOT NULL DEFAULT false
		)`,
		`CREATE TABLE IF NOT EXISTS scheduling_metadata (
			asset_id BIGINT PRIMARY KEY,
			available_for_scheduling BOOLEAN NOT NULL DEFAULT true,
			content_expiry_date TIMESTAMP,
			go_live_date TIMESTAMP,
			last_scheduled_date TIMESTAMP,
			total_airings INTEGER NOT NULL DEFAULT 0,
			featured BOOLEAN NOT NULL DEFAULT false,
			priority_score DOUBLE NOT NULL DEFAULT 0
		)`,
		`CREATE SEQUENCE IF NOT EXISTS schedules_id_seq START 1`,
		`CREATE TABLE IF NOT EXISTS schedules (
			id BIGINT PRIMARY KEY DEFAULT nextval('schedules_id_seq'),
			name VARCHAR NOT NULL,
			air_date DATE NOT NULL,
			kind VARCHAR NOT NULL,
			channel VARCHAR NOT NULL DEFAULT '',
			created_date TIMESTAMP NOT NULL DEFAULT current_timestamp,
			total_duration_seconds DOUBLE NOT NULL DEFAULT 0
		)`,
		`CREATE SEQUENCE IF NOT EXISTS scheduled_items_id_seq START 1`,
		`CREATE TABLE IF NOT EXISTS scheduled_items (
			id BIGINT PRIMARY KEY DEFAULT nextval('scheduled_items_id_seq'),
			schedule_id BIGINT NOT NULL,
			asset_id BIGINT NOT NULL,
			instance_id BIGINT,
			sequence_number INTEGER NOT NULL,
			scheduled_start_time_us BIGINT NOT NULL,
			scheduled_duration_seconds DOUBLE NOT NULL,
			day_offset INTEGER NOT NULL DEFAULT 0,
			live_input_title VARCHAR NOT NULL DEFAULT '',
			available_for_scheduling BOOLEAN NOT NULL DEFAULT true,
			featured BOOLEAN NOT NULL DEFAULT false,
			theme VARCHAR NOT NULL DEFAULT '',
			category VARCHAR NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS holiday_greeting_rotation (
			asset_id BIGINT PRIMARY KEY,
			scheduled_count INTEGER NOT NULL DEFAULT 0,
			last_scheduled TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS holiday_greetings_days (
			asset_id BIGINT NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			day_number INTEGER NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := d.conn.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec schema stmt: %w", err)
		}
	}
	return nil
}

// freshnessScore implements the encoded_date freshness factor of spec.md
// §4.1's composite priority table.
func freshnessScore(encoded *time.Time, now time.Time) float64 {
	if encoded == nil {
		return 0
	}
	age := now.Sub(*encoded)
	switch {
	case age < 24*time.Hour:
		return 100
	case age < 3*24*time.Hour:
		return 90
	case age < 7*24*time.Hour:
		return 80
	case age < 14*24*time.Hour:
		return 60
	case age < 30*24*time.Hour:
		return 40
	default:
		return 20
	}
}

func inverseAiringsScore(total int) float64 {
	switch {
	case total == 0:
		return 100
	case total <= 2:
		return 80
	case total <= 5:
		return 60
	case total <= 10:
		return 40
	case total <= 20:
		return 20
	default:
		return 10
	}
}

func recencyScore(last *time.Time, now time.Time) float64 {
	if last == nil {
		return 100
	}
	since := now.Sub(*last)
	switch {
	case since >= 24*time.Hour:
		return 100
	case since >= 12*time.Hour:
		return 80
	case since >= 6*time.Hour:
		return 60
	case since >= 3*time.Hour:
		return 40
	case since >= time.Hour:
		return 20
	default:
		return 0
	}
}

// compositePriority implements the weighted sum of spec.md §4.1.
func compositePriority(a model.Asset, now time.Time) float64 {
	engagement := 0.0
	if a.EngagementScore != nil {
		engagement = *a.EngagementScore
	}
	return 0.35*freshnessScore(a.EncodedDate, now) +
		0.25*engagement +
		0.20*inverseAiringsScore(a.Scheduling.TotalAirings) +
		0.20*recencyScore(a.Scheduling.LastScheduledDate, now)
}

func requiredDelayHours(cfg delayConfig, token model.RotationToken, a model.Asset, reductionFactor float64) float64 {
	base := cfg.base
	additional := cfg.additional
	if reductionFactor < 1.0 {
		base *= reductionFactor
		additional *= reductionFactor
	}
	return base + float64(a.Scheduling.TotalAirings)*additional
}

type delayConfig struct {
	base       float64
	additional float64
}

// GetAvailableContent implements the C1 read contract of spec.md §4.1.
// reductionFactor/ignoreDelays/required-delay computation is driven by the
// delayConfig the caller (internal/scheduler/candidate) supplies via
// context — to keep this package free of a direct dependency on
// internal/scheduler/config, the delay parameters are passed in through
// the exported GetAvailableContentWithDelay entry point below, and
// GetAvailableContent is kept to satisfy the AssetStore interface using a
// zero base/additional delay (i.e. only expiry/go-live/availability
// filtering), matching ignoreDelays semantics. Higher layers
// (candidate.Provider) always call through WithDelay.
func (d *DuckDB) GetAvailableContent(ctx context.Context, token model.RotationToken, excludeIDs []int64, scheduleDate time.Time, delayReductionFactor float64, ignoreDelays bool) ([]Candidate, error) {
	return d.queryCandidates(ctx, token, excludeIDs, scheduleDate, delayConfig{}, delayReductionFactor, ignoreDelays, nil)
}

// GetAvailableContentWithDelay is the full-fidelity entry point used by
// the Candidate Provider, which knows the configured base/additional delay
// for the token.
func (d *DuckDB) GetAvailableContentWithDelay(ctx context.Context, token model.RotationToken, excludeIDs []int64, scheduleDate time.Time, base, additional, delayReductionFactor float64, ignoreDelays bool) ([]Candidate, error) {
	return d.queryCandidates(ctx, token, excludeIDs, scheduleDate, delayConfig{base: base, additional: additional}, delayReductionFactor, ignoreDelays, nil)
}

func (d *DuckDB) GetFeaturedContent(ctx context.Context, excludeIDs []int64, scheduleDate time.Time, criteria FeaturedCriteria) ([]Candidate, error) {
	cands, err := d.queryCandidates(ctx, model.RotationToken{}, excludeIDs, scheduleDate, delayConfig{}, 1.0, true, &criteria)
	if err != nil {
		return nil, err
	}
	return cands, nil
}

// isFeatured implements the four-way featured determination of spec.md
// §4.5: the manual flag, always_featured/engagement_based content-type
// rules, and the MTG fresh/relevant age bands.
func isFeatured(a model.Asset, criteria FeaturedCriteria, scheduleDate time.Time) bool {
	if a.Scheduling.Featured {
		return true
	}
	rule, hasRule := criteria.ContentPriorities[lowerASCII(a.ContentType)]
	if hasRule {
		if rule.AlwaysFeatured {
			return true
		}
		// Meeting relevance only applies to MTG content with auto-featuring
		// configured, matching original_source's _should_auto_feature_content.
		if lowerASCII(a.ContentType) == "mtg" && rule.AutoFeatureDays > 0 && a.MeetingDate != nil {
			ageDays := model.MeetingAge(*a.MeetingDate, scheduleDate)
			tier := model.MeetingTierFor(ageDays, criteria.MeetingFreshDays, criteria.MeetingRelevantDays, criteria.MeetingRelevantDays)
			if tier == model.MeetingTierFresh || tier == model.MeetingTierRelevant {
				return true
			}
		}
		if rule.EngagementBased && a.EngagementScore != nil && *a.EngagementScore >= rule.FeatureThreshold {
			return true
		}
	}
	return false
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// queryCandidates runs the shared candidate query. When criteria is
// non-nil, the category/content-type filter is dropped and isFeatured is
// applied in Go after fetch (there is no SQL-level featured filter), since always_featured/engagement_based/
// MTG-tier rules depend on per-content-type thresholds that are awkward to
// express portably in SQL (same reasoning as the delay constraint below).
func (d *DuckDB) queryCandidates(ctx context.Context, token model.RotationToken, excludeIDs []int64, scheduleDate time.Time, delay delayConfig, reductionFactor float64, ignoreDelays bool, criteria *FeaturedCriteria) ([]Candidate, error) {
	featuredOnly := criteria != nil
	var where []string
	var args []interface{}

	where = append(where, "sm.available_for_scheduling = true")
	where = append(where, "(i.file_path NOT LIKE '%' || ? || '%')")
	args = append(args, model.FillPathPattern)
	where = append(where, "(sm.content_expiry_date IS NULL OR sm.content_expiry_date > ?)")
	args = append(args, scheduleDate)
	where = append(where, "(sm.go_live_date IS NULL OR sm.go_live_date <= ?)")
	args = append(args, scheduleDate)

	if !featuredOnly {
		if token.IsCategory() {
			where = append(where, "a.duration_category = ?")
			args = append(args, string(token.Category))
		} else if token.ContentType != "" {
			where = append(where, "lower(a.content_type) = lower(?)")
			args = append(args, token.ContentType)
		}
	}

	if len(excludeIDs) > 0 {
		placeholders := make([]string, len(excludeIDs))
		for i, id := range excludeIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		where = append(where, fmt.Sprintf("a.id NOT IN (%s)", strings.Join(placeholders, ",")))
	}

	// The delay constraint itself is evaluated in Go after fetching, since
	// the required-delay-hours formula depends on total_airings and the
	// caller's delay config, which is awkward to express portably in SQL
	// across the featured/non-featured cases.

	query := fmt.Sprintf(`
		SELECT a.id, a.uuid, a.content_type, a.content_title, a.duration_seconds,
		       a.duration_category, a.engagement_score, a.shelf_life_score, a.theme,
		       a.analysis_completed, a.ai_analysis_enabled, a.meeting_date,
		       sm.last_scheduled_date, sm.total_airings, sm.featured,
		       i.file_name, i.file_path, i.encoded_date
		FROM assets a
		JOIN scheduling_metadata sm ON sm.asset_id = a.id
		JOIN instances i ON i.asset_id = a.id AND i.is_primary = true
		WHERE %s
		LIMIT 400`, strings.Join(where, " AND "))

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	now := scheduleDate
	var out []model.Asset
	for rows.Next() {
		var a model.Asset
		var lastSched, encoded, meetingDate sql.NullTime
		var engagement sql.NullFloat64
		if err := rows.Scan(&a.ID, &a.UUID, &a.ContentType, &a.ContentTitle, &a.DurationSeconds,
			&a.DurationCategory, &engagement, &a.ShelfLifeScore, &a.Theme,
			&a.AnalysisCompleted, &a.AIAnalysisEnabled, &meetingDate,
			&lastSched, &a.Scheduling.TotalAirings, &a.Scheduling.Featured,
			&a.PrimaryFileName, &a.PrimaryFilePath, &encoded); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if engagement.Valid {
			v := engagement.Float64
			a.EngagementScore = &v
		}
		if lastSched.Valid {
			t := lastSched.Time
			a.Scheduling.LastScheduledDate = &t
		}
		if meetingDate.Valid {
			t := meetingDate.Time
			a.MeetingDate = &t
		}
		if encoded.Valid {
			t := encoded.Time
			a.EncodedDate = &t
		}

		if !ignoreDelays {
			requiredHours := 0.0
			if a.Scheduling.Featured {
				requiredHours = delay.base // featured assets: base delay only, no reduction (GetFeaturedContent skips this check)
			} else {
				requiredHours = requiredDelayHours(delay, token, a, reductionFactor)
			}
			if !delayConstraintSatisfied(a.Scheduling.LastScheduledDate, scheduleDate, requiredHours) {
				continue
			}
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if criteria != nil {
		filtered := out[:0]
		for _, a := range out {
			if isFeatured(a, *criteria, scheduleDate) {
				filtered = append(filtered, a)
			}
		}
		out = filtered
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := compositePriority(out[i], now), compositePriority(out[j], now)
		if pi != pj {
			return pi > pj
		}
		li, lj := out[i].Scheduling.LastScheduledDate, out[j].Scheduling.LastScheduledDate
		if (li == nil) != (lj == nil) {
			return li == nil
		}
		if li != nil && lj != nil && !li.Equal(*lj) {
			return li.Before(*lj)
		}
		if out[i].Scheduling.TotalAirings != out[j].Scheduling.TotalAirings {
			return out[i].Scheduling.TotalAirings < out[j].Scheduling.TotalAirings
		}
		ei, ej := out[i].EncodedDate, out[j].EncodedDate
		if (ei == nil) != (ej == nil) {
			return ei != nil
		}
		if ei != nil && ej != nil && !ei.Equal(*ej) {
			return ei.After(*ej)
		}
		return rand.Float64() < 0.5
	})

	if len(out) > 200 {
		out = out[:200]
	}

	cands := make([]Candidate, len(out))
	for i, a := range out {
		cands[i] = Candidate{Asset: a, DelayFactorUsed: reductionFactor}
	}
	return cands, nil
}

func delayConstraintSatisfied(last *time.Time, scheduleDate time.Time, requiredHours float64) bool {
	if last == nil {
		return true
	}
	if last.After(scheduleDate) {
		return true
	}
	hoursSince := scheduleDate.Sub(*last).Hours()
	return hoursSince >= requiredHours
}

func (d *DuckDB) ValidAssetIDs(ctx context.Context, token model.RotationToken, scheduleDate time.Time) ([]int64, error) {
	var where []string
	var args []interface{}
	where = append(where, "sm.available_for_scheduling = true")
	where = append(where, "(sm.content_expiry_date IS NULL OR sm.content_expiry_date > ?)")
	args = append(args, scheduleDate)
	where = append(where, "(sm.go_live_date IS NULL OR sm.go_live_date <= ?)")
	args = append(args, scheduleDate)
	if token.IsCategory() {
		where = append(where, "a.duration_category = ?")
		args = append(args, string(token.Category))
	} else if token.ContentType != "" {
		where = append(where, "lower(a.content_type) = lower(?)")
		args = append(args, token.ContentType)
	}
	query := fmt.Sprintf(`SELECT a.id FROM assets a JOIN scheduling_metadata sm ON sm.asset_id = a.id WHERE %s`, strings.Join(where, " AND "))
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (d *DuckDB) ResetCategoryDelays(ctx context.Context, token model.RotationToken, assetIDs []int64) error {
	if len(assetIDs) == 0 {
		return nil
	}
	placeholders := make([]string, len(assetIDs))
	args := make([]interface{}, len(assetIDs))
	for i, id := range assetIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	logging.Warn().Str("token", token.String()).Int("count", len(assetIDs)).Msg("category delay reset fired")
	_, err := d.conn.ExecContext(ctx, fmt.Sprintf(
		`UPDATE scheduling_metadata SET last_scheduled_date = NULL WHERE asset_id IN (%s)`, strings.Join(placeholders, ",")), args...)
	return err
}

func (d *DuckDB) UpdateAssetLastScheduled(ctx context.Context, assetID int64, airTime time.Time) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO scheduling_metadata (asset_id, last_scheduled_date, total_airings)
		VALUES (?, ?, 1)
		ON CONFLICT (asset_id) DO UPDATE SET
			last_scheduled_date = excluded.last_scheduled_date,
			total_airings = scheduling_metadata.total_airings + 1
	`, assetID, airTime)
	return err
}

func (d *DuckDB) HolidayGreetingPool(ctx context.Context, scheduleDate time.Time) ([]int64, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT asset_id FROM holiday_greetings_days
		WHERE start_date <= ? AND end_date >= ?
		ORDER BY day_number`, scheduleDate, scheduleDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (d *DuckDB) AssignHolidayGreetingPool(ctx context.Context, scheduleDate time.Time, maxPerDay int) error {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT a.id FROM assets a
		LEFT JOIN holiday_greeting_rotation r ON r.asset_id = a.id
		JOIN scheduling_metadata sm ON sm.asset_id = a.id
		WHERE sm.available_for_scheduling = true
		  AND (a.theme ILIKE ? OR a.content_title ILIKE '%holiday%greeting%')
		ORDER BY COALESCE(r.scheduled_count, 0) ASC, COALESCE(r.last_scheduled, TIMESTAMP '1970-01-01') ASC
		LIMIT ?`, model.HolidayGreetingTheme, maxPerDay)
	if err != nil {
		return err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for day, id := range ids {
		if _, err := d.conn.ExecContext(ctx, `
			INSERT INTO holiday_greetings_days (asset_id, start_date, end_date, day_number)
			VALUES (?, ?, ?, ?)`, id, scheduleDate, scheduleDate, day); err != nil {
			return err
		}
	}
	return nil
}

func (d *DuckDB) RecordHolidayGreetingPlacement(ctx context.Context, assetID int64, at time.Time) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO holiday_greeting_rotation (asset_id, scheduled_count, last_scheduled)
		VALUES (?, 1, ?)
		ON CONFLICT (asset_id) DO UPDATE SET
			scheduled_count = holiday_greeting_rotation.scheduled_count + 1,
			last_scheduled = excluded.last_scheduled
	`, assetID, at)
	return err
}

func (d *DuckDB) IsHolidayGreetingAsset(ctx context.Context, assetID int64) (bool, error) {
	var title string
	var fileName sql.NullString
	err := d.conn.QueryRowContext(ctx, `
		SELECT a.content_title, i.file_name
		FROM assets a LEFT JOIN instances i ON i.asset_id = a.id AND i.is_primary = true
		WHERE a.id = ?`, assetID).Scan(&title, &fileName)
	if err != nil {
		return false, err
	}
	return holidayGreetingPattern.MatchString(title) || holidayGreetingPattern.MatchString(fileName.String), nil
}
