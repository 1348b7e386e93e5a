package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tunegrid/api/internal/model"
)

const scheduleColumns = `id, name, frequency, interval_days, run_time, generation_count,
    style, mood, prompt_template_id, auto_deploy, next_run, last_run, active,
    claimed_until, created_at, updated_at`

type scheduleScanner interface {
	Scan(dest ...interface{}) error
}

func scanSchedule(row scheduleScanner) (*model.Schedule, error) {
	var (
		s            model.Schedule
		templateID   sql.NullString
		nextRun      sql.NullString
		lastRun      sql.NullString
		claimedUntil sql.NullString
		createdAt    sql.NullString
		updatedAt    sql.NullString
		autoDeploy   int
		active       int
	)

	err := row.Scan(
		&s.ID, &s.Name, &s.Frequency, &s.IntervalDays, &s.RunTime,
		&s.GenerationCount, &s.Style, &s.Mood, &templateID, &autoDeploy,
		&nextRun, &lastRun, &active, &claimedUntil, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if templateID.Valid {
		s.PromptTemplateID = templateID.String
	}
	s.AutoDeploy = autoDeploy != 0
	s.Active = active != 0

	if s.NextRun, err = parseTime(nextRun); err != nil {
		return nil, fmt.Errorf("parse next_run: %w", err)
	}
	if s.LastRun, err = parseTimePtr(lastRun); err != nil {
		return nil, fmt.Errorf("parse last_run: %w", err)
	}
	if s.ClaimedUntil, err = parseTimePtr(claimedUntil); err != nil {
		return nil, fmt.Errorf("parse claimed_until: %w", err)
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &s, nil
}

// CreateSchedule inserts a new schedule row.
func (s *Store) CreateSchedule(ctx context.Context, sched *model.Schedule) error {
	now := time.Now().UTC()
	sched.CreatedAt = now
	sched.UpdatedAt = now

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO schedules (`+scheduleColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sched.ID,
		sched.Name,
		sched.Frequency,
		sched.IntervalDays,
		sched.RunTime,
		sched.GenerationCount,
		sched.Style,
		sched.Mood,
		nullableString(sched.PromptTemplateID),
		boolToInt(sched.AutoDeploy),
		formatTime(sched.NextRun),
		nullableTime(sched.LastRun),
		boolToInt(sched.Active),
		nullableTime(sched.ClaimedUntil),
		formatTime(sched.CreatedAt),
		formatTime(sched.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// GetSchedule fetches a schedule by id, nil if absent.
func (s *Store) GetSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	sched, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return sched, nil
}

// ListSchedules returns all schedules ordered by creation time.
func (s *Store) ListSchedules(ctx context.Context) ([]*model.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var scheds []*model.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		scheds = append(scheds, sched)
	}
	return scheds, rows.Err()
}

// UpdateSchedule persists changes to an existing schedule row.
func (s *Store) UpdateSchedule(ctx context.Context, sched *model.Schedule) error {
	if sched == nil {
		return errors.New("schedule is nil")
	}
	sched.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(
		ctx,
		`UPDATE schedules
         SET name = ?, frequency = ?, interval_days = ?, run_time = ?,
             generation_count = ?, style = ?, mood = ?, prompt_template_id = ?,
             auto_deploy = ?, next_run = ?, last_run = ?, active = ?,
             claimed_until = ?, updated_at = ?
         WHERE id = ?`,
		sched.Name,
		sched.Frequency,
		sched.IntervalDays,
		sched.RunTime,
		sched.GenerationCount,
		sched.Style,
		sched.Mood,
		nullableString(sched.PromptTemplateID),
		boolToInt(sched.AutoDeploy),
		formatTime(sched.NextRun),
		nullableTime(sched.LastRun),
		boolToInt(sched.Active),
		nullableTime(sched.ClaimedUntil),
		formatTime(sched.UpdatedAt),
		sched.ID,
	)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

// DeleteSchedule removes a schedule row.
func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}

// FindDueSchedules returns active schedules whose next_run has passed,
// ignoring claims. A point-in-time snapshot for read-only callers.
func (s *Store) FindDueSchedules(ctx context.Context, now time.Time) ([]*model.Schedule, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+scheduleColumns+` FROM schedules
         WHERE active = 1 AND next_run <= ?
         ORDER BY next_run`,
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("find due schedules: %w", err)
	}
	defer rows.Close()

	var scheds []*model.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		scheds = append(scheds, sched)
	}
	return scheds, rows.Err()
}

// ClaimDueSchedules atomically claims every due, unclaimed (or claim
// expired) schedule until now+lease and returns the claimed rows.
// Concurrent ticks cannot claim the same schedule twice: the claim is a
// single UPDATE guarded on claimed_until.
func (s *Store) ClaimDueSchedules(ctx context.Context, now time.Time, lease time.Duration) ([]*model.Schedule, error) {
	until := now.Add(lease)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(
		ctx,
		`SELECT id FROM schedules
         WHERE active = 1 AND next_run <= ?
           AND (claimed_until IS NULL OR claimed_until < ?)
         ORDER BY next_run`,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("select due schedules: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, tx.Commit()
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE schedules SET claimed_until = ?, updated_at = ? WHERE id = ?`,
			formatTime(until),
			formatTime(now),
			id,
		); err != nil {
			return nil, fmt.Errorf("claim schedule %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim tx: %w", err)
	}

	var claimed []*model.Schedule
	for _, id := range ids {
		sched, err := s.GetSchedule(ctx, id)
		if err != nil {
			return nil, err
		}
		if sched != nil {
			claimed = append(claimed, sched)
		}
	}
	return claimed, nil
}

// ReleaseClaim clears a schedule's claim once its run bookkeeping is
// committed.
func (s *Store) ReleaseClaim(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE schedules SET claimed_until = NULL, updated_at = ? WHERE id = ?`,
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	return nil
}
