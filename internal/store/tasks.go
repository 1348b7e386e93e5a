package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tunegrid/api/internal/model"
)

const taskColumns = `id, schedule_id, provider_task_id, track_index, title, style, mood,
    tags, status, auto_deploy, retry_count, max_retries, error, cover_url,
    audio_url, duration, created_at, updated_at, failed_at`

func scanTask(row scheduleScanner) (*model.GenerationTask, error) {
	var (
		t          model.GenerationTask
		scheduleID sql.NullString
		errText    sql.NullString
		createdAt  sql.NullString
		updatedAt  sql.NullString
		failedAt   sql.NullString
		autoDeploy int
	)

	err := row.Scan(
		&t.ID, &scheduleID, &t.ProviderTaskID, &t.TrackIndex, &t.Title,
		&t.Style, &t.Mood, &t.Tags, &t.Status, &autoDeploy, &t.RetryCount,
		&t.MaxRetries, &errText, &t.CoverURL, &t.AudioURL, &t.Duration,
		&createdAt, &updatedAt, &failedAt,
	)
	if err != nil {
		return nil, err
	}

	if scheduleID.Valid {
		t.ScheduleID = scheduleID.String
	}
	t.AutoDeploy = autoDeploy != 0
	t.Error = stringPtr(errText)

	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if t.FailedAt, err = parseTimePtr(failedAt); err != nil {
		return nil, fmt.Errorf("parse failed_at: %w", err)
	}
	return &t, nil
}

// CreateTask inserts a new generation task row.
func (s *Store) CreateTask(ctx context.Context, t *model.GenerationTask) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	var errVal interface{}
	if t.Error != nil {
		errVal = *t.Error
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO generation_tasks (`+taskColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		nullableString(t.ScheduleID),
		t.ProviderTaskID,
		t.TrackIndex,
		t.Title,
		t.Style,
		t.Mood,
		t.Tags,
		t.Status,
		boolToInt(t.AutoDeploy),
		t.RetryCount,
		t.MaxRetries,
		errVal,
		t.CoverURL,
		t.AudioURL,
		t.Duration,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
		nullableTime(t.FailedAt),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask fetches a task by id, nil if absent.
func (s *Store) GetTask(ctx context.Context, id string) (*model.GenerationTask, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM generation_tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateTask persists changes to an existing task row.
func (s *Store) UpdateTask(ctx context.Context, t *model.GenerationTask) error {
	if t == nil {
		return errors.New("task is nil")
	}
	t.UpdatedAt = time.Now().UTC()

	var errVal interface{}
	if t.Error != nil {
		errVal = *t.Error
	}

	_, err := s.db.ExecContext(
		ctx,
		`UPDATE generation_tasks
         SET schedule_id = ?, provider_task_id = ?, track_index = ?, title = ?,
             style = ?, mood = ?, tags = ?, status = ?, auto_deploy = ?,
             retry_count = ?, max_retries = ?, error = ?, cover_url = ?,
             audio_url = ?, duration = ?, updated_at = ?, failed_at = ?
         WHERE id = ?`,
		nullableString(t.ScheduleID),
		t.ProviderTaskID,
		t.TrackIndex,
		t.Title,
		t.Style,
		t.Mood,
		t.Tags,
		t.Status,
		boolToInt(t.AutoDeploy),
		t.RetryCount,
		t.MaxRetries,
		errVal,
		t.CoverURL,
		t.AudioURL,
		t.Duration,
		formatTime(t.UpdatedAt),
		nullableTime(t.FailedAt),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// ListTasks returns tasks matching the filter, newest first.
func (s *Store) ListTasks(ctx context.Context, filter model.TaskFilter) ([]*model.GenerationTask, error) {
	query := `SELECT ` + taskColumns + ` FROM generation_tasks`
	var (
		clauses []string
		args    []interface{}
	)
	if filter.Status != "" {
		clauses = append(clauses, `status = ?`)
		args = append(args, filter.Status)
	}
	if filter.ScheduleID != "" {
		clauses = append(clauses, `schedule_id = ?`)
		args = append(args, filter.ScheduleID)
	}
	for i, clause := range clauses {
		if i == 0 {
			query += ` WHERE ` + clause
		} else {
			query += ` AND ` + clause
		}
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.GenerationTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// TasksByStatuses returns tasks in any of the given statuses, oldest
// first, for the poll worker.
func (s *Store) TasksByStatuses(ctx context.Context, statuses ...model.TaskStatus) ([]*model.GenerationTask, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := ""
	args := make([]interface{}, len(statuses))
	for i, status := range statuses {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args[i] = status
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+taskColumns+` FROM generation_tasks
         WHERE status IN (`+placeholders+`) ORDER BY created_at`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks by status: %w", err)
	}
	defer rows.Close()

	var tasks []*model.GenerationTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// TaskSummary aggregates counts per reporting bucket.
func (s *Store) TaskSummary(ctx context.Context) (*model.TaskSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM generation_tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("task summary: %w", err)
	}
	defer rows.Close()

	summary := &model.TaskSummary{}
	for rows.Next() {
		var (
			status model.TaskStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		summary.Total += count
		switch status {
		case model.TaskStatusDeployed:
			summary.Deployed += count
		case model.TaskStatusFailed:
			summary.Failed += count
		default:
			summary.PendingLike += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if summary.Total > 0 {
		summary.SuccessRate = float64(summary.Deployed) / float64(summary.Total)
	}
	return summary, nil
}

// PurgeFailedTasks deletes failed tasks older than the cutoff and
// returns the number of rows removed.
func (s *Store) PurgeFailedTasks(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM generation_tasks WHERE status = ? AND created_at < ?`,
		model.TaskStatusFailed,
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("purge failed tasks: %w", err)
	}
	return res.RowsAffected()
}
