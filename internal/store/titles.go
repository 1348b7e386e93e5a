package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tunegrid/api/internal/model"
)

const titleColumns = `id, category, primary_text, secondary_text, keywords, used, used_at, created_at`

func scanTitle(row scheduleScanner) (*model.TitleEntry, error) {
	var (
		e         model.TitleEntry
		used      int
		usedAt    sql.NullString
		createdAt sql.NullString
	)
	err := row.Scan(&e.ID, &e.Category, &e.Primary, &e.Secondary, &e.Keywords, &used, &usedAt, &createdAt)
	if err != nil {
		return nil, err
	}
	e.Used = used != 0
	if e.UsedAt, err = parseTimePtr(usedAt); err != nil {
		return nil, fmt.Errorf("parse used_at: %w", err)
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &e, nil
}

// UnusedTitles returns up to limit unused entries for a category,
// oldest-inserted first. Entries are not marked used here.
func (s *Store) UnusedTitles(ctx context.Context, category string, limit int) ([]*model.TitleEntry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+titleColumns+` FROM title_entries
         WHERE category = ? AND used = 0 ORDER BY id LIMIT ?`,
		category, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query unused titles: %w", err)
	}
	defer rows.Close()

	var entries []*model.TitleEntry
	for rows.Next() {
		e, err := scanTitle(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkTitlesUsed flips used=1 for entries in the category whose primary
// or secondary text matches any of the given keys. Idempotent: already
// used rows are untouched, so used_at keeps its first value.
func (s *Store) MarkTitlesUsed(ctx context.Context, category string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	now := formatTime(time.Now())
	placeholders := ""
	args := []interface{}{now, category}
	for i, key := range keys {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, key)
	}
	// keys appear twice: once for primary_text, once for secondary_text
	for _, key := range keys {
		args = append(args, key)
	}

	_, err := s.db.ExecContext(
		ctx,
		`UPDATE title_entries
         SET used = 1, used_at = ?
         WHERE category = ? AND used = 0
           AND (primary_text IN (`+placeholders+`) OR secondary_text IN (`+placeholders+`))`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("mark titles used: %w", err)
	}
	return nil
}

// AppendTitles merges entries into the pool, skipping rows whose
// primary text already exists in the category. Returns the number of
// rows actually inserted.
func (s *Store) AppendTitles(ctx context.Context, category string, entries []model.TitleEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := formatTime(time.Now())
	inserted := 0
	for _, e := range entries {
		if e.Primary == "" {
			continue
		}
		var exists int
		err := tx.QueryRowContext(
			ctx,
			`SELECT COUNT(1) FROM title_entries WHERE category = ? AND primary_text = ?`,
			category, e.Primary,
		).Scan(&exists)
		if err != nil {
			return 0, fmt.Errorf("check duplicate title: %w", err)
		}
		if exists > 0 {
			continue
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO title_entries (category, primary_text, secondary_text, keywords, used, used_at, created_at)
             VALUES (?, ?, ?, ?, 0, NULL, ?)`,
			category, e.Primary, e.Secondary, e.Keywords, now,
		); err != nil {
			return 0, fmt.Errorf("insert title: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append tx: %w", err)
	}
	return inserted, nil
}

// ResetTitleUsage clears every used flag in the category and returns
// the number of rows reset.
func (s *Store) ResetTitleUsage(ctx context.Context, category string) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE title_entries SET used = 0, used_at = NULL WHERE category = ? AND used = 1`,
		category,
	)
	if err != nil {
		return 0, fmt.Errorf("reset title usage: %w", err)
	}
	return res.RowsAffected()
}

// CountUnusedTitles reports the remaining pool depth for a category.
func (s *Store) CountUnusedTitles(ctx context.Context, category string) (int, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM title_entries WHERE category = ? AND used = 0`,
		category,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unused titles: %w", err)
	}
	return count, nil
}
