package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tunegrid/api/internal/model"
)

// Read-only lookup tables consumed by the pipeline. Absence of a row is
// valid everywhere: callers skip silently.

// GetPromptTemplate fetches a prompt template by id, nil if absent.
func (s *Store) GetPromptTemplate(ctx context.Context, id string) (*model.PromptTemplate, error) {
	var t model.PromptTemplate
	err := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, template FROM prompt_templates WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.Name, &t.Template)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get prompt template: %w", err)
	}
	return &t, nil
}

// GetStylePreset returns the preset prompt text for a style/mood pair,
// empty string if none exists.
func (s *Store) GetStylePreset(ctx context.Context, style, mood string) (string, error) {
	var prompt string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT prompt FROM style_presets WHERE style = ? AND mood = ?`,
		style, mood,
	).Scan(&prompt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get style preset: %w", err)
	}
	return prompt, nil
}

// CollectionsForStyleMood returns the target collection ids mapped to a
// style/mood pair. An empty slice means no mapping, which is valid.
func (s *Store) CollectionsForStyleMood(ctx context.Context, style, mood string) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT collection_id FROM collection_mappings WHERE style = ? AND mood = ? ORDER BY collection_id`,
		style, mood,
	)
	if err != nil {
		return nil, fmt.Errorf("query collection mappings: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PutPromptTemplate upserts a template row. Used by seeding and tests.
func (s *Store) PutPromptTemplate(ctx context.Context, t *model.PromptTemplate) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO prompt_templates (id, name, template) VALUES (?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET name = excluded.name, template = excluded.template`,
		t.ID, t.Name, t.Template,
	)
	if err != nil {
		return fmt.Errorf("put prompt template: %w", err)
	}
	return nil
}

// PutStylePreset upserts a style/mood preset row.
func (s *Store) PutStylePreset(ctx context.Context, style, mood, prompt string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO style_presets (style, mood, prompt) VALUES (?, ?, ?)
         ON CONFLICT(style, mood) DO UPDATE SET prompt = excluded.prompt`,
		style, mood, prompt,
	)
	if err != nil {
		return fmt.Errorf("put style preset: %w", err)
	}
	return nil
}

// PutCollectionMapping adds one style/mood -> collection mapping row.
func (s *Store) PutCollectionMapping(ctx context.Context, style, mood, collectionID string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO collection_mappings (style, mood, collection_id) VALUES (?, ?, ?)`,
		style, mood, collectionID,
	)
	if err != nil {
		return fmt.Errorf("put collection mapping: %w", err)
	}
	return nil
}
