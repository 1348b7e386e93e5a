package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const timeFormat = time.RFC3339Nano

// SQLiteCatalog implements Catalog over the shared pipeline database.
type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLiteCatalog wraps an open database handle. The tracks,
// collections and collection_tracks tables come from the store schema.
func NewSQLiteCatalog(db *sql.DB) *SQLiteCatalog {
	return &SQLiteCatalog{db: db}
}

func scanEntry(row interface{ Scan(...interface{}) error }) (*Entry, error) {
	var (
		e         Entry
		createdAt string
		updatedAt string
	)
	err := row.Scan(&e.ID, &e.Title, &e.AudioURL, &e.CoverURL, &e.Category, &e.Mood, &e.Tags, &e.Duration, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if e.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if e.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &e, nil
}

const entryColumns = `id, title, audio_url, cover_url, category, mood, tags, duration, created_at, updated_at`

// FindByAssetFingerprint returns the first entry whose stored audio URL
// contains the fingerprint substring, nil when none matches.
func (c *SQLiteCatalog) FindByAssetFingerprint(ctx context.Context, fingerprint string) (*Entry, error) {
	if fingerprint == "" {
		return nil, nil
	}
	row := c.db.QueryRowContext(
		ctx,
		`SELECT `+entryColumns+` FROM tracks WHERE instr(audio_url, ?) > 0 ORDER BY created_at LIMIT 1`,
		fingerprint,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by fingerprint: %w", err)
	}
	return entry, nil
}

// Create inserts a new catalog entry and returns it with id and
// timestamps filled in.
func (c *SQLiteCatalog) Create(ctx context.Context, entry *Entry) (*Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	_, err := c.db.ExecContext(
		ctx,
		`INSERT INTO tracks (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Title, entry.AudioURL, entry.CoverURL, entry.Category,
		entry.Mood, entry.Tags, entry.Duration,
		now.Format(timeFormat), now.Format(timeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("insert track: %w", err)
	}
	return entry, nil
}

// Update applies a metadata-only patch to an existing entry.
func (c *SQLiteCatalog) Update(ctx context.Context, id string, patch *EntryPatch) (*Entry, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM tracks WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("track %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}

	if patch.Title != nil {
		entry.Title = *patch.Title
	}
	if patch.CoverURL != nil {
		entry.CoverURL = *patch.CoverURL
	}
	if patch.Category != nil {
		entry.Category = *patch.Category
	}
	if patch.Mood != nil {
		entry.Mood = *patch.Mood
	}
	if patch.Tags != nil {
		entry.Tags = *patch.Tags
	}
	entry.UpdatedAt = time.Now().UTC()

	_, err = c.db.ExecContext(
		ctx,
		`UPDATE tracks SET title = ?, cover_url = ?, category = ?, mood = ?, tags = ?, updated_at = ? WHERE id = ?`,
		entry.Title, entry.CoverURL, entry.Category, entry.Mood, entry.Tags,
		entry.UpdatedAt.Format(timeFormat), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update track: %w", err)
	}
	return entry, nil
}

// IsCollectionMember reports whether the entry is already in the
// collection.
func (c *SQLiteCatalog) IsCollectionMember(ctx context.Context, collectionID, entryID string) (bool, error) {
	var count int
	err := c.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM collection_tracks WHERE collection_id = ? AND track_id = ?`,
		collectionID, entryID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return count > 0, nil
}

// MaxPosition returns the highest position in a collection, 0 when the
// collection is empty.
func (c *SQLiteCatalog) MaxPosition(ctx context.Context, collectionID string) (int, error) {
	var pos sql.NullInt64
	err := c.db.QueryRowContext(
		ctx,
		`SELECT MAX(position) FROM collection_tracks WHERE collection_id = ?`,
		collectionID,
	).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("max position: %w", err)
	}
	if !pos.Valid {
		return 0, nil
	}
	return int(pos.Int64), nil
}

// AppendToCollection adds a membership row at the given position.
func (c *SQLiteCatalog) AppendToCollection(ctx context.Context, collectionID, entryID string, position int) error {
	_, err := c.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO collection_tracks (collection_id, track_id, position) VALUES (?, ?, ?)`,
		collectionID, entryID, position,
	)
	if err != nil {
		return fmt.Errorf("append to collection: %w", err)
	}
	return nil
}

// CollectionName returns the display name for a collection id, the id
// itself when the collection row is missing.
func (c *SQLiteCatalog) CollectionName(ctx context.Context, collectionID string) (string, error) {
	var name string
	err := c.db.QueryRowContext(ctx, `SELECT name FROM collections WHERE id = ?`, collectionID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return collectionID, nil
	}
	if err != nil {
		return "", fmt.Errorf("collection name: %w", err)
	}
	return name, nil
}

// PutCollection upserts a collection row. Used by seeding and tests.
func (c *SQLiteCatalog) PutCollection(ctx context.Context, id, name string) error {
	_, err := c.db.ExecContext(
		ctx,
		`INSERT INTO collections (id, name) VALUES (?, ?)
         ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		id, name,
	)
	if err != nil {
		return fmt.Errorf("put collection: %w", err)
	}
	return nil
}
