// Package catalog wraps the track catalog the deploy reconciler writes
// into. The reconciler depends only on the Catalog interface; the rest
// of the catalog (its admin CRUD, browsing queries) belongs to another
// part of the product.
package catalog

import (
	"context"
	"time"
)

// Entry is the canonical catalog record for one track. The reconciler
// keys entries by a content fingerprint embedded in AudioURL, not by
// title: the same generation may be re-deployed with edited metadata.
type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	AudioURL  string    `json:"audioUrl"`
	CoverURL  string    `json:"coverUrl,omitempty"`
	Category  string    `json:"category,omitempty"`
	Mood      string    `json:"mood,omitempty"`
	Tags      string    `json:"tags,omitempty"`
	Duration  int       `json:"duration"` // seconds
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EntryPatch carries the mutable metadata for the update path. Nil
// fields are left unchanged; duration and audio URL are immutable on
// update.
type EntryPatch struct {
	Title    *string
	CoverURL *string
	Category *string
	Mood     *string
	Tags     *string
}

// Catalog is the external collaborator contract the reconciler and
// auto-playlist assignment consume.
type Catalog interface {
	FindByAssetFingerprint(ctx context.Context, fingerprint string) (*Entry, error)
	Create(ctx context.Context, entry *Entry) (*Entry, error)
	Update(ctx context.Context, id string, patch *EntryPatch) (*Entry, error)
	IsCollectionMember(ctx context.Context, collectionID, entryID string) (bool, error)
	MaxPosition(ctx context.Context, collectionID string) (int, error)
	AppendToCollection(ctx context.Context, collectionID, entryID string, position int) error
	CollectionName(ctx context.Context, collectionID string) (string, error)
}
