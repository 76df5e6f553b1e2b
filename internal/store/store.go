package store

import (
	"context"
	"time"
)

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Drafts
	CreateDraft(ctx context.Context, d *Draft) error
	GetDraft(ctx context.Context, id string) (*Draft, error)
	UpdateDraft(ctx context.Context, id string, update DraftUpdate) (*Draft, error)
	ListDrafts(ctx context.Context, filter DraftFilter) ([]*Draft, error)
	DeleteDraft(ctx context.Context, id string) error
	PruneDrafts(ctx context.Context, olderThan time.Time) (int64, error)

	// Revisions (append-only)
	ListRevisions(ctx context.Context, draftID string) ([]*Revision, error)
	GetRevision(ctx context.Context, draftID string, sequence int64) (*Revision, error)
	RestoreRevision(ctx context.Context, draftID string, sequence int64) (*Draft, error)

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
