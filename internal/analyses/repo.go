package analyses

import (
	"context"
	"time"
)

// Repo defines persistence operations for analysis records.
type Repo interface {
	Insert(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int, error)
	// List returns up to limit records matching the pushed-down filters of
	// q, positioned after the cursor. Search is not applied.
	List(ctx context.Context, q ListQuery, after *Cursor, limit int) ([]Record, error)
	// ListBySource returns the owner's records for a normalized URL, newest first.
	ListBySource(ctx context.Context, ownerID, normalizedURL string, limit int) ([]Record, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	// OldestByOwner returns the owner's n oldest records, oldest first.
	OldestByOwner(ctx context.Context, ownerID string, n int) ([]Record, error)
	GetByShareToken(ctx context.Context, token string) (Record, error)
	// UpdateShare sets the sharing fields; a nil token clears all three.
	UpdateShare(ctx context.Context, id string, token *string, expiresAt *time.Time) error
	// ReassignOwner moves every record of fromOwnerID to toOwnerID.
	ReassignOwner(ctx context.Context, fromOwnerID, toOwnerID string) (int, error)
}
