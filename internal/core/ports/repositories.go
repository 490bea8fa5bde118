package ports

import (
	"context"

	"github.com/lorrc/identity-sync-backend/internal/core/domain"
)

// ProjectionRepository is the secondary port for the user projection table.
// Upsert and Delete must be atomic and idempotent at the store level; the
// synchronizer relies on that instead of external locking.
type ProjectionRepository interface {
	// Upsert inserts the row or, on external_uid conflict, overwrites the
	// mutable columns. Returns the row as persisted.
	Upsert(ctx context.Context, p *domain.UserProjection) (*domain.UserProjection, error)

	// Delete removes the row keyed by externalUID and returns the number of
	// rows affected. Zero is not an error.
	Delete(ctx context.Context, externalUID string) (int64, error)

	GetByUID(ctx context.Context, externalUID string) (*domain.UserProjection, error)
	GetByEmail(ctx context.Context, email string) (*domain.UserProjection, error)
	List(ctx context.Context, limit, offset int32) ([]*domain.UserProjection, error)
}

// EventMarker remembers lifecycle event IDs that were applied successfully,
// so redelivered events can be skipped without touching the store. It is an
// optimization only: the idempotent upsert remains the correctness
// mechanism, and marker failures must never fail a sync.
type EventMarker interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}
