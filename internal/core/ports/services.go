package ports

import (
	"context"

	"github.com/lorrc/identity-sync-backend/internal/core/domain"
)

// ClaimVerifier validates a presented identity token. Implementations must
// check signature, issuer, audience and expiry; on any failure they yield no
// claim. There is no partial-trust mode.
type ClaimVerifier interface {
	Verify(ctx context.Context, token string) (*domain.IdentityClaim, error)
}

// Synchronizer reacts to account-created events. It never returns a Go
// error: every outcome, including total failure, is captured in the
// returned Outcome so the identity provider's own account-creation flow is
// never blocked.
type Synchronizer interface {
	Sync(ctx context.Context, event domain.AccountCreatedEvent, eventID string) domain.Outcome
}

// Deleter reacts to account-deleted events with the same non-throwing
// discipline as Synchronizer. Deleting an absent row is a success.
type Deleter interface {
	Delete(ctx context.Context, event domain.AccountDeletedEvent, eventID string) domain.Outcome
}

// AccessPolicy is the fixed rule set evaluated on every row access,
// parameterized by the request's principal. Default deny: every method
// returns false unless a rule explicitly allows.
type AccessPolicy interface {
	CanRead(p domain.Principal, row *domain.UserProjection) bool
	CanInsert(p domain.Principal, proposed *domain.UserProjection) bool
	CanUpdate(p domain.Principal, existing, proposed *domain.UserProjection) bool
}

// GetParams identifies a single projection row to read.
type GetParams struct {
	ExternalUID string
}

// ListParams paginates the privileged list operation.
type ListParams struct {
	Limit  int32
	Offset int32
}

// ProjectionService is the policy-gated read/update surface over the
// projection store. Read denials surface as not-found so callers cannot
// distinguish "denied" from "absent"; write denials surface as forbidden.
type ProjectionService interface {
	GetSelf(ctx context.Context, p domain.Principal) (*domain.UserProjection, error)
	Get(ctx context.Context, p domain.Principal, params GetParams) (*domain.UserProjection, error)
	UpdateSelf(ctx context.Context, p domain.Principal, update domain.ProfileUpdate) (*domain.UserProjection, error)
	List(ctx context.Context, p domain.Principal, params ListParams) ([]*domain.UserProjection, error)
}

// EventBroadcaster pushes projection lifecycle events to connected
// privileged clients.
type EventBroadcaster interface {
	Broadcast(event domain.ProjectionEvent) error
}
