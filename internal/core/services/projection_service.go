package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lorrc/identity-sync-backend/internal/core/domain"
	apperrors "github.com/lorrc/identity-sync-backend/internal/core/errors"
	"github.com/lorrc/identity-sync-backend/internal/core/ports"
	"github.com/lorrc/identity-sync-backend/internal/metrics"
)

// ProjectionQueryService is the policy-gated read/update surface over the
// projection store. A read denial is indistinguishable from an absent row,
// so callers can never learn whether another subject's row exists.
type ProjectionQueryService struct {
	repo     ports.ProjectionRepository
	policy   ports.AccessPolicy
	recorder metrics.Recorder
	logger   *slog.Logger
}

var _ ports.ProjectionService = (*ProjectionQueryService)(nil)

// NewProjectionQueryService creates the query service.
func NewProjectionQueryService(
	repo ports.ProjectionRepository,
	policy ports.AccessPolicy,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *ProjectionQueryService {
	return &ProjectionQueryService{
		repo:     repo,
		policy:   policy,
		recorder: recorder,
		logger:   logger.With("component", "projection_query"),
	}
}

// GetSelf returns the principal's own row.
func (s *ProjectionQueryService) GetSelf(ctx context.Context, p domain.Principal) (*domain.UserProjection, error) {
	if !p.IsVerified() {
		s.recorder.IncPolicyDenied("read")
		return nil, apperrors.ErrUnauthorized
	}
	return s.Get(ctx, p, ports.GetParams{ExternalUID: p.Subject()})
}

// Get returns the row keyed by ExternalUID if the principal's claim allows
// reading it. Denial surfaces as not-found.
func (s *ProjectionQueryService) Get(ctx context.Context, p domain.Principal, params ports.GetParams) (*domain.UserProjection, error) {
	row, err := s.repo.GetByUID(ctx, params.ExternalUID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanRead(p, row) {
		s.recorder.IncPolicyDenied("read")
		// Denied reads look exactly like missing rows.
		return nil, apperrors.ErrProjectionNotFound
	}
	return row, nil
}

// UpdateSelf applies a profile update to the principal's own row. The
// self-update rule is checked on both the existing row and the proposed new
// row before anything is written.
func (s *ProjectionQueryService) UpdateSelf(ctx context.Context, p domain.Principal, update domain.ProfileUpdate) (*domain.UserProjection, error) {
	if !p.IsVerified() {
		s.recorder.IncPolicyDenied("update")
		return nil, apperrors.ErrUnauthorized
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByUID(ctx, p.Subject())
	if err != nil {
		return nil, err
	}

	proposed := update.Apply(*existing)
	if !s.policy.CanUpdate(p, existing, proposed) {
		s.recorder.IncPolicyDenied("update")
		return nil, apperrors.ErrForbidden
	}

	updated, err := s.repo.Upsert(ctx, proposed)
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", "uid", p.Subject())
	return updated, nil
}

// List returns a page of projection rows. Only the privileged service
// principal may list; everyone else gets at most their own row.
func (s *ProjectionQueryService) List(ctx context.Context, p domain.Principal, params ports.ListParams) ([]*domain.UserProjection, error) {
	if p.IsService() {
		return s.repo.List(ctx, params.Limit, params.Offset)
	}

	if !p.IsVerified() {
		s.recorder.IncPolicyDenied("read")
		return nil, apperrors.ErrUnauthorized
	}

	row, err := s.repo.GetByUID(ctx, p.Subject())
	if err != nil {
		if errors.Is(err, apperrors.ErrProjectionNotFound) {
			return []*domain.UserProjection{}, nil
		}
		return nil, err
	}
	if !s.policy.CanRead(p, row) {
		s.recorder.IncPolicyDenied("read")
		return []*domain.UserProjection{}, nil
	}
	return []*domain.UserProjection{row}, nil
}
