package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lorrc/identity-sync-backend/internal/core/domain"
	"github.com/lorrc/identity-sync-backend/internal/core/ports"
)

// MockProjectionRepository is a mock implementation of ports.ProjectionRepository
type MockProjectionRepository struct {
	mock.Mock
}

func NewMockProjectionRepository() *MockProjectionRepository {
	return &MockProjectionRepository{}
}

func (m *MockProjectionRepository) Upsert(ctx context.Context, p *domain.UserProjection) (*domain.UserProjection, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProjection), args.Error(1)
}

func (m *MockProjectionRepository) Delete(ctx context.Context, externalUID string) (int64, error) {
	args := m.Called(ctx, externalUID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProjectionRepository) GetByUID(ctx context.Context, externalUID string) (*domain.UserProjection, error) {
	args := m.Called(ctx, externalUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProjection), args.Error(1)
}

func (m *MockProjectionRepository) GetByEmail(ctx context.Context, email string) (*domain.UserProjection, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProjection), args.Error(1)
}

func (m *MockProjectionRepository) List(ctx context.Context, limit, offset int32) ([]*domain.UserProjection, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.UserProjection), args.Error(1)
}

// MockEventMarker is a mock implementation of ports.EventMarker
type MockEventMarker struct {
	mock.Mock
}

func NewMockEventMarker() *MockEventMarker {
	return &MockEventMarker{}
}

func (m *MockEventMarker) Seen(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEventMarker) Mark(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

// MockClaimVerifier is a mock implementation of ports.ClaimVerifier
type MockClaimVerifier struct {
	mock.Mock
}

func NewMockClaimVerifier() *MockClaimVerifier {
	return &MockClaimVerifier{}
}

func (m *MockClaimVerifier) Verify(ctx context.Context, token string) (*domain.IdentityClaim, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdentityClaim), args.Error(1)
}

// MockSynchronizer is a mock implementation of ports.Synchronizer
type MockSynchronizer struct {
	mock.Mock
}

func NewMockSynchronizer() *MockSynchronizer {
	return &MockSynchronizer{}
}

func (m *MockSynchronizer) Sync(ctx context.Context, event domain.AccountCreatedEvent, eventID string) domain.Outcome {
	args := m.Called(ctx, event, eventID)
	return args.Get(0).(domain.Outcome)
}

// MockDeleter is a mock implementation of ports.Deleter
type MockDeleter struct {
	mock.Mock
}

func NewMockDeleter() *MockDeleter {
	return &MockDeleter{}
}

func (m *MockDeleter) Delete(ctx context.Context, event domain.AccountDeletedEvent, eventID string) domain.Outcome {
	args := m.Called(ctx, event, eventID)
	return args.Get(0).(domain.Outcome)
}

// MockProjectionService is a mock implementation of ports.ProjectionService
type MockProjectionService struct {
	mock.Mock
}

func NewMockProjectionService() *MockProjectionService {
	return &MockProjectionService{}
}

func (m *MockProjectionService) GetSelf(ctx context.Context, p domain.Principal) (*domain.UserProjection, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProjection), args.Error(1)
}

func (m *MockProjectionService) Get(ctx context.Context, p domain.Principal, params ports.GetParams) (*domain.UserProjection, error) {
	args := m.Called(ctx, p, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProjection), args.Error(1)
}

func (m *MockProjectionService) UpdateSelf(ctx context.Context, p domain.Principal, update domain.ProfileUpdate) (*domain.UserProjection, error) {
	args := m.Called(ctx, p, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProjection), args.Error(1)
}

func (m *MockProjectionService) List(ctx context.Context, p domain.Principal, params ports.ListParams) ([]*domain.UserProjection, error) {
	args := m.Called(ctx, p, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.UserProjection), args.Error(1)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.ProjectionEvent) error {
	args := m.Called(event)
	return args.Error(0)
}
