package services_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/identity-sync-backend/internal/core/domain"
	apperrors "github.com/lorrc/identity-sync-backend/internal/core/errors"
	"github.com/lorrc/identity-sync-backend/internal/core/mocks"
	"github.com/lorrc/identity-sync-backend/internal/core/services"
	"github.com/lorrc/identity-sync-backend/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fastRetryConfig keeps the retry loop real but the waits negligible.
func fastRetryConfig() services.SyncConfig {
	return services.SyncConfig{
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
		SoftDeadline:   5 * time.Second,
	}
}

func TestSyncService_Sync(t *testing.T) {
	ctx := context.Background()

	event := domain.AccountCreatedEvent{
		UID:         "uid-1",
		Email:       "user@example.com",
		DisplayName: "User One",
	}

	t.Run("success on first attempt", func(t *testing.T) {
		mockRepo := mocks.NewMockProjectionRepository()
		svc := services.NewSyncService(mockRepo, nil, nil, metrics.NewNoop(), testLogger(), fastRetryConfig())

		mockRepo.On("Upsert", ctx, mock.AnythingOfType("*domain.UserProjection")).
			Return(&domain.UserProjection{ExternalUID: "uid-1", Email: "user@example.com"}, nil)

		outcome := svc.Sync(ctx, event, "evt-1")

		assert.True(t, outcome.Success)
		assert.Equal(t, 1, outcome.Attempts)
		assert.NoError(t, outcome.Err)
		mockRepo.AssertNumberOfCalls(t, "Upsert", 1)
	})

	t.Run("transient failure retries then succeeds", func(t *testing.T) {
		mockRepo := mocks.NewMockProjectionRepository()
		svc := services.NewSyncService(mockRepo, nil, nil, metrics.NewNoop(), testLogger(), fastRetryConfig())

		transient := apperrors.MarkTransient(assert.AnError)
		mockRepo.On("Upsert", ctx, mock.AnythingOfType("*domain.UserProjection")).
			Return(nil, transient).Twice()
		mockRepo.On("Upsert", ctx, mock.AnythingOfType("*domain.UserProjection")).
			Return(&domain.UserProjection{ExternalUID: "uid-1"}, nil).Once()

		outcome := svc.Sync(ctx, event, "evt-1")

		assert.True(t, outcome.Success)
		assert.Equal(t, 3, outcome.Attempts)
		mockRepo.AssertNumberOfCalls(t, "Upsert", 3)
	})

	t.Run("transient failure exhausts all attempts", func(t *testing.T) {
		mockRepo := mocks.NewMockProjectionRepository()
		svc := services.NewSyncService(mockRepo, nil, nil, metrics.NewNoop(), testLogger(), fastRetryConfig())

		transient := apperrors.MarkTransient(assert.AnError)
		mockRepo.On("Upsert", ctx, mock.AnythingOfType("*domain.UserProjection")).
			Return(nil, transient)

		outcome := svc.Sync(ctx, event, "evt-1")

		assert.False(t, outcome.Success)
		assert.Equal(t, 3, outcome.Attempts)
		assert.Error(t, outcome.Err)
		mockRepo.AssertNumberOfCalls(t, "Upsert", 3)
	})

	t.Run("permanent failure stops immediately", func(t *testing.T) {
		mockRepo := mocks.NewMockProjectionRepository()
		svc := services.NewSyncService(mockRepo, nil, nil, metrics.NewNoop(), testLogger(), fastRetryConfig())

		mockRepo.On("Upsert", ctx, mock.AnythingOfType("*domain.UserProjection")).
			Return(nil, apperrors.ErrStoreUnauthorized)

		outcome := svc.Sync(ctx, event, "evt-1")

		assert.False(t, outcome.Success)
		assert.Equal(t, 1, outcome.Attempts)
		assert.ErrorIs(t, outcome.Err, apperrors.ErrStoreUnauthorized)
		mockRepo.AssertNumberOfCalls(t, "Upsert", 1)
	})

	t.Run("email conflict is retried then surfaces", func(t *testing.T) {
		mockRepo := mocks.NewMockProjectionRepository()
		svc := services.NewSyncService(mockRepo, nil, nil, metrics.NewNoop(), testLogger(), fastRetryConfig())

		conflict := apperrors.MarkTransient(apperrors.ErrEmailTaken)
		mockRepo.On("Upsert", ctx, mock.AnythingOfType("*domain.UserProjection")).
			Return(nil, conflict)

		outcome := svc.Sync(ctx, event, "evt-1")

		assert.False(t, outcome.Success)
		assert.Equal(t, 3, outcome.Attempts)
		assert.ErrorIs(t, outcome.Err, apperrors.ErrEmailTaken)
	})

	t.Run("malformed event fails without touching the store", func(t *testing.T) {
		mockRepo := mocks.NewMockProjectionRepository()
		svc := services.NewSyncService(mockRepo, nil, nil, metrics.NewNoop(), testLogger(), fastRetryConfig())

		outcome := svc.Sync(ctx, domain.AccountCreatedEvent{}, "evt-1")

		assert.False(t, outcome.Success)
		assert.Equal(t, 0, outcome.Attempts)
		assert.ErrorIs(t, outcome.Err, apperrors.ErrUIDRequired)
		mockRepo.AssertNotCalled(t, "Upsert")
	})

	t.Run("oversized uid fails without touching the store", func(t *testing.T) {
		mockRepo := mocks.NewMockProjectionRepository()
		svc := services.NewSyncService(mockRepo, nil, nil, metrics.NewNoop(), testLogger(), fastRetryConfig())

		bad := domain.AccountCreatedEvent{UID: strings.Repeat("a", domain.MaxExternalUIDLength+1)}
		outcome := svc.Sync(ctx, bad, "evt-1")

		assert.False(t, outcome.Success)
		assert.ErrorIs(t, outcome.Err, apperrors.ErrUIDTooLong)
		mockRepo.AssertNotCalled(t, "Upsert")
	})

	t.Run("already-seen event skips the store", func(t *testing.T) {
		mockRepo := mocks.NewMockProjectionRepository()
		mockMarker := mocks.NewMockEventMarker()
		svc := services.NewSyncService(mockRepo, mockMarker, nil, metrics.NewNoop(), testLogger(), fastRetryConfig())

		mockMarker.On("Seen", ctx, "evt-1").Return(true, nil)

		outcome := svc.Sync(ctx, event, "evt-1")

		assert.True(t, outcome.Success)
		assert.Equal(t, 0, outcome.Attempts)
		mockRepo.AssertNotCalled(t, "Upsert")
		mockMarker.AssertExpectations(t)
	})

	t.Run("marker lookup failure does not block the sync", func(t *testing.T) {
		mockRepo := mocks.NewMockProjectionRepository()
		mockMarker := mocks.NewMockEventMarker()
		svc := services.NewSyncService(mockRepo, mockMarker, nil, metrics.NewNoop(), testLogger(), fastRetryConfig())

		mockMarker.On("Seen", ctx, "evt-1").Return(false, assert.AnError)
		mockMarker.On("Mark", ctx, "evt-1").Return(nil)
		mockRepo.On("Upsert", ctx, mock.AnythingOfType("*domain.UserProjection")).
			Return(&domain.UserProjection{ExternalUID: "uid-1"}, nil)

		outcome := svc.Sync(ctx, event, "evt-1")

		assert.True(t, outcome.Success)
		assert.Equal(t, 1, outcome.Attempts)
	})

	t.Run("marker write failure does not fail the outcome", func(t *testing.T) {
		mockRepo := mocks.NewMockProjectionRepository()
		mockMarker := mocks.NewMockEventMarker()
		svc := services.NewSyncService(mockRepo, mockMarker, nil, metrics.NewNoop(), testLogger(), fastRetryConfig())

		mockMarker.On("Seen", ctx, "evt-1").Return(false, nil)
		mockMarker.On("Mark", ctx, "evt-1").Return(assert.AnError)
		mockRepo.On("Upsert", ctx, mock.AnythingOfType("*domain.UserProjection")).
			Return(&domain.UserProjection{ExternalUID: "uid-1"}, nil)

		outcome := svc.Sync(ctx, event, "evt-1")

		assert.True(t, outcome.Success)
	})

	t.Run("empty event id skips the marker entirely", func(t *testing.T) {
		mockRepo := mocks.NewMockProjectionRepository()
		mockMarker := mocks.NewMockEventMarker()
		svc := services.NewSyncService(mockRepo, mockMarker, nil, metrics.NewNoop(), testLogger(), fastRetryConfig())

		mockRepo.On("Upsert", ctx, mock.AnythingOfType("*domain.UserProjection")).
			Return(&domain.UserProjection{ExternalUID: "uid-1"}, nil)

		outcome := svc.Sync(ctx, event, "")

		assert.True(t, outcome.Success)
		mockMarker.AssertNotCalled(t, "Seen")
		mockMarker.AssertNotCalled(t, "Mark")
	})

	t.Run("successful sync broadcasts the synced event", func(t *testing.T) {
		mockRepo := mocks.NewMockProjectionRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewSyncService(mockRepo, nil, mockBroadcaster, metrics.NewNoop(), testLogger(), fastRetryConfig())

		mockRepo.On("Upsert", ctx, mock.AnythingOfType("*domain.UserProjection")).
			Return(&domain.UserProjection{ExternalUID: "uid-1"}, nil)
		mockBroadcaster.On("Broadcast", mock.MatchedBy(func(e domain.ProjectionEvent) bool {
			return e.Type == domain.EventUserSynced && e.ExternalUID == "uid-1"
		})).Return(nil)

		outcome := svc.Sync(ctx, event, "evt-1")

		require.True(t, outcome.Success)
		mockBroadcaster.AssertExpectations(t)
	})

	t.Run("failed sync does not broadcast", func(t *testing.T) {
		mockRepo := mocks.NewMockProjectionRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewSyncService(mockRepo, nil, mockBroadcaster, metrics.NewNoop(), testLogger(), fastRetryConfig())

		mockRepo.On("Upsert", ctx, mock.AnythingOfType("*domain.UserProjection")).
			Return(nil, apperrors.ErrStoreUnauthorized)

		outcome := svc.Sync(ctx, event, "evt-1")

		assert.False(t, outcome.Success)
		mockBroadcaster.AssertNotCalled(t, "Broadcast")
	})

	t.Run("metrics record outcome status", func(t *testing.T) {
		mockRepo := mocks.NewMockProjectionRepository()
		recorder := metrics.NewInMemory()
		svc := services.NewSyncService(mockRepo, nil, nil, recorder, testLogger(), fastRetryConfig())

		mockRepo.On("Upsert", ctx, mock.AnythingOfType("*domain.UserProjection")).
			Return(&domain.UserProjection{ExternalUID: "uid-1"}, nil)

		_ = svc.Sync(ctx, event, "evt-1")

		snap := recorder.Snapshot()
		assert.Equal(t, int64(1), snap.SyncByStatus["success"])
		assert.Zero(t, snap.SyncByStatus["failure"])
	})
}
