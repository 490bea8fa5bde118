package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/identity-sync-backend/internal/core/domain"
	apperrors "github.com/lorrc/identity-sync-backend/internal/core/errors"
)

func newTestRow() *domain.UserProjection {
	uid := "uid-" + uuid.NewString()
	name := "Test User"
	return &domain.UserProjection{
		ExternalUID: uid,
		Email:       uid + "@example.com",
		DisplayName: &name,
	}
}

func TestProjectionRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectionRepository(testPool)

	t.Run("insert returns the stored row with timestamps", func(t *testing.T) {
		row := newTestRow()

		stored, err := repo.Upsert(ctx, row)

		require.NoError(t, err)
		assert.Equal(t, row.ExternalUID, stored.ExternalUID)
		assert.Equal(t, row.Email, stored.Email)
		require.NotNil(t, stored.DisplayName)
		assert.Equal(t, "Test User", *stored.DisplayName)
		assert.False(t, stored.CreatedAt.IsZero())
		assert.False(t, stored.UpdatedAt.IsZero())
	})

	t.Run("re-running the same event is idempotent", func(t *testing.T) {
		row := newTestRow()

		first, err := repo.Upsert(ctx, row)
		require.NoError(t, err)

		second, err := repo.Upsert(ctx, row)
		require.NoError(t, err)

		assert.Equal(t, first.ExternalUID, second.ExternalUID)
		assert.Equal(t, first.Email, second.Email)
		assert.Equal(t, first.DisplayName, second.DisplayName)
		// created_at never moves; only updated_at may advance.
		assert.True(t, second.CreatedAt.Equal(first.CreatedAt))
		assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
	})

	t.Run("conflict on uid overwrites the mutable columns", func(t *testing.T) {
		row := newTestRow()
		_, err := repo.Upsert(ctx, row)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		newName := "Renamed"
		avatar := "https://cdn.example.com/new.png"
		updated := &domain.UserProjection{
			ExternalUID: row.ExternalUID,
			Email:       row.Email,
			DisplayName: &newName,
			AvatarURL:   &avatar,
		}

		stored, err := repo.Upsert(ctx, updated)

		require.NoError(t, err)
		require.NotNil(t, stored.DisplayName)
		assert.Equal(t, "Renamed", *stored.DisplayName)
		require.NotNil(t, stored.AvatarURL)
		assert.Equal(t, avatar, *stored.AvatarURL)
	})

	t.Run("trigger advances updated_at and pins created_at", func(t *testing.T) {
		row := newTestRow()
		first, err := repo.Upsert(ctx, row)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		name := "Changed"
		row.DisplayName = &name
		second, err := repo.Upsert(ctx, row)
		require.NoError(t, err)

		assert.True(t, second.UpdatedAt.After(first.UpdatedAt),
			"updated_at must advance on mutation")
		assert.True(t, second.CreatedAt.Equal(first.CreatedAt),
			"created_at must never change")
	})

	t.Run("empty email is stored as empty string", func(t *testing.T) {
		uid := "uid-" + uuid.NewString()
		stored, err := repo.Upsert(ctx, &domain.UserProjection{ExternalUID: uid})

		require.NoError(t, err)
		assert.Equal(t, "", stored.Email)

		// Only one row may hold the empty email; a second one trips the
		// uniqueness constraint like any other duplicate.
		_, err = repo.Upsert(ctx, &domain.UserProjection{ExternalUID: "uid-" + uuid.NewString()})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrEmailTaken)

		// Clean up so other runs of this test can insert the empty email.
		_, err = repo.Delete(ctx, uid)
		require.NoError(t, err)
	})

	t.Run("email owned by another row is a classified conflict", func(t *testing.T) {
		a := newTestRow()
		_, err := repo.Upsert(ctx, a)
		require.NoError(t, err)

		b := newTestRow()
		b.Email = a.Email

		_, err = repo.Upsert(ctx, b)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrEmailTaken)
		// The conflict is retryable; the synchronizer's bounded loop
		// decides when to give up.
		assert.True(t, apperrors.IsTransient(err))
	})
}

func TestProjectionRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectionRepository(testPool)

	t.Run("removes the row", func(t *testing.T) {
		row := newTestRow()
		_, err := repo.Upsert(ctx, row)
		require.NoError(t, err)

		affected, err := repo.Delete(ctx, row.ExternalUID)

		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)

		_, err = repo.GetByUID(ctx, row.ExternalUID)
		assert.ErrorIs(t, err, apperrors.ErrProjectionNotFound)
	})

	t.Run("deleting an absent row affects zero rows without error", func(t *testing.T) {
		affected, err := repo.Delete(ctx, "uid-"+uuid.NewString())

		require.NoError(t, err)
		assert.Equal(t, int64(0), affected)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		row := newTestRow()
		_, err := repo.Upsert(ctx, row)
		require.NoError(t, err)

		first, err := repo.Delete(ctx, row.ExternalUID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), first)

		second, err := repo.Delete(ctx, row.ExternalUID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), second)
	})
}

func TestProjectionRepository_Get(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectionRepository(testPool)

	t.Run("get by uid", func(t *testing.T) {
		row := newTestRow()
		_, err := repo.Upsert(ctx, row)
		require.NoError(t, err)

		got, err := repo.GetByUID(ctx, row.ExternalUID)

		require.NoError(t, err)
		assert.Equal(t, row.Email, got.Email)
	})

	t.Run("get by email", func(t *testing.T) {
		row := newTestRow()
		_, err := repo.Upsert(ctx, row)
		require.NoError(t, err)

		got, err := repo.GetByEmail(ctx, row.Email)

		require.NoError(t, err)
		assert.Equal(t, row.ExternalUID, got.ExternalUID)
	})

	t.Run("absent uid is not found", func(t *testing.T) {
		_, err := repo.GetByUID(ctx, "uid-"+uuid.NewString())
		assert.ErrorIs(t, err, apperrors.ErrProjectionNotFound)
	})

	t.Run("absent email is not found", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, uuid.NewString()+"@nowhere.example")
		assert.ErrorIs(t, err, apperrors.ErrProjectionNotFound)
	})
}

func TestProjectionRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectionRepository(testPool)

	a := newTestRow()
	_, err := repo.Upsert(ctx, a)
	require.NoError(t, err)
	b := newTestRow()
	_, err = repo.Upsert(ctx, b)
	require.NoError(t, err)

	rows, err := repo.List(ctx, 1000, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)

	// Creation order is stable.
	for i := 1; i < len(rows); i++ {
		assert.False(t, rows[i].CreatedAt.Before(rows[i-1].CreatedAt))
	}

	// Pagination returns disjoint pages.
	page1, err := repo.List(ctx, 1, 0)
	require.NoError(t, err)
	page2, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page1, 1)
	require.Len(t, page2, 1)
	assert.NotEqual(t, page1[0].ExternalUID, page2[0].ExternalUID)
}
