package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lorrc/identity-sync-backend/internal/core/domain"
	apperrors "github.com/lorrc/identity-sync-backend/internal/core/errors"
)

func TestAccountCreatedEvent_Validate(t *testing.T) {
	t.Run("valid minimal event", func(t *testing.T) {
		e := domain.AccountCreatedEvent{UID: "uid-1"}
		assert.NoError(t, e.Validate())
	})

	t.Run("valid full event", func(t *testing.T) {
		e := domain.AccountCreatedEvent{
			UID:         "uid-1",
			Email:       "user@example.com",
			DisplayName: "User One",
			PhotoURL:    "https://cdn.example.com/u1.png",
		}
		assert.NoError(t, e.Validate())
	})

	t.Run("missing uid", func(t *testing.T) {
		e := domain.AccountCreatedEvent{Email: "user@example.com"}
		assert.ErrorIs(t, e.Validate(), apperrors.ErrUIDRequired)
	})

	t.Run("uid at boundary", func(t *testing.T) {
		e := domain.AccountCreatedEvent{UID: strings.Repeat("a", domain.MaxExternalUIDLength)}
		assert.NoError(t, e.Validate())
	})

	t.Run("uid too long", func(t *testing.T) {
		e := domain.AccountCreatedEvent{UID: strings.Repeat("a", domain.MaxExternalUIDLength+1)}
		assert.ErrorIs(t, e.Validate(), apperrors.ErrUIDTooLong)
	})

	t.Run("email too long", func(t *testing.T) {
		e := domain.AccountCreatedEvent{
			UID:   "uid-1",
			Email: strings.Repeat("a", domain.MaxEmailLength-11) + "@example.com",
		}
		assert.ErrorIs(t, e.Validate(), apperrors.ErrEmailTooLong)
	})

	t.Run("display name at byte boundary with multibyte runes", func(t *testing.T) {
		// 85 three-byte runes = 255 bytes, exactly at the limit.
		name := strings.Repeat("日", 85)
		e := domain.AccountCreatedEvent{UID: "uid-1", DisplayName: name}
		assert.NoError(t, e.Validate())

		// One more rune crosses the byte limit even though the rune
		// count stays modest.
		e.DisplayName = name + "日"
		assert.ErrorIs(t, e.Validate(), apperrors.ErrDisplayNameTooLong)
	})
}

func TestAccountDeletedEvent_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		e := domain.AccountDeletedEvent{UID: "uid-1", Email: "user@example.com"}
		assert.NoError(t, e.Validate())
	})

	t.Run("email is optional", func(t *testing.T) {
		e := domain.AccountDeletedEvent{UID: "uid-1"}
		assert.NoError(t, e.Validate())
	})

	t.Run("missing uid", func(t *testing.T) {
		e := domain.AccountDeletedEvent{}
		assert.ErrorIs(t, e.Validate(), apperrors.ErrUIDRequired)
	})

	t.Run("uid too long", func(t *testing.T) {
		e := domain.AccountDeletedEvent{UID: strings.Repeat("x", domain.MaxExternalUIDLength+1)}
		assert.ErrorIs(t, e.Validate(), apperrors.ErrUIDTooLong)
	})
}
