package domain

import (
	apperrors "github.com/lorrc/identity-sync-backend/internal/core/errors"
)

// Field bounds for the user projection. Lengths are byte lengths, matching
// the column definitions.
const (
	MaxExternalUIDLength = 128
	MaxEmailLength       = 255
	MaxDisplayNameLength = 255
)

// AccountCreatedEvent is the lifecycle payload delivered when the identity
// provider creates (or re-reports) an account. Optional fields are absent
// when the provider has no value for them.
type AccountCreatedEvent struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// Validate checks the payload against the projection's field bounds.
// A payload that fails here is permanently malformed and must not be retried.
func (e AccountCreatedEvent) Validate() error {
	if e.UID == "" {
		return apperrors.ErrUIDRequired
	}
	if len(e.UID) > MaxExternalUIDLength {
		return apperrors.ErrUIDTooLong
	}
	if len(e.Email) > MaxEmailLength {
		return apperrors.ErrEmailTooLong
	}
	if len(e.DisplayName) > MaxDisplayNameLength {
		return apperrors.ErrDisplayNameTooLong
	}
	return nil
}

// AccountDeletedEvent is the lifecycle payload delivered when the identity
// provider deletes an account. Email is informational only; deletion is
// keyed on UID.
type AccountDeletedEvent struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
}

// Validate checks the payload before deletion is attempted.
func (e AccountDeletedEvent) Validate() error {
	if e.UID == "" {
		return apperrors.ErrUIDRequired
	}
	if len(e.UID) > MaxExternalUIDLength {
		return apperrors.ErrUIDTooLong
	}
	return nil
}

// ProjectionEventType defines the type of real-time projection event.
type ProjectionEventType string

const (
	EventUserSynced  ProjectionEventType = "USER_SYNCED"
	EventUserDeleted ProjectionEventType = "USER_DELETED"
)

// ProjectionEvent is the payload sent over WebSocket to privileged clients
// watching the projection change feed.
type ProjectionEvent struct {
	Type        ProjectionEventType `json:"type"`
	ExternalUID string              `json:"externalUid"`
	Payload     interface{}         `json:"payload,omitempty"`
}
