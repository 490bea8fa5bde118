package domain

import (
	"time"

	apperrors "github.com/lorrc/identity-sync-backend/internal/core/errors"
)

// UserProjection is one row of the relational projection of the identity
// provider's account store. ExternalUID is immutable and is the only sync
// key; Email is globally unique and never null (empty string when the
// provider reports no email).
type UserProjection struct {
	ExternalUID string    `json:"externalUid"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"displayName,omitempty"`
	AvatarURL   *string   `json:"avatarUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProjectionFromEvent maps an account-created event onto the row the
// synchronizer upserts. Mapping is exact: a missing email becomes the empty
// string, missing optional fields become null. The event must already have
// passed Validate.
func ProjectionFromEvent(e AccountCreatedEvent) *UserProjection {
	p := &UserProjection{
		ExternalUID: e.UID,
		Email:       e.Email,
	}
	if e.DisplayName != "" {
		name := e.DisplayName
		p.DisplayName = &name
	}
	if e.PhotoURL != "" {
		url := e.PhotoURL
		p.AvatarURL = &url
	}
	return p
}

// ProfileUpdate carries the fields a subject may change on its own row.
// Nil means "leave unchanged"; a pointer to the empty string clears the field.
type ProfileUpdate struct {
	DisplayName *string
	AvatarURL   *string
}

// Apply returns a copy of the row with the update applied. The identity
// columns (external_uid, email) and timestamps are never touched here.
func (u ProfileUpdate) Apply(row UserProjection) *UserProjection {
	next := row
	if u.DisplayName != nil {
		if *u.DisplayName == "" {
			next.DisplayName = nil
		} else {
			name := *u.DisplayName
			next.DisplayName = &name
		}
	}
	if u.AvatarURL != nil {
		if *u.AvatarURL == "" {
			next.AvatarURL = nil
		} else {
			url := *u.AvatarURL
			next.AvatarURL = &url
		}
	}
	return &next
}

// Validate checks the update against the projection's field bounds.
func (u ProfileUpdate) Validate() error {
	if u.DisplayName != nil && len(*u.DisplayName) > MaxDisplayNameLength {
		return apperrors.ErrDisplayNameTooLong
	}
	return nil
}
