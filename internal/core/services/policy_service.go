package services

import (
	"github.com/lorrc/identity-sync-backend/internal/core/domain"
	"github.com/lorrc/identity-sync-backend/internal/core/ports"
)

// AccessPolicySet is the fixed rule set evaluated on every row access:
//
//	self-read    SELECT  claim.subject == row.external_uid
//	self-update  UPDATE  claim.subject == existing AND proposed external_uid
//	self-insert  INSERT  proposed external_uid == claim.subject
//	service      ALL     privileged principal bypasses the rules above
//
// Default deny: an anonymous or rejected principal matches no rule. The same
// predicates exist as row-security DDL in migrations/000002_row_security.up.sql
// for clients that talk to the store directly.
type AccessPolicySet struct{}

var _ ports.AccessPolicy = (*AccessPolicySet)(nil)

// NewAccessPolicySet creates the policy set. It is stateless; one instance
// serves all requests.
func NewAccessPolicySet() *AccessPolicySet {
	return &AccessPolicySet{}
}

// CanRead implements self-read plus the service bypass.
func (AccessPolicySet) CanRead(p domain.Principal, row *domain.UserProjection) bool {
	if row == nil {
		return false
	}
	if p.IsService() {
		return true
	}
	return p.IsVerified() && p.Subject() == row.ExternalUID
}

// CanInsert implements self-insert plus the service bypass.
func (AccessPolicySet) CanInsert(p domain.Principal, proposed *domain.UserProjection) bool {
	if proposed == nil {
		return false
	}
	if p.IsService() {
		return true
	}
	return p.IsVerified() && p.Subject() == proposed.ExternalUID
}

// CanUpdate implements self-update plus the service bypass. The subject must
// own both the existing row and the proposed new row, so ownership cannot be
// transferred by rewriting external_uid.
func (AccessPolicySet) CanUpdate(p domain.Principal, existing, proposed *domain.UserProjection) bool {
	if existing == nil || proposed == nil {
		return false
	}
	if p.IsService() {
		return true
	}
	return p.IsVerified() &&
		p.Subject() == existing.ExternalUID &&
		p.Subject() == proposed.ExternalUID
}
