package domain

import "time"

// IdentityClaim is the subject extracted from a cryptographically validated
// token. It exists only for tokens whose signature, issuer, audience and
// expiry all verified; there is no partial-trust shape.
type IdentityClaim struct {
	Subject   string
	Issuer    string
	Audience  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// PrincipalState is the per-request authentication state machine:
// Anonymous -> (claim presented) -> Verified | Rejected. A rejected claim
// can only retry by presenting a new, valid claim; there is no escalation.
type PrincipalState int

const (
	// StateAnonymous: no claim was presented.
	StateAnonymous PrincipalState = iota
	// StateRejected: a claim was presented and failed verification.
	StateRejected
	// StateVerified: a claim was presented and verified.
	StateVerified
	// StateService: the request authenticated as the privileged service
	// principal and bypasses per-row policies.
	StateService
)

// Principal is the authenticated identity of a request as seen by the
// access-policy set. The zero value is the anonymous principal, so a
// request that skips authentication is denied by default.
type Principal struct {
	State PrincipalState
	Claim *IdentityClaim
}

// Anonymous returns the principal for a request that presented no claim.
func Anonymous() Principal {
	return Principal{State: StateAnonymous}
}

// Rejected returns the principal for a request whose claim failed
// verification.
func Rejected() Principal {
	return Principal{State: StateRejected}
}

// Verified returns the principal for a verified identity claim.
func Verified(claim IdentityClaim) Principal {
	return Principal{State: StateVerified, Claim: &claim}
}

// Service returns the privileged service principal.
func Service() Principal {
	return Principal{State: StateService}
}

// IsVerified reports whether the principal carries a verified claim.
func (p Principal) IsVerified() bool {
	return p.State == StateVerified && p.Claim != nil
}

// IsService reports whether the principal is the privileged service
// principal.
func (p Principal) IsService() bool {
	return p.State == StateService
}

// Subject returns the verified claim's subject, or the empty string for
// every other state. An empty subject matches no row.
func (p Principal) Subject() string {
	if !p.IsVerified() {
		return ""
	}
	return p.Claim.Subject
}
