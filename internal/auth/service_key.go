package auth

import "golang.org/x/crypto/bcrypt"

// ServiceKeyVerifier authenticates the privileged service principal: the
// identity provider's webhook deliveries and the admin surface present a
// static key that is compared against a bcrypt hash from configuration. The
// plaintext key is never stored.
type ServiceKeyVerifier struct {
	hash []byte
}

// NewServiceKeyVerifier creates a verifier for the given bcrypt hash. An
// empty hash disables service-key authentication entirely.
func NewServiceKeyVerifier(bcryptHash string) *ServiceKeyVerifier {
	return &ServiceKeyVerifier{hash: []byte(bcryptHash)}
}

// Enabled reports whether a service key hash is configured.
func (v *ServiceKeyVerifier) Enabled() bool {
	return len(v.hash) > 0
}

// Verify reports whether the presented key matches the configured hash.
// When disabled it rejects everything: fail closed.
func (v *ServiceKeyVerifier) Verify(key string) bool {
	if !v.Enabled() || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(v.hash, []byte(key)) == nil
}
