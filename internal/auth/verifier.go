package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lorrc/identity-sync-backend/internal/core/domain"
	apperrors "github.com/lorrc/identity-sync-backend/internal/core/errors"
	"github.com/lorrc/identity-sync-backend/internal/core/ports"
)

// KeySet maps a key ID to the identity provider's RSA public key for that
// ID. Providers rotate keys, so tokens carry the key ID in the "kid" header.
type KeySet map[string]*rsa.PublicKey

// ParseKeySet builds a KeySet from PEM-encoded public keys keyed by kid.
func ParseKeySet(pems map[string]string) (KeySet, error) {
	if len(pems) == 0 {
		return nil, errors.New("key set is empty")
	}

	keys := make(KeySet, len(pems))
	for kid, pemData := range pems {
		block, _ := pem.Decode([]byte(pemData))
		if block == nil {
			return nil, fmt.Errorf("key %q: no PEM block found", kid)
		}

		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", kid, err)
		}

		rsaKey, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("key %q: not an RSA public key", kid)
		}
		keys[kid] = rsaKey
	}
	return keys, nil
}

// LoadKeySetFile reads a JSON file of the form {"kid": "-----BEGIN PUBLIC KEY-----..."}.
func LoadKeySetFile(path string) (KeySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key set file: %w", err)
	}

	var pems map[string]string
	if err := json.Unmarshal(data, &pems); err != nil {
		return nil, fmt.Errorf("parse key set file: %w", err)
	}
	return ParseKeySet(pems)
}

// ClaimVerifier validates identity tokens issued by the external identity
// provider: RS256 signature against the key set, issuer, audience and
// expiry. Any failure yields no claim.
type ClaimVerifier struct {
	keys     KeySet
	issuer   string
	audience string
}

var _ ports.ClaimVerifier = (*ClaimVerifier)(nil)

// NewClaimVerifier creates a verifier for the given key set, issuer string
// and application audience.
func NewClaimVerifier(keys KeySet, issuer, audience string) *ClaimVerifier {
	return &ClaimVerifier{
		keys:     keys,
		issuer:   issuer,
		audience: audience,
	}
}

// Verify parses and validates the token string. On success it returns the
// identity claim; on any failure it returns an error wrapping
// apperrors.ErrClaimRejected and no claim.
func (v *ClaimVerifier) Verify(_ context.Context, tokenString string) (*domain.IdentityClaim, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrClaimRejected, err)
	}
	if !token.Valid {
		return nil, apperrors.ErrClaimRejected
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", apperrors.ErrClaimRejected)
	}

	claim := &domain.IdentityClaim{
		Subject:   claims.Subject,
		Issuer:    claims.Issuer,
		Audience:  v.audience,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		claim.IssuedAt = claims.IssuedAt.Time
	}
	return claim, nil
}

// keyFunc selects the public key named by the token's kid header.
func (v *ClaimVerifier) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, errors.New("unexpected signing method")
	}

	kid, ok := token.Header["kid"].(string)
	if !ok || kid == "" {
		return nil, errors.New("token has no key id")
	}

	key, ok := v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return key, nil
}
