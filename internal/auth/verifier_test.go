package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/identity-sync-backend/internal/auth"
	apperrors "github.com/lorrc/identity-sync-backend/internal/core/errors"
)

const (
	testIssuer   = "https://idp.example.com"
	testAudience = "identity-sync"
	testKid      = "key-2026-01"
)

type signer struct {
	key *rsa.PrivateKey
	kid string
}

func newSigner(t *testing.T, kid string) *signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &signer{key: key, kid: kid}
}

func (s *signer) publicPEM(t *testing.T) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&s.key.PublicKey)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func (s *signer) sign(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.kid
	signed, err := token.SignedString(s.key)
	require.NoError(t, err)
	return signed
}

func validClaims(subject string) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{testAudience},
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
}

func newVerifier(t *testing.T, s *signer) *auth.ClaimVerifier {
	t.Helper()
	keys, err := auth.ParseKeySet(map[string]string{s.kid: s.publicPEM(t)})
	require.NoError(t, err)
	return auth.NewClaimVerifier(keys, testIssuer, testAudience)
}

func TestClaimVerifier_Verify(t *testing.T) {
	ctx := context.Background()
	s := newSigner(t, testKid)
	verifier := newVerifier(t, s)

	t.Run("valid token yields the claim", func(t *testing.T) {
		token := s.sign(t, validClaims("uid-1"))

		claim, err := verifier.Verify(ctx, token)

		require.NoError(t, err)
		assert.Equal(t, "uid-1", claim.Subject)
		assert.Equal(t, testIssuer, claim.Issuer)
		assert.Equal(t, testAudience, claim.Audience)
		assert.WithinDuration(t, time.Now().Add(time.Hour), claim.ExpiresAt, time.Minute)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		claim, err := verifier.Verify(ctx, "not.a.token")
		assert.Nil(t, claim)
		assert.ErrorIs(t, err, apperrors.ErrClaimRejected)
	})

	t.Run("token signed by a foreign key is rejected", func(t *testing.T) {
		forged := newSigner(t, testKid)
		token := forged.sign(t, validClaims("uid-1"))

		claim, err := verifier.Verify(ctx, token)
		assert.Nil(t, claim)
		assert.ErrorIs(t, err, apperrors.ErrClaimRejected)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		claims := validClaims("uid-1")
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		token := s.sign(t, claims)

		_, err := verifier.Verify(ctx, token)
		assert.ErrorIs(t, err, apperrors.ErrClaimRejected)
	})

	t.Run("token without expiry is rejected", func(t *testing.T) {
		claims := validClaims("uid-1")
		claims.ExpiresAt = nil
		token := s.sign(t, claims)

		_, err := verifier.Verify(ctx, token)
		assert.ErrorIs(t, err, apperrors.ErrClaimRejected)
	})

	t.Run("wrong issuer is rejected", func(t *testing.T) {
		claims := validClaims("uid-1")
		claims.Issuer = "https://evil.example.com"
		token := s.sign(t, claims)

		_, err := verifier.Verify(ctx, token)
		assert.ErrorIs(t, err, apperrors.ErrClaimRejected)
	})

	t.Run("wrong audience is rejected", func(t *testing.T) {
		claims := validClaims("uid-1")
		claims.Audience = jwt.ClaimStrings{"some-other-app"}
		token := s.sign(t, claims)

		_, err := verifier.Verify(ctx, token)
		assert.ErrorIs(t, err, apperrors.ErrClaimRejected)
	})

	t.Run("missing subject is rejected", func(t *testing.T) {
		token := s.sign(t, validClaims(""))

		_, err := verifier.Verify(ctx, token)
		assert.ErrorIs(t, err, apperrors.ErrClaimRejected)
	})

	t.Run("unknown kid is rejected", func(t *testing.T) {
		other := newSigner(t, "unknown-kid")
		verifierForOther := newVerifier(t, s)
		token := other.sign(t, validClaims("uid-1"))

		_, err := verifierForOther.Verify(ctx, token)
		assert.ErrorIs(t, err, apperrors.ErrClaimRejected)
	})

	t.Run("missing kid header is rejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims("uid-1"))
		signed, err := token.SignedString(s.key)
		require.NoError(t, err)

		_, err = verifier.Verify(ctx, signed)
		assert.ErrorIs(t, err, apperrors.ErrClaimRejected)
	})

	t.Run("HS256 token is rejected even with a matching secret shape", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("uid-1"))
		token.Header["kid"] = testKid
		signed, err := token.SignedString([]byte("shared-secret"))
		require.NoError(t, err)

		_, err = verifier.Verify(ctx, signed)
		assert.ErrorIs(t, err, apperrors.ErrClaimRejected)
	})
}

func TestParseKeySet(t *testing.T) {
	t.Run("empty set is an error", func(t *testing.T) {
		_, err := auth.ParseKeySet(map[string]string{})
		assert.Error(t, err)
	})

	t.Run("non-PEM data is an error", func(t *testing.T) {
		_, err := auth.ParseKeySet(map[string]string{"kid": "garbage"})
		assert.Error(t, err)
	})

	t.Run("multiple keys parse", func(t *testing.T) {
		a := newSigner(t, "a")
		b := newSigner(t, "b")
		keys, err := auth.ParseKeySet(map[string]string{
			"a": a.publicPEM(t),
			"b": b.publicPEM(t),
		})
		require.NoError(t, err)
		assert.Len(t, keys, 2)
	})
}

func TestLoadKeySetFile(t *testing.T) {
	t.Run("round trip through a file", func(t *testing.T) {
		s := newSigner(t, testKid)
		path := filepath.Join(t.TempDir(), "keys.json")

		data, err := json.Marshal(map[string]string{testKid: s.publicPEM(t)})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o600))

		keys, err := auth.LoadKeySetFile(path)
		require.NoError(t, err)
		assert.Contains(t, keys, testKid)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := auth.LoadKeySetFile(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})
}
