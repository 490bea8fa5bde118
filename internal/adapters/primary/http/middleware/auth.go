package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/lorrc/identity-sync-backend/internal/auth"
	"github.com/lorrc/identity-sync-backend/internal/core/domain"
	"github.com/lorrc/identity-sync-backend/internal/core/ports"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// PrincipalKey is the key used to store the request principal in the context.
const PrincipalKey contextKey = "principal"

// ServiceKeyHeader carries the privileged service key on internal surfaces.
const ServiceKeyHeader = "X-Service-Key"

// Principal resolves every request to a domain.Principal and stores it in
// the context. Resolution never rejects the request by itself: a missing
// claim yields the anonymous principal and a bad claim yields the rejected
// principal, and the policy layer denies both. Handlers that require a
// particular state enforce it themselves.
//
// The service key is checked first so the privileged automation does not
// also need to mint identity tokens.
func Principal(verifier ports.ClaimVerifier, serviceKeys *auth.ServiceKeyVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := resolvePrincipal(r, verifier, serviceKeys)
			ctx := context.WithValue(r.Context(), PrincipalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolvePrincipal(r *http.Request, verifier ports.ClaimVerifier, serviceKeys *auth.ServiceKeyVerifier) domain.Principal {
	if key := r.Header.Get(ServiceKeyHeader); key != "" {
		if serviceKeys.Verify(key) {
			return domain.Service()
		}
		// A wrong service key is a failed claim, not an anonymous request.
		return domain.Rejected()
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return domain.Anonymous()
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return domain.Rejected()
	}

	claim, err := verifier.Verify(r.Context(), parts[1])
	if err != nil {
		return domain.Rejected()
	}
	return domain.Verified(*claim)
}

// GetPrincipal retrieves the request principal from the context. A request
// that never went through the Principal middleware is anonymous.
func GetPrincipal(ctx context.Context) domain.Principal {
	if p, ok := ctx.Value(PrincipalKey).(domain.Principal); ok {
		return p
	}
	return domain.Anonymous()
}

// RequireService rejects any request whose principal is not the privileged
// service principal. Used on the internal event surface and the admin list.
func RequireService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetPrincipal(r.Context()).IsService() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Authentication required","code":"UNAUTHORIZED"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
