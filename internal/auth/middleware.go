package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// KeyVerifier resolves a raw bearer token to its owning API key and user.
// Implemented by *apikey.Service; declared here so this package never
// imports pkg/apikey.
type KeyVerifier interface {
	Authenticate(ctx context.Context, rawKey string) (apiKeyID, userID uuid.UUID, err error)
}

// Authenticator wraps a KeyVerifier for use by Middleware.
type Authenticator struct {
	Verifier KeyVerifier
}

// NewAuthenticator builds an Authenticator over the given verifier.
func NewAuthenticator(v KeyVerifier) *Authenticator {
	return &Authenticator{Verifier: v}
}

// Middleware authenticates the caller via `Authorization: Bearer
// sk_live_<...>` and stores the resulting Identity in the request context.
// It does not itself reject unauthenticated requests — pair it with
// RequireAuth on any route that must be authenticated, so public routes
// (healthz, metrics) can share the same router tree.
func Middleware(a *Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			rawToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

			if rawToken == "" || a == nil || a.Verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			apiKeyID, userID, err := a.Verifier.Authenticate(r.Context(), rawToken)
			if err != nil {
				logger.Warn("api key authentication failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := NewContext(r.Context(), &Identity{UserID: userID, APIKeyID: apiKeyID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that Middleware did not attach an Identity
// to.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "missing or invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
