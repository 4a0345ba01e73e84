// Package auth authenticates ingress requests against Sentinyl API keys.
// Exactly one scheme is supported (`sk_live_<...>` bearer token) — no
// session/OIDC/PAT branches, just ordered middleware plus a
// context-carried identity.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the authenticated caller, stored in the request context.
type Identity struct {
	UserID   uuid.UUID
	APIKeyID uuid.UUID
}

type contextKey string

const identityKey contextKey = "sentinyl_identity"

// NewContext returns a context carrying the given identity.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext extracts the identity stored by Middleware, or nil.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}
