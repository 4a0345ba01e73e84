// Package apikey issues and verifies Sentinyl bearer API keys, per spec.md
// §6's `sk_live_<43 url-safe chars>` format.
package apikey

import (
	"time"

	"github.com/google/uuid"
)

// Prefix is the fixed prefix on every issued raw key.
const Prefix = "sk_live_"

// APIKey is a stored, hashed API key. The raw key is never persisted.
type APIKey struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	KeyHash   string     `json:"-"`
	KeyPrefix string     `json:"key_prefix"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// CreateResponse is returned once, at issuance time, with the raw key.
type CreateResponse struct {
	APIKey
	RawKey string `json:"raw_key"`
}
