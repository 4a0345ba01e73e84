package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service encapsulates API key business logic.
type Service struct {
	store  *Store
	logger *slog.Logger
}

// NewService creates an API key Service backed by the given pool.
func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{store: NewStore(pool), logger: logger}
}

// Create generates a new API key, stores its hash, and returns the raw key
// once.
func (s *Service) Create(ctx context.Context, userID uuid.UUID) (CreateResponse, error) {
	raw, hash, prefix := generate()

	key, err := s.store.Create(ctx, userID, hash, prefix)
	if err != nil {
		return CreateResponse{}, fmt.Errorf("creating api key: %w", err)
	}

	return CreateResponse{APIKey: key, RawKey: raw}, nil
}

// List returns all API keys for a user.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]APIKey, error) {
	return s.store.List(ctx, userID)
}

// Delete removes an API key.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.Delete(ctx, userID, id)
}

// Authenticate hashes rawKey and resolves it to an owning user. This is the
// method internal/auth.Authenticator calls, kept decoupled from that
// package's Identity type so apikey has no dependency on internal/auth.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (apiKeyID, userID uuid.UUID, err error) {
	if rawKey == "" {
		return uuid.Nil, uuid.Nil, fmt.Errorf("empty API key")
	}

	key, err := s.store.GetByHash(ctx, HashKey(rawKey))
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("looking up API key: %w", err)
	}

	go func(id uuid.UUID) {
		if err := s.store.TouchLastUsed(context.Background(), id); err != nil && s.logger != nil {
			s.logger.Warn("updating api key last_used", "error", err)
		}
	}(key.ID)

	return key.ID, key.UserID, nil
}

// HashKey returns the SHA-256 hex digest of a raw API key.
func HashKey(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// generate creates a random API key in spec.md's `sk_live_<43 url-safe
// chars>` format: 32 random bytes, unpadded URL-safe base64 (43 characters),
// prefixed and hashed for storage.
func generate() (raw, hash, prefix string) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	raw = Prefix + base64.RawURLEncoding.EncodeToString(b)
	hash = HashKey(raw)
	prefix = raw[:len(Prefix)+6]
	return
}
