package apikey

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for API keys.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates an API key Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a new API key row.
func (s *Store) Create(ctx context.Context, userID uuid.UUID, hash, prefix string) (APIKey, error) {
	var k APIKey
	row := s.pool.QueryRow(ctx,
		`INSERT INTO api_keys (user_id, key_hash, key_prefix)
		 VALUES ($1, $2, $3)
		 RETURNING id, user_id, key_hash, key_prefix, last_used, created_at`,
		userID, hash, prefix,
	)
	if err := scanKey(row, &k); err != nil {
		return APIKey{}, fmt.Errorf("creating api key: %w", err)
	}
	return k, nil
}

// GetByHash looks up an API key by its SHA-256 hash.
func (s *Store) GetByHash(ctx context.Context, hash string) (APIKey, error) {
	var k APIKey
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, key_hash, key_prefix, last_used, created_at FROM api_keys WHERE key_hash = $1`,
		hash,
	)
	if err := scanKey(row, &k); err != nil {
		return APIKey{}, fmt.Errorf("looking up api key: %w", err)
	}
	return k, nil
}

// List returns all API keys owned by a user.
func (s *Store) List(ctx context.Context, userID uuid.UUID) ([]APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, key_hash, key_prefix, last_used, created_at FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	defer rows.Close()

	var items []APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.KeyHash, &k.KeyPrefix, &k.LastUsed, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning api key row: %w", err)
		}
		items = append(items, k)
	}
	return items, rows.Err()
}

// Delete removes an API key owned by userID.
func (s *Store) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// TouchLastUsed updates the last-used timestamp, fire-and-forget from the
// caller's perspective.
func (s *Store) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE api_keys SET last_used = now() WHERE id = $1`, id)
	return err
}

func scanKey(row pgx.Row, k *APIKey) error {
	return row.Scan(&k.ID, &k.UserID, &k.KeyHash, &k.KeyPrefix, &k.LastUsed, &k.CreatedAt)
}
