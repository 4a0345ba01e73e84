// Package domain implements the Domain entity of spec.md §3: the
// organization asset that scans run against.
package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Priority is the operator-assigned urgency of a domain.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Domain is a monitored organization asset.
type Domain struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerUser uuid.UUID `json:"owner_user"`
	Priority  Priority  `json:"priority"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Normalize trims and case-folds a raw domain string, and reports whether
// it is well-formed enough to accept (spec.md §4.1: "reject if it contains
// no dot").
func Normalize(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if !strings.Contains(s, ".") {
		return "", false
	}
	return s, true
}

// Store provides database operations for domains.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetOrCreate loads the domain owned by ownerUser with the given normalized
// name, creating it with the given priority if it doesn't exist yet.
func (s *Store) GetOrCreate(ctx context.Context, name string, ownerUser uuid.UUID, priority Priority) (Domain, error) {
	d, err := s.getByName(ctx, name, ownerUser)
	if err == nil {
		return d, nil
	}
	if err != pgx.ErrNoRows {
		return Domain{}, fmt.Errorf("loading domain: %w", err)
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO domains (name, owner_user, priority, active)
		 VALUES ($1, $2, $3, true)
		 ON CONFLICT (name, owner_user) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name, owner_user, priority, active, created_at, updated_at`,
		name, ownerUser, priority,
	)
	if err := scan(row, &d); err != nil {
		return Domain{}, fmt.Errorf("creating domain: %w", err)
	}
	return d, nil
}

func (s *Store) getByName(ctx context.Context, name string, ownerUser uuid.UUID) (Domain, error) {
	var d Domain
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, owner_user, priority, active, created_at, updated_at
		 FROM domains WHERE name = $1 AND owner_user = $2`,
		name, ownerUser,
	)
	err := scan(row, &d)
	return d, err
}

// Get returns a domain by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Domain, error) {
	var d Domain
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, owner_user, priority, active, created_at, updated_at FROM domains WHERE id = $1`,
		id,
	)
	err := scan(row, &d)
	return d, err
}

// Deactivate soft-deletes a domain by setting active=false.
func (s *Store) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE domains SET active = false, updated_at = now() WHERE id = $1`, id)
	return err
}

func scan(row pgx.Row, d *Domain) error {
	return row.Scan(&d.ID, &d.Name, &d.OwnerUser, &d.Priority, &d.Active, &d.CreatedAt, &d.UpdatedAt)
}
