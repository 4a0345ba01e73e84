// Package threat implements the Threat entity of spec.md §3: a typosquat
// candidate that actually resolved.
package threat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Severity mirrors the risk scorer's severity buckets.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Threat is a typosquat domain that was found to resolve.
type Threat struct {
	ID              uuid.UUID  `json:"id"`
	JobRef          uuid.UUID  `json:"job_ref"`
	OriginalDomain  string     `json:"original_domain"`
	MaliciousDomain string     `json:"malicious_domain"`
	ThreatKind      string     `json:"threat_kind"`
	Severity        Severity   `json:"severity"`
	IP              *string    `json:"ip,omitempty"`
	Nameservers     []string   `json:"nameservers"`
	WHOISBlob       *string    `json:"whois_blob,omitempty"`
	Active          bool       `json:"active"`
	Verified        bool       `json:"verified"`
	Notified        bool       `json:"notified"`
	DiscoveredAt    time.Time  `json:"discovered_at"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

const columns = `id, job_ref, original_domain, malicious_domain, threat_kind, severity, ip, nameservers, whois_blob, active, verified, notified, discovered_at, verified_at, resolved_at`

// Store provides database operations for threats.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateParams holds the fields needed to record a new threat. A Threat is
// only ever created attached to an existing ScanJob (spec.md §3 invariant
// 4) — JobRef must reference a row the caller already validated.
type CreateParams struct {
	JobRef          uuid.UUID
	OriginalDomain  string
	MaliciousDomain string
	ThreatKind      string
	Severity        Severity
	IP              *string
	Nameservers     []string
}

// Create inserts a new threat.
func (s *Store) Create(ctx context.Context, p CreateParams) (Threat, error) {
	var t Threat
	row := s.pool.QueryRow(ctx,
		`INSERT INTO threats (job_ref, original_domain, malicious_domain, threat_kind, severity, ip, nameservers, active, verified, notified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, true, false, false)
		 RETURNING `+columns,
		p.JobRef, p.OriginalDomain, p.MaliciousDomain, p.ThreatKind, p.Severity, p.IP, p.Nameservers,
	)
	if err := scan(row, &t); err != nil {
		return Threat{}, fmt.Errorf("creating threat: %w", err)
	}
	return t, nil
}

// ListByJob returns all threats attached to a scan job.
func (s *Store) ListByJob(ctx context.Context, jobRef uuid.UUID) ([]Threat, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+columns+` FROM threats WHERE job_ref = $1 ORDER BY discovered_at`, jobRef)
	if err != nil {
		return nil, fmt.Errorf("listing threats: %w", err)
	}
	defer rows.Close()

	var out []Threat
	for rows.Next() {
		var t Threat
		if err := scan(rows, &t); err != nil {
			return nil, fmt.Errorf("scanning threat row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkNotified flips the notified flag after a successful fan-out.
func (s *Store) MarkNotified(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE threats SET notified = true WHERE id = $1`, id)
	return err
}

func scan(row pgx.Row, t *Threat) error {
	return row.Scan(
		&t.ID, &t.JobRef, &t.OriginalDomain, &t.MaliciousDomain, &t.ThreatKind, &t.Severity,
		&t.IP, &t.Nameservers, &t.WHOISBlob, &t.Active, &t.Verified, &t.Notified,
		&t.DiscoveredAt, &t.VerifiedAt, &t.ResolvedAt,
	)
}
