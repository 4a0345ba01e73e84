// Package leak implements the Leak entity of spec.md §3: a credential
// exposure found by the code-search leak hunter.
package leak

import (
	"context"
	"fmt"
	"time"

	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Kind is the classification of what was leaked.
type Kind string

const (
	KindPassword   Kind = "password"
	KindAPIKey     Kind = "api_key"
	KindSecret     Kind = "secret"
	KindToken      Kind = "token"
	KindCredential Kind = "credentials"
	KindPrivateKey Kind = "private_key"
)

// Severity mirrors the classification rule in spec.md §4.4.
type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// snippetCap is the maximum number of bytes of decoded content persisted
// per leak, per spec.md §3/§4.4.
const snippetCap = 500

// Leak is a single code-search match for a sensitive keyword near the
// monitored domain.
type Leak struct {
	ID           uuid.UUID `json:"id"`
	JobRef       uuid.UUID `json:"job_ref"`
	Domain       string    `json:"domain"`
	RepoURL      string    `json:"repo_url"`
	RepoName     string    `json:"repo_name"`
	FilePath     string    `json:"file_path"`
	Snippet      string    `json:"snippet"`
	LeakKind     Kind      `json:"leak_kind"`
	Severity     Severity  `json:"severity"`
	Public       bool      `json:"public"`
	Notified     bool      `json:"notified"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// TruncateSnippet caps a decoded snippet at snippetCap bytes, the boundary
// spec.md §4.4 specifies for persisted leak content.
func TruncateSnippet(s string) string {
	if len(s) <= snippetCap {
		return s
	}
	return s[:snippetCap]
}

const columns = `id, job_ref, domain, repo_url, repo_name, file_path, snippet, leak_kind, severity, public, notified, discovered_at`

// Store provides database operations for leaks.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateParams holds the fields needed to record a new leak. A Leak is only
// ever created attached to an existing ScanJob (spec.md §3 invariant 4).
type CreateParams struct {
	JobRef   uuid.UUID
	Domain   string
	RepoURL  string
	RepoName string
	FilePath string
	Snippet  string
	LeakKind Kind
	Severity Severity
	Public   bool
}

// Create inserts a new leak.
func (s *Store) Create(ctx context.Context, p CreateParams) (Leak, error) {
	var l Leak
	row := s.pool.QueryRow(ctx,
		`INSERT INTO leaks (job_ref, domain, repo_url, repo_name, file_path, snippet, leak_kind, severity, public, notified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false)
		 RETURNING `+columns,
		p.JobRef, p.Domain, p.RepoURL, p.RepoName, p.FilePath, TruncateSnippet(p.Snippet), p.LeakKind, p.Severity, p.Public,
	)
	if err := scan(row, &l); err != nil {
		return Leak{}, fmt.Errorf("creating leak: %w", err)
	}
	return l, nil
}

// ListByJob returns all leaks attached to a scan job.
func (s *Store) ListByJob(ctx context.Context, jobRef uuid.UUID) ([]Leak, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+columns+` FROM leaks WHERE job_ref = $1 ORDER BY discovered_at`, jobRef)
	if err != nil {
		return nil, fmt.Errorf("listing leaks: %w", err)
	}
	defer rows.Close()

	var out []Leak
	for rows.Next() {
		var l Leak
		if err := scan(rows, &l); err != nil {
			return nil, fmt.Errorf("scanning leak row: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// MarkNotified flips the notified flag after a successful fan-out.
func (s *Store) MarkNotified(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE leaks SET notified = true WHERE id = $1`, id)
	return err
}

func scan(row pgx.Row, l *Leak) error {
	return row.Scan(
		&l.ID, &l.JobRef, &l.Domain, &l.RepoURL, &l.RepoName, &l.FilePath, &l.Snippet,
		&l.LeakKind, &l.Severity, &l.Public, &l.Notified, &l.DiscoveredAt,
	)
}

// ClassifySeverity implements spec.md §4.4's severity rule.
func ClassifySeverity(kind Kind, snippet string) Severity {
	switch kind {
	case KindPrivateKey, KindSecret, KindAPIKey, KindPassword:
		if strings.ContainsAny(snippet, `=:"'`) {
			return SeverityCritical
		}
		return SeverityHigh
	case KindToken, KindCredential:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}
