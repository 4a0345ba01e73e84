// Package scanjob implements the ScanJob entity of spec.md §3: the unit of
// work dispatched to a queue and tracked through to a terminal status.
package scanjob

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Kind is the scan discipline: typosquat domain fuzzing or leak hunting.
type Kind string

const (
	KindTyposquat Kind = "typosquat"
	KindLeak      Kind = "leak"
)

// Status is the monotonic lifecycle of a ScanJob: pending → processing →
// {completed | failed}. Backward transitions are invalid (spec.md §3
// invariant 1, property P1).
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ScanJob is a unit of asynchronous detection work against a Domain.
type ScanJob struct {
	ID          uuid.UUID  `json:"id"`
	DomainRef   uuid.UUID  `json:"domain_ref"`
	Kind        Kind       `json:"kind"`
	Status      Status     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ErrAlreadyTerminal is returned when a transition is attempted on a job
// that already reached completed/failed — the monotonic-progression
// invariant's enforcement point.
var ErrAlreadyTerminal = fmt.Errorf("scanjob: already in a terminal status")

// Store provides database operations for scan jobs.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a new pending ScanJob.
func (s *Store) Create(ctx context.Context, domainRef uuid.UUID, kind Kind) (ScanJob, error) {
	var j ScanJob
	row := s.pool.QueryRow(ctx,
		`INSERT INTO scan_jobs (domain_ref, kind, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, domain_ref, kind, status, started_at, completed_at, error, created_at`,
		domainRef, kind, StatusPending,
	)
	if err := scan(row, &j); err != nil {
		return ScanJob{}, fmt.Errorf("creating scan job: %w", err)
	}
	return j, nil
}

// MarkFailed transitions a job straight to failed (e.g. the enqueue itself
// failed, per spec.md §4.1).
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	return s.transition(ctx, id, StatusFailed, &cause, true)
}

// Get returns a job by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (ScanJob, error) {
	var j ScanJob
	row := s.pool.QueryRow(ctx,
		`SELECT id, domain_ref, kind, status, started_at, completed_at, error, created_at FROM scan_jobs WHERE id = $1`,
		id,
	)
	err := scan(row, &j)
	return j, err
}

// StartProcessing transitions pending → processing, setting started_at.
// A job that is not pending, including one already processing, reports
// ErrAlreadyTerminal.
func (s *Store) StartProcessing(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scan_jobs SET status = $2, started_at = now()
		 WHERE id = $1 AND status = $3`,
		id, StatusProcessing, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("starting scan job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyTerminal
	}
	return nil
}

// Complete transitions processing → completed.
func (s *Store) Complete(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, StatusCompleted, nil, false)
}

// Fail transitions processing → failed, recording the error string.
func (s *Store) Fail(ctx context.Context, id uuid.UUID, cause string) error {
	return s.transition(ctx, id, StatusFailed, &cause, false)
}

// transition moves a job into a terminal status. Only a job that is not
// already terminal (pending or processing) may transition, enforcing P1.
// fromAny is set by the "enqueue failed before processing began" path but
// does not change the query: every caller accepts pending or processing.
func (s *Store) transition(ctx context.Context, id uuid.UUID, to Status, cause *string, fromAny bool) error {
	query := `UPDATE scan_jobs SET status = $2, completed_at = now(), error = $3
	          WHERE id = $1 AND status NOT IN ($4, $5)`
	tag, err := s.pool.Exec(ctx, query, id, to, cause, StatusCompleted, StatusFailed)
	if err != nil {
		return fmt.Errorf("transitioning scan job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyTerminal
	}
	return nil
}

func scan(row pgx.Row, j *ScanJob) error {
	return row.Scan(&j.ID, &j.DomainRef, &j.Kind, &j.Status, &j.StartedAt, &j.CompletedAt, &j.Error, &j.CreatedAt)
}
