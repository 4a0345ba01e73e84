// Package guard implements spec.md §4.8's dead-man's-switch: the GuardAgent
// and GuardEvent entities and the pure state-machine functions that decide
// blocking from wall-clock time alone.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnomalyKind is the class of host-level behavior that triggered an alert.
type AnomalyKind string

const (
	AnomalyGeo      AnomalyKind = "geo"
	AnomalyProcess  AnomalyKind = "process"
	AnomalyResource AnomalyKind = "resource"
)

// Severity mirrors the risk scorer's severity buckets.
type Severity string

const (
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// OperatorResponse is the human-in-the-loop verdict on a GuardEvent.
type OperatorResponse string

const (
	ResponseNone  OperatorResponse = "none"
	ResponseSafe  OperatorResponse = "safe"
	ResponseBlock OperatorResponse = "block"
)

// countdownDuration is the fixed window before an unanswered event
// auto-blocks (spec.md §3 invariant 3, never mutated after creation).
const countdownDuration = 300 * time.Second

// GuardAgent is a monitored host, created lazily on its first alert.
type GuardAgent struct {
	ID            uuid.UUID `json:"id"`
	OwnerUser     uuid.UUID `json:"owner_user"`
	Hostname      string    `json:"hostname"`
	LastIP        *string   `json:"last_ip,omitempty"`
	OSInfo        *string   `json:"os_info,omitempty"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Active        bool      `json:"active"`
}

// GuardEvent is a single anomaly alert under the dead-man's-switch
// countdown.
type GuardEvent struct {
	ID                  uuid.UUID        `json:"id"`
	AgentRef            uuid.UUID        `json:"agent_ref"`
	AnomalyKind         AnomalyKind      `json:"anomaly_kind"`
	Severity            Severity         `json:"severity"`
	TargetIP            *string          `json:"target_ip,omitempty"`
	TargetCountry       *string          `json:"target_country,omitempty"`
	ProcessName         *string          `json:"process_name,omitempty"`
	DetailsBlob         []byte           `json:"details_blob"`
	CountdownStartedAt  time.Time        `json:"countdown_started_at"`
	CountdownExpiresAt  time.Time        `json:"countdown_expires_at"`
	OperatorResponse    OperatorResponse `json:"operator_response"`
	OperatorUser        *string          `json:"operator_user,omitempty"`
	RespondedAt         *time.Time       `json:"responded_at,omitempty"`
	Blocked             bool             `json:"blocked"`
	AcknowledgedByAgent bool             `json:"acknowledged_by_agent"`
	CreatedAt           time.Time        `json:"created_at"`
}

// ShouldBlock is the lazy-evaluated expiry rule of spec.md §3 invariant 2
// and §4.8: a verdict of block always blocks; a verdict of safe always
// wins, even past expiry; absent a verdict, expiry alone blocks. Verdict
// is checked before the lazy expiry rule, so a late-arriving "safe"
// recorded before this call always takes precedence.
func ShouldBlock(e GuardEvent, now time.Time) bool {
	switch e.OperatorResponse {
	case ResponseBlock:
		return true
	case ResponseSafe:
		return false
	default:
		return !now.Before(e.CountdownExpiresAt)
	}
}

// CountdownRemaining is max(0, expires - now).
func CountdownRemaining(e GuardEvent, now time.Time) time.Duration {
	remaining := e.CountdownExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ErrConflictingVerdict is returned when a second operator verdict
// disagrees with the first (spec.md §4.1: "conflicting verdicts reject
// with conflict").
var ErrConflictingVerdict = fmt.Errorf("guard: conflicting operator verdict")

// AgentStore provides database operations for guard agents.
type AgentStore struct {
	pool *pgxpool.Pool
}

// NewAgentStore creates an AgentStore backed by the given pool.
func NewAgentStore(pool *pgxpool.Pool) *AgentStore {
	return &AgentStore{pool: pool}
}

// Upsert creates the agent on first sight or refreshes its heartbeat and
// last-seen IP on subsequent alerts, per spec.md §4.1.
func (s *AgentStore) Upsert(ctx context.Context, ownerUser uuid.UUID, agentExternalID uuid.UUID, hostname string, lastIP, osInfo *string) (GuardAgent, error) {
	var a GuardAgent
	row := s.pool.QueryRow(ctx,
		`INSERT INTO guard_agents (id, owner_user, hostname, last_ip, os_info, last_heartbeat, active)
		 VALUES ($1, $2, $3, $4, $5, now(), true)
		 ON CONFLICT (id) DO UPDATE SET
		   last_ip = EXCLUDED.last_ip,
		   os_info = COALESCE(EXCLUDED.os_info, guard_agents.os_info),
		   last_heartbeat = now(),
		   active = true
		 RETURNING id, owner_user, hostname, last_ip, os_info, last_heartbeat, active`,
		agentExternalID, ownerUser, hostname, lastIP, osInfo,
	)
	if err := scanAgent(row, &a); err != nil {
		return GuardAgent{}, fmt.Errorf("upserting guard agent: %w", err)
	}
	return a, nil
}

// Get returns an agent by id.
func (s *AgentStore) Get(ctx context.Context, id uuid.UUID) (GuardAgent, error) {
	var a GuardAgent
	row := s.pool.QueryRow(ctx,
		`SELECT id, owner_user, hostname, last_ip, os_info, last_heartbeat, active FROM guard_agents WHERE id = $1`,
		id,
	)
	err := scanAgent(row, &a)
	return a, err
}

func scanAgent(row pgx.Row, a *GuardAgent) error {
	return row.Scan(&a.ID, &a.OwnerUser, &a.Hostname, &a.LastIP, &a.OSInfo, &a.LastHeartbeat, &a.Active)
}

const eventColumns = `id, agent_ref, anomaly_kind, severity, target_ip, target_country, process_name, details_blob,
	countdown_started_at, countdown_expires_at, operator_response, operator_user, responded_at, blocked,
	acknowledged_by_agent, created_at`

// EventStore provides database operations for guard events.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates an EventStore backed by the given pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// CreateParams holds the fields needed to open a new GuardEvent.
type CreateParams struct {
	AgentRef      uuid.UUID
	AnomalyKind   AnomalyKind
	Severity      Severity
	TargetIP      *string
	TargetCountry *string
	ProcessName   *string
	DetailsBlob   []byte
}

// Create opens a new GuardEvent with a fresh 300-second countdown.
func (s *EventStore) Create(ctx context.Context, p CreateParams, now time.Time) (GuardEvent, error) {
	var e GuardEvent
	expiresAt := now.Add(countdownDuration)
	row := s.pool.QueryRow(ctx,
		`INSERT INTO guard_events (agent_ref, anomaly_kind, severity, target_ip, target_country, process_name,
		   details_blob, countdown_started_at, countdown_expires_at, operator_response, blocked, acknowledged_by_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, false)
		 RETURNING `+eventColumns,
		p.AgentRef, p.AnomalyKind, p.Severity, p.TargetIP, p.TargetCountry, p.ProcessName, p.DetailsBlob,
		now, expiresAt, ResponseNone,
	)
	if err := scanEvent(row, &e); err != nil {
		return GuardEvent{}, fmt.Errorf("creating guard event: %w", err)
	}
	return e, nil
}

// Get returns an event by id.
func (s *EventStore) Get(ctx context.Context, id uuid.UUID) (GuardEvent, error) {
	var e GuardEvent
	row := s.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM guard_events WHERE id = $1`, id)
	err := scanEvent(row, &e)
	return e, err
}

// RecordVerdict applies an operator verdict idempotently: a repeat of the
// same verdict is a no-op; a conflicting verdict is rejected. When the
// verdict is block, blocked is persisted immediately.
func (s *EventStore) RecordVerdict(ctx context.Context, id uuid.UUID, response OperatorResponse, operatorUser string, now time.Time) (GuardEvent, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return GuardEvent{}, fmt.Errorf("loading guard event: %w", err)
	}

	if e.OperatorResponse != ResponseNone {
		if e.OperatorResponse == response {
			return e, nil
		}
		return GuardEvent{}, ErrConflictingVerdict
	}

	blocked := response == ResponseBlock
	row := s.pool.QueryRow(ctx,
		`UPDATE guard_events SET operator_response = $2, operator_user = $3, responded_at = $4, blocked = blocked OR $5
		 WHERE id = $1 AND operator_response = $6
		 RETURNING `+eventColumns,
		id, response, operatorUser, now, blocked, ResponseNone,
	)
	var updated GuardEvent
	if err := scanEvent(row, &updated); err != nil {
		return GuardEvent{}, fmt.Errorf("recording guard verdict: %w", err)
	}
	return updated, nil
}

// PendingForAgent returns every event for agentRef that the agent still
// needs to act on: not yet expired, blocked by verdict, or not yet
// acknowledged. On return, any event whose ShouldBlock evaluates true by
// expiry (rather than verdict) has its blocked flag persisted as a
// side-effect (auto-arm), per spec.md §4.1.
func (s *EventStore) PendingForAgent(ctx context.Context, agentRef uuid.UUID, now time.Time) ([]GuardEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM guard_events
		 WHERE agent_ref = $1 AND (countdown_expires_at > $2 OR operator_response = $3 OR NOT acknowledged_by_agent)
		 ORDER BY created_at`,
		agentRef, now, ResponseBlock,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending guard events: %w", err)
	}
	defer rows.Close()

	var out []GuardEvent
	for rows.Next() {
		var e GuardEvent
		if err := scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("scanning guard event row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if !out[i].Blocked && ShouldBlock(out[i], now) {
			if err := s.armAutoBlock(ctx, out[i].ID); err != nil {
				return nil, fmt.Errorf("auto-arming block: %w", err)
			}
			out[i].Blocked = true
		}
	}
	return out, nil
}

func (s *EventStore) armAutoBlock(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE guard_events SET blocked = true WHERE id = $1 AND blocked = false`, id)
	return err
}

// Acknowledge marks an event as seen by the agent, so a later poll no
// longer returns it once it is otherwise terminal.
func (s *EventStore) Acknowledge(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE guard_events SET acknowledged_by_agent = true WHERE id = $1`, id)
	return err
}

func scanEvent(row pgx.Row, e *GuardEvent) error {
	return row.Scan(
		&e.ID, &e.AgentRef, &e.AnomalyKind, &e.Severity, &e.TargetIP, &e.TargetCountry, &e.ProcessName, &e.DetailsBlob,
		&e.CountdownStartedAt, &e.CountdownExpiresAt, &e.OperatorResponse, &e.OperatorUser, &e.RespondedAt, &e.Blocked,
		&e.AcknowledgedByAgent, &e.CreatedAt,
	)
}
