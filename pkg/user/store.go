package user

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides raw-SQL database operations for users and subscriptions.
// There is no sqlc-generated query layer in this repository, so stores talk
// to pgxpool directly.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a user Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, email, name string) (User, error) {
	var u User
	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (email, name) VALUES ($1, $2) RETURNING id, email, name, created_at`,
		email, name,
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt); err != nil {
		return User{}, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	row := s.pool.QueryRow(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = $1`, id,
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt); err != nil {
		return User{}, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// CreateSubscription inserts a new subscription for a user, with the
// default quotas for the given tier and a cycle starting now.
func (s *Store) CreateSubscription(ctx context.Context, userID uuid.UUID, tier Tier) (Subscription, error) {
	scanQuota, agentQuota := defaultQuotas(tier)
	cycleStart := time.Now().UTC()
	cycleEnd := cycleStart.AddDate(0, 0, 30)

	var sub Subscription
	row := s.pool.QueryRow(ctx,
		`INSERT INTO subscriptions (user_id, tier, scan_quota, agent_quota, scan_used, agent_used, cycle_start, cycle_end)
		 VALUES ($1, $2, $3, $4, 0, 0, $5, $6)
		 RETURNING id, user_id, tier, scan_quota, agent_quota, scan_used, agent_used, cycle_start, cycle_end`,
		userID, tier, scanQuota, agentQuota, cycleStart, cycleEnd,
	)
	if err := scanSubscription(row, &sub); err != nil {
		return Subscription{}, fmt.Errorf("creating subscription: %w", err)
	}
	return sub, nil
}

// GetSubscriptionByUser returns the active subscription for a user.
func (s *Store) GetSubscriptionByUser(ctx context.Context, userID uuid.UUID) (Subscription, error) {
	var sub Subscription
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, tier, scan_quota, agent_quota, scan_used, agent_used, cycle_start, cycle_end
		 FROM subscriptions WHERE user_id = $1`, userID,
	)
	if err := scanSubscription(row, &sub); err != nil {
		return Subscription{}, fmt.Errorf("getting subscription: %w", err)
	}
	return sub, nil
}

// IncrementScanUsed performs the atomic, conditional quota increment spec.md
// §5 requires as the sole admission gate: `UPDATE … WHERE used < quota
// RETURNING used`. Unlimited (quota=0) subscriptions always succeed.
// Returns (ok=false, nil) when quota is exhausted, never an error for that case.
func (s *Store) IncrementScanUsed(ctx context.Context, userID uuid.UUID) (ok bool, sub Subscription, err error) {
	var out Subscription
	row := s.pool.QueryRow(ctx,
		`UPDATE subscriptions
		 SET scan_used = scan_used + 1
		 WHERE user_id = $1 AND (scan_quota = 0 OR scan_used < scan_quota)
		 RETURNING id, user_id, tier, scan_quota, agent_quota, scan_used, agent_used, cycle_start, cycle_end`,
		userID,
	)
	if scanErr := scanSubscription(row, &out); scanErr != nil {
		if scanErr == pgx.ErrNoRows {
			cur, getErr := s.GetSubscriptionByUser(ctx, userID)
			if getErr != nil {
				return false, Subscription{}, fmt.Errorf("loading subscription after quota rejection: %w", getErr)
			}
			return false, cur, nil
		}
		return false, Subscription{}, fmt.Errorf("incrementing scan quota: %w", scanErr)
	}
	return true, out, nil
}

// IncrementAgentUsed is the agent-quota analogue of IncrementScanUsed.
func (s *Store) IncrementAgentUsed(ctx context.Context, userID uuid.UUID) (ok bool, sub Subscription, err error) {
	var out Subscription
	row := s.pool.QueryRow(ctx,
		`UPDATE subscriptions
		 SET agent_used = agent_used + 1
		 WHERE user_id = $1 AND (agent_quota = 0 OR agent_used < agent_quota)
		 RETURNING id, user_id, tier, scan_quota, agent_quota, scan_used, agent_used, cycle_start, cycle_end`,
		userID,
	)
	if scanErr := scanSubscription(row, &out); scanErr != nil {
		if scanErr == pgx.ErrNoRows {
			cur, getErr := s.GetSubscriptionByUser(ctx, userID)
			if getErr != nil {
				return false, Subscription{}, fmt.Errorf("loading subscription after quota rejection: %w", getErr)
			}
			return false, cur, nil
		}
		return false, Subscription{}, fmt.Errorf("incrementing agent quota: %w", scanErr)
	}
	return true, out, nil
}

func scanSubscription(row pgx.Row, s *Subscription) error {
	return row.Scan(
		&s.ID, &s.UserID, &s.Tier, &s.ScanQuota, &s.AgentQuota,
		&s.ScanUsed, &s.AgentUsed, &s.CycleStart, &s.CycleEnd,
	)
}
