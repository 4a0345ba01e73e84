// Package worker implements the background processes spec.md §4.2
// describes: one process per named queue, each draining its queue with
// a blocking pop and never touching the others. The loop shape is
// grounded on the escalation engine's Run(): block until ctx is done or
// work arrives, handle one unit at a time, log and continue on error
// rather than stopping the loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OP-88/Sentinyl/internal/queue"
	"github.com/OP-88/Sentinyl/pkg/domain"
	"github.com/OP-88/Sentinyl/pkg/dnsresolve"
	"github.com/OP-88/Sentinyl/pkg/graph"
	"github.com/OP-88/Sentinyl/pkg/guard"
	"github.com/OP-88/Sentinyl/pkg/leak"
	"github.com/OP-88/Sentinyl/pkg/leakhunter"
	"github.com/OP-88/Sentinyl/pkg/notify"
	"github.com/OP-88/Sentinyl/pkg/scanjob"
	"github.com/OP-88/Sentinyl/pkg/threat"
)

// scanJobMessage is the payload shape enqueued by pkg/ingress's scan
// handler for both the typosquat and leak queues.
type scanJobMessage struct {
	JobID  string `json:"job_id"`
	Domain string `json:"domain"`
}

// guardEventMessage is the payload shape enqueued by pkg/ingress's guard
// alert handler.
type guardEventMessage struct {
	EventID string `json:"event_id"`
	AgentID string `json:"agent_id"`
}

// Deps bundles the stores and collaborators every worker kind needs. A
// single Deps value is built once at startup and handed to whichever
// Run* function config.WorkerQueue selects.
type Deps struct {
	Logger  *slog.Logger
	Jobs    *scanjob.Store
	Domains *domain.Store
	Threats *threat.Store
	Leaks   *leak.Store
	Agents  *guard.AgentStore
	Events  *guard.EventStore
	Queue   *queue.Queue
	Graph   graph.Ingester
	Notify  *notify.Fanout

	Resolver   *dnsresolve.Resolver
	LeakHunter *leakhunter.Hunter
}

// NewDeps wires a Deps from infrastructure and external collaborator
// configuration.
func NewDeps(
	logger *slog.Logger,
	pool *pgxpool.Pool,
	q *queue.Queue,
	graphIngester graph.Ingester,
	fanout *notify.Fanout,
	githubAPIBase, githubToken string,
) *Deps {
	return &Deps{
		Logger:     logger,
		Jobs:       scanjob.NewStore(pool),
		Domains:    domain.NewStore(pool),
		Threats:    threat.NewStore(pool),
		Leaks:      leak.NewStore(pool),
		Agents:     guard.NewAgentStore(pool),
		Events:     guard.NewEventStore(pool),
		Queue:      q,
		Graph:      graphIngester,
		Notify:     fanout,
		Resolver:   dnsresolve.New(),
		LeakHunter: leakhunter.New(githubAPIBase, githubToken),
	}
}

// pollLoop blocks on queueName up to queue.PopTimeout, hands anything
// that arrives to handle, and repeats until ctx is cancelled. A handler
// error is logged and the loop continues — one bad job must never take
// the queue down.
func (d *Deps) pollLoop(ctx context.Context, queueName string, handle func(context.Context, []byte) error) error {
	d.Logger.Info("worker loop started", "queue", queueName)
	for {
		select {
		case <-ctx.Done():
			d.Logger.Info("worker loop stopped", "queue", queueName)
			return nil
		default:
		}

		body, err := d.Queue.Dequeue(ctx, queueName)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			d.Logger.Error("dequeue failed", "queue", queueName, "error", err)
			continue
		}

		if err := handle(ctx, body); err != nil {
			d.Logger.Error("handling queue message", "queue", queueName, "error", err)
		}
	}
}

func parseUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing %s %q: %w", field, raw, err)
	}
	return id, nil
}
