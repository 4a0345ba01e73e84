// Package queue wraps Redis as the set of named FIFOs spec.md §4.2
// describes: blocking pop with a 5-second ceiling, FIFO per queue, no
// cross-queue ordering. A popped message is removed from Redis before the
// worker handles it, so delivery is at-most-once: there is no ack and no
// redelivery.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OP-88/Sentinyl/internal/telemetry"
)

// Names of the FIFOs named in spec.md §6.
const (
	Typosquat = "queue:typosquat"
	Leak      = "queue:leak"
	Guard     = "queue:guard"
)

// PopTimeout is the blocking-pop ceiling workers use so they can shut down
// promptly on SIGINT (spec.md §4.2, §5).
const PopTimeout = 5 * time.Second

// ErrEmpty is returned by Dequeue when the pop timed out with no message.
var ErrEmpty = errors.New("queue: empty")

// Queue is a thin JSON-payload wrapper around Redis LPUSH/BRPOP.
type Queue struct {
	rdb *redis.Client
}

// New wraps an existing Redis client.
func New(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// Enqueue marshals payload to JSON and pushes it onto the named queue. The
// enqueue must succeed before an ingress handler responds "accepted" — a
// failure here must propagate to the caller (spec.md §4.1).
func (q *Queue) Enqueue(ctx context.Context, name string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling queue payload: %w", err)
	}

	if err := q.rdb.LPush(ctx, name, body).Err(); err != nil {
		return fmt.Errorf("enqueueing to %s: %w", name, err)
	}

	telemetry.ScanJobsEnqueuedTotal.WithLabelValues(name).Inc()
	return nil
}

// Dequeue blocks for up to PopTimeout waiting for a message on name. Returns
// ErrEmpty (not an error the caller should log) when nothing arrived within
// the timeout, so worker loops can check ctx.Err() and retry.
func (q *Queue) Dequeue(ctx context.Context, name string) ([]byte, error) {
	result, err := q.rdb.BRPop(ctx, PopTimeout, name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("dequeueing from %s: %w", name, err)
	}

	// BRPop returns [queueName, value].
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP result shape: %v", result)
	}
	return []byte(result[1]), nil
}
