// Package notify implements spec.md §4.5's multi-channel fan-out:
// emitting one enriched payload per configured channel, isolating
// per-channel failure.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// severityRank lets Fanout compare a Payload's severity against the
// "medium" suppression floor.
var severityRank = map[string]int{
	"low":      0,
	"medium":   1,
	"high":     2,
	"critical": 3,
}

// ActionButton is an optional call-to-action surfaced on the channel's
// native button/action element.
type ActionButton struct {
	Label string
	URL   string
}

// Payload is the channel-agnostic enriched alert spec.md §4.5 names.
type Payload struct {
	Title             string
	Severity          string
	RiskScore         int
	FrameworkContext  string
	Details           map[string]string
	ActionButtons     []ActionButton
}

// Channel delivers a Payload to one notification destination. Per-channel
// failure must never block other channels.
type Channel interface {
	Name() string
	Send(ctx context.Context, p Payload) error
}

// Fanout emits a Payload to every enabled channel, isolating per-channel
// failures and suppressing delivery entirely below "medium" severity.
type Fanout struct {
	channels []Channel
	logger   *slog.Logger
}

// New creates a Fanout over the given channels.
func New(logger *slog.Logger, channels ...Channel) *Fanout {
	return &Fanout{channels: channels, logger: logger}
}

// Send delivers p to every channel concurrently. A timeout or error on one
// channel never prevents delivery to the others; all per-channel errors
// are collected and returned jointly (nil if every channel succeeded).
func (f *Fanout) Send(ctx context.Context, p Payload) error {
	if severityRank[p.Severity] < severityRank["medium"] {
		f.logger.Debug("suppressing fan-out below medium severity", "severity", p.Severity, "title", p.Title)
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(f.channels))

	for i, ch := range f.channels {
		wg.Add(1)
		go func(i int, ch Channel) {
			defer wg.Done()
			if err := ch.Send(ctx, p); err != nil {
				errs[i] = fmt.Errorf("channel %s: %w", ch.Name(), err)
				f.logger.Warn("notification channel delivery failed", "channel", ch.Name(), "error", err)
			}
		}(i, ch)
	}
	wg.Wait()

	var joined error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if joined == nil {
			joined = err
		} else {
			joined = fmt.Errorf("%w; %w", joined, err)
		}
	}
	return joined
}
