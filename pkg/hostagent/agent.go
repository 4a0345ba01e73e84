package hostagent

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/OP-88/Sentinyl/pkg/block"
)

// trackedEvent is a locally remembered alert awaiting an operator
// verdict or countdown expiry.
type trackedEvent struct {
	anomaly   Anomaly
	expiresAt time.Time
}

// Agent runs the poll loop a monitored host uses to detect anomalies,
// alert the API, and enforce the operator's verdict (or, lacking one,
// auto-block once the countdown lapses). Only this process can actually
// install firewall rules on the host it watches.
type Agent struct {
	agentID  string
	hostname string

	sensor  *Sensor
	client  *apiClient
	blocker *block.Blocker
	logger  *slog.Logger

	pollInterval        time.Duration
	statusCheckInterval time.Duration
	countdownDuration   time.Duration

	active map[string]trackedEvent
}

// Config configures a new Agent.
type Config struct {
	AgentID             string
	APIBaseURL          string
	APIKey              string
	IPInfoURL           string
	PollInterval        time.Duration
	StatusCheckInterval time.Duration
	CountdownDuration   time.Duration
}

// New builds an Agent and warms up its CPU baseline sampler.
func New(ctx context.Context, cfg Config, logger *slog.Logger) *Agent {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return &Agent{
		agentID:             cfg.AgentID,
		hostname:            hostname,
		sensor:              NewSensor(ctx, cfg.IPInfoURL),
		client:              newAPIClient(cfg.APIBaseURL, cfg.APIKey),
		blocker:             block.NewBlocker(nil, logger),
		logger:              logger,
		pollInterval:        cfg.PollInterval,
		statusCheckInterval: cfg.StatusCheckInterval,
		countdownDuration:   cfg.CountdownDuration,
		active:              make(map[string]trackedEvent),
	}
}

// Run scans for anomalies and reconciles operator verdicts until ctx is
// cancelled.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("guard agent starting", "agent_id", a.agentID, "hostname", a.hostname)

	lastStatusCheck := time.Now()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("guard agent stopping")
			return nil
		default:
		}

		a.scanOnce(ctx)

		if time.Since(lastStatusCheck) >= a.statusCheckInterval {
			a.checkForOverride(ctx)
			lastStatusCheck = time.Now()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(a.pollInterval):
		}
	}
}

func (a *Agent) scanOnce(ctx context.Context) {
	for _, anomaly := range []*Anomaly{
		a.sensor.DetectGeo(ctx),
		a.sensor.DetectProcess(ctx),
		a.sensor.DetectResource(ctx),
	} {
		if anomaly == nil {
			continue
		}
		a.report(ctx, *anomaly)
	}
}

func (a *Agent) report(ctx context.Context, anomaly Anomaly) {
	eventID, err := a.client.SendAlert(ctx, a.agentID, a.hostname, anomaly)
	if err != nil {
		a.logger.Error("sending guard alert", "kind", anomaly.Kind, "error", err)
		return
	}

	a.logger.Warn("anomaly detected and reported",
		"kind", anomaly.Kind, "severity", anomaly.Severity, "event_id", eventID)

	a.active[eventID] = trackedEvent{
		anomaly:   anomaly,
		expiresAt: time.Now().Add(a.countdownDuration),
	}
}

func (a *Agent) checkForOverride(ctx context.Context) {
	events, err := a.client.PollStatus(ctx, a.agentID)
	if err != nil {
		a.logger.Error("polling guard status", "error", err)
		return
	}

	for _, e := range events {
		tracked, known := a.active[e.EventID]
		if !known {
			continue
		}

		switch {
		case e.OperatorResponse == "safe":
			a.logger.Info("event marked safe by operator, no action taken", "event_id", e.EventID)
			delete(a.active, e.EventID)

		case e.ShouldBlock:
			a.logger.Warn("event requires block, installing firewall rule", "event_id", e.EventID)
			a.executeBlock(ctx, tracked.anomaly)
			delete(a.active, e.EventID)

		default:
			a.logger.Debug("event countdown in progress", "event_id", e.EventID, "remaining_s", e.CountdownRemaining)
		}
	}

	now := time.Now()
	for id, tracked := range a.active {
		if now.After(tracked.expiresAt) {
			delete(a.active, id)
		}
	}
}

func (a *Agent) executeBlock(ctx context.Context, anomaly Anomaly) {
	if anomaly.TargetIP == "" {
		a.logger.Error("cannot block: anomaly has no target IP", "kind", anomaly.Kind)
		return
	}
	if err := a.blocker.Block(ctx, anomaly.TargetIP); err != nil {
		a.logger.Error("installing block rule", "target_ip", anomaly.TargetIP, "error", err)
		return
	}
	a.logger.Warn("blocked suspicious address", "target_ip", anomaly.TargetIP)
}
