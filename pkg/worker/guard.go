package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/OP-88/Sentinyl/internal/telemetry"
	"github.com/OP-88/Sentinyl/pkg/framework"
	"github.com/OP-88/Sentinyl/pkg/graph"
	"github.com/OP-88/Sentinyl/pkg/guard"
	"github.com/OP-88/Sentinyl/pkg/notify"
	"github.com/OP-88/Sentinyl/pkg/risk"
)

const queueNameGuard = "queue:guard"

// RunGuard drains the guard queue: for every newly created GuardEvent,
// enrich it with a risk score and framework mapping and fan it out to
// the configured notification channels. The dead-man's-switch countdown
// and its eventual auto-block are enforced independently by the agent's
// own poll loop (spec.md §4.6/§4.8) — this worker only alerts a human.
func (d *Deps) RunGuard(ctx context.Context) error {
	return d.pollLoop(ctx, queueNameGuard, d.handleGuardMessage)
}

func (d *Deps) handleGuardMessage(ctx context.Context, body []byte) error {
	var msg guardEventMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshalling guard event message: %w", err)
	}

	eventID, err := parseUUID(msg.EventID, "event_id")
	if err != nil {
		return err
	}

	event, err := d.Events.Get(ctx, eventID)
	if err != nil {
		return fmt.Errorf("loading guard event %s: %w", eventID, err)
	}

	telemetry.GuardEventsTotal.WithLabelValues(string(event.AnomalyKind)).Inc()

	d.ingestGuardGraph(ctx, event)
	d.notifyGuardEvent(ctx, event)

	return nil
}

func (d *Deps) ingestGuardGraph(ctx context.Context, e guard.GuardEvent) {
	node := graph.Node{
		Label: "GuardEvent",
		ID:    e.ID.String(),
		Properties: map[string]any{
			"anomaly_kind": string(e.AnomalyKind),
			"severity":     string(e.Severity),
		},
	}
	edges := []graph.Edge{{
		From:    graph.Node{Label: "GuardAgent", ID: e.AgentRef.String()},
		RelType: "TRIGGERED",
		To:      node,
	}}
	if err := d.Graph.Ingest(ctx, node, edges); err != nil {
		d.Logger.Warn("graph ingestion failed", "event_id", e.ID, "error", err)
	}
}

func (d *Deps) notifyGuardEvent(ctx context.Context, e guard.GuardEvent) {
	if d.Notify == nil {
		return
	}

	assessment := risk.Score(risk.Finding{
		Kind:         string(e.AnomalyKind),
		Visibility:   "internal",
		DiscoveredAt: time.Now().UTC(),
		AssetValue:   "production",
	}, time.Now().UTC())

	// Guard anomaly kinds (geo/process/resource) map directly via
	// findingMappings. TargetIP is a remote address on this host's
	// traffic, not a domain under Context.Domain's acquisition
	// heuristic, so no context hint is passed here.
	frameworkContext := ""
	if tech, ok := framework.Map(string(e.AnomalyKind), framework.Context{}); ok {
		frameworkContext = fmt.Sprintf("%s: %s", tech.ID, tech.Name)
	}

	remaining := guard.CountdownRemaining(e, time.Now().UTC())

	err := d.Notify.Send(ctx, notify.Payload{
		Title:            fmt.Sprintf("Guard alert: %s anomaly on agent %s", e.AnomalyKind, e.AgentRef),
		Severity:         string(e.Severity),
		RiskScore:        assessment.Score,
		FrameworkContext: frameworkContext,
		Details: map[string]string{
			"event_id":            e.ID.String(),
			"countdown_remaining": remaining.String(),
			"reasoning":           assessment.Reasoning,
		},
		ActionButtons: []notify.ActionButton{
			{Label: "Mark safe", URL: fmt.Sprintf("/guard/response?event_id=%s&response=safe", e.ID)},
			{Label: "Block now", URL: fmt.Sprintf("/guard/response?event_id=%s&response=block", e.ID)},
		},
	})
	if err != nil {
		d.Logger.Warn("notification fan-out failed", "event_id", e.ID, "error", err)
	}
}
