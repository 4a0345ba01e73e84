package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/OP-88/Sentinyl/internal/telemetry"
	"github.com/OP-88/Sentinyl/pkg/dnsresolve"
	"github.com/OP-88/Sentinyl/pkg/framework"
	"github.com/OP-88/Sentinyl/pkg/fuzzer"
	"github.com/OP-88/Sentinyl/pkg/graph"
	"github.com/OP-88/Sentinyl/pkg/notify"
	"github.com/OP-88/Sentinyl/pkg/risk"
	"github.com/OP-88/Sentinyl/pkg/scanjob"
	"github.com/OP-88/Sentinyl/pkg/threat"
)

// RunTyposquat drains the typosquat queue: for every scan job, generate
// candidate domains, resolve them, and persist any that resolve as a
// Threat, per spec.md §4.3.
func (d *Deps) RunTyposquat(ctx context.Context) error {
	return d.pollLoop(ctx, queueNameTyposquat, d.handleTyposquatJob)
}

const queueNameTyposquat = "queue:typosquat"

func (d *Deps) handleTyposquatJob(ctx context.Context, body []byte) error {
	var msg scanJobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshalling typosquat job message: %w", err)
	}

	jobID, err := parseUUID(msg.JobID, "job_id")
	if err != nil {
		return err
	}

	if err := d.Jobs.StartProcessing(ctx, jobID); err != nil {
		return fmt.Errorf("starting typosquat job %s: %w", jobID, err)
	}

	candidates := fuzzer.New(msg.Domain).Generate()
	results := d.Resolver.ResolveAll(ctx, candidates)

	for _, r := range results {
		if err := d.recordTyposquatThreat(ctx, jobID, msg.Domain, r); err != nil {
			d.Logger.Error("recording typosquat threat", "candidate", r.Domain, "error", err)
		}
	}

	telemetry.ScanJobsProcessedTotal.WithLabelValues(string(scanjob.KindTyposquat), "completed").Inc()
	if err := d.Jobs.Complete(ctx, jobID); err != nil {
		return fmt.Errorf("completing typosquat job %s: %w", jobID, err)
	}
	return nil
}

func (d *Deps) recordTyposquatThreat(ctx context.Context, jobID uuid.UUID, original string, r dnsresolve.Result) error {
	var ip *string
	if len(r.Addresses) > 0 {
		ip = &r.Addresses[0]
	}

	assessment := risk.Score(risk.Finding{
		Kind:         "typosquat",
		Visibility:   "public",
		DiscoveredAt: time.Now().UTC(),
		AssetValue:   "production",
	}, time.Now().UTC())

	t, err := d.Threats.Create(ctx, threat.CreateParams{
		JobRef:          jobID,
		OriginalDomain:  original,
		MaliciousDomain: r.Domain,
		ThreatKind:      "typosquat",
		Severity:        threat.Severity(assessment.Severity),
		IP:              ip,
		Nameservers:     r.Nameservers,
	})
	if err != nil {
		return fmt.Errorf("creating threat: %w", err)
	}

	d.ingestTyposquatGraph(ctx, original, t)
	d.notifyTyposquatThreat(ctx, assessment, t)

	return nil
}

func (d *Deps) ingestTyposquatGraph(ctx context.Context, original string, t threat.Threat) {
	node := graph.Node{
		Label: "TyposquatDomain",
		ID:    t.MaliciousDomain,
		Properties: map[string]any{
			"threat_id": t.ID.String(),
			"severity":  string(t.Severity),
		},
	}
	edges := []graph.Edge{{
		From:    graph.Node{Label: "Domain", ID: original},
		RelType: "TYPOSQUATS",
		To:      node,
	}}
	if err := d.Graph.Ingest(ctx, node, edges); err != nil {
		d.Logger.Warn("graph ingestion failed", "domain", t.MaliciousDomain, "error", err)
	}
}

func (d *Deps) notifyTyposquatThreat(ctx context.Context, a risk.Assessment, t threat.Threat) {
	if d.Notify == nil {
		return
	}

	frameworkContext := ""
	if tech, ok := framework.Map("typosquat", framework.Context{Domain: t.OriginalDomain}); ok {
		frameworkContext = fmt.Sprintf("%s: %s", tech.ID, tech.Name)
	}

	err := d.Notify.Send(ctx, notify.Payload{
		Title:            fmt.Sprintf("Typosquat domain resolving: %s", t.MaliciousDomain),
		Severity:         string(t.Severity),
		RiskScore:        a.Score,
		FrameworkContext: frameworkContext,
		Details: map[string]string{
			"original_domain": t.OriginalDomain,
			"reasoning":       a.Reasoning,
		},
	})
	if err != nil {
		d.Logger.Warn("notification fan-out failed", "threat_id", t.ID, "error", err)
		return
	}
	if err := d.Threats.MarkNotified(ctx, t.ID); err != nil {
		d.Logger.Warn("marking threat notified", "threat_id", t.ID, "error", err)
	}
}
