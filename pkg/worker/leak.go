package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/OP-88/Sentinyl/internal/telemetry"
	"github.com/OP-88/Sentinyl/pkg/framework"
	"github.com/OP-88/Sentinyl/pkg/graph"
	"github.com/OP-88/Sentinyl/pkg/leak"
	"github.com/OP-88/Sentinyl/pkg/leakhunter"
	"github.com/OP-88/Sentinyl/pkg/notify"
	"github.com/OP-88/Sentinyl/pkg/risk"
	"github.com/OP-88/Sentinyl/pkg/scanjob"
)

const queueNameLeak = "queue:leak"

// RunLeak drains the leak queue: for every scan job, search public code
// repositories for the monitored domain near sensitive keywords and
// persist any match as a Leak, per spec.md §4.4.
func (d *Deps) RunLeak(ctx context.Context) error {
	return d.pollLoop(ctx, queueNameLeak, d.handleLeakJob)
}

func (d *Deps) handleLeakJob(ctx context.Context, body []byte) error {
	var msg scanJobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshalling leak job message: %w", err)
	}

	jobID, err := parseUUID(msg.JobID, "job_id")
	if err != nil {
		return err
	}

	if err := d.Jobs.StartProcessing(ctx, jobID); err != nil {
		return fmt.Errorf("starting leak job %s: %w", jobID, err)
	}

	matches, err := d.LeakHunter.Search(ctx, msg.Domain)
	if err != nil {
		if failErr := d.Jobs.Fail(ctx, jobID, err.Error()); failErr != nil {
			d.Logger.Error("marking leak job failed", "job_id", jobID, "error", failErr)
		}
		telemetry.ScanJobsProcessedTotal.WithLabelValues(string(scanjob.KindLeak), "failed").Inc()
		return fmt.Errorf("searching for leaks: %w", err)
	}

	for _, m := range matches {
		if err := d.recordLeak(ctx, jobID, msg.Domain, m); err != nil {
			d.Logger.Error("recording leak", "repo", m.RepoName, "error", err)
		}
	}

	telemetry.ScanJobsProcessedTotal.WithLabelValues(string(scanjob.KindLeak), "completed").Inc()
	if err := d.Jobs.Complete(ctx, jobID); err != nil {
		return fmt.Errorf("completing leak job %s: %w", jobID, err)
	}
	return nil
}

func (d *Deps) recordLeak(ctx context.Context, jobID uuid.UUID, domainName string, m leakhunter.Match) error {
	assessment := risk.Score(risk.Finding{
		Kind:         string(m.Kind),
		Visibility:   "public",
		DiscoveredAt: time.Now().UTC(),
		AssetValue:   "production",
	}, time.Now().UTC())

	l, err := d.Leaks.Create(ctx, leak.CreateParams{
		JobRef:   jobID,
		Domain:   domainName,
		RepoURL:  m.RepoURL,
		RepoName: m.RepoName,
		FilePath: m.FilePath,
		Snippet:  m.Snippet,
		LeakKind: m.Kind,
		Severity: m.Severity,
		Public:   true,
	})
	if err != nil {
		return fmt.Errorf("creating leak: %w", err)
	}
	telemetry.LeaksFoundTotal.WithLabelValues(string(l.Severity)).Inc()

	d.ingestLeakGraph(ctx, l)
	d.notifyLeak(ctx, assessment, l)

	return nil
}

func (d *Deps) ingestLeakGraph(ctx context.Context, l leak.Leak) {
	node := graph.Node{
		Label: "LeakedCredential",
		ID:    l.ID.String(),
		Properties: map[string]any{
			"kind":     string(l.LeakKind),
			"severity": string(l.Severity),
		},
	}
	edges := []graph.Edge{{
		From:    graph.Node{Label: "Repository", ID: l.RepoURL},
		RelType: "EXPOSES",
		To:      node,
	}}
	if err := d.Graph.Ingest(ctx, node, edges); err != nil {
		d.Logger.Warn("graph ingestion failed", "leak_id", l.ID, "error", err)
	}
}

func (d *Deps) notifyLeak(ctx context.Context, a risk.Assessment, l leak.Leak) {
	if d.Notify == nil {
		return
	}

	frameworkContext := ""
	if tech, ok := framework.Map(string(l.LeakKind), framework.Context{
		FilePath:   l.FilePath,
		Repository: l.RepoName,
	}); ok {
		frameworkContext = fmt.Sprintf("%s: %s", tech.ID, tech.Name)
	}

	err := d.Notify.Send(ctx, notify.Payload{
		Title:            fmt.Sprintf("Credential leak found in %s", l.RepoName),
		Severity:         string(l.Severity),
		RiskScore:        a.Score,
		FrameworkContext: frameworkContext,
		Details: map[string]string{
			"file_path": l.FilePath,
			"repo_url":  l.RepoURL,
			"reasoning": a.Reasoning,
		},
	})
	if err != nil {
		d.Logger.Warn("notification fan-out failed", "leak_id", l.ID, "error", err)
		return
	}
	if err := d.Leaks.MarkNotified(ctx, l.ID); err != nil {
		d.Logger.Warn("marking leak notified", "leak_id", l.ID, "error", err)
	}
}
