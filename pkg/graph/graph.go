// Package graph implements spec.md §4.5's graph ingester: upserting nodes
// and edges into a property graph, degrading to a no-op if unavailable.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Node is a property-graph vertex, merged by (Label, ID).
type Node struct {
	Label      string         `json:"label"`
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Edge is a directed, typed relationship between two nodes.
type Edge struct {
	From       Node           `json:"from"`
	RelType    string         `json:"rel_type"`
	To         Node           `json:"to"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Ingester upserts a primary node and its outgoing edges into the
// investigation graph.
type Ingester interface {
	Ingest(ctx context.Context, node Node, edges []Edge) error
}

// NoopIngester discards everything. Used when the graph service is
// unreachable at startup; the rest of the system remains fully
// functional.
type NoopIngester struct{}

// Ingest is a no-op.
func (NoopIngester) Ingest(context.Context, Node, []Edge) error { return nil }

// HTTPIngester upserts via a remote graph service's HTTP ingest endpoint.
type HTTPIngester struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPIngester creates an HTTPIngester against baseURL.
func NewHTTPIngester(baseURL string) *HTTPIngester {
	return &HTTPIngester{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

type ingestPayload struct {
	Node  Node   `json:"node"`
	Edges []Edge `json:"edges"`
}

// Ingest upserts node and merges each edge.
func (g *HTTPIngester) Ingest(ctx context.Context, node Node, edges []Edge) error {
	body, err := json.Marshal(ingestPayload{Node: node, Edges: edges})
	if err != nil {
		return fmt.Errorf("marshalling ingest payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/ingest", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling graph service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("graph service returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Ping checks reachability of the graph service at startup. Callers
// should fall back to NoopIngester on failure and log a single warning,
// per spec.md §4.5.
func (g *HTTPIngester) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("building ping request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pinging graph service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("graph service ping returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// NewIngester pings baseURL and returns an HTTPIngester on success, or a
// NoopIngester with a single warning on failure. An empty baseURL always
// yields a NoopIngester.
func NewIngester(ctx context.Context, baseURL string, logger *slog.Logger) Ingester {
	if baseURL == "" {
		return NoopIngester{}
	}

	ingester := NewHTTPIngester(baseURL)
	if err := ingester.Ping(ctx); err != nil {
		logger.Warn("graph service unreachable, ingestion disabled", "error", err)
		return NoopIngester{}
	}
	return ingester
}
