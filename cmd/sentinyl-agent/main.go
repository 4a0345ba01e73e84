// Command sentinyl-agent is the host-based dead-man's-switch sensor:
// it watches a single machine for geo/process/resource anomalies,
// reports them to the Sentinyl API, and enforces the operator's verdict
// once it arrives (or auto-blocks once the countdown lapses). See
// pkg/hostagent.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/OP-88/Sentinyl/internal/telemetry"
	"github.com/OP-88/Sentinyl/pkg/hostagent"
)

func main() {
	apiURL := flag.String("api-url", "http://localhost:8080", "Sentinyl API base URL")
	agentID := flag.String("agent-id", "", "unique agent identifier (default: random UUID)")
	pollInterval := flag.Int("poll-interval", 30, "anomaly scan interval, seconds")
	statusInterval := flag.Int("status-interval", 15, "operator verdict poll interval, seconds")
	countdown := flag.Int("countdown", 300, "auto-block countdown duration, seconds")
	ipInfoURL := flag.String("ipinfo-url", "https://ipinfo.io", "geo-lookup API base URL")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	apiKey := os.Getenv("SENTINYL_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "error: SENTINYL_API_KEY environment variable not set")
		os.Exit(1)
	}

	id := *agentID
	if id == "" {
		id = uuid.NewString()
	}

	logger := telemetry.NewLogger("text", *logLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	agent := hostagent.New(ctx, hostagent.Config{
		AgentID:             id,
		APIBaseURL:          *apiURL,
		APIKey:              apiKey,
		IPInfoURL:           *ipInfoURL,
		PollInterval:        time.Duration(*pollInterval) * time.Second,
		StatusCheckInterval: time.Duration(*statusInterval) * time.Second,
		CountdownDuration:   time.Duration(*countdown) * time.Second,
	}, logger)

	if err := agent.Run(ctx); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}
