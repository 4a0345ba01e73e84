package hostagent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/OP-88/Sentinyl/pkg/block"
)

func testAgentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestAgent(t *testing.T, statusSrv *httptest.Server, runner block.CommandRunner) *Agent {
	t.Helper()
	return &Agent{
		agentID:  "agent-1",
		hostname: "host-a",
		client:   newAPIClient(statusSrv.URL, "test-key"),
		blocker:  block.NewBlocker(runner, testAgentLogger()),
		logger:   testAgentLogger(),
		active:   make(map[string]trackedEvent),
	}
}

func TestCheckForOverrideMarkedSafe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(statusResponse{
			Events: []StatusEvent{{EventID: "evt-1", OperatorResponse: "safe"}},
		})
	}))
	defer srv.Close()

	var blocked bool
	runner := func(ctx context.Context, name string, args ...string) (string, error) {
		blocked = true
		return "", nil
	}

	a := newTestAgent(t, srv, runner)
	a.active["evt-1"] = trackedEvent{anomaly: Anomaly{Kind: "geo", TargetIP: "203.0.113.9"}, expiresAt: time.Now().Add(time.Hour)}

	a.checkForOverride(t.Context())

	if _, stillTracked := a.active["evt-1"]; stillTracked {
		t.Error("evt-1 still tracked after safe verdict, want removed")
	}
	if blocked {
		t.Error("blocker invoked for an event marked safe")
	}
}

func TestCheckForOverrideShouldBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(statusResponse{
			Events: []StatusEvent{{EventID: "evt-1", ShouldBlock: true}},
		})
	}))
	defer srv.Close()

	var blockedIP string
	runner := func(ctx context.Context, name string, args ...string) (string, error) {
		blockedIP = args[len(args)-3]
		return "", nil
	}

	a := newTestAgent(t, srv, runner)
	a.active["evt-1"] = trackedEvent{anomaly: Anomaly{Kind: "geo", TargetIP: "203.0.113.9"}, expiresAt: time.Now().Add(time.Hour)}

	a.checkForOverride(t.Context())

	if _, stillTracked := a.active["evt-1"]; stillTracked {
		t.Error("evt-1 still tracked after block verdict, want removed")
	}
	if blockedIP != "203.0.113.9" {
		t.Errorf("blocked IP = %q, want 203.0.113.9", blockedIP)
	}
}

func TestCheckForOverrideCountdownInProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(statusResponse{
			Events: []StatusEvent{{EventID: "evt-1", CountdownRemaining: 120}},
		})
	}))
	defer srv.Close()

	a := newTestAgent(t, srv, func(ctx context.Context, name string, args ...string) (string, error) {
		t.Fatal("blocker should not be invoked while countdown is in progress")
		return "", nil
	})
	a.active["evt-1"] = trackedEvent{anomaly: Anomaly{Kind: "geo"}, expiresAt: time.Now().Add(time.Hour)}

	a.checkForOverride(t.Context())

	if _, stillTracked := a.active["evt-1"]; !stillTracked {
		t.Error("evt-1 no longer tracked, want it to remain pending")
	}
}

func TestCheckForOverrideExpiresStaleEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(statusResponse{})
	}))
	defer srv.Close()

	a := newTestAgent(t, srv, func(ctx context.Context, name string, args ...string) (string, error) {
		return "", nil
	})
	a.active["evt-stale"] = trackedEvent{anomaly: Anomaly{Kind: "geo"}, expiresAt: time.Now().Add(-time.Minute)}

	a.checkForOverride(t.Context())

	if _, stillTracked := a.active["evt-stale"]; stillTracked {
		t.Error("evt-stale still tracked after expiry, want removed")
	}
}

func TestExecuteBlockNoTargetIP(t *testing.T) {
	called := false
	a := &Agent{
		blocker: block.NewBlocker(func(ctx context.Context, name string, args ...string) (string, error) {
			called = true
			return "", nil
		}, testAgentLogger()),
		logger: testAgentLogger(),
	}

	a.executeBlock(t.Context(), Anomaly{Kind: "process"})

	if called {
		t.Error("blocker invoked for an anomaly with no target IP")
	}
}
