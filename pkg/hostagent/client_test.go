package hostagent

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendAlert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/guard/alert" {
			t.Errorf("path = %q, want /guard/alert", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req alertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		if req.AgentID != "agent-1" || req.AnomalyType != "geo" {
			t.Errorf("unexpected request body: %+v", req)
		}

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(alertResponse{EventID: "evt-123", Status: "pending", CountdownSecond: 300})
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL, "test-key")
	eventID, err := c.SendAlert(t.Context(), "agent-1", "host-a", Anomaly{Kind: "geo", Severity: "critical"})
	if err != nil {
		t.Fatalf("SendAlert: %v", err)
	}
	if eventID != "evt-123" {
		t.Errorf("eventID = %q, want evt-123", eventID)
	}
}

func TestSendAlertServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL, "test-key")
	if _, err := c.SendAlert(t.Context(), "agent-1", "host-a", Anomaly{Kind: "geo"}); err == nil {
		t.Error("SendAlert: error = nil, want error on 500 response")
	}
}

func TestPollStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/guard/status/agent-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(statusResponse{
			AgentID:       "agent-1",
			PendingEvents: 1,
			Events: []StatusEvent{
				{EventID: "evt-1", OperatorResponse: "safe"},
			},
		})
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL, "test-key")
	events, err := c.PollStatus(t.Context(), "agent-1")
	if err != nil {
		t.Fatalf("PollStatus: %v", err)
	}
	if len(events) != 1 || events[0].EventID != "evt-1" || events[0].OperatorResponse != "safe" {
		t.Errorf("events = %+v", events)
	}
}

func TestPollStatusUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL, "test-key")
	if _, err := c.PollStatus(t.Context(), "agent-1"); err == nil {
		t.Error("PollStatus: error = nil, want error on 403 response")
	}
}
