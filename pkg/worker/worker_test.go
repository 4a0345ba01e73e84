package worker

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestParseUUID(t *testing.T) {
	valid := uuid.New().String()
	got, err := parseUUID(valid, "job_id")
	if err != nil {
		t.Fatalf("parseUUID(%q) error = %v", valid, err)
	}
	if got.String() != valid {
		t.Errorf("parseUUID(%q) = %v, want %v", valid, got, valid)
	}

	if _, err := parseUUID("not-a-uuid", "job_id"); err == nil {
		t.Error("parseUUID(\"not-a-uuid\") error = nil, want error")
	}
}

func TestScanJobMessageUnmarshal(t *testing.T) {
	body := []byte(`{"job_id":"11111111-1111-1111-1111-111111111111","domain":"example.com"}`)

	var msg scanJobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.JobID != "11111111-1111-1111-1111-111111111111" {
		t.Errorf("JobID = %q", msg.JobID)
	}
	if msg.Domain != "example.com" {
		t.Errorf("Domain = %q", msg.Domain)
	}

	if err := json.Unmarshal([]byte(`not json`), &scanJobMessage{}); err == nil {
		t.Error("unmarshal malformed body: error = nil, want error")
	}
}

func TestGuardEventMessageUnmarshal(t *testing.T) {
	body := []byte(`{"event_id":"22222222-2222-2222-2222-222222222222","agent_id":"host-01"}`)

	var msg guardEventMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.EventID != "22222222-2222-2222-2222-222222222222" {
		t.Errorf("EventID = %q", msg.EventID)
	}
	if msg.AgentID != "host-01" {
		t.Errorf("AgentID = %q", msg.AgentID)
	}
}

func TestQueueNames(t *testing.T) {
	if queueNameTyposquat != "queue:typosquat" {
		t.Errorf("queueNameTyposquat = %q", queueNameTyposquat)
	}
	if queueNameGuard != "queue:guard" {
		t.Errorf("queueNameGuard = %q", queueNameGuard)
	}
}
