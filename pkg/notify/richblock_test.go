package notify

import "testing"

func TestGuardActionFromURL(t *testing.T) {
	cases := []struct {
		name       string
		url        string
		wantAction string
		wantValue  string
		wantOK     bool
	}{
		{"safe verdict", "/guard/response?event_id=abc-123&response=safe", "guard_safe", "abc-123", true},
		{"block verdict", "/guard/response?event_id=abc-123&response=block", "guard_block", "abc-123", true},
		{"unrelated link", "https://example.com/runbook", "", "", false},
		{"missing event id", "/guard/response?response=safe", "", "", false},
		{"unknown response value", "/guard/response?event_id=abc-123&response=maybe", "", "", false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			actionID, value, ok := guardActionFromURL(c.url)
			if ok != c.wantOK {
				t.Fatalf("ok = %v, want %v", ok, c.wantOK)
			}
			if !ok {
				return
			}
			if actionID != c.wantAction || value != c.wantValue {
				t.Fatalf("got (%s, %s), want (%s, %s)", actionID, value, c.wantAction, c.wantValue)
			}
		})
	}
}
