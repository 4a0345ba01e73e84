package slack

import "testing"

func TestActionToVerdict(t *testing.T) {
	cases := []struct {
		actionID string
		wantOK   bool
	}{
		{"guard_safe", true},
		{"guard_block", true},
		{"ack_alert", false},
		{"", false},
	}

	for _, c := range cases {
		response, ok := actionToVerdict(c.actionID)
		if ok != c.wantOK {
			t.Errorf("actionToVerdict(%q) ok = %v, want %v", c.actionID, ok, c.wantOK)
		}
		if ok && string(response) == "" {
			t.Errorf("actionToVerdict(%q) returned empty response with ok=true", c.actionID)
		}
	}
}
