package guard

import (
	"testing"
	"time"
)

func TestShouldBlockInvariant(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expires := start.Add(countdownDuration)

	cases := []struct {
		name     string
		response OperatorResponse
		now      time.Time
		want     bool
	}{
		{"block verdict before expiry", ResponseBlock, start.Add(10 * time.Second), true},
		{"block verdict after expiry", ResponseBlock, expires.Add(time.Hour), true},
		{"safe verdict before expiry", ResponseSafe, start.Add(10 * time.Second), false},
		{"safe verdict after expiry wins over auto-block", ResponseSafe, expires.Add(time.Hour), false},
		{"no verdict before expiry", ResponseNone, start.Add(10 * time.Second), false},
		{"no verdict exactly at expiry", ResponseNone, expires, true},
		{"no verdict after expiry auto-blocks", ResponseNone, expires.Add(time.Hour), true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := GuardEvent{
				CountdownStartedAt: start,
				CountdownExpiresAt: expires,
				OperatorResponse:   c.response,
			}
			if got := ShouldBlock(e, c.now); got != c.want {
				t.Errorf("ShouldBlock() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestCountdownRemainingNeverNegative(t *testing.T) {
	start := time.Now()
	e := GuardEvent{CountdownStartedAt: start, CountdownExpiresAt: start.Add(countdownDuration)}

	if r := CountdownRemaining(e, start.Add(10*time.Hour)); r != 0 {
		t.Fatalf("expected 0 remaining long after expiry, got %v", r)
	}
	if r := CountdownRemaining(e, start); r != countdownDuration {
		t.Fatalf("expected full countdown remaining at start, got %v", r)
	}
}

func TestExpiryOrderingIndependence(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expires := start.Add(countdownDuration)

	// A safe verdict recorded before expiry must still win even when the
	// event is evaluated well after expiry (late poll), per spec.md §4.8:
	// "verdict arriving after expiry but before the next poll must still
	// be honored."
	e := GuardEvent{CountdownStartedAt: start, CountdownExpiresAt: expires, OperatorResponse: ResponseSafe}
	if ShouldBlock(e, expires.Add(24*time.Hour)) {
		t.Fatal("a safe verdict must always win over lazy expiry, regardless of when it is observed")
	}
}
