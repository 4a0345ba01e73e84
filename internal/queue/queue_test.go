package queue

import "testing"

func TestConstants(t *testing.T) {
	if Typosquat != "queue:typosquat" {
		t.Errorf("Typosquat = %q", Typosquat)
	}
	if Leak != "queue:leak" {
		t.Errorf("Leak = %q", Leak)
	}
	if Guard != "queue:guard" {
		t.Errorf("Guard = %q", Guard)
	}
	if PopTimeout.Seconds() != 5 {
		t.Errorf("PopTimeout = %v, want 5s", PopTimeout)
	}
}
