package framework

import "testing"

func TestDirectMappings(t *testing.T) {
	cases := map[string]string{
		"password":    "T1552.001",
		"private_key": "T1552.004",
		"email":       "T1589.002",
		"typosquat":   "T1583.001",
	}
	for kind, wantID := range cases {
		got, ok := Map(kind, Context{})
		if !ok {
			t.Fatalf("Map(%q): expected a mapping", kind)
		}
		if got.ID != wantID {
			t.Errorf("Map(%q) = %q, want %q", kind, got.ID, wantID)
		}
	}
}

func TestGuardAnomalyMappings(t *testing.T) {
	cases := map[string]string{
		"geo":      "T1071",
		"process":  "T1059",
		"resource": "T1496",
	}
	for kind, wantID := range cases {
		got, ok := Map(kind, Context{})
		if !ok {
			t.Fatalf("Map(%q): expected a mapping", kind)
		}
		if got.ID != wantID {
			t.Errorf("Map(%q) = %q, want %q", kind, got.ID, wantID)
		}
	}
}

func TestGuardAnomalyIgnoresTargetIPDomainHint(t *testing.T) {
	// A geo anomaly's remote IP must never fall through to the
	// domain-acquisition heuristic and resolve as T1583.001.
	got, ok := Map("geo", Context{Domain: "203.0.113.5"})
	if !ok || got.ID != "T1071" {
		t.Fatalf("Map(geo) with a TargetIP-shaped domain hint = %+v ok=%v, want T1071", got, ok)
	}
}

func TestContextOverride(t *testing.T) {
	got, ok := Map("leak", Context{FilePath: "config/.env"})
	if !ok || got.ID != "T1552.001" {
		t.Fatalf("expected .env file_path to route to T1552.001, got %+v ok=%v", got, ok)
	}

	got, ok = Map("leak", Context{FilePath: "id_rsa.pem"})
	if !ok || got.ID != "T1552.004" {
		t.Fatalf("expected .pem file_path to route to T1552.004, got %+v ok=%v", got, ok)
	}

	got, ok = Map("unknown", Context{Domain: "example.com"})
	if !ok || got.ID != "T1583.001" {
		t.Fatalf("expected domain-bearing context to route to T1583.001, got %+v ok=%v", got, ok)
	}
}

func TestNoMapping(t *testing.T) {
	if _, ok := Map("nonsense", Context{}); ok {
		t.Fatal("expected no mapping for unrecognized finding kind")
	}
}
