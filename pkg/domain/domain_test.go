package domain

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw      string
		wantName string
		wantOK   bool
	}{
		{"  Example.COM  ", "example.com", true},
		{"sub.example.org", "sub.example.org", true},
		{"no-dot-here", "", false},
		{"", "", false},
	}

	for _, c := range cases {
		name, ok := Normalize(c.raw)
		if ok != c.wantOK || name != c.wantName {
			t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)", c.raw, name, ok, c.wantName, c.wantOK)
		}
	}
}
