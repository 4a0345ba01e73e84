package hostagent

import "testing"

func TestSplitHostPort(t *testing.T) {
	cases := []struct {
		addr     string
		wantHost string
		wantPort string
		wantOK   bool
	}{
		{"203.0.113.9:443", "203.0.113.9", "443", true},
		{"[2001:db8::1]:22", "[2001:db8::1]", "22", true},
		{"no-colon", "", "", false},
	}

	for _, c := range cases {
		host, port, ok := splitHostPort(c.addr)
		if ok != c.wantOK || host != c.wantHost || port != c.wantPort {
			t.Errorf("splitHostPort(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.addr, host, port, ok, c.wantHost, c.wantPort, c.wantOK)
		}
	}
}

func TestParsePIDFromSSExtra(t *testing.T) {
	cases := []struct {
		extra string
		want  int
	}{
		{`users:(("nginx",pid=4821,fd=12))`, 4821},
		{`users:(("python3",pid=99))`, 99},
		{"", 0},
		{"no pid here", 0},
	}

	for _, c := range cases {
		if got := parsePIDFromSSExtra(c.extra); got != c.want {
			t.Errorf("parsePIDFromSSExtra(%q) = %d, want %d", c.extra, got, c.want)
		}
	}
}

func TestFindShellDescendantDirectChild(t *testing.T) {
	byPID := map[int]process{
		1: {PID: 1, PPID: 0, Comm: "nginx"},
		2: {PID: 2, PPID: 1, Comm: "bash"},
	}
	children := map[int][]int{1: {2}}

	found, ok := findShellDescendant(1, byPID, children, 0)
	if !ok {
		t.Fatal("findShellDescendant: ok = false, want true")
	}
	if found.PID != 2 {
		t.Errorf("found.PID = %d, want 2", found.PID)
	}
}

func TestFindShellDescendantIndirectChild(t *testing.T) {
	byPID := map[int]process{
		1: {PID: 1, PPID: 0, Comm: "node"},
		2: {PID: 2, PPID: 1, Comm: "node"},
		3: {PID: 3, PPID: 2, Comm: "sh"},
	}
	children := map[int][]int{1: {2}, 2: {3}}

	found, ok := findShellDescendant(1, byPID, children, 0)
	if !ok {
		t.Fatal("findShellDescendant: ok = false, want true")
	}
	if found.PID != 3 {
		t.Errorf("found.PID = %d, want 3", found.PID)
	}
}

func TestFindShellDescendantNoShell(t *testing.T) {
	byPID := map[int]process{
		1: {PID: 1, PPID: 0, Comm: "nginx"},
		2: {PID: 2, PPID: 1, Comm: "node"},
	}
	children := map[int][]int{1: {2}}

	if _, ok := findShellDescendant(1, byPID, children, 0); ok {
		t.Error("findShellDescendant: ok = true, want false")
	}
}

func TestFindShellDescendantDepthCap(t *testing.T) {
	byPID := map[int]process{}
	children := map[int][]int{}
	for i := 0; i < 12; i++ {
		byPID[i] = process{PID: i, PPID: i - 1, Comm: "node"}
		children[i-1] = []int{i}
	}
	byPID[12] = process{PID: 12, PPID: 11, Comm: "bash"}
	children[11] = []int{12}

	if _, ok := findShellDescendant(0, byPID, children, 0); ok {
		t.Error("findShellDescendant: found shell beyond depth cap, want not found")
	}
}

func TestHighRiskCountriesAndTrustedIPs(t *testing.T) {
	if !highRiskCountries["RU"] {
		t.Error(`highRiskCountries["RU"] = false, want true`)
	}
	if highRiskCountries["US"] {
		t.Error(`highRiskCountries["US"] = true, want false`)
	}
	if !trustedIPs["8.8.8.8"] {
		t.Error(`trustedIPs["8.8.8.8"] = false, want true`)
	}
}
