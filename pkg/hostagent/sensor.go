// Package hostagent implements spec.md §4.6's behavioral sensors and
// §4.7/§4.8's dead-man's-switch client loop that runs on a monitored
// host: detect geo/process/resource anomalies, report them, and poll
// for an operator verdict before auto-blocking.
package hostagent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// highRiskCountries are the two-letter ISO codes a geo anomaly alerts on.
var highRiskCountries = map[string]bool{
	"RU": true, "CN": true, "KP": true, "IR": true, "BY": true, "SY": true, "VE": true,
}

// trustedIPs are never reported, regardless of resolved country.
var trustedIPs = map[string]bool{
	"8.8.8.8": true,
	"1.1.1.1": true,
}

var webProcesses = map[string]bool{
	"node": true, "python": true, "python3": true, "nginx": true, "apache2": true, "httpd": true,
}

var shellProcesses = map[string]bool{
	"bash": true, "sh": true, "zsh": true, "dash": true, "ksh": true,
}

// Anomaly is a single behavioral finding ready to post to /guard/alert.
type Anomaly struct {
	Kind          string
	Severity      string
	TargetIP      string
	TargetCountry string
	ProcessName   string
	Details       map[string]string
}

// Sensor runs the three detectors spec.md §4.6 names against the local
// host. baselineCPU anchors the resource detector's threshold.
type Sensor struct {
	httpClient  *http.Client
	ipInfoURL   string
	baselineCPU float64
}

// NewSensor creates a Sensor and samples a CPU baseline over a few
// seconds, matching the original agent's five-sample warm-up.
func NewSensor(ctx context.Context, ipInfoURL string) *Sensor {
	s := &Sensor{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		ipInfoURL:  ipInfoURL,
	}
	var sum float64
	const samples = 5
	for i := 0; i < samples; i++ {
		sum += s.cpuPercent(ctx, time.Second)
	}
	s.baselineCPU = sum / samples
	return s
}

// DetectGeo scans established TCP connections for a remote address
// resolving to a high-risk country.
func (s *Sensor) DetectGeo(ctx context.Context) *Anomaly {
	conns, err := establishedConnections()
	if err != nil {
		return nil
	}

	for _, c := range conns {
		if trustedIPs[c.RemoteIP] || strings.HasPrefix(c.RemoteIP, "127.") {
			continue
		}
		country := s.lookupCountry(ctx, c.RemoteIP)
		if !highRiskCountries[country] {
			continue
		}
		return &Anomaly{
			Kind:          "geo",
			Severity:      "critical",
			TargetIP:      c.RemoteIP,
			TargetCountry: country,
			Details: map[string]string{
				"local_port":  strconv.Itoa(c.LocalPort),
				"remote_port": strconv.Itoa(c.RemotePort),
				"pid":         strconv.Itoa(c.PID),
			},
		}
	}
	return nil
}

// DetectProcess looks for a known web-server process with a shell as a
// direct or indirect child, the signature of a reverse shell.
func (s *Sensor) DetectProcess(ctx context.Context) *Anomaly {
	procs, err := listProcesses(ctx)
	if err != nil {
		return nil
	}

	byPID := make(map[int]process, len(procs))
	children := make(map[int][]int)
	for _, p := range procs {
		byPID[p.PID] = p
		children[p.PPID] = append(children[p.PPID], p.PID)
	}

	for _, p := range procs {
		if !webProcesses[p.Comm] {
			continue
		}
		if shellChild, ok := findShellDescendant(p.PID, byPID, children, 0); ok {
			return &Anomaly{
				Kind:        "process",
				Severity:    "critical",
				ProcessName: fmt.Sprintf("%s -> %s", p.Comm, shellChild.Comm),
				Details: map[string]string{
					"parent_pid":     strconv.Itoa(p.PID),
					"parent_cmdline": p.Args,
					"child_pid":      strconv.Itoa(shellChild.PID),
					"child_name":     shellChild.Comm,
				},
			}
		}
	}
	return nil
}

func findShellDescendant(pid int, byPID map[int]process, children map[int][]int, depth int) (process, bool) {
	if depth > 8 {
		return process{}, false
	}
	for _, childPID := range children[pid] {
		child, ok := byPID[childPID]
		if !ok {
			continue
		}
		if shellProcesses[child.Comm] {
			return child, true
		}
		if found, ok := findShellDescendant(childPID, byPID, children, depth+1); ok {
			return found, true
		}
	}
	return process{}, false
}

// DetectResource samples CPU over 2 seconds and flags sustained usage
// far above baseline, the signature of crypto-mining.
func (s *Sensor) DetectResource(ctx context.Context) *Anomaly {
	current := s.cpuPercent(ctx, 2*time.Second)
	if current <= 90 || current <= s.baselineCPU+40 {
		return nil
	}

	topName, topPID := topCPUProcess(ctx)
	return &Anomaly{
		Kind:        "resource",
		Severity:    "high",
		ProcessName: topName,
		Details: map[string]string{
			"cpu_percent":  strconv.FormatFloat(current, 'f', 1, 64),
			"baseline_cpu": strconv.FormatFloat(s.baselineCPU, 'f', 1, 64),
			"top_pid":      strconv.Itoa(topPID),
		},
	}
}

func (s *Sensor) lookupCountry(ctx context.Context, ip string) string {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/%s/json", s.ipInfoURL, ip)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return "Unknown"
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "Unknown"
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "Unknown"
	}
	var body struct {
		Country string `json:"country"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Country == "" {
		return "Unknown"
	}
	return body.Country
}

type connection struct {
	RemoteIP   string
	LocalPort  int
	RemotePort int
	PID        int
}

// establishedConnections shells out to ss, the modern replacement for
// netstat, to list established TCP sockets with their owning PID.
func establishedConnections() ([]connection, error) {
	out, err := exec.Command("ss", "-tnp", "state", "established").Output()
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}

	var conns []connection
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 || fields[0] == "State" {
			continue
		}
		remote := fields[4]
		host, portStr, ok := splitHostPort(remote)
		if !ok {
			continue
		}
		port, _ := strconv.Atoi(portStr)

		local := fields[3]
		_, localPortStr, _ := splitHostPort(local)
		localPort, _ := strconv.Atoi(localPortStr)

		pid := 0
		if len(fields) > 5 {
			pid = parsePIDFromSSExtra(strings.Join(fields[5:], " "))
		}

		conns = append(conns, connection{RemoteIP: host, RemotePort: port, LocalPort: localPort, PID: pid})
	}
	return conns, scanner.Err()
}

func splitHostPort(addr string) (host, port string, ok bool) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return "", "", false
	}
	return addr[:idx], addr[idx+1:], true
}

// parsePIDFromSSExtra pulls the pid out of ss's `users:(("name",pid=123,fd=4))`
// trailer. Best-effort: returns 0 if the format doesn't match.
func parsePIDFromSSExtra(extra string) int {
	idx := strings.Index(extra, "pid=")
	if idx < 0 {
		return 0
	}
	rest := extra[idx+len("pid="):]
	end := strings.IndexAny(rest, ",)")
	if end < 0 {
		end = len(rest)
	}
	pid, _ := strconv.Atoi(rest[:end])
	return pid
}

type process struct {
	PID  int
	PPID int
	Comm string
	Args string
}

// listProcesses parses `ps -axo pid=,ppid=,comm=,args=` to build the
// process tree used for descendant-shell detection.
func listProcesses(ctx context.Context) ([]process, error) {
	out, err := exec.CommandContext(ctx, "ps", "-axo", "pid=,ppid=,comm=,args=").Output()
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	var procs []process
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		ppid, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		args := ""
		if len(fields) > 3 {
			args = strings.Join(fields[3:], " ")
		}
		procs = append(procs, process{PID: pid, PPID: ppid, Comm: fields[2], Args: args})
	}
	return procs, scanner.Err()
}

func topCPUProcess(ctx context.Context) (name string, pid int) {
	out, err := exec.CommandContext(ctx, "ps", "-axo", "pid=,comm=,%cpu=", "--sort=-%cpu").Output()
	if err != nil {
		return "unknown", 0
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 {
			p, _ := strconv.Atoi(fields[0])
			return fields[1], p
		}
	}
	return "unknown", 0
}

// cpuPercent samples /proc/stat twice, window apart, and returns the
// percentage (0-100) of non-idle time observed between the samples.
func (s *Sensor) cpuPercent(ctx context.Context, window time.Duration) float64 {
	first, err := readProcStatTotals()
	if err != nil {
		return -1
	}

	select {
	case <-ctx.Done():
		return -1
	case <-time.After(window):
	}

	second, err := readProcStatTotals()
	if err != nil {
		return -1
	}

	totalDelta := second.total - first.total
	idleDelta := second.idle - first.idle
	if totalDelta <= 0 {
		return 0
	}
	return float64(totalDelta-idleDelta) / float64(totalDelta) * 100
}

type cpuTotals struct {
	total int64
	idle  int64
}

func readProcStatTotals() (cpuTotals, error) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return cpuTotals{}, err
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) == 0 {
		return cpuTotals{}, fmt.Errorf("empty /proc/stat")
	}
	fields := strings.Fields(lines[0])
	if len(fields) < 5 || fields[0] != "cpu" {
		return cpuTotals{}, fmt.Errorf("unexpected /proc/stat format")
	}

	var total int64
	for _, f := range fields[1:] {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			continue
		}
		total += v
	}
	idle, _ := strconv.ParseInt(fields[4], 10, 64)
	return cpuTotals{total: total, idle: idle}, nil
}
