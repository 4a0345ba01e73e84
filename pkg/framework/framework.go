// Package framework implements spec.md §4.5's framework mapper: a static
// lookup from finding-kind and context to an attack-technique record.
package framework

import "strings"

// Tactic is a MITRE ATT&CK tactic name.
type Tactic string

const (
	TacticReconnaissance   Tactic = "Reconnaissance"
	TacticResourceDev      Tactic = "Resource Development"
	TacticCredentialAccess Tactic = "Credential Access"
	TacticCommandControl   Tactic = "Command and Control"
	TacticExecution        Tactic = "Execution"
	TacticImpact           Tactic = "Impact"
)

// Technique is an attack-technique record.
type Technique struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Tactics     []Tactic `json:"tactics"`
	Description string   `json:"description"`
	Detection   string   `json:"detection"`
	Mitigation  string   `json:"mitigation"`
}

var techniques = map[string]Technique{
	"T1552.001": {
		ID:          "T1552.001",
		Name:        "Unsecured Credentials: Credentials In Files",
		Tactics:     []Tactic{TacticCredentialAccess},
		Description: "Adversaries may search file systems and repositories for insecurely stored credentials.",
		Detection:   "Monitor access to files and repositories that store credentials.",
		Mitigation:  "Remove credentials from code repositories; use secure credential storage.",
	},
	"T1552.004": {
		ID:          "T1552.004",
		Name:        "Unsecured Credentials: Private Keys",
		Tactics:     []Tactic{TacticCredentialAccess},
		Description: "Adversaries may search for private key certificate files on compromised systems.",
		Detection:   "Monitor access to private keys and SSH keys in repositories.",
		Mitigation:  "Secure private keys with encryption and access controls.",
	},
	"T1589.002": {
		ID:          "T1589.002",
		Name:        "Gather Victim Identity Information: Email Addresses",
		Tactics:     []Tactic{TacticReconnaissance},
		Description: "Adversaries may gather email addresses to target individuals.",
		Detection:   "Monitor for suspicious WHOIS queries and data harvesting.",
		Mitigation:  "Limit publicly available email addresses.",
	},
	"T1594": {
		ID:          "T1594",
		Name:        "Search Victim-Owned Websites",
		Tactics:     []Tactic{TacticReconnaissance},
		Description: "Adversaries may search websites owned by the victim for information.",
		Detection:   "Monitor for reconnaissance activity on company domains.",
		Mitigation:  "Minimize information disclosure on public websites.",
	},
	"T1596.002": {
		ID:          "T1596.002",
		Name:        "Search Open Technical Databases: WHOIS",
		Tactics:     []Tactic{TacticReconnaissance},
		Description: "Adversaries may search WHOIS data for information about victims.",
		Detection:   "Monitor for unusual WHOIS query patterns.",
		Mitigation:  "Consider WHOIS privacy protection services.",
	},
	"T1583.001": {
		ID:          "T1583.001",
		Name:        "Acquire Infrastructure: Domains",
		Tactics:     []Tactic{TacticResourceDev},
		Description: "Adversaries may acquire domains that can be used during targeting.",
		Detection:   "Monitor for registration of domains similar to the protected brand.",
		Mitigation:  "Proactive domain monitoring and takedowns.",
	},
	"T1071": {
		ID:          "T1071",
		Name:        "Application Layer Protocol",
		Tactics:     []Tactic{TacticCommandControl},
		Description: "Adversaries may communicate with compromised hosts over an application-layer protocol to blend in with existing traffic, often to infrastructure in unexpected geographies.",
		Detection:   "Monitor for connections to unexpected countries or ASNs from protected hosts.",
		Mitigation:  "Restrict outbound traffic to known-good destinations; alert on geographic anomalies.",
	},
	"T1059": {
		ID:          "T1059",
		Name:        "Command and Scripting Interpreter",
		Tactics:     []Tactic{TacticExecution},
		Description: "Adversaries may abuse command and script interpreters to execute commands or scripts on a host.",
		Detection:   "Monitor for process creation of unexpected interpreters or scripting engines.",
		Mitigation:  "Restrict interpreter execution via allow-listing and least-privilege accounts.",
	},
	"T1496": {
		ID:          "T1496",
		Name:        "Resource Hijacking",
		Tactics:     []Tactic{TacticImpact},
		Description: "Adversaries may leverage the resources of compromised systems to complete resource-intensive tasks, degrading or denying availability.",
		Detection:   "Monitor for sustained abnormal CPU, memory, or network utilization on a host.",
		Mitigation:  "Enforce resource quotas and alert on sustained utilization anomalies.",
	},
}

// findingMappings is the direct finding-kind -> technique-id table.
var findingMappings = map[string]string{
	"password":      "T1552.001",
	"api_key":        "T1552.001",
	"apikey":         "T1552.001",
	"secret":         "T1552.001",
	"secret_key":     "T1552.001",
	"token":          "T1552.001",
	"access_token":   "T1552.001",
	"credentials":    "T1552.001",
	"private_key":    "T1552.004",
	"ssh_key":        "T1552.004",
	"email":          "T1589.002",
	"typosquat":      "T1583.001",
	"phishing_domain": "T1583.001",
	"brand_abuse":    "T1583.001",
	"whois_exposure": "T1596.002",
	"subdomain_enum": "T1594",
	"geo":            "T1071",
	"process":        "T1059",
	"resource":       "T1496",
}

// Context carries the optional refinement clues spec.md §4.5 names:
// file_path, repository, and domain.
type Context struct {
	FilePath   string
	Repository string
	Domain     string
}

// Map resolves a finding kind (optionally refined by context) to a
// Technique. The second return value is false when no mapping exists.
func Map(findingKind string, ctx Context) (Technique, bool) {
	kind := strings.ToLower(findingKind)

	id, ok := findingMappings[kind]
	if !ok {
		id, ok = mapFromContext(kind, ctx)
	}
	if !ok {
		return Technique{}, false
	}

	t, ok := techniques[id]
	return t, ok
}

func mapFromContext(kind string, ctx Context) (string, bool) {
	if ctx.FilePath != "" {
		fp := strings.ToLower(ctx.FilePath)
		if containsAnyOf(fp, ".pem", ".key", ".ssh") {
			return "T1552.004", true
		}
		if containsAnyOf(fp, ".env", "config", "credentials") {
			return "T1552.001", true
		}
	}

	if ctx.Repository != "" && (kind == "leak" || kind == "exposure") {
		return "T1552.001", true
	}

	if ctx.Domain != "" {
		return "T1583.001", true
	}

	return "", false
}

func containsAnyOf(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ByID returns a technique by its MITRE id.
func ByID(id string) (Technique, bool) {
	t, ok := techniques[id]
	return t, ok
}
