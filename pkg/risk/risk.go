// Package risk implements spec.md §4.5's risk scorer: a finding's
// {visibility, age, asset-tier} maps to a 0-100 score and severity bucket.
package risk

import (
	"fmt"
	"strings"
	"time"
)

// Severity is the risk scorer's output bucket.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	weightVisibility = 0.40
	weightAge        = 0.30
	weightAsset      = 0.30

	thresholdCritical = 80
	thresholdHigh     = 60
	thresholdMedium   = 40
)

// Finding is the input to the risk scorer, shared by typosquat, leak, and
// guard enrichment (spec.md §265: "Polymorphism over finding kinds").
type Finding struct {
	Kind         string
	Visibility   string
	DiscoveredAt time.Time
	AssetValue   string
}

// Assessment is the scorer's output: the weighted score, its severity
// bucket, the unweighted sub-scores, and a deterministic reasoning string.
type Assessment struct {
	Score     int
	Severity  Severity
	Factors   map[string]float64
	Reasoning string
}

// Score computes the weighted risk assessment for a finding, per spec.md
// §4.5's exact formulas.
func Score(f Finding, now time.Time) Assessment {
	visibility := scoreVisibility(f.Visibility)
	age := scoreAge(f.DiscoveredAt, now)
	asset := scoreAssetValue(f.AssetValue)

	weighted := visibility*weightVisibility + age*weightAge + asset*weightAsset
	final := int(weighted)
	severity := severityFor(final)

	return Assessment{
		Score:    final,
		Severity: severity,
		Factors: map[string]float64{
			"visibility":  visibility,
			"age":         age,
			"asset_value": asset,
		},
		Reasoning: reasoning(final, severity, f, now),
	}
}

func scoreVisibility(v string) float64 {
	switch strings.ToLower(v) {
	case "public":
		return 100
	case "private":
		return 50
	case "internal":
		return 25
	default:
		return 60
	}
}

// scoreAge decays linearly from 100 (discovered today) to 50 over the first
// 30 days, then holds flat at 50.
func scoreAge(discoveredAt, now time.Time) float64 {
	days := now.Sub(discoveredAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	ageDays := int(days)

	switch {
	case ageDays == 0:
		return 100
	case ageDays <= 30:
		return 100 - float64(ageDays)*(50.0/30.0)
	default:
		return 50
	}
}

func scoreAssetValue(v string) float64 {
	switch strings.ToLower(v) {
	case "production", "prod":
		return 100
	case "staging", "stage":
		return 70
	case "development", "dev":
		return 40
	case "test":
		return 30
	default:
		return 60
	}
}

func severityFor(score int) Severity {
	switch {
	case score >= thresholdCritical:
		return SeverityCritical
	case score >= thresholdHigh:
		return SeverityHigh
	case score >= thresholdMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func reasoning(score int, severity Severity, f Finding, now time.Time) string {
	parts := []string{fmt.Sprintf("%s risk (%d/100)", strings.ToUpper(string(severity)), score)}

	switch strings.ToLower(f.Visibility) {
	case "public":
		parts = append(parts, "publicly accessible")
	case "private":
		parts = append(parts, "restricted but exposed")
	}

	ageDays := int(now.Sub(f.DiscoveredAt).Hours() / 24)
	switch {
	case ageDays <= 0:
		parts = append(parts, "discovered today")
	case ageDays <= 7:
		parts = append(parts, "recent discovery")
	case ageDays > 30:
		parts = append(parts, "older finding")
	}

	switch strings.ToLower(f.AssetValue) {
	case "production", "prod":
		parts = append(parts, "affects production systems")
	case "development", "dev":
		parts = append(parts, "development environment only")
	}

	return strings.Join(parts, ", ") + "."
}
