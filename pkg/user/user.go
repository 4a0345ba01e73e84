// Package user implements the standard account model named in spec.md §3:
// User and Subscription. These entities are out of scope for
// re-specification of their authorization semantics — only real tables and
// quota bookkeeping are required so the rest of the system has something
// concrete to authorize against.
package user

import (
	"time"

	"github.com/google/uuid"
)

// Tier is a named subscription tier, per the glossary: free, scout-paid,
// guard-paid, combined.
type Tier string

const (
	TierFree     Tier = "free"
	TierScout    Tier = "scout"
	TierGuard    Tier = "guard"
	TierCombined Tier = "combined"
)

// FeatureExcluded marks a quota field whose tier does not include that
// feature at all, e.g. Scout's agent_quota or Guard's scan_quota. It is
// distinct from the glossary's quota==0 ("unlimited") sentinel: 0 means
// the feature is included with no cap. FeatureExcluded means the tier
// never grants it regardless of usage.
const FeatureExcluded = -1

// defaultQuotas returns the {scan_quota, agent_quota} pair for a tier.
// quota == 0 means unlimited; quota == FeatureExcluded means the tier
// does not include that feature.
func defaultQuotas(t Tier) (scanQuota, agentQuota int) {
	switch t {
	case TierScout:
		return 100, FeatureExcluded
	case TierGuard:
		return FeatureExcluded, 10
	case TierCombined:
		return 500, 25
	default:
		return 5, FeatureExcluded
	}
}

// User is a Sentinyl account owner.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Subscription tracks a user's tier and rolling 30-day usage quotas.
type Subscription struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Tier       Tier      `json:"tier"`
	ScanQuota  int       `json:"scan_quota"`
	AgentQuota int       `json:"agent_quota"`
	ScanUsed   int       `json:"scan_used"`
	AgentUsed  int       `json:"agent_used"`
	CycleStart time.Time `json:"cycle_start"`
	CycleEnd   time.Time `json:"cycle_end"`
}

// HasScanFeature reports whether the subscription's tier includes
// scanning at all, independent of remaining quota.
func (s Subscription) HasScanFeature() bool {
	return s.ScanQuota != FeatureExcluded
}

// HasAgentFeature reports whether the subscription's tier includes
// guard agents at all, independent of remaining quota.
func (s Subscription) HasAgentFeature() bool {
	return s.AgentQuota != FeatureExcluded
}

// HasScanQuota reports whether the subscription has room for one more scan.
func (s Subscription) HasScanQuota() bool {
	return s.ScanQuota == 0 || s.ScanUsed < s.ScanQuota
}

// HasAgentQuota reports whether the subscription has room for one more
// guard agent.
func (s Subscription) HasAgentQuota() bool {
	return s.AgentQuota == 0 || s.AgentUsed < s.AgentQuota
}
