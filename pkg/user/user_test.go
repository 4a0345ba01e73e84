package user

import "testing"

func TestDefaultQuotasPerTier(t *testing.T) {
	cases := []struct {
		tier           Tier
		wantScanQuota  int
		wantAgentQuota int
	}{
		{TierFree, 5, FeatureExcluded},
		{TierScout, 100, FeatureExcluded},
		{TierGuard, FeatureExcluded, 10},
		{TierCombined, 500, 25},
	}

	for _, c := range cases {
		scanQuota, agentQuota := defaultQuotas(c.tier)
		if scanQuota != c.wantScanQuota || agentQuota != c.wantAgentQuota {
			t.Errorf("defaultQuotas(%s) = (%d, %d), want (%d, %d)",
				c.tier, scanQuota, agentQuota, c.wantScanQuota, c.wantAgentQuota)
		}
	}
}

func TestHasScanFeature(t *testing.T) {
	excluded := Subscription{ScanQuota: FeatureExcluded}
	if excluded.HasScanFeature() {
		t.Error("HasScanFeature() = true for a FeatureExcluded scan quota")
	}

	unlimited := Subscription{ScanQuota: 0}
	if !unlimited.HasScanFeature() {
		t.Error("HasScanFeature() = false for an unlimited (0) scan quota")
	}

	capped := Subscription{ScanQuota: 100}
	if !capped.HasScanFeature() {
		t.Error("HasScanFeature() = false for a capped scan quota")
	}
}

func TestHasAgentFeature(t *testing.T) {
	excluded := Subscription{AgentQuota: FeatureExcluded}
	if excluded.HasAgentFeature() {
		t.Error("HasAgentFeature() = true for a FeatureExcluded agent quota")
	}

	capped := Subscription{AgentQuota: 10}
	if !capped.HasAgentFeature() {
		t.Error("HasAgentFeature() = false for a capped agent quota")
	}
}

func TestHasScanQuota(t *testing.T) {
	cases := []struct {
		name string
		sub  Subscription
		want bool
	}{
		{"unlimited", Subscription{ScanQuota: 0, ScanUsed: 9999}, true},
		{"room remaining", Subscription{ScanQuota: 5, ScanUsed: 4}, true},
		{"exhausted", Subscription{ScanQuota: 5, ScanUsed: 5}, false},
		{"feature excluded", Subscription{ScanQuota: FeatureExcluded, ScanUsed: 0}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.sub.HasScanQuota(); got != c.want {
				t.Errorf("HasScanQuota() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestHasAgentQuota(t *testing.T) {
	cases := []struct {
		name string
		sub  Subscription
		want bool
	}{
		{"unlimited", Subscription{AgentQuota: 0, AgentUsed: 9999}, true},
		{"room remaining", Subscription{AgentQuota: 10, AgentUsed: 9}, true},
		{"exhausted", Subscription{AgentQuota: 10, AgentUsed: 10}, false},
		{"feature excluded", Subscription{AgentQuota: FeatureExcluded, AgentUsed: 0}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.sub.HasAgentQuota(); got != c.want {
				t.Errorf("HasAgentQuota() = %v, want %v", got, c.want)
			}
		})
	}
}
