package ingress

import (
	"net/http"

	"github.com/OP-88/Sentinyl/internal/httpserver"
	"github.com/OP-88/Sentinyl/pkg/user"
)

// writeScanQuotaRejection writes the 403 (tier excludes scanning) or 402
// (scan quota exhausted) response for a rejected IncrementScanUsed call.
func writeScanQuotaRejection(w http.ResponseWriter, upgradeURL string, sub user.Subscription) {
	if !sub.HasScanFeature() {
		httpserver.Respond(w, http.StatusForbidden, tierExcludedResponse{
			Detail:     "current subscription tier does not include scanning",
			UpgradeURL: upgradeURL,
		})
		return
	}
	httpserver.Respond(w, http.StatusPaymentRequired, quotaExceededResponse{
		Detail:     "scan quota exhausted for this billing cycle",
		UpgradeURL: upgradeURL,
		QuotaUsed:  sub.ScanUsed,
		QuotaLimit: sub.ScanQuota,
		ResetsAt:   sub.CycleEnd,
	})
}

// writeAgentQuotaRejection writes the 403 (tier excludes guard agents) or
// 402 (agent quota exhausted) response for a rejected IncrementAgentUsed
// call.
func writeAgentQuotaRejection(w http.ResponseWriter, upgradeURL string, sub user.Subscription) {
	if !sub.HasAgentFeature() {
		httpserver.Respond(w, http.StatusForbidden, tierExcludedResponse{
			Detail:     "current subscription tier does not include guard agents",
			UpgradeURL: upgradeURL,
		})
		return
	}
	httpserver.Respond(w, http.StatusPaymentRequired, quotaExceededResponse{
		Detail:     "guard agent quota exhausted for this billing cycle",
		UpgradeURL: upgradeURL,
		QuotaUsed:  sub.AgentUsed,
		QuotaLimit: sub.AgentQuota,
		ResetsAt:   sub.CycleEnd,
	})
}
