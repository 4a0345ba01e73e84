package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Respond writes a JSON response with the given status code.
func Respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// ErrorResponse is the standard JSON error envelope. Detail mirrors spec.md's
// `{detail: string | object}` contract: Detail carries the human string,
// Errors carries structured field errors when present.
type ErrorResponse struct {
	Detail string             `json:"detail"`
	Errors []ValidationError  `json:"errors,omitempty"`
	UpgradeURL string         `json:"upgrade_url,omitempty"`
}

// RespondError writes a JSON error response with a plain-string detail.
func RespondError(w http.ResponseWriter, status int, detail string) {
	Respond(w, status, ErrorResponse{Detail: detail})
}

// RespondQuotaError writes a 402 response naming the upgrade path, per
// spec.md §7's "emits upgrade_url when a tier change would resolve it".
func RespondQuotaError(w http.ResponseWriter, detail, upgradeURL string) {
	Respond(w, http.StatusPaymentRequired, ErrorResponse{Detail: detail, UpgradeURL: upgradeURL})
}
