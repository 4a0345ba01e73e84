package ingress

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/OP-88/Sentinyl/internal/auth"
	"github.com/OP-88/Sentinyl/internal/httpserver"
	"github.com/OP-88/Sentinyl/internal/queue"
	"github.com/OP-88/Sentinyl/pkg/domain"
	"github.com/OP-88/Sentinyl/pkg/leak"
	"github.com/OP-88/Sentinyl/pkg/scanjob"
	"github.com/OP-88/Sentinyl/pkg/threat"
)

// quotaExceededResponse is the 402 body spec.md §7/§8 (scenario 4) names:
// a structured error plus the counters the caller needs to show the user.
type quotaExceededResponse struct {
	Detail     string    `json:"detail"`
	UpgradeURL string    `json:"upgrade_url,omitempty"`
	QuotaUsed  int       `json:"quota_used"`
	QuotaLimit int       `json:"quota_limit"`
	ResetsAt   time.Time `json:"resets_at"`
}

// tierExcludedResponse is the 403 body spec.md §6 names for a feature
// the caller's subscription tier does not include at all, distinct from
// quotaExceededResponse's 402 (feature included, quota exhausted).
type tierExcludedResponse struct {
	Detail     string `json:"detail"`
	UpgradeURL string `json:"upgrade_url,omitempty"`
}

// SubmitScanRequest is the body of POST /scan.
type SubmitScanRequest struct {
	Domain   string `json:"domain" validate:"required"`
	ScanType string `json:"scan_type" validate:"required,oneof=typosquat leak"`
	Priority string `json:"priority" validate:"omitempty,oneof=low medium high critical"`
}

// SubmitScanResponse is the 202 body of POST /scan.
type SubmitScanResponse struct {
	JobID    uuid.UUID `json:"job_id"`
	Domain   string    `json:"domain"`
	ScanType string    `json:"scan_type"`
	Status   string    `json:"status"`
	Message  string    `json:"message"`
}

func scanQueueFor(kind scanjob.Kind) string {
	if kind == scanjob.KindLeak {
		return queue.Leak
	}
	return queue.Typosquat
}

// handleSubmitScan implements spec.md §4.1's "Submit scan" operation.
func (h *Handler) handleSubmitScan(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "missing or invalid API key")
		return
	}

	var req SubmitScanRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	normalized, ok := domain.Normalize(req.Domain)
	if !ok {
		httpserver.RespondError(w, http.StatusBadRequest, "domain must contain at least one dot")
		return
	}

	priority := domain.Priority(req.Priority)
	if priority == "" {
		priority = domain.PriorityMedium
	}

	allowed, sub, err := h.users.IncrementScanUsed(r.Context(), id.UserID)
	if err != nil {
		h.logger.Error("incrementing scan quota", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to check scan quota")
		return
	}
	if !allowed {
		writeScanQuotaRejection(w, h.upgradeURL, sub)
		return
	}

	d, err := h.domains.GetOrCreate(r.Context(), normalized, id.UserID, priority)
	if err != nil {
		h.logger.Error("loading domain", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to create domain")
		return
	}

	kind := scanjob.Kind(req.ScanType)

	job, err := h.jobs.Create(r.Context(), d.ID, kind)
	if err != nil {
		h.logger.Error("creating scan job", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to create scan job")
		return
	}

	payload := map[string]string{
		"job_id": job.ID.String(),
		"domain": d.Name,
	}

	if err := h.queue.Enqueue(r.Context(), scanQueueFor(kind), payload); err != nil {
		h.logger.Error("enqueueing scan job", "error", err)
		if markErr := h.jobs.MarkFailed(r.Context(), job.ID, "enqueue failed: "+err.Error()); markErr != nil {
			h.logger.Error("marking scan job failed after enqueue error", "error", markErr)
		}
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to enqueue scan job")
		return
	}

	httpserver.Respond(w, http.StatusAccepted, SubmitScanResponse{
		JobID:    job.ID,
		Domain:   d.Name,
		ScanType: string(kind),
		Status:   string(scanjob.StatusPending),
		Message:  "scan accepted",
	})
}

// JobStatusResponse is the body of GET /results/{job_id}.
type JobStatusResponse struct {
	JobID       uuid.UUID       `json:"job_id"`
	Domain      string          `json:"domain"`
	JobType     scanjob.Kind    `json:"job_type"`
	Status      scanjob.Status  `json:"status"`
	StartedAt   any             `json:"started_at,omitempty"`
	CompletedAt any             `json:"completed_at,omitempty"`
	Threats     []threat.Threat `json:"threats"`
	Leaks       []leak.Leak     `json:"leaks"`
	Error       *string         `json:"error,omitempty"`
}

// handleReadResult implements spec.md §4.1's "Read result" operation.
func (h *Handler) handleReadResult(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "job_id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.jobs.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "scan job not found")
			return
		}
		h.logger.Error("loading scan job", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to load scan job")
		return
	}

	d, err := h.domains.Get(r.Context(), job.DomainRef)
	if err != nil {
		h.logger.Error("loading domain for scan job", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to load domain")
		return
	}

	threats, err := h.threats.ListByJob(r.Context(), job.ID)
	if err != nil {
		h.logger.Error("listing threats", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to load threats")
		return
	}

	leaks, err := h.leaks.ListByJob(r.Context(), job.ID)
	if err != nil {
		h.logger.Error("listing leaks", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to load leaks")
		return
	}
	for i := range leaks {
		leaks[i].Snippet = truncateReadBack(leaks[i].Snippet)
	}

	httpserver.Respond(w, http.StatusOK, JobStatusResponse{
		JobID:       job.ID,
		Domain:      d.Name,
		JobType:     job.Kind,
		Status:      job.Status,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		Threats:     threats,
		Leaks:       leaks,
		Error:       job.Error,
	})
}

// truncateReadBack re-truncates an already-persisted snippet to the
// tighter 200-byte read-back boundary spec.md §4.1/§6 specify, distinct
// from the 500-byte cap applied at write time.
func truncateReadBack(s string) string {
	if len(s) <= snippetReadBackCap {
		return s
	}
	return s[:snippetReadBackCap]
}
