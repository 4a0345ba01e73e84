package ingress

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/OP-88/Sentinyl/internal/auth"
	"github.com/OP-88/Sentinyl/internal/httpserver"
	"github.com/OP-88/Sentinyl/internal/queue"
	"github.com/OP-88/Sentinyl/pkg/guard"
)

// GuardAlertRequest is the body of POST /guard/alert.
type GuardAlertRequest struct {
	AgentID       uuid.UUID         `json:"agent_id" validate:"required"`
	Hostname      string            `json:"hostname" validate:"required"`
	AnomalyType   string            `json:"anomaly_type" validate:"required,oneof=geo process resource"`
	Severity      string            `json:"severity" validate:"required,oneof=high critical"`
	TargetIP      string            `json:"target_ip"`
	TargetCountry string            `json:"target_country"`
	ProcessName   string            `json:"process_name"`
	Details       map[string]string `json:"details"`
}

// GuardAlertResponse is the 202 body of POST /guard/alert.
type GuardAlertResponse struct {
	EventID         uuid.UUID `json:"event_id"`
	Status          string    `json:"status"`
	CountdownSecond int       `json:"countdown_seconds"`
}

func ptrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// handleGuardAlert implements spec.md §4.1's "Submit guard alert"
// operation.
func (h *Handler) handleGuardAlert(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "missing or invalid API key")
		return
	}

	var req GuardAlertRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	// The agent quota counts distinct enrolled agents, not alert volume,
	// so only a first-sight agent (Upsert's insert branch) consumes it.
	// An already-enrolled agent's repeat alerts never re-charge it.
	_, err := h.agents.Get(r.Context(), req.AgentID)
	switch {
	case err == nil:
		// already enrolled, no quota check
	case errors.Is(err, pgx.ErrNoRows):
		allowed, sub, quotaErr := h.users.IncrementAgentUsed(r.Context(), id.UserID)
		if quotaErr != nil {
			h.logger.Error("incrementing agent quota", "error", quotaErr)
			httpserver.RespondError(w, http.StatusInternalServerError, "failed to check agent quota")
			return
		}
		if !allowed {
			writeAgentQuotaRejection(w, h.upgradeURL, sub)
			return
		}
	default:
		h.logger.Error("loading guard agent", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to load guard agent")
		return
	}

	agent, err := h.agents.Upsert(r.Context(), id.UserID, req.AgentID, req.Hostname, ptrOrNil(req.TargetIP), nil)
	if err != nil {
		h.logger.Error("upserting guard agent", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to record guard agent")
		return
	}

	detailsBlob, err := json.Marshal(req.Details)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid details payload")
		return
	}

	now := time.Now().UTC()
	event, err := h.events.Create(r.Context(), guard.CreateParams{
		AgentRef:      agent.ID,
		AnomalyKind:   guard.AnomalyKind(req.AnomalyType),
		Severity:      guard.Severity(req.Severity),
		TargetIP:      ptrOrNil(req.TargetIP),
		TargetCountry: ptrOrNil(req.TargetCountry),
		ProcessName:   ptrOrNil(req.ProcessName),
		DetailsBlob:   detailsBlob,
	}, now)
	if err != nil {
		h.logger.Error("creating guard event", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to create guard event")
		return
	}

	queuePayload := map[string]string{"event_id": event.ID.String(), "agent_id": agent.ID.String()}
	if err := h.queue.Enqueue(r.Context(), queue.Guard, queuePayload); err != nil {
		h.logger.Error("enqueueing guard event", "error", err)
	}

	httpserver.Respond(w, http.StatusAccepted, GuardAlertResponse{
		EventID:         event.ID,
		Status:          "pending",
		CountdownSecond: 300,
	})
}

// GuardResponseRequest is the body of POST /guard/response.
type GuardResponseRequest struct {
	EventID      uuid.UUID `json:"event_id" validate:"required"`
	Response     string    `json:"response" validate:"required,oneof=safe block"`
	AdminUser    string    `json:"admin_user" validate:"required"`
}

// handleGuardResponse implements spec.md §4.1's "Operator verdict"
// operation.
func (h *Handler) handleGuardResponse(w http.ResponseWriter, r *http.Request) {
	var req GuardResponseRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	_, err := h.events.RecordVerdict(r.Context(), req.EventID, guard.OperatorResponse(req.Response), req.AdminUser, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, guard.ErrConflictingVerdict):
			httpserver.RespondError(w, http.StatusConflict, "a conflicting verdict was already recorded for this event")
		case errors.Is(err, pgx.ErrNoRows):
			httpserver.RespondError(w, http.StatusNotFound, "guard event not found")
		default:
			h.logger.Error("recording guard verdict", "error", err)
			httpserver.RespondError(w, http.StatusInternalServerError, "failed to record verdict")
		}
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "success"})
}

// GuardEventStatus is one event entry returned from GET /guard/status/{agent_id}.
type GuardEventStatus struct {
	EventID           uuid.UUID `json:"event_id"`
	AnomalyKind       string    `json:"anomaly_kind"`
	Severity          string    `json:"severity"`
	TargetIP          *string   `json:"target_ip,omitempty"`
	OperatorResponse  string    `json:"operator_response"`
	CountdownRemaining int      `json:"countdown_remaining"`
	ShouldBlock       bool      `json:"should_block"`
	Blocked           bool      `json:"blocked"`
}

// GuardStatusResponse is the body of GET /guard/status/{agent_id}.
type GuardStatusResponse struct {
	AgentID       uuid.UUID          `json:"agent_id"`
	PendingEvents int                `json:"pending_events"`
	Events        []GuardEventStatus `json:"events"`
}

// handleGuardStatus implements spec.md §4.1's "Agent status poll"
// operation, including the lazy auto-arm side effect.
func (h *Handler) handleGuardStatus(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(chi.URLParam(r, "agent_id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	now := time.Now().UTC()
	events, err := h.events.PendingForAgent(r.Context(), agentID, now)
	if err != nil {
		h.logger.Error("listing pending guard events", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to load guard events")
		return
	}

	out := make([]GuardEventStatus, 0, len(events))
	for _, e := range events {
		out = append(out, GuardEventStatus{
			EventID:            e.ID,
			AnomalyKind:        string(e.AnomalyKind),
			Severity:           string(e.Severity),
			TargetIP:           e.TargetIP,
			OperatorResponse:   string(e.OperatorResponse),
			CountdownRemaining: int(guard.CountdownRemaining(e, now).Seconds()),
			ShouldBlock:        guard.ShouldBlock(e, now),
			Blocked:            e.Blocked,
		})
	}

	httpserver.Respond(w, http.StatusOK, GuardStatusResponse{
		AgentID:       agentID,
		PendingEvents: len(out),
		Events:        out,
	})
}
