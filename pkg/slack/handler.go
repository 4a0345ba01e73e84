// Package slack adapts the inbound half of the Slack integration: the
// "Mark safe"/"Block now" buttons spec.md §4.5's rich-block notification
// (pkg/notify's RichBlockChannel) attaches to a guard alert post back
// here as an interactive callback, which is recorded as the same
// operator verdict POST /guard/response accepts.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	goslack "github.com/slack-go/slack"

	"github.com/OP-88/Sentinyl/pkg/guard"
)

// Handler serves the Slack interactions webhook.
type Handler struct {
	events        *guard.EventStore
	notifier      *Notifier
	logger        *slog.Logger
	signingSecret string
}

// NewHandler creates a Handler. events records the operator verdict a
// button click represents; notifier posts the ephemeral confirmation
// back to the clicking user.
func NewHandler(events *guard.EventStore, notifier *Notifier, logger *slog.Logger, signingSecret string) *Handler {
	return &Handler{
		events:        events,
		notifier:      notifier,
		logger:        logger,
		signingSecret: signingSecret,
	}
}

// Routes returns the chi.Router serving POST /interactions.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(VerifyMiddleware(h.signingSecret))
	r.Post("/interactions", h.handleInteractions)
	return r
}

func (h *Handler) handleInteractions(w http.ResponseWriter, r *http.Request) {
	payload := r.FormValue("payload")
	if payload == "" {
		http.Error(w, "missing payload", http.StatusBadRequest)
		return
	}

	var ic goslack.InteractionCallback
	if err := json.Unmarshal([]byte(payload), &ic); err != nil {
		h.logger.Error("parsing interaction callback", "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if ic.Type != goslack.InteractionTypeBlockActions {
		h.logger.Debug("unhandled interaction type", "type", ic.Type)
		w.WriteHeader(http.StatusOK)
		return
	}

	for _, action := range ic.ActionCallback.BlockActions {
		response, ok := actionToVerdict(action.ActionID)
		if !ok {
			h.logger.Debug("unhandled block action", "action_id", action.ActionID)
			continue
		}
		h.recordVerdict(r.Context(), ic, action.Value, response)
	}
	w.WriteHeader(http.StatusOK)
}

// actionToVerdict maps a Slack block action id to the operator verdict it
// represents, matching the action ids pkg/notify's RichBlockChannel
// attaches to a guard alert's buttons.
func actionToVerdict(actionID string) (guard.OperatorResponse, bool) {
	switch actionID {
	case "guard_safe":
		return guard.ResponseSafe, true
	case "guard_block":
		return guard.ResponseBlock, true
	default:
		return "", false
	}
}

func (h *Handler) recordVerdict(ctx context.Context, ic goslack.InteractionCallback, eventIDStr string, response guard.OperatorResponse) {
	eventID, err := uuid.Parse(eventIDStr)
	if err != nil {
		h.logger.Error("invalid event id in block action", "value", eventIDStr)
		return
	}

	operator := ic.User.Name
	if operator == "" {
		operator = ic.User.ID
	}

	_, err = h.events.RecordVerdict(ctx, eventID, response, operator, time.Now().UTC())
	switch {
	case err == nil:
		_ = h.notifier.PostEphemeral(ctx, ic.Channel.ID, ic.User.ID, "Verdict recorded: "+string(response))
	case errors.Is(err, guard.ErrConflictingVerdict):
		_ = h.notifier.PostEphemeral(ctx, ic.Channel.ID, ic.User.ID, "A different verdict was already recorded for this event.")
	default:
		h.logger.Error("recording guard verdict from slack", "event_id", eventID, "error", err)
		_ = h.notifier.PostEphemeral(ctx, ic.Channel.ID, ic.User.ID, "Failed to record verdict, try again.")
	}
}
