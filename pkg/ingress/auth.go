package ingress

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/OP-88/Sentinyl/internal/auth"
	"github.com/OP-88/Sentinyl/internal/httpserver"
	"github.com/OP-88/Sentinyl/pkg/apikey"
	"github.com/OP-88/Sentinyl/pkg/user"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
}

// RegisterResponse is the 201 body of POST /auth/register: the new
// account plus the one and only time its raw API key is ever returned.
type RegisterResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Email   string    `json:"email"`
	Tier    string    `json:"tier"`
	RawKey  string    `json:"api_key"`
	KeyID   uuid.UUID `json:"api_key_id"`
}

// handleRegister implements spec.md §4.1's "Account bootstrap" operation:
// a new user, a free-tier subscription, and a single API key, issued
// together so the caller never needs a second round trip to start using
// the rest of the ingress surface.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	u, err := h.users.CreateUser(r.Context(), req.Email, req.Name)
	if err != nil {
		h.logger.Error("creating user", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	sub, err := h.users.CreateSubscription(r.Context(), u.ID, user.TierFree)
	if err != nil {
		h.logger.Error("creating subscription", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to create subscription")
		return
	}

	key, err := h.apiKeys.Create(r.Context(), u.ID)
	if err != nil {
		h.logger.Error("creating api key", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to issue api key")
		return
	}

	httpserver.Respond(w, http.StatusCreated, RegisterResponse{
		UserID: u.ID,
		Email:  u.Email,
		Tier:   string(sub.Tier),
		RawKey: key.RawKey,
		KeyID:  key.ID,
	})
}

// handleCreateAPIKey issues an additional API key for the authenticated
// account.
func (h *Handler) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "missing or invalid API key")
		return
	}

	key, err := h.apiKeys.Create(r.Context(), id.UserID)
	if err != nil {
		h.logger.Error("creating api key", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to issue api key")
		return
	}

	httpserver.Respond(w, http.StatusCreated, key)
}

// handleListAPIKeys lists the authenticated account's API keys, with
// hashes never serialized (apikey.APIKey tags KeyHash json:"-").
func (h *Handler) handleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "missing or invalid API key")
		return
	}

	keys, err := h.apiKeys.List(r.Context(), id.UserID)
	if err != nil {
		h.logger.Error("listing api keys", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to list api keys")
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string][]apikey.APIKey{"api_keys": keys})
}

// handleDeleteAPIKey revokes one of the authenticated account's API keys.
func (h *Handler) handleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "missing or invalid API key")
		return
	}

	keyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid api key id")
		return
	}

	if err := h.apiKeys.Delete(r.Context(), id.UserID, keyID); err != nil {
		h.logger.Error("deleting api key", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to delete api key")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MeResponse is the body of GET /auth/me.
type MeResponse struct {
	User         user.User         `json:"user"`
	Subscription user.Subscription `json:"subscription"`
}

// handleMe returns the authenticated account's profile and subscription.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "missing or invalid API key")
		return
	}

	u, err := h.users.GetUser(r.Context(), id.UserID)
	if err != nil {
		h.logger.Error("loading user", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	sub, err := h.users.GetSubscriptionByUser(r.Context(), id.UserID)
	if err != nil {
		h.logger.Error("loading subscription", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to load subscription")
		return
	}

	httpserver.Respond(w, http.StatusOK, MeResponse{User: u, Subscription: sub})
}
