// Package ingress implements spec.md §4.1's job ingress: the HTTP
// handlers that validate requests, create job and guard-event records,
// enqueue payloads, and expose result read-back.
package ingress

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OP-88/Sentinyl/internal/queue"
	"github.com/OP-88/Sentinyl/pkg/apikey"
	"github.com/OP-88/Sentinyl/pkg/domain"
	"github.com/OP-88/Sentinyl/pkg/guard"
	"github.com/OP-88/Sentinyl/pkg/leak"
	"github.com/OP-88/Sentinyl/pkg/scanjob"
	"github.com/OP-88/Sentinyl/pkg/threat"
	"github.com/OP-88/Sentinyl/pkg/user"
)

// snippetReadBackCap is the byte limit spec.md §4.1/§6 apply to snippets
// returned from /results — distinct from the 500-byte cap persisted by
// the leak worker.
const snippetReadBackCap = 200

// Handler provides the ingress HTTP handlers: scan submission, result
// read-back, guard alert/verdict/poll, and account bootstrap.
type Handler struct {
	logger *slog.Logger

	domains  *domain.Store
	jobs     *scanjob.Store
	threats  *threat.Store
	leaks    *leak.Store
	agents   *guard.AgentStore
	events   *guard.EventStore
	users    *user.Store
	apiKeys  *apikey.Service
	queue    *queue.Queue

	upgradeURL string
}

// NewHandler wires a Handler over the given stores and queue.
func NewHandler(
	logger *slog.Logger,
	pool *pgxpool.Pool,
	q *queue.Queue,
	apiKeys *apikey.Service,
	upgradeURL string,
) *Handler {
	return &Handler{
		logger:     logger,
		domains:    domain.NewStore(pool),
		jobs:       scanjob.NewStore(pool),
		threats:    threat.NewStore(pool),
		leaks:      leak.NewStore(pool),
		agents:     guard.NewAgentStore(pool),
		events:     guard.NewEventStore(pool),
		users:      user.NewStore(pool),
		apiKeys:    apiKeys,
		queue:      q,
		upgradeURL: upgradeURL,
	}
}

// PublicRoutes mounts the one path spec.md §6 allows unauthenticated:
// account bootstrap, which issues the first API key a caller needs for
// everything else. Mount this directly on the server's router, outside
// auth.Middleware + auth.RequireAuth.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/auth/register", h.handleRegister)
	return r
}

// Routes mounts every authenticated path spec.md §6 names: scan
// submission and read-back, guard alert/verdict/poll, and API key
// management. The caller is expected to mount this behind
// auth.Middleware + auth.RequireAuth as a shared authenticated route
// group.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/scan", h.handleSubmitScan)
	r.Get("/results/{job_id}", h.handleReadResult)

	r.Post("/guard/alert", h.handleGuardAlert)
	r.Post("/guard/response", h.handleGuardResponse)
	r.Get("/guard/status/{agent_id}", h.handleGuardStatus)

	r.Route("/auth/keys", func(r chi.Router) {
		r.Post("/", h.handleCreateAPIKey)
		r.Get("/", h.handleListAPIKeys)
		r.Delete("/{id}", h.handleDeleteAPIKey)
	})
	r.Get("/auth/me", h.handleMe)

	return r
}
