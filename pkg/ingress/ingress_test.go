package ingress

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/OP-88/Sentinyl/internal/auth"
	"github.com/OP-88/Sentinyl/pkg/user"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testHandler() *Handler {
	return &Handler{logger: testLogger(), upgradeURL: "https://example.com/pricing"}
}

func mountAuthenticated(h *Handler) chi.Router {
	router := chi.NewRouter()
	router.Mount("/", h.Routes())
	return router
}

func withIdentity(r *http.Request) *http.Request {
	return r.WithContext(auth.NewContext(r.Context(), &auth.Identity{}))
}

func TestHandleRegisterRejectsInvalidEmail(t *testing.T) {
	h := testHandler()
	router := chi.NewRouter()
	router.Mount("/", h.PublicRoutes())

	r := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":"not-an-email"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

func TestHandleRegisterRejectsMalformedJSON(t *testing.T) {
	h := testHandler()
	router := chi.NewRouter()
	router.Mount("/", h.PublicRoutes())

	r := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code == http.StatusCreated {
		t.Errorf("status = %d, want a 4xx rejection", w.Code)
	}
}

func TestUnauthenticatedRequestsReject401(t *testing.T) {
	h := testHandler()
	router := mountAuthenticated(h)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"me", http.MethodGet, "/auth/me", ""},
		{"create key", http.MethodPost, "/auth/keys/", ""},
		{"list keys", http.MethodGet, "/auth/keys/", ""},
		{"delete key", http.MethodDelete, "/auth/keys/x", ""},
		{"submit scan", http.MethodPost, "/scan", "{}"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnauthorized, w.Body.String())
			}
		})
	}
}

func TestHandleDeleteAPIKeyRejectsInvalidID(t *testing.T) {
	h := testHandler()
	router := mountAuthenticated(h)

	r := withIdentity(httptest.NewRequest(http.MethodDelete, "/auth/keys/not-a-uuid", nil))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestHandleSubmitScanRejectsBadDomain(t *testing.T) {
	h := testHandler()
	router := mountAuthenticated(h)

	r := withIdentity(httptest.NewRequest(http.MethodPost, "/scan",
		strings.NewReader(`{"domain":"no-dot","scan_type":"typosquat"}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestHandleSubmitScanRejectsInvalidScanType(t *testing.T) {
	h := testHandler()
	router := mountAuthenticated(h)

	r := withIdentity(httptest.NewRequest(http.MethodPost, "/scan",
		strings.NewReader(`{"domain":"example.com","scan_type":"carrier-pigeon"}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleReadResultRejectsInvalidJobID(t *testing.T) {
	h := testHandler()
	router := mountAuthenticated(h)

	r := httptest.NewRequest(http.MethodGet, "/results/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestTruncateReadBack(t *testing.T) {
	short := "hello"
	if got := truncateReadBack(short); got != short {
		t.Errorf("truncateReadBack(short) = %q, want unchanged", got)
	}

	long := strings.Repeat("a", snippetReadBackCap+50)
	got := truncateReadBack(long)
	if len(got) != snippetReadBackCap {
		t.Errorf("len(truncateReadBack(long)) = %d, want %d", len(got), snippetReadBackCap)
	}
}

func TestWriteScanQuotaRejection(t *testing.T) {
	resetsAt := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		sub        user.Subscription
		wantStatus int
	}{
		{
			name:       "tier excludes scanning",
			sub:        user.Subscription{ScanQuota: user.FeatureExcluded, ScanUsed: 0, CycleEnd: resetsAt},
			wantStatus: http.StatusForbidden,
		},
		{
			// spec.md §7/§8 scenario 4: a free-tier user's 6th scan of 5.
			name:       "scan quota exhausted",
			sub:        user.Subscription{ScanQuota: 5, ScanUsed: 5, CycleEnd: resetsAt},
			wantStatus: http.StatusPaymentRequired,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeScanQuotaRejection(w, "https://example.com/pricing", c.sub)

			if w.Code != c.wantStatus {
				t.Fatalf("status = %d, want %d; body = %s", w.Code, c.wantStatus, w.Body.String())
			}

			if c.wantStatus == http.StatusPaymentRequired {
				var body quotaExceededResponse
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
					t.Fatalf("decoding body: %v", err)
				}
				if body.QuotaUsed != c.sub.ScanUsed || body.QuotaLimit != c.sub.ScanQuota {
					t.Errorf("quota_used/quota_limit = %d/%d, want %d/%d",
						body.QuotaUsed, body.QuotaLimit, c.sub.ScanUsed, c.sub.ScanQuota)
				}
				if !body.ResetsAt.Equal(resetsAt) {
					t.Errorf("resets_at = %v, want %v", body.ResetsAt, resetsAt)
				}
			}
		})
	}
}

func TestWriteAgentQuotaRejection(t *testing.T) {
	cases := []struct {
		name       string
		sub        user.Subscription
		wantStatus int
	}{
		{
			name:       "tier excludes guard agents",
			sub:        user.Subscription{AgentQuota: user.FeatureExcluded, AgentUsed: 0},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "agent quota exhausted",
			sub:        user.Subscription{AgentQuota: 10, AgentUsed: 10},
			wantStatus: http.StatusPaymentRequired,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeAgentQuotaRejection(w, "https://example.com/pricing", c.sub)

			if w.Code != c.wantStatus {
				t.Fatalf("status = %d, want %d; body = %s", w.Code, c.wantStatus, w.Body.String())
			}
		})
	}
}

func TestScanQueueFor(t *testing.T) {
	if got := scanQueueFor("leak"); got != "queue:leak" {
		t.Errorf("scanQueueFor(leak) = %q", got)
	}
	if got := scanQueueFor("typosquat"); got != "queue:typosquat" {
		t.Errorf("scanQueueFor(typosquat) = %q", got)
	}
}
