package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"log/slog"

	"github.com/google/uuid"
)

type stubVerifier struct {
	apiKeyID uuid.UUID
	userID   uuid.UUID
	err      error
}

func (s stubVerifier) Authenticate(_ context.Context, rawKey string) (uuid.UUID, uuid.UUID, error) {
	if s.err != nil {
		return uuid.Nil, uuid.Nil, s.err
	}
	return s.apiKeyID, s.userID, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestMiddleware_NoHeader(t *testing.T) {
	mw := Middleware(nil, testLogger())
	handler := mw(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestMiddleware_ValidKey(t *testing.T) {
	userID := uuid.New()
	keyID := uuid.New()
	a := NewAuthenticator(stubVerifier{apiKeyID: keyID, userID: userID})

	var got *Identity
	handler := Middleware(a, testLogger())(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer sk_live_whatever")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got == nil || got.UserID != userID || got.APIKeyID != keyID {
		t.Fatalf("identity = %+v, want user %s key %s", got, userID, keyID)
	}
}

func TestMiddleware_InvalidKey(t *testing.T) {
	a := NewAuthenticator(stubVerifier{err: context.DeadlineExceeded})
	handler := Middleware(a, testLogger())(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer sk_live_bad")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
