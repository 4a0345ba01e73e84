package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
)

type fakeChannel struct {
	name    string
	calls   int32
	failing bool
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(ctx context.Context, p Payload) error {
	atomic.AddInt32(&f.calls, 1)
	if f.failing {
		return errors.New("boom")
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestFanoutSuppressesBelowMedium(t *testing.T) {
	ch := &fakeChannel{name: "a"}
	f := New(testLogger(), ch)

	if err := f.Send(context.Background(), Payload{Severity: "low"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.calls != 0 {
		t.Fatalf("expected channel not to be called for low severity, got %d calls", ch.calls)
	}
}

func TestFanoutIsolatesChannelFailure(t *testing.T) {
	good := &fakeChannel{name: "good"}
	bad := &fakeChannel{name: "bad", failing: true}
	f := New(testLogger(), good, bad)

	err := f.Send(context.Background(), Payload{Severity: "high"})
	if err == nil {
		t.Fatal("expected an error from the failing channel")
	}
	if good.calls != 1 {
		t.Fatalf("expected the good channel to still be called, got %d calls", good.calls)
	}
	if bad.calls != 1 {
		t.Fatalf("expected the bad channel to be called, got %d calls", bad.calls)
	}
}
