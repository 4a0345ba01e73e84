package block

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestBlockInsertsBothRules(t *testing.T) {
	var calls [][]string
	runner := func(ctx context.Context, name string, args ...string) (string, error) {
		calls = append(calls, args)
		return "", nil
	}

	b := NewBlocker(runner, discardLogger())
	if err := b.Block(context.Background(), "185.220.101.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(calls) != 2 {
		t.Fatalf("expected 2 rule installs, got %d", len(calls))
	}
}

func TestBlockNotFatalOnRuleFailure(t *testing.T) {
	runner := func(ctx context.Context, name string, args ...string) (string, error) {
		return "permission denied", errors.New("exit status 1")
	}

	b := NewBlocker(runner, discardLogger())
	err := b.Block(context.Background(), "185.220.101.1")
	if err == nil {
		t.Fatal("expected an error to be returned for visibility")
	}
}
