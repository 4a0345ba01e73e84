package graph

import (
	"context"
	"testing"
)

func TestNoopIngesterNeverFails(t *testing.T) {
	var ing Ingester = NoopIngester{}
	if err := ing.Ingest(context.Background(), Node{Label: "domain", ID: "1"}, nil); err != nil {
		t.Fatalf("noop ingester must never fail: %v", err)
	}
}

func TestNewIngesterEmptyBaseURL(t *testing.T) {
	ing := NewIngester(context.Background(), "", nil)
	if _, ok := ing.(NoopIngester); !ok {
		t.Fatalf("expected NoopIngester for empty base URL, got %T", ing)
	}
}
