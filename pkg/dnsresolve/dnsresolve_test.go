package dnsresolve

import (
	"context"
	"errors"
	"net"
	"testing"

	"golang.org/x/sync/semaphore"
)

type fakeLookuper struct {
	addrs map[string][]net.IPAddr
	ns    map[string][]*net.NS
}

func (f *fakeLookuper) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	addrs, ok := f.addrs[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	return addrs, nil
}

func (f *fakeLookuper) LookupNS(ctx context.Context, host string) ([]*net.NS, error) {
	return f.ns[host], nil
}

func TestResolveAllDiscardsUnresolved(t *testing.T) {
	fake := &fakeLookuper{
		addrs: map[string][]net.IPAddr{
			"good.com": {{IP: net.ParseIP("1.2.3.4")}},
		},
		ns: map[string][]*net.NS{
			"good.com": {{Host: "ns1.good.com"}},
		},
	}
	r := &Resolver{resolver: fake, sem: semaphore.NewWeighted(2)}

	results := r.ResolveAll(context.Background(), []string{"good.com", "bad.com"})

	if len(results) != 1 {
		t.Fatalf("expected 1 resolved result, got %d", len(results))
	}
	if results[0].Domain != "good.com" {
		t.Errorf("expected good.com, got %q", results[0].Domain)
	}
	if len(results[0].Nameservers) != 1 || results[0].Nameservers[0] != "ns1.good.com" {
		t.Errorf("expected nameserver ns1.good.com, got %v", results[0].Nameservers)
	}
}
