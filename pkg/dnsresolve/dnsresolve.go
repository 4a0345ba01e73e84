// Package dnsresolve implements spec.md §4.3.2's bounded-concurrency DNS
// resolution stage of the typosquat detector.
package dnsresolve

import (
	"context"
	"net"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	// queryTimeout bounds each individual A/NS lookup.
	queryTimeout = 3 * time.Second
	// maxRetries is the number of retries after the initial attempt.
	maxRetries = 2
	// initialBackoff is the delay before the first retry, doubling after.
	initialBackoff = 1 * time.Second
	// concurrency is the number of in-flight resolutions permitted at once.
	concurrency = 24
	// outerPace throttles the overall submission rate to roughly 10/s.
	outerPace = 100 * time.Millisecond
)

// Result is the outcome of resolving one candidate domain.
type Result struct {
	Domain      string
	Addresses   []string
	Nameservers []string
	Resolved    bool
}

// lookuper is the subset of *net.Resolver this package depends on, broken
// out so tests can substitute a fake without touching the network.
type lookuper interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
	LookupNS(ctx context.Context, host string) ([]*net.NS, error)
}

// Resolver performs bounded-concurrency DNS lookups for a batch of
// candidates, using the standard library resolver under a semaphore.
type Resolver struct {
	resolver lookuper
	sem      *semaphore.Weighted
}

// New creates a Resolver with the default bounded concurrency.
func New() *Resolver {
	return &Resolver{
		resolver: net.DefaultResolver,
		sem:      semaphore.NewWeighted(concurrency),
	}
}

// ResolveAll resolves every candidate, pacing the outer loop at roughly
// 10/s and bounding in-flight lookups. Candidates that fail to resolve
// (NXDOMAIN, no-answer, timeout) are silently omitted — spec.md §4.3.2
// treats this as a discard, not an error.
func (r *Resolver) ResolveAll(ctx context.Context, candidates []string) []Result {
	results := make([]Result, 0, len(candidates))
	out := make(chan Result, len(candidates))

	pending := 0
	for _, candidate := range candidates {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			break
		}
		pending++

		go func(domain string) {
			defer r.sem.Release(1)
			out <- r.resolveOne(ctx, domain)
		}(candidate)

		select {
		case <-time.After(outerPace):
		case <-ctx.Done():
		}
	}

	for i := 0; i < pending; i++ {
		res := <-out
		if res.Resolved {
			results = append(results, res)
		}
	}
	return results
}

// resolveOne resolves a single candidate's A and NS records with up to
// maxRetries retries and exponential backoff starting at initialBackoff.
func (r *Resolver) resolveOne(ctx context.Context, domain string) Result {
	var addrs []net.IPAddr
	var err error

	backoff := initialBackoff
	for attempt := 0; attempt <= maxRetries; attempt++ {
		qctx, cancel := context.WithTimeout(ctx, queryTimeout)
		addrs, err = r.resolver.LookupIPAddr(qctx, domain)
		cancel()
		if err == nil {
			break
		}
		if attempt < maxRetries {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return Result{Domain: domain}
			}
			backoff *= 2
		}
	}

	if err != nil || len(addrs) == 0 {
		return Result{Domain: domain}
	}

	ips := make([]string, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP.String())
	}

	var nameservers []string
	nsCtx, nsCancel := context.WithTimeout(ctx, queryTimeout)
	if nsRecords, nsErr := r.resolver.LookupNS(nsCtx, domain); nsErr == nil {
		for _, ns := range nsRecords {
			nameservers = append(nameservers, ns.Host)
		}
	}
	nsCancel()

	return Result{Domain: domain, Addresses: ips, Nameservers: nameservers, Resolved: true}
}
