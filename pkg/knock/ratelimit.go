package knock

import (
	"sync"
	"time"
)

// rateLimitWindow is the minimum interval between accepted knocks from
// the same source IP, per spec.md §4.9 step 5.
const rateLimitWindow = 5 * time.Second

// SourceRateLimiter tracks the last-accepted knock time per source IP.
// It is a process-local data structure, mutated only by the single
// sniff-handler goroutine (spec.md §5: "mutated only by the sniff
// handler, which runs single-threaded within that process"), but guarded
// with a mutex so it is safe if that assumption ever changes.
type SourceRateLimiter struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewSourceRateLimiter creates an empty rate limiter.
func NewSourceRateLimiter() *SourceRateLimiter {
	return &SourceRateLimiter{lastSeen: make(map[string]time.Time)}
}

// Allow reports whether sourceIP may knock again at now, and — if so —
// records now as its new last-knock time.
func (r *SourceRateLimiter) Allow(sourceIP string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.lastSeen[sourceIP]; ok && now.Sub(last) < rateLimitWindow {
		return false
	}
	r.lastSeen[sourceIP] = now
	return true
}
