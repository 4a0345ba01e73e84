package telemetry

import "github.com/prometheus/client_golang/prometheus"

// HTTPRequestDuration records ingress request latency by method/route/status.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "sentinyl",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
	[]string{"method", "route", "status"},
)

// ScanJobsEnqueuedTotal counts scan jobs pushed onto a named queue.
var ScanJobsEnqueuedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sentinyl",
		Subsystem: "jobs",
		Name:      "enqueued_total",
		Help:      "Total number of scan jobs enqueued, by kind.",
	},
	[]string{"kind"},
)

// ScanJobsProcessedTotal counts scan jobs that reached a terminal status.
var ScanJobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sentinyl",
		Subsystem: "jobs",
		Name:      "processed_total",
		Help:      "Total number of scan jobs that reached a terminal status.",
	},
	[]string{"kind", "status"},
)

// DNSResolutionsTotal counts DNS lookups performed by the typosquat worker.
var DNSResolutionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sentinyl",
		Subsystem: "fuzzer",
		Name:      "dns_resolutions_total",
		Help:      "Total DNS resolutions attempted during typosquat scans, by outcome.",
	},
	[]string{"outcome"},
)

// ThreatsFoundTotal counts persisted typosquat threats.
var ThreatsFoundTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "sentinyl",
		Subsystem: "fuzzer",
		Name:      "threats_found_total",
		Help:      "Total number of resolving typosquat candidates recorded as threats.",
	},
)

// LeaksFoundTotal counts persisted code-search leaks.
var LeaksFoundTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sentinyl",
		Subsystem: "leakhunter",
		Name:      "leaks_found_total",
		Help:      "Total number of leaks recorded, by severity.",
	},
	[]string{"severity"},
)

// GuardEventsTotal counts guard events by anomaly kind.
var GuardEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sentinyl",
		Subsystem: "guard",
		Name:      "events_total",
		Help:      "Total guard events created, by anomaly kind.",
	},
	[]string{"anomaly_kind"},
)

// GuardAutoBlocksTotal counts events that were blocked by expiry rather than
// operator verdict.
var GuardAutoBlocksTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "sentinyl",
		Subsystem: "guard",
		Name:      "auto_blocks_total",
		Help:      "Total guard events auto-blocked by countdown expiry.",
	},
)

// KnockDecisionsTotal counts accepted/rejected knock packets by reason.
var KnockDecisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sentinyl",
		Subsystem: "knock",
		Name:      "decisions_total",
		Help:      "Total knock packets processed, by decision.",
	},
	[]string{"decision"},
)

// NotificationsTotal counts fan-out deliveries by channel and outcome.
var NotificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sentinyl",
		Subsystem: "notify",
		Name:      "deliveries_total",
		Help:      "Total notification deliveries attempted, by channel and outcome.",
	},
	[]string{"channel", "outcome"},
)

// All returns every Sentinyl-specific collector for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestDuration,
		ScanJobsEnqueuedTotal,
		ScanJobsProcessedTotal,
		DNSResolutionsTotal,
		ThreatsFoundTotal,
		LeaksFoundTotal,
		GuardEventsTotal,
		GuardAutoBlocksTotal,
		KnockDecisionsTotal,
		NotificationsTotal,
	}
}
