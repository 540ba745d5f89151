// Package metrics registers the Prometheus instruments for the scan and
// settlement pipeline. All instruments are registered on the default
// registry and exposed via /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ScanDecisions counts authorization outcomes by decision and denial reason.
// Approved scans carry reason="".
var ScanDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ghostpass",
	Subsystem: "scan",
	Name:      "decisions_total",
	Help:      "Total scan authorization decisions by outcome and denial reason.",
}, []string{"decision", "reason"})

// ScanDuration tracks end-to-end scan authorization latency.
var ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "ghostpass",
	Subsystem: "scan",
	Name:      "duration_seconds",
	Help:      "End-to-end scan authorization latency in seconds.",
	Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
})

// LedgerCommits counts committed ledger entries by type.
var LedgerCommits = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ghostpass",
	Subsystem: "ledger",
	Name:      "commits_total",
	Help:      "Total committed ledger entries by transaction type.",
}, []string{"type"})

// CommitConflictRetries counts per-wallet write conflicts that were retried.
var CommitConflictRetries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ghostpass",
	Subsystem: "ledger",
	Name:      "commit_conflict_retries_total",
	Help:      "Total ledger commit attempts retried after a serialization conflict.",
})

// AuditWriteFailures counts best-effort audit writes that were dropped.
var AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ghostpass",
	Subsystem: "audit",
	Name:      "write_failures_total",
	Help:      "Total audit log writes that failed and were dropped.",
})
