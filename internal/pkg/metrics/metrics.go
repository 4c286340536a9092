// Package metrics defines and registers the custom Prometheus metrics of the
// ticket portal. It is the single source of truth for metric names, labels
// and help strings.
//
// Collectors are registered with the default registry on import; the portal
// exposes them on /metrics next to echo's HTTP metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// ── Session metrics ───────────────────────────────────────────────────────────

// ResolutionsTotal counts session resolutions.
// Label:
//   - outcome: "authenticated", "expired", "error", "no_token" or "superseded"
var ResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_resolutions_total",
		Help:      "Total number of stored-token resolutions, by outcome.",
	},
	[]string{"outcome"},
)

// ResolutionDuration measures identity checks including retries.
var ResolutionDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "session_resolution_duration_seconds",
		Help:      "Duration of identity verification, retries included.",
		Buckets:   prometheus.DefBuckets,
	},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok" or the error class ("invalid_credentials", "unavailable", "error")
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// CrossTabEventsTotal counts storage changes received from other tabs.
// Labels:
//   - key: storage key, or "other" for ignored keys
//   - action: "logout", "revalidate", "adopt", "ignored"
var CrossTabEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "crosstab_events_total",
		Help:      "Total number of storage changes received from other tabs.",
	},
	[]string{"key", "action"},
)

// RouteDecisionsTotal counts role-router decisions.
// Label:
//   - kind: "render", "redirect" or "loading"
var RouteDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "route_decisions_total",
		Help:      "Total number of route decisions, by kind.",
	},
	[]string{"kind"},
)

// OpenTabs tracks the number of tabs with a live session.
var OpenTabs = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_tabs",
		Help:      "Current number of open tabs with a live session context.",
	},
)

// TabsEvictedTotal counts tabs closed by the idle sweep.
var TabsEvictedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tabs_evicted_total",
		Help:      "Total number of idle tabs closed by the registry sweep.",
	},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEventsTotal counts persisted session events.
// Label:
//   - kind: the session event kind (e.g. "login", "remote_logout")
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of session events processed by the audit trail.",
	},
	[]string{"kind"},
)

// AuditErrorsTotal counts session events that could not be persisted.
var AuditErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_errors_total",
		Help:      "Total number of session events that failed to persist.",
	},
)

// AuditDroppedTotal counts events dropped because a worker queue was full.
var AuditDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Total number of session events dropped on a full queue.",
	},
)

// AuditQueueDepth tracks pending events in each audit worker channel.
// Label:
//   - worker_id: numeric worker index
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of session events pending in each audit worker channel.",
	},
	[]string{"worker_id"},
)
