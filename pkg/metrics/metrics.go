package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mysite_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// PermissionChecks counts permission evaluations and their outcome (allow|deny|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mysite_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"permission", "result"},
	)

	// ActiveSessions tracks sessions that are neither expired nor revoked.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mysite_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mysite_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// ImportedRows counts CSV rows processed by kind (products|orders) and result (created|malformed|failed).
	ImportedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mysite_import_rows_total",
			Help: "Total number of CSV rows processed by the importer",
		},
		[]string{"kind", "result"},
	)

	// ExportCache counts snapshot cache lookups by export name and outcome (hit|miss|error).
	ExportCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mysite_export_cache_total",
			Help: "Export snapshot cache lookups",
		},
		[]string{"export", "result"},
	)

	// PageCache counts cached page lookups by outcome (hit|miss).
	PageCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mysite_page_cache_total",
			Help: "Cached page lookups",
		},
		[]string{"result"},
	)
)
