package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LinesScanned tracks log lines read per source
	LinesScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_lines_scanned_total",
			Help: "Total number of log lines scanned",
		},
		[]string{"source"},
	)

	// EventsClassified tracks classified error events per kind and severity
	EventsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_events_classified_total",
			Help: "Total number of error events classified",
		},
		[]string{"kind", "severity"},
	)

	// SignalsRaised tracks signals emitted by the processor and probe
	SignalsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_signals_raised_total",
			Help: "Total number of signals raised",
		},
		[]string{"type"},
	)

	// HealingExecutions tracks remediation attempts per action and outcome
	HealingExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_healing_executions_total",
			Help: "Total number of healing action executions",
		},
		[]string{"action", "outcome"},
	)

	// AlertsDelivered tracks webhook deliveries by result
	AlertsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_alerts_delivered_total",
			Help: "Total number of alert delivery attempts",
		},
		[]string{"result"},
	)

	// AlertsFallback tracks alerts written to the durable fallback log
	AlertsFallback = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_alerts_fallback_total",
			Help: "Total number of alerts persisted to the fallback log",
		},
	)

	// WebhookLatency tracks webhook delivery latency
	WebhookLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warden_webhook_latency_seconds",
			Help:    "Alert webhook delivery latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HealthCheckStatus tracks the latest status per health check
	// (1 healthy, 0.5 warning, 0 critical or failed)
	HealthCheckStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warden_health_check_status",
			Help: "Latest status of each health check",
		},
		[]string{"check"},
	)

	// RecoveryAttempts tracks retry-wrapper attempts per operation and result
	RecoveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_recovery_attempts_total",
			Help: "Total number of recovery wrapper attempts",
		},
		[]string{"operation", "result"},
	)

	// DBConnectionUsage tracks database connection pool usage percentage
	DBConnectionUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warden_db_connection_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)
