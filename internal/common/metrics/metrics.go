// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	MatchScores = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "match_scores",
			Help:    "Distribution of computed candidate match scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"recommendation"},
	)

	CommissionsCalculated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commissions_calculated_total",
			Help: "Total number of commission calculations by package level",
		},
		[]string{"package_level", "user_tier"},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_status_transitions_total",
			Help: "Total number of applied status transitions",
		},
		[]string{"from_status", "to_status"},
	)

	InvalidTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_invalid_transitions_total",
			Help: "Total number of rejected status transitions",
		},
		[]string{"from_status", "to_status"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of status-change notifications dispatched",
		},
		[]string{"channel", "status"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by key prefix and outcome",
		},
		[]string{"prefix", "outcome"},
	)
)
