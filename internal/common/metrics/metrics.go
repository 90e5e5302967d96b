// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	BuyersEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_matching_buyers_evaluated_total",
			Help: "Active buyers scored by the matching engine",
		},
	)

	BuyersMatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_matching_buyers_matched_total",
			Help: "Buyers at or above the inclusion threshold",
		},
	)

	PersistenceWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_persistence_writes_total",
			Help: "Collection writes by target store and outcome",
		},
		[]string{"collection", "store", "outcome"},
	)

	PersistenceFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_persistence_fallbacks_total",
			Help: "Collection writes downgraded to the local fallback",
		},
		[]string{"collection"},
	)

	PendingWrites = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crm_persistence_pending_writes",
			Help: "Collections queued for write-behind",
		},
	)

	NotificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_notifications_dropped_total",
			Help: "Change notifications that could not be published or decoded",
		},
		[]string{"collection"},
	)
)
