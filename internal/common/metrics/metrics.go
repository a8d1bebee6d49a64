// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astroscope_worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astroscope_worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "astroscope_worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	// RetrievalsTotal counts retrievals by the source that served them.
	RetrievalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astroscope_retrievals_total",
			Help: "Lesson retrievals by serving source",
		},
		[]string{"source"},
	)

	// StageFallbacksTotal counts deterministic fallbacks taken per stage and reason code.
	StageFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astroscope_stage_fallbacks_total",
			Help: "Deterministic fallbacks taken by pipeline stage",
		},
		[]string{"stage", "reason"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "astroscope_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"stage"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astroscope_cache_lookups_total",
			Help: "Live-result cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astroscope_turns_total",
			Help: "Assistant turns produced by kind",
		},
		[]string{"kind"},
	)

	ActiveConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "astroscope_active_conversations",
			Help: "Number of conversations held in memory",
		},
	)
)
