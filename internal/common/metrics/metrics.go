// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Progression evaluation results.
const (
	ResultMet        = "met"
	ResultUnmet      = "unmet"
	ResultNoCriteria = "no_criteria"
	ResultError      = "error"
)

var (
	ProgressionEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ideaflow_progression_evaluations_total",
			Help: "Total number of progression evaluations by edge and result",
		},
		[]string{"edge", "result"},
	)

	ProgressionEvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ideaflow_progression_evaluation_duration_seconds",
			Help:    "Duration of progression evaluations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"edge"},
	)

	StatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ideaflow_status_changes_total",
			Help: "Total number of status change attempts",
		},
		[]string{"from_status", "to_status", "result"},
	)

	HistoryCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ideaflow_history_cache_total",
			Help: "Transition history cache lookups by result",
		},
		[]string{"result"},
	)

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
)
