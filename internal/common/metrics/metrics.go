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
)

// Engine metrics.
var (
	PhoneSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phone_selections_total",
			Help: "Phone selections by the pass that produced them",
		},
		[]string{"pass"},
	)

	PhoneSelectionNotFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "phone_selection_not_found_total",
			Help: "Selections for franchises without an active phone",
		},
	)

	GoalOvershoot = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "goal_overshoot_total",
			Help: "Primary-pass assignments that left a phone above its daily goal",
		},
	)

	AssignmentsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignments_recorded_total",
			Help: "Assignment facts by outcome (inserted, duplicate)",
		},
		[]string{"result"},
	)

	DailyRollups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daily_rollups_total",
			Help: "Daily rollups by status (updated, finalized_kept, failed)",
		},
		[]string{"status"},
	)
)
