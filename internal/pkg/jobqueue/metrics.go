package jobqueue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsProcessedTotal counts finished job attempts by type and result.
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "primepass",
		Subsystem: "jobqueue",
		Name:      "jobs_processed_total",
		Help:      "Job attempts by job type and result (completed, retrying, failed).",
	}, []string{"type", "result"})

	// PeriodicRunsTotal counts periodic task runs by task and result.
	PeriodicRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "primepass",
		Subsystem: "jobqueue",
		Name:      "periodic_runs_total",
		Help:      "Periodic task runs by task name and result.",
	}, []string{"task", "result"})
)
