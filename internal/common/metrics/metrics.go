// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VerificationJobsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_jobs_started_total",
			Help: "Total number of verification jobs started",
		},
		[]string{"kind"},
	)

	VerificationJobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_jobs_finished_total",
			Help: "Total number of verification jobs reaching a terminal state",
		},
		[]string{"kind", "state"},
	)

	VerificationPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_polls_total",
			Help: "Total number of status polls issued per verification kind",
		},
		[]string{"kind", "result"},
	)

	SubmissionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submission_attempts_total",
			Help: "Total number of submission attempts by outcome",
		},
		[]string{"result"},
	)

	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_state_transitions_total",
			Help: "Total number of committed application state transitions",
		},
		[]string{"from", "to"},
	)

	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "completion_evaluation_duration_seconds",
			Help: "Duration of completeness snapshot evaluation in seconds",
		},
	)
)
