// Package metrics exposes Prometheus collectors for research runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run metrics
	RunsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "research_runs_started_total",
			Help: "Total number of research runs started",
		},
	)

	RunsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_runs_finished_total",
			Help: "Total number of research runs reaching a terminal status",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "research_run_duration_seconds",
			Help:    "Wall time from run start to terminal status",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 3600},
		},
		[]string{"status"},
	)

	FeedbackDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_feedback_decisions_total",
			Help: "Decisions accepted at the feedback gate",
		},
		[]string{"decision"},
	)

	// Interview metrics
	Interviews = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_interviews_total",
			Help: "Interviews by outcome",
		},
		[]string{"outcome"},
	)

	InterviewDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "research_interview_duration_seconds",
			Help:    "Interview sub-workflow duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	InterviewsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "research_interviews_in_flight",
			Help: "Interviews currently running",
		},
	)

	// External call metrics
	ExternalCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_external_calls_total",
			Help: "Language model and retrieval calls by operation and status",
		},
		[]string{"operation", "status"},
	)

	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "research_external_call_duration_seconds",
			Help:    "Duration of language model and retrieval calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	Retries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_retries_total",
			Help: "Retried external call attempts",
		},
		[]string{"operation"},
	)

	// Report metrics
	ReportSections = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "research_report_sections",
			Help:    "Number of sections in completed reports",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 8, 12},
		},
	)
)

// RecordRunFinished records a terminal status and the run's age.
func RecordRunFinished(status string, started time.Time) {
	RunsFinished.WithLabelValues(status).Inc()
	if !started.IsZero() {
		RunDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
	}
}

// RecordCall records one external call.
func RecordCall(operation string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ExternalCalls.WithLabelValues(operation, status).Inc()
	ExternalCallDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordInterview records one finished interview.
func RecordInterview(outcome string, d time.Duration) {
	Interviews.WithLabelValues(outcome).Inc()
	InterviewDuration.Observe(d.Seconds())
}
