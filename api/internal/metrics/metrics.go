package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// AnalysesTotal counts coordinator submissions by variant and outcome
	// (ok | rejected | failed).
	AnalysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "areca",
		Subsystem: "grader",
		Name:      "analyses_total",
		Help:      "Total number of analysis submissions, labeled by variant and outcome.",
	}, []string{"variant", "outcome"})

	// AnalysisDurationSeconds is the time spent in the grading flow, including the model call.
	AnalysisDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "areca",
		Subsystem: "grader",
		Name:      "analysis_duration_seconds",
		Help:      "Time spent in one grading flow round trip.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"variant", "engine"})

	UploadsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "areca",
		Subsystem: "grader",
		Name:      "uploads_rejected_total",
		Help:      "Uploads rejected before submission, labeled by reason (too_large | wrong_type | unreadable).",
	}, []string{"reason"})

	StorageFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "areca",
		Subsystem: "grader",
		Name:      "storage_failures_total",
		Help:      "Best-effort image cache failures, labeled by operation (get | set | remove).",
	}, []string{"op"})
)

// Register registers the metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			AnalysesTotal,
			AnalysisDurationSeconds,
			UploadsRejectedTotal,
			StorageFailuresTotal,
		)
	})
}
