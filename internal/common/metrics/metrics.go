// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CasesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adjudicator_cases_processed_total",
			Help: "Total number of cases processed by decision",
		},
		[]string{"case_type", "decision"},
	)

	CaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "adjudicator_case_duration_seconds",
			Help: "Duration of case processing in seconds",
		},
		[]string{"case_type"},
	)

	EvidenceCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "adjudicator_evidence_call_duration_seconds",
			Help: "Latency of evidence provider calls in seconds",
		},
		[]string{"operation"},
	)

	EvidenceCallFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adjudicator_evidence_call_failures_total",
			Help: "Total number of failed evidence provider calls",
		},
		[]string{"operation", "category"},
	)

	JobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "adjudicator_jobs_active",
			Help: "Number of batch jobs currently running",
		},
	)

	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adjudicator_jobs_finished_total",
			Help: "Total number of batch jobs by terminal status",
		},
		[]string{"status"},
	)

	RowsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adjudicator_rows_persisted_total",
			Help: "Total number of result rows appended per backend",
		},
		[]string{"backend", "outcome"},
	)
)
