package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	aerae = "aerae"

	assessmentJobsTotal   = "assessment_jobs_total"
	assessmentPhaseTime   = "assessment_phase_duration_seconds"
	llmCallsTotal         = "llm_calls_total"
	llmFallbackTotal      = "llm_fallback_total"
	gateDecisionsTotal    = "gate_decisions_total"
	secretScanResultTotal = "secret_scan_total"

	// Labels
	statusLabel   = "status"
	phaseLabel    = "phase"
	providerLabel = "provider"
	outcomeLabel  = "outcome"
	stageLabel    = "stage"
	decisionLabel = "decision"
)

var assessmentJobsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: aerae,
		Name:      assessmentJobsTotal,
		Help:      "number of assessment jobs by status transition",
	},
	[]string{statusLabel},
)

var assessmentPhaseDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: aerae,
		Name:      assessmentPhaseTime,
		Help:      "time spent in each assessment pipeline phase",
		Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
	},
	[]string{phaseLabel},
)

var llmCallsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: aerae,
		Name:      llmCallsTotal,
		Help:      "number of language model calls by provider and outcome",
	},
	[]string{providerLabel, outcomeLabel},
)

var llmFallbackTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: aerae,
		Name:      llmFallbackTotal,
		Help:      "number of times the secondary provider served a request",
	},
	[]string{stageLabel},
)

var gateDecisionsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: aerae,
		Name:      gateDecisionsTotal,
		Help:      "policy gate decisions, unavailable when the gate could not be reached",
	},
	[]string{decisionLabel},
)

var secretScanTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: aerae,
		Name:      secretScanResultTotal,
		Help:      "secret scan outcomes",
	},
	[]string{outcomeLabel},
)

func IncreaseAssessmentJobsMetric(status string) {
	assessmentJobsTotalMetric.With(prometheus.Labels{statusLabel: status}).Inc()
}

func ObservePhaseDuration(phase string, d time.Duration) {
	assessmentPhaseDurationMetric.With(prometheus.Labels{phaseLabel: phase}).Observe(d.Seconds())
}

func IncreaseLLMCallsMetric(provider, outcome string) {
	llmCallsTotalMetric.With(prometheus.Labels{providerLabel: provider, outcomeLabel: outcome}).Inc()
}

func IncreaseLLMFallbackMetric(stage string) {
	llmFallbackTotalMetric.With(prometheus.Labels{stageLabel: stage}).Inc()
}

func IncreaseGateDecisionMetric(decision string) {
	gateDecisionsTotalMetric.With(prometheus.Labels{decisionLabel: decision}).Inc()
}

func IncreaseSecretScanMetric(outcome string) {
	secretScanTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(assessmentJobsTotalMetric)
	prometheus.MustRegister(assessmentPhaseDurationMetric)
	prometheus.MustRegister(llmCallsTotalMetric)
	prometheus.MustRegister(llmFallbackTotalMetric)
	prometheus.MustRegister(gateDecisionsTotalMetric)
	prometheus.MustRegister(secretScanTotalMetric)
}
