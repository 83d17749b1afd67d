// Package metrics exposes Prometheus counters for the analysis
// pipeline. All record methods are nil-safe so components can take an
// optional registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	analysesStarted   prometheus.Counter
	analysesCompleted prometheus.Counter
	analysesFailed    *prometheus.CounterVec
	analysisDuration  prometheus.Histogram

	specialistOutcomes *prometheus.CounterVec
	validatorErrors    prometheus.Counter
	validatorFixes     prometheus.Counter

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	tierCalls   *prometheus.CounterVec

	driftChecks prometheus.Counter
	driftAlerts *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		analysesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verdict_analyses_started_total",
			Help: "Total number of analysis tasks started",
		}),
		analysesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verdict_analyses_completed_total",
			Help: "Total number of analysis tasks completed",
		}),
		analysesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verdict_analyses_failed_total",
			Help: "Total number of analysis tasks failed",
		}, []string{"reason"}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "verdict_analysis_duration_seconds",
			Help:    "End-to-end analysis duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		specialistOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verdict_specialist_outcomes_total",
			Help: "Specialist dispatch outcomes",
		}, []string{"kind", "outcome"}),
		validatorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verdict_validator_errors_total",
			Help: "Hard validation errors detected",
		}),
		validatorFixes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verdict_validator_corrections_total",
			Help: "Auto-corrections applied by the validator",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verdict_cache_hits_total",
			Help: "Response cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verdict_cache_misses_total",
			Help: "Response cache misses",
		}),
		tierCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verdict_tier_calls_total",
			Help: "LLM calls per model tier",
		}, []string{"tier"}),
		driftChecks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verdict_drift_checks_total",
			Help: "Drift monitor check cycles",
		}),
		driftAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verdict_drift_alerts_total",
			Help: "Drift alerts emitted",
		}, []string{"severity"}),
	}

	reg.MustRegister(
		r.analysesStarted, r.analysesCompleted, r.analysesFailed, r.analysisDuration,
		r.specialistOutcomes, r.validatorErrors, r.validatorFixes,
		r.cacheHits, r.cacheMisses, r.tierCalls,
		r.driftChecks, r.driftAlerts,
	)

	return r
}

// Handler serves the registry over HTTP.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}

// AnalysisStarted increments the started counter.
func (r *Registry) AnalysisStarted() {
	if r == nil {
		return
	}
	r.analysesStarted.Inc()
}

// AnalysisCompleted records a completed analysis and its duration.
func (r *Registry) AnalysisCompleted(seconds float64) {
	if r == nil {
		return
	}
	r.analysesCompleted.Inc()
	r.analysisDuration.Observe(seconds)
}

// AnalysisFailed records a failed analysis by reason code.
func (r *Registry) AnalysisFailed(reason string) {
	if r == nil {
		return
	}
	r.analysesFailed.WithLabelValues(reason).Inc()
}

// SpecialistOutcome records one specialist dispatch outcome.
func (r *Registry) SpecialistOutcome(kind, outcome string) {
	if r == nil {
		return
	}
	r.specialistOutcomes.WithLabelValues(kind, outcome).Inc()
}

// ValidatorError counts one hard validation error.
func (r *Registry) ValidatorError() {
	if r == nil {
		return
	}
	r.validatorErrors.Inc()
}

// ValidatorFix counts one auto-correction.
func (r *Registry) ValidatorFix() {
	if r == nil {
		return
	}
	r.validatorFixes.Inc()
}

// CacheHit counts a response-cache hit.
func (r *Registry) CacheHit() {
	if r == nil {
		return
	}
	r.cacheHits.Inc()
}

// CacheMiss counts a response-cache miss.
func (r *Registry) CacheMiss() {
	if r == nil {
		return
	}
	r.cacheMisses.Inc()
}

// TierCall counts one LLM call on the given tier.
func (r *Registry) TierCall(tier string) {
	if r == nil {
		return
	}
	r.tierCalls.WithLabelValues(tier).Inc()
}

// DriftCheck counts one drift monitor cycle.
func (r *Registry) DriftCheck() {
	if r == nil {
		return
	}
	r.driftChecks.Inc()
}

// DriftAlert counts one emitted drift alert.
func (r *Registry) DriftAlert(severity string) {
	if r == nil {
		return
	}
	r.driftAlerts.WithLabelValues(severity).Inc()
}
