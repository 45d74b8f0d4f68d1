// Package metrics exposes Prometheus instrumentation for the gateway, the
// stage router and the pipeline. A nil *Registry is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for vigil
type Registry struct {
	reg *prometheus.Registry

	CacheLookups     *prometheus.CounterVec
	ProviderCalls    *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	Blacklists       *prometheus.CounterVec
	StageCalls       *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	PipelineRuns     *prometheus.CounterVec
	StepDuration     *prometheus.HistogramVec
	RssFetches       *prometheus.CounterVec
}

// NewRegistry creates a registry with all metrics registered on a private
// prometheus.Registry, so several pipelines can coexist in one process.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_cache_lookups_total",
				Help: "Market-data cache lookups by data kind and result (hit, shared_hit, miss)",
			},
			[]string{"kind", "result"},
		),

		ProviderCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_provider_calls_total",
				Help: "Adapter invocations by provider, data kind and outcome",
			},
			[]string{"provider", "kind", "result"},
		),

		ProviderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vigil_provider_call_duration_seconds",
				Help:    "Adapter call latency including retries",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider", "kind"},
		),

		Blacklists: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_provider_blacklists_total",
				Help: "Provider blacklist events",
			},
			[]string{"provider"},
		),

		StageCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_llm_stage_calls_total",
				Help: "LLM stage calls by stage, provider and status (success, empty, error)",
			},
			[]string{"stage", "provider", "status"},
		),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vigil_llm_stage_duration_seconds",
				Help:    "LLM stage call latency",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 90},
			},
			[]string{"stage", "provider"},
		),

		PipelineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_pipeline_runs_total",
				Help: "Pipeline runs by final status",
			},
			[]string{"status"},
		),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vigil_pipeline_step_duration_seconds",
				Help:    "Duration of each pipeline step in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"step"},
		),

		RssFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_rss_fetches_total",
				Help: "RSS feed fetches by result (ok, not_modified, error)",
			},
			[]string{"result"},
		),
	}

	r.reg.MustRegister(
		r.CacheLookups,
		r.ProviderCalls,
		r.ProviderDuration,
		r.Blacklists,
		r.StageCalls,
		r.StageDuration,
		r.PipelineRuns,
		r.StepDuration,
		r.RssFetches,
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func (r *Registry) RecordCacheLookup(kind, result string) {
	if r == nil {
		return
	}
	r.CacheLookups.WithLabelValues(kind, result).Inc()
}

func (r *Registry) RecordProviderCall(provider, kind, result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.ProviderCalls.WithLabelValues(provider, kind, result).Inc()
	if elapsed > 0 {
		r.ProviderDuration.WithLabelValues(provider, kind).Observe(elapsed.Seconds())
	}
}

func (r *Registry) RecordBlacklist(provider string) {
	if r == nil {
		return
	}
	r.Blacklists.WithLabelValues(provider).Inc()
}

func (r *Registry) RecordStage(stage, provider, status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.StageCalls.WithLabelValues(stage, provider, status).Inc()
	r.StageDuration.WithLabelValues(stage, provider).Observe(elapsed.Seconds())
}

func (r *Registry) RecordPipelineRun(status string) {
	if r == nil {
		return
	}
	r.PipelineRuns.WithLabelValues(status).Inc()
}

func (r *Registry) ObserveStep(step string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.StepDuration.WithLabelValues(step).Observe(elapsed.Seconds())
}

func (r *Registry) RecordRssFetch(result string) {
	if r == nil {
		return
	}
	r.RssFetches.WithLabelValues(result).Inc()
}
