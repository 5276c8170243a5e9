package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects pipeline and upstream metrics with Prometheus.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry prometheus.Gatherer

	pipelineRuns   *prometheus.CounterVec
	stageLatency   *prometheus.HistogramVec
	skippedAssets  *prometheus.CounterVec
	upstreamCalls  *prometheus.CounterVec
	upstreamTiming *prometheus.HistogramVec
	fallbacks      *prometheus.CounterVec
	jobRuns        *prometheus.CounterVec
}

// New registers the collectors on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewWithRegistry registers the collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		registry: gatherer,
		pipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorfolio_pipeline_runs_total",
				Help: "Portfolio pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		stageLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sectorfolio_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		skippedAssets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorfolio_skipped_assets_total",
				Help: "Assets dropped from a plan because data was unavailable",
			},
			[]string{"stage", "reason"},
		),
		upstreamCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorfolio_upstream_requests_total",
				Help: "Upstream HTTP requests by service and result",
			},
			[]string{"service", "result"},
		),
		upstreamTiming: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sectorfolio_upstream_duration_seconds",
				Help:    "Upstream HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorfolio_weight_source_total",
				Help: "Which weights fed the purchase calculator",
			},
			[]string{"source"},
		),
		jobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorfolio_job_runs_total",
				Help: "Scheduled job runs by job and outcome",
			},
			[]string{"job", "outcome"},
		),
	}
}

// RecordPipelineRun records a finished run ("success", "error").
func (r *Recorder) RecordPipelineRun(outcome string) {
	if r == nil {
		return
	}
	r.pipelineRuns.WithLabelValues(outcome).Inc()
}

// RecordStage records stage latency in seconds.
func (r *Recorder) RecordStage(stage string, seconds float64) {
	if r == nil {
		return
	}
	r.stageLatency.WithLabelValues(stage).Observe(seconds)
}

// RecordSkipped records an asset skipped at stage for reason.
func (r *Recorder) RecordSkipped(stage, reason string) {
	if r == nil {
		return
	}
	r.skippedAssets.WithLabelValues(stage, reason).Inc()
}

// RecordUpstream records one upstream request.
func (r *Recorder) RecordUpstream(service string, ok bool, seconds float64) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	r.upstreamCalls.WithLabelValues(service, result).Inc()
	r.upstreamTiming.WithLabelValues(service).Observe(seconds)
}

// RecordWeightSource records which weights were used ("optimized", "initial", "none").
func (r *Recorder) RecordWeightSource(source string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(source).Inc()
}

// RecordJob records a scheduled job outcome.
func (r *Recorder) RecordJob(job string, success bool) {
	if r == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	r.jobRuns.WithLabelValues(job, outcome).Inc()
}

// Handler exposes the recorder's registry for scraping.
func (r *Recorder) Handler() http.Handler {
	if r == nil || r.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
