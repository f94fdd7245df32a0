package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration   *prom.HistogramVec
	buildDuration   prom.Histogram
	stageResults    *prom.CounterVec
	buildOutcome    *prom.CounterVec
	postCounts      *prom.GaugeVec
	publishAttempts prom.Counter
	publishResults  *prom.CounterVec
	publishDuration prom.Histogram
}

// NewPrometheusRecorder constructs and registers the site generator metrics
// on reg (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "scribe",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "scribe",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "scribe",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "scribe",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		postCounts: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "scribe",
			Name:      "posts",
			Help:      "Post counts from the last build",
		}, []string{"state"}),
		publishAttempts: prom.NewCounter(prom.CounterOpts{
			Namespace: "scribe",
			Name:      "publish_attempts_total",
			Help:      "Publish attempts including retries",
		}),
		publishResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "scribe",
			Name:      "publish_results_total",
			Help:      "Publish results by success/failure",
		}, []string{"result"}),
		publishDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "scribe",
			Name:      "publish_duration_seconds",
			Help:      "End-to-end publish duration including retries",
			Buckets:   prom.DefBuckets,
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults,
		pr.buildOutcome, pr.postCounts, pr.publishAttempts, pr.publishResults,
		pr.publishDuration)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetPostCounts(total, stale, unchanged int) {
	if p == nil {
		return
	}
	p.postCounts.WithLabelValues("total").Set(float64(total))
	p.postCounts.WithLabelValues("stale").Set(float64(stale))
	p.postCounts.WithLabelValues("unchanged").Set(float64(unchanged))
}

func (p *PrometheusRecorder) IncPublishAttempt() {
	if p == nil {
		return
	}
	p.publishAttempts.Inc()
}

func (p *PrometheusRecorder) IncPublishResult(success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.publishResults.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) ObservePublishDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.publishDuration.Observe(d.Seconds())
}

// HTTPHandler serves the registry in Prometheus exposition format.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
