// Package metrics records filter activity for Prometheus and the stats
// endpoint.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects filter metrics. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry    *prom.Registry
	occurrences *prom.CounterVec
	filterRuns  *prom.HistogramVec
	jobs        *prom.CounterVec
	reloads     *prom.CounterVec
	latency     *Latency
}

// NewRecorder registers the filter metrics on reg, or on a fresh registry
// when reg is nil.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		registry: reg,
		occurrences: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "freelink",
			Name:      "occurrences_total",
			Help:      "Freelink occurrences by handler and outcome",
		}, []string{"handler", "outcome"}),
		filterRuns: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "freelink",
			Name:      "filter_duration_seconds",
			Help:      "Duration of filter runs by input source",
			Buckets:   prom.DefBuckets,
		}, []string{"source"}),
		jobs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "freelink",
			Name:      "jobs_total",
			Help:      "Document jobs by final status",
		}, []string{"status"}),
		reloads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "freelink",
			Name:      "settings_reloads_total",
			Help:      "Settings reloads by result",
		}, []string{"result"}),
		latency: NewLatency(time.Hour),
	}
	reg.MustRegister(r.occurrences, r.filterRuns, r.jobs, r.reloads)
	return r
}

// IncOccurrence counts one rendered occurrence. Unresolved occurrences have
// no handler and are counted under "none".
func (r *Recorder) IncOccurrence(handler, outcome string) {
	if r == nil {
		return
	}
	if handler == "" {
		handler = "none"
	}
	r.occurrences.WithLabelValues(handler, outcome).Inc()
}

// ObserveFilter records one filter run.
func (r *Recorder) ObserveFilter(source string, d time.Duration) {
	if r == nil {
		return
	}
	r.filterRuns.WithLabelValues(source).Observe(d.Seconds())
	r.latency.Record(d)
}

// IncJob counts a finished document job.
func (r *Recorder) IncJob(status string) {
	if r == nil {
		return
	}
	r.jobs.WithLabelValues(status).Inc()
}

// IncReload counts a settings reload attempt.
func (r *Recorder) IncReload(ok bool) {
	if r == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failed"
	}
	r.reloads.WithLabelValues(result).Inc()
}

// Latency returns the rolling filter latency aggregate.
func (r *Recorder) Latency() LatencySnapshot {
	if r == nil {
		return LatencySnapshot{}
	}
	return r.latency.Snapshot()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
