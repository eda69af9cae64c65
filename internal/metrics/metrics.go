package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	Invocations   *prometheus.CounterVec
	Fetched       prometheus.Counter
	FetchFailures prometheus.Counter
	FetchSec      prometheus.Histogram

	Processed prometheus.Counter
	Created   prometheus.Counter
	Updated   prometheus.Counter
	Errors    prometheus.Counter
	RunSec    prometheus.Histogram

	ChangelogAppended prometheus.Counter
	ChangelogFailures prometheus.Counter
	LastSuccessUnix   prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	invocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "launchsync_invocations_total",
		Help: "Handler invocations by execution type and HTTP-style status code.",
	}, []string{"execution_type", "code"})
	fetched := prometheus.NewCounter(prometheus.CounterOpts{Name: "launchsync_fetched_launches_total"})
	fetchFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "launchsync_fetch_empty_total"})
	fetchSec := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "launchsync_fetch_seconds",
		Buckets: prometheus.DefBuckets,
	})
	processed := prometheus.NewCounter(prometheus.CounterOpts{Name: "launchsync_processed_total"})
	created := prometheus.NewCounter(prometheus.CounterOpts{Name: "launchsync_created_total"})
	updated := prometheus.NewCounter(prometheus.CounterOpts{Name: "launchsync_updated_total"})
	errors := prometheus.NewCounter(prometheus.CounterOpts{Name: "launchsync_record_errors_total"})
	runSec := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "launchsync_pipeline_seconds",
		Buckets: prometheus.DefBuckets,
	})
	clogAppended := prometheus.NewCounter(prometheus.CounterOpts{Name: "launchsync_changelog_appended_total"})
	clogFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "launchsync_changelog_failures_total"})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{Name: "launchsync_last_success_unixtime"})

	r.MustRegister(invocations, fetched, fetchFailures, fetchSec, processed, created, updated,
		errors, runSec, clogAppended, clogFailures, lastSuccess)
	return &Registry{
		reg:               r,
		Invocations:       invocations,
		Fetched:           fetched,
		FetchFailures:     fetchFailures,
		FetchSec:          fetchSec,
		Processed:         processed,
		Created:           created,
		Updated:           updated,
		Errors:            errors,
		RunSec:            runSec,
		ChangelogAppended: clogAppended,
		ChangelogFailures: clogFailures,
		LastSuccessUnix:   lastSuccess,
	}
}

// Gatherer exposes the underlying registry, mostly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
