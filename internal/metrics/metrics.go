// Package metrics exposes Prometheus collectors for the discovery engine.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	recordsTotal        *prometheus.CounterVec
	sourceFailuresTotal *prometheus.CounterVec
	malformedTotal      *prometheus.CounterVec
	runDurationSeconds  prometheus.Histogram
	scoreDistribution   prometheus.Histogram
	strategyUnavailable *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "discovery_records_total",
				Help: "Records processed per source, labeled by dedup disposition.",
			},
			[]string{"source", "disposition"},
		)
		sourceFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "discovery_source_failures_total",
				Help: "Source pipeline failures, labeled by failure kind.",
			},
			[]string{"source", "kind"},
		)
		malformedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "discovery_malformed_candidates_total",
				Help: "Candidates dropped by the normalizer, per source.",
			},
			[]string{"source"},
		)
		runDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "discovery_run_duration_seconds",
				Help:    "Wall time of full discovery runs.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		)
		scoreDistribution = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "discovery_relevance_score",
				Help:    "Distribution of final relevance scores.",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		)
		strategyUnavailable = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoring_strategy_unavailable_total",
				Help: "Scoring calls in which a strategy produced no value.",
			},
			[]string{"strategy"},
		)
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests served, labeled by method, route and status.",
			},
			[]string{"method", "route", "status"},
		)
		httpDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)
	})
}

// ObserveRecord counts one processed record by dedup disposition.
func ObserveRecord(source, disposition string) {
	if recordsTotal != nil {
		recordsTotal.WithLabelValues(source, disposition).Inc()
	}
}

// ObserveSourceFailure counts a failed source pipeline.
func ObserveSourceFailure(source, kind string) {
	if sourceFailuresTotal != nil {
		sourceFailuresTotal.WithLabelValues(source, kind).Inc()
	}
}

// ObserveMalformed counts a dropped candidate.
func ObserveMalformed(source string) {
	if malformedTotal != nil {
		malformedTotal.WithLabelValues(source).Inc()
	}
}

// ObserveRunDuration records a completed run's wall time.
func ObserveRunDuration(d time.Duration) {
	if runDurationSeconds != nil {
		runDurationSeconds.Observe(d.Seconds())
	}
}

// ObserveScore records one final relevance score.
func ObserveScore(score int) {
	if scoreDistribution != nil {
		scoreDistribution.Observe(float64(score))
	}
}

// ObserveStrategyUnavailable counts a skipped strategy.
func ObserveStrategyUnavailable(strategy string) {
	if strategyUnavailable != nil {
		strategyUnavailable.WithLabelValues(strategy).Inc()
	}
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDurationSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
