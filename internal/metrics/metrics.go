// Package metrics provides Prometheus metrics derived from access log entries.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ricesearch/rice-accesslog/internal/accesslog"
)

const namespace = "rice"

// Metrics holds the access log collectors and the registry they belong to.
type Metrics struct {
	registry *prometheus.Registry

	Requests         *prometheus.CounterVec // labels: method, code
	RequestDuration  prometheus.Histogram   // seconds
	ResponseSize     prometheus.Histogram   // bytes
	RequestsInFlight prometheus.Gauge

	Searches         prometheus.Counter
	SearchCoverage   prometheus.Histogram   // percent
	SearchTotalHits  prometheus.Histogram
	DegradedSearches *prometheus.CounterVec // labels: reason
}

// New creates metrics registered on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of logged HTTP requests",
		}, []string{"method", "code"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time between request and response",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		ResponseSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "Returned content size",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being served",
		}),
		Searches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of logged requests carrying search results",
		}),
		SearchCoverage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_coverage_percent",
			Help:      "Percentage of active documents covered by search results",
			Buckets:   []float64{10, 25, 50, 75, 90, 95, 99, 100},
		}),
		SearchTotalHits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_total_hits",
			Help:      "Documents matching the query",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 7),
		}),
		DegradedSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_degraded_total",
			Help:      "Degraded search results by reason",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		m.Requests,
		m.RequestDuration,
		m.ResponseSize,
		m.RequestsInFlight,
		m.Searches,
		m.SearchCoverage,
		m.SearchTotalHits,
		m.DegradedSearches,
	)

	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records a completed access log entry. It implements
// accesslog.Observer.
func (m *Metrics) Observe(e *accesslog.Entry) {
	m.Requests.WithLabelValues(e.HTTPMethod(), statusCode(e.StatusCode())).Inc()
	m.RequestDuration.Observe(float64(e.DurationMillis()) / 1000)
	m.ResponseSize.Observe(float64(e.ReturnedContentSize()))

	hits := e.HitCounts()
	if hits == nil {
		return
	}

	m.Searches.Inc()
	cov := hits.Coverage()
	m.SearchCoverage.Observe(float64(cov.Percent()))
	m.SearchTotalHits.Observe(float64(hits.TotalHits()))
	for _, r := range cov.DegradedReasons() {
		m.DegradedSearches.WithLabelValues(r.String()).Inc()
	}
}

// statusCode converts an HTTP status code to a metric label. Uncommon
// codes are grouped by class to bound cardinality.
func statusCode(code int) string {
	switch code {
	case 200, 204, 206, 301, 302, 304, 400, 401, 403, 404, 405, 429, 500, 502, 503, 504:
		return strconv.Itoa(code)
	}

	if code >= 100 && code < 600 {
		return strconv.Itoa(code/100) + "xx"
	}
	return "invalid"
}
