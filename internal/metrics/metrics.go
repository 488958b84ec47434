// Package metrics collects Prometheus metrics for the API and its upstream
// calls and serves them on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the middleware, GitHub client and services depend on.
type Recorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	RecordGitHubRequest(operation string, status int)
	RecordRepoCreation(status, errorType string, duration time.Duration)
	RecordCacheLookup(hit bool)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	githubRequests   *prometheus.CounterVec
	repoCreations    *prometheus.CounterVec
	repoCreationTime prometheus.Histogram
	cacheLookups     *prometheus.CounterVec
}

// NewCollector registers every metric on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "openforge_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "openforge_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		githubRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "openforge_github_requests_total",
			Help: "GitHub REST API calls by operation and response status (0 = transport error).",
		}, []string{"operation", "status"}),
		repoCreations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "openforge_repo_creations_total",
			Help: "Repository creation attempts by outcome and error type.",
		}, []string{"status", "error_type"}),
		repoCreationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "openforge_repo_creation_duration_seconds",
			Help:    "End-to-end repository creation time in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20},
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "openforge_marketplace_cache_total",
			Help: "Marketplace cache lookups by result (hit or miss).",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.githubRequests,
		c.repoCreations,
		c.repoCreationTime,
		c.cacheLookups,
	)
	return c
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordGitHubRequest(operation string, status int) {
	c.githubRequests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
}

func (c *Collector) RecordRepoCreation(status, errorType string, duration time.Duration) {
	c.repoCreations.WithLabelValues(status, errorType).Inc()
	c.repoCreationTime.Observe(duration.Seconds())
}

func (c *Collector) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

// Handler serves the metrics gathered by reg.
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Nop discards everything. Used where metrics are not wired, e.g. tests.
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordGitHubRequest(string, int)                      {}
func (Nop) RecordRepoCreation(string, string, time.Duration)     {}
func (Nop) RecordCacheLookup(bool)                               {}
