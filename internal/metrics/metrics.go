// Package metrics exposes Prometheus collectors for the crawl-graph
// service: pages fetched, task queue admission outcomes, persisted graph
// sizes, and the ambient HTTP API metrics.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlerPagesTotal           *prometheus.CounterVec
	crawlerBytesTotal           *prometheus.CounterVec
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDurationSeconds  *prometheus.HistogramVec
	crawlerTasksTotal           *prometheus.CounterVec
	crawlerActiveWorkers        prometheus.Gauge
	crawlerQueueDepth           prometheus.Gauge
	crawlerGraphNodes           *prometheus.GaugeVec
	crawlerGraphEdges           *prometheus.GaugeVec
	crawlerSweepDeletedTotal    prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Total number of pages crawled, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		crawlerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		crawlerTasksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_tasks_total",
				Help: "Total number of crawl tasks, labeled by outcome (accepted, rejected_duplicate, rejected_full, succeeded, failed).",
			},
			[]string{"outcome"},
		)

		crawlerActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_active_workers",
				Help: "Number of task queue workers currently crawling a site.",
			},
		)

		crawlerQueueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_queue_depth",
				Help: "Number of crawl tasks waiting for a worker slot.",
			},
		)

		crawlerGraphNodes = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crawler_graph_nodes",
				Help: "Node count of the most recently persisted graph, labeled by site.",
			},
			[]string{"site"},
		)

		crawlerGraphEdges = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crawler_graph_edges",
				Help: "Edge count of the most recently persisted graph, labeled by site.",
			},
			[]string{"site"},
		)

		crawlerSweepDeletedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_sweep_deleted_total",
				Help: "Total number of graph files removed by the cleaner sweep.",
			},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCrawl increments the crawler metrics.
func ObserveCrawl(site string, status string, bytesFetched int) {
	sanitizedSite := SanitizeSite(site)
	crawlerPagesTotal.WithLabelValues(sanitizedSite, status).Inc()
	if bytesFetched > 0 {
		crawlerBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesFetched))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveTask increments the task counter for the given admission or
// completion outcome (e.g. "accepted", "rejected_duplicate", "succeeded").
func ObserveTask(outcome string) {
	crawlerTasksTotal.WithLabelValues(outcome).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	crawlerActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	crawlerActiveWorkers.Dec()
}

// SetQueueDepth reports the current number of tasks waiting for a worker.
func SetQueueDepth(n int) {
	crawlerQueueDepth.Set(float64(n))
}

// SetGraphSize records the size of the graph most recently persisted for
// site, as reported by the Graph Info Updater (C6).
func SetGraphSize(site string, nodes, edges int) {
	sanitizedSite := SanitizeSite(site)
	crawlerGraphNodes.WithLabelValues(sanitizedSite).Set(float64(nodes))
	crawlerGraphEdges.WithLabelValues(sanitizedSite).Set(float64(edges))
}

// ObserveSweepDeleted adds n to the count of files removed by a cleaner
// sweep.
func ObserveSweepDeleted(n int) {
	if n > 0 {
		crawlerSweepDeletedTotal.Add(float64(n))
	}
}
