// Package metrics exposes Prometheus collectors for the crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes recorded by ObserveFetch.
const (
	OutcomeIndexed     = "indexed"
	OutcomeStatus      = "bad_status"
	OutcomeContentType = "content_type"
	OutcomeError       = "error"
)

var (
	crawlerPagesTotal     *prometheus.CounterVec
	crawlerDocumentsTotal *prometheus.CounterVec
	crawlerBytesTotal     *prometheus.CounterVec
	crawlerSinkErrors     prometheus.Counter
	crawlerActiveWorkers  prometheus.Gauge
	crawlerFrontierSize   prometheus.Gauge
	crawlerFrontierQueue  prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spindle_pages_total",
				Help: "Total number of URLs fetched, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		crawlerDocumentsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spindle_documents_total",
				Help: "Total number of documents handed to the index, labeled by site.",
			},
			[]string{"site"},
		)

		crawlerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spindle_bytes_total",
				Help: "Total number of body bytes indexed, labeled by site.",
			},
			[]string{"site"},
		)

		crawlerSinkErrors = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "spindle_index_errors_total",
				Help: "Total number of documents the index sink rejected.",
			},
		)

		crawlerActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "spindle_active_workers",
				Help: "Number of workers currently processing a URL.",
			},
		)

		crawlerFrontierSize = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "spindle_frontier_seen_urls",
				Help: "Number of distinct URLs queued so far.",
			},
		)

		crawlerFrontierQueue = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "spindle_frontier_pending_urls",
				Help: "Number of URLs waiting for a worker.",
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

// ObserveFetch counts one fetched URL by outcome.
func ObserveFetch(rawURL, outcome string) {
	crawlerPagesTotal.WithLabelValues(SanitizeSite(rawURL), outcome).Inc()
}

// ObserveDocument counts one indexed document and its body bytes.
func ObserveDocument(rawURL string, bytesIndexed int) {
	site := SanitizeSite(rawURL)
	crawlerDocumentsTotal.WithLabelValues(site).Inc()
	if bytesIndexed > 0 {
		crawlerBytesTotal.WithLabelValues(site).Add(float64(bytesIndexed))
	}
}

// ObserveSinkError counts a document the index sink failed to store.
func ObserveSinkError() {
	crawlerSinkErrors.Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	crawlerActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	crawlerActiveWorkers.Dec()
}

// SetFrontier records how many distinct URLs have been queued and how many
// are still waiting.
func SetFrontier(seen, pending int) {
	crawlerFrontierSize.Set(float64(seen))
	crawlerFrontierQueue.Set(float64(pending))
}
