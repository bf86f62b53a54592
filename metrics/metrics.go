// Package metrics exposes Prometheus instruments for page fetches and image downloads.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeAborted = "aborted"
	OutcomeLocal   = "local"
)

// VisitorMetrics holds the counters and histograms recorded by a visitor.
// A nil *VisitorMetrics records nothing.
type VisitorMetrics struct {
	registry prometheus.Gatherer

	PageFetches       *prometheus.CounterVec
	PageFetchDuration prometheus.Histogram
	ImageDownloads    *prometheus.CounterVec
	ImageBytes        prometheus.Counter
	Operations        *prometheus.CounterVec
}

// NewVisitorMetrics registers visitor instruments on a fresh registry under namespace
func NewVisitorMetrics(namespace string) *VisitorMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &VisitorMetrics{
		registry: reg,
		PageFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_fetches_total",
			Help:      "Page fetches by outcome",
		}, []string{"outcome"}),
		PageFetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_fetch_duration_seconds",
			Help:      "Time spent fetching pages",
			Buckets:   prometheus.DefBuckets,
		}),
		ImageDownloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_downloads_total",
			Help:      "Image acquisitions by outcome",
		}, []string{"outcome"}),
		ImageBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_bytes_total",
			Help:      "Bytes of image data written to the working directory",
		}),
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Tool operations by name and outcome",
		}, []string{"operation", "outcome"}),
	}
}

// ObserveFetch records one page fetch
func (m *VisitorMetrics) ObserveFetch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PageFetches.WithLabelValues(outcome).Inc()
	m.PageFetchDuration.Observe(elapsed.Seconds())
}

// ObserveImage records one image acquisition; size is ignored unless outcome is success
func (m *VisitorMetrics) ObserveImage(outcome string, size int64) {
	if m == nil {
		return
	}
	m.ImageDownloads.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess && size > 0 {
		m.ImageBytes.Add(float64(size))
	}
}

// ObserveOperation records one tool call
func (m *VisitorMetrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *VisitorMetrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
