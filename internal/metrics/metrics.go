// Package metrics exposes Prometheus collectors for synchronization passes and
// media downloads on a private registry served at /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"folio/internal/portfolio"
)

const namespace = "folio"

// Metrics holds the collectors recorded by the sync pipeline.
type Metrics struct {
	registry        *prometheus.Registry
	syncRuns        *prometheus.CounterVec
	syncDuration    prometheus.Histogram
	lastSuccess     prometheus.Gauge
	images          *prometheus.GaugeVec
	collectionFails *prometheus.CounterVec
	downloads       *prometheus.CounterVec
	downloadBytes   prometheus.Counter
	downloadSeconds prometheus.Histogram
}

// New registers the collectors on a fresh registry, along with the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Synchronization passes by trigger and result.",
		}, []string{"trigger", "result"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Wall time of synchronization passes.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful snapshot write.",
		}),
		images: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sync_images",
			Help:      "Image counts of the last synchronization pass.",
		}, []string{"state"}),
		collectionFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_failures_total",
			Help:      "Collections that could not be fetched, by name.",
		}, []string{"collection"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_downloads_total",
			Help:      "Media files handled by outcome.",
		}, []string{"outcome"}),
		downloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_download_bytes_total",
			Help:      "Bytes written by media downloads.",
		}),
		downloadSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "media_download_duration_seconds",
			Help:      "Duration of media downloads, failed ones included.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.syncRuns,
		m.syncDuration,
		m.lastSuccess,
		m.images,
		m.collectionFails,
		m.downloads,
		m.downloadBytes,
		m.downloadSeconds,
	)
	return m
}

// Registry returns the registry backing the handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSync records the outcome of a synchronization pass.
func (m *Metrics) ObserveSync(trigger string, success bool, elapsed time.Duration, stats portfolio.SyncStats, failedCollections []string) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.syncRuns.WithLabelValues(trigger, result).Inc()
	m.syncDuration.Observe(elapsed.Seconds())
	for _, name := range failedCollections {
		m.collectionFails.WithLabelValues(name).Inc()
	}
	if !success {
		return
	}
	m.lastSuccess.SetToCurrentTime()
	m.images.WithLabelValues("total").Set(float64(stats.TotalImages))
	m.images.WithLabelValues("downloaded").Set(float64(stats.Downloaded))
	m.images.WithLabelValues("reused").Set(float64(stats.Reused))
	m.images.WithLabelValues("failed").Set(float64(stats.Failed))
	m.images.WithLabelValues("cleaned").Set(float64(stats.Cleaned))
}

// ObserveDownload records one media download outcome.
func (m *Metrics) ObserveDownload(outcome string, bytes int64, elapsed time.Duration) {
	m.downloads.WithLabelValues(outcome).Inc()
	if bytes > 0 {
		m.downloadBytes.Add(float64(bytes))
	}
	if elapsed > 0 {
		m.downloadSeconds.Observe(elapsed.Seconds())
	}
}
