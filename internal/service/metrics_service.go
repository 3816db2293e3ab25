package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingest failure stages reported by archive_ingest_failures_total.
const (
	StageValidate = "validate"
	StageStore    = "store"
	StageGeocode  = "geocode"
	StageLink     = "link"
	StagePersist  = "persist"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP, cache and archive activity.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	ingestTotal     *prometheus.CounterVec
	ingestFailures  *prometheus.CounterVec
	linkChecks      *prometheus.CounterVec
	geocodeDuration *prometheus.HistogramVec
	thumbnailJobs   *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	ingestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "archive_ingest_total",
		Help: "Successfully ingested uploads by media category",
	}, []string{"category"})

	ingestFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "archive_ingest_failures_total",
		Help: "Rejected or failed uploads by pipeline stage",
	}, []string{"stage"})

	linkChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "archive_link_checks_total",
		Help: "Link liveness probes by outcome",
	}, []string{"result"})

	geocodeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geocoder_request_duration_seconds",
		Help:    "Duration of geocoder lookups",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"outcome"})

	thumbnailJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "thumbnail_jobs_total",
		Help: "Thumbnail jobs by final status",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		ingestTotal, ingestFailures, linkChecks, geocodeDuration, thumbnailJobs, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		ingestTotal:     ingestTotal,
		ingestFailures:  ingestFailures,
		linkChecks:      linkChecks,
		geocodeDuration: geocodeDuration,
		thumbnailJobs:   thumbnailJobs,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordIngest counts a committed upload.
func (m *MetricsService) RecordIngest(category string) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(category).Inc()
}

// RecordIngestFailure counts an upload aborted at stage.
func (m *MetricsService) RecordIngestFailure(stage string) {
	if m == nil {
		return
	}
	m.ingestFailures.WithLabelValues(stage).Inc()
}

// RecordLinkCheck counts a link probe outcome.
func (m *MetricsService) RecordLinkCheck(result string) {
	if m == nil {
		return
	}
	m.linkChecks.WithLabelValues(result).Inc()
}

// ObserveGeocode records the latency of a geocoder call.
func (m *MetricsService) ObserveGeocode(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.geocodeDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordThumbnailJob counts a finished thumbnail job.
func (m *MetricsService) RecordThumbnailJob(status string) {
	if m == nil {
		return
	}
	m.thumbnailJobs.WithLabelValues(status).Inc()
}
