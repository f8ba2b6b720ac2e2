// Package metrics defines the service's Prometheus instrumentation.
//
// Route labels are normalized through an allowlist so scanner traffic and
// per-satellite paths cannot blow up label cardinality.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satview_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"route", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "satview_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	propagationSatellites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satview_propagation_satellites_total",
			Help: "Satellites propagated per batch, by result.",
		},
		[]string{"result"},
	)

	propagationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "satview_propagation_batch_duration_seconds",
			Help:    "Whole-catalog batch propagation duration in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	propagationWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "satview_propagation_workers",
			Help: "Configured propagation worker count.",
		},
	)

	tleDatasetCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "satview_tle_dataset_satellites",
			Help: "Satellites in the current TLE dataset.",
		},
	)

	tleDatasetAge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "satview_tle_dataset_age_seconds",
			Help: "Age of the current TLE dataset in seconds.",
		},
	)

	cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "satview_snapshot_cache_hits_total",
			Help: "Snapshot cache hits.",
		},
	)

	cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "satview_snapshot_cache_misses_total",
			Help: "Snapshot cache misses.",
		},
	)

	cacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "satview_snapshot_cache_evictions_total",
			Help: "Snapshot cache entries evicted.",
		},
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "satview_snapshot_cache_entries",
			Help: "Snapshot cache entry count.",
		},
	)

	cacheSizeBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "satview_snapshot_cache_size_bytes",
			Help: "Estimated snapshot cache memory footprint.",
		},
	)

	cacheRegenErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "satview_snapshot_regeneration_errors_total",
			Help: "Snapshot generation failures.",
		},
	)

	cacheRegenDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "satview_snapshot_regeneration_duration_seconds",
			Help:    "Snapshot generation duration in seconds.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	cacheGracePeriod = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "satview_snapshot_grace_period_active",
			Help: "1 while a dataset cutover rebuild is in progress.",
		},
	)

	streamConnections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satview_stream_connections_total",
			Help: "SSE connection events.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "satview_streams_active",
			Help: "Currently open SSE streams.",
		},
	)

	streamMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "satview_stream_messages_total",
			Help: "SSE data messages sent.",
		},
	)

	streamBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "satview_stream_bytes_total",
			Help: "Bytes written to SSE streams.",
		},
	)

	streamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satview_stream_errors_total",
			Help: "SSE stream errors by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		propagationSatellites,
		propagationDuration,
		propagationWorkers,
		tleDatasetCount,
		tleDatasetAge,
		cacheHits,
		cacheMisses,
		cacheEvictions,
		cacheEntries,
		cacheSizeBytes,
		cacheRegenErrors,
		cacheRegenDuration,
		cacheGracePeriod,
		streamConnections,
		streamsActive,
		streamMessages,
		streamBytes,
		streamErrors,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPropagation records one whole-catalog batch.
func RecordPropagation(duration time.Duration, success, errors int) {
	propagationDuration.Observe(duration.Seconds())
	propagationSatellites.WithLabelValues("success").Add(float64(success))
	propagationSatellites.WithLabelValues("error").Add(float64(errors))
}

func SetPropagationWorkersActive(n int) { propagationWorkers.Set(float64(n)) }
func SetTLEDatasetCount(n int) { tleDatasetCount.Set(float64(n)) }
func SetTLEDatasetAge(seconds float64) { tleDatasetAge.Set(seconds) }

func IncCacheHits() { cacheHits.Inc() }
func IncCacheMisses() { cacheMisses.Inc() }
func AddCacheEvictions(n int) { cacheEvictions.Add(float64(n)) }
func SetCacheEntries(n int) { cacheEntries.Set(float64(n)) }
func SetCacheSizeBytes(n int64) { cacheSizeBytes.Set(float64(n)) }

func IncCacheRegenerationErrors() { cacheRegenErrors.Inc() }

func ObserveCacheRegenerationDuration(d time.Duration) {
	cacheRegenDuration.Observe(d.Seconds())
}

func SetCacheGracePeriodActive(active bool) {
	if active {
		cacheGracePeriod.Set(1)
	} else {
		cacheGracePeriod.Set(0)
	}
}

func IncStreamConnections(event string) { streamConnections.WithLabelValues(event).Inc() }
func IncStreamsActive() { streamsActive.Inc() }
func DecStreamsActive() { streamsActive.Dec() }
func IncStreamMessages() { streamMessages.Inc() }
func AddStreamBytes(n int64) { streamBytes.Add(float64(n)) }
func IncStreamErrors(reason string) { streamErrors.WithLabelValues(reason).Inc() }

// exactRoutes are the fixed paths the server registers.
var exactRoutes = map[string]bool{
	"/":                        true,
	"/healthz":                 true,
	"/readyz":                  true,
	"/metrics":                 true,
	"/api/v1/positions":        true,
	"/api/v1/visible":          true,
	"/api/v1/passes":           true,
	"/api/v1/terminator":       true,
	"/api/v1/tle/metadata":     true,
	"/api/v1/tle/fetch":        true,
	"/api/v1/snapshot/stats":   true,
	"/api/v1/stream/positions": true,
}

// satelliteOps are the per-satellite sub-resources.
var satelliteOps = map[string]bool{
	"position": true,
	"track":    true,
	"coverage": true,
	"look":     true,
}

// normalizeRoute collapses a request path to a bounded label set: known
// routes pass through, per-satellite paths collapse the NORAD ID to a
// placeholder, everything else becomes "other".
func normalizeRoute(path string) string {
	if exactRoutes[path] {
		return path
	}

	if rest, ok := strings.CutPrefix(path, "/api/v1/satellites/"); ok {
		id, op, found := strings.Cut(rest, "/")
		if !found {
			return "other"
		}
		if _, err := strconv.Atoi(id); err != nil {
			return "other"
		}
		if !satelliteOps[op] {
			return "other"
		}
		return "/api/v1/satellites/{norad_id}/" + op
	}

	return "other"
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush and Unwrap keep SSE streaming working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := normalizeRoute(r.URL.Path)
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
