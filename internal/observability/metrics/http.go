package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldsight/location-engine/internal/core/domain"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	detectionsTotal       *prometheus.CounterVec
	fastPathHitsTotal     *prometheus.CounterVec
	categoryFailuresTotal *prometheus.CounterVec
	matchesTotal          *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locengine",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "locengine",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "locengine",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	detectionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locengine",
			Subsystem: "engine",
			Name:      "detections_total",
			Help:      "Total completed detections by outcome and confidence tier.",
		},
		[]string{"service", "outcome", "tier"},
	)
	fastPathHitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locengine",
			Subsystem: "engine",
			Name:      "fingerprint_fast_path_hits_total",
			Help:      "Total detections that found a cached fingerprint entry.",
		},
		[]string{"service"},
	)
	categoryFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locengine",
			Subsystem: "engine",
			Name:      "category_query_failures_total",
			Help:      "Total failed per-category directory queries.",
		},
		[]string{"service", "category"},
	)
	matchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locengine",
			Subsystem: "engine",
			Name:      "record_matches_total",
			Help:      "Total record-to-location matches by winning strategy.",
		},
		[]string{"service", "strategy"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		detectionsTotal,
		fastPathHitsTotal,
		categoryFailuresTotal,
		matchesTotal,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		detectionsTotal:       detectionsTotal,
		fastPathHitsTotal:     fastPathHitsTotal,
		categoryFailuresTotal: categoryFailuresTotal,
		matchesTotal:          matchesTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/places/") && path != "/v1/places/batch" && path != "/v1/places/search":
		return "/v1/places/{place_id}"
	case strings.HasPrefix(path, "/v1/records/"):
		return "/v1/records/{record_id}/match"
	default:
		return path
	}
}

// EngineObserver binds the detection pipeline's signals to this registry.
type EngineObserver struct {
	metrics *HTTPServerMetrics
	service string
}

func (m *HTTPServerMetrics) Observer(service string) *EngineObserver {
	return &EngineObserver{metrics: m, service: service}
}

func (o *EngineObserver) DetectionCompleted(outcome string, tier domain.ConfidenceTier) {
	if outcome == "" {
		outcome = "unknown"
	}
	o.metrics.detectionsTotal.WithLabelValues(o.service, outcome, string(tier)).Inc()
}

func (o *EngineObserver) FingerprintFastPathHit() {
	o.metrics.fastPathHitsTotal.WithLabelValues(o.service).Inc()
}

func (o *EngineObserver) CategoryQueryFailed(category string) {
	if category == "" {
		category = "unknown"
	}
	o.metrics.categoryFailuresTotal.WithLabelValues(o.service, category).Inc()
}

func (o *EngineObserver) MatchResolved(strategy string) {
	if strategy == "" {
		strategy = "unknown"
	}
	o.metrics.matchesTotal.WithLabelValues(o.service, strategy).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
