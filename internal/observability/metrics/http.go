package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	askTotal            *prometheus.CounterVec
	askDuration         *prometheus.HistogramVec
	askCacheHitsTotal   *prometheus.CounterVec
	askInterruptedTotal *prometheus.CounterVec
	askRetryTotal       *prometheus.CounterVec
	retrievedChunks     *prometheus.HistogramVec
	citationViolations  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nyaya",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nyaya",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nyaya",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	askTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nyaya",
			Subsystem: "ask",
			Name:      "requests_total",
			Help:      "Total completed ask requests by answer path.",
		},
		[]string{"service", "path"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nyaya",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "Ask execution duration in seconds by answer path.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "path"},
	)
	askCacheHitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nyaya",
			Subsystem: "ask",
			Name:      "cache_hits_total",
			Help:      "Total ask requests served from the response cache.",
		},
		[]string{"service"},
	)
	askInterruptedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nyaya",
			Subsystem: "ask",
			Name:      "interrupted_total",
			Help:      "Total ask streams interrupted by the client.",
		},
		[]string{"service"},
	)
	askRetryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nyaya",
			Subsystem: "ask",
			Name:      "adaptive_retries_total",
			Help:      "Total adaptive retrieval retries triggered by low relevance.",
		},
		[]string{"service"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nyaya",
			Subsystem: "ask",
			Name:      "retrieved_chunks",
			Help:      "Distribution of context chunks per completed ask request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	citationViolations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nyaya",
			Subsystem: "ask",
			Name:      "citation_violations_total",
			Help:      "Total answers flagged with ungrounded legal citations.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		askTotal,
		askDuration,
		askCacheHitsTotal,
		askInterruptedTotal,
		askRetryTotal,
		retrievedChunks,
		citationViolations,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		askTotal:            askTotal,
		askDuration:         askDuration,
		askCacheHitsTotal:   askCacheHitsTotal,
		askInterruptedTotal: askInterruptedTotal,
		askRetryTotal:       askRetryTotal,
		retrievedChunks:     retrievedChunks,
		citationViolations:  citationViolations,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
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
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordAsk(service, path string, chunkCount int, duration time.Duration) {
	if path == "" {
		path = "unknown"
	}
	m.askTotal.WithLabelValues(service, path).Inc()
	m.askDuration.WithLabelValues(service, path).Observe(duration.Seconds())
	m.retrievedChunks.WithLabelValues(service).Observe(float64(chunkCount))
}

func (m *HTTPServerMetrics) RecordCacheHit(service string) {
	m.askCacheHitsTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordInterrupted(service string) {
	m.askInterruptedTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordAdaptiveRetry(service string) {
	m.askRetryTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordCitationViolation(service string) {
	m.citationViolations.WithLabelValues(service).Inc()
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
