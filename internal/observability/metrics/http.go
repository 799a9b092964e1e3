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

// HTTPServerMetrics holds the api process series: generic HTTP
// surface plus the inference, categorization and webhook domains. It
// satisfies the recorder interfaces of the usecase layer.
type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	inferenceAttemptsTotal *prometheus.CounterVec
	inferenceFallbackTotal *prometheus.CounterVec
	streamedTokensTotal    *prometheus.CounterVec
	categorizationTotal    *prometheus.CounterVec
	webhookEventsTotal     *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aura",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aura",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "aura",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	inferenceAttemptsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aura",
			Subsystem: "inference",
			Name:      "attempts_total",
			Help:      "Provider attempts by task, provider and outcome.",
		},
		[]string{"service", "task", "provider", "outcome"},
	)
	inferenceFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aura",
			Subsystem: "inference",
			Name:      "fallback_total",
			Help:      "Fallback provider activations by task.",
		},
		[]string{"service", "task"},
	)
	streamedTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aura",
			Subsystem: "inference",
			Name:      "streamed_tokens_total",
			Help:      "Token fragments relayed to chat clients by provider.",
		},
		[]string{"service", "provider"},
	)
	categorizationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aura",
			Subsystem: "categorization",
			Name:      "requests_total",
			Help:      "Categorization answers by source (keyword, model, keyword_fallback).",
		},
		[]string{"service", "source"},
	)
	webhookEventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aura",
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Processed billing webhook events by type and outcome.",
		},
		[]string{"service", "type", "outcome"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		inferenceAttemptsTotal,
		inferenceFallbackTotal,
		streamedTokensTotal,
		categorizationTotal,
		webhookEventsTotal,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		service:                service,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		inferenceAttemptsTotal: inferenceAttemptsTotal,
		inferenceFallbackTotal: inferenceFallbackTotal,
		streamedTokensTotal:    streamedTokensTotal,
		categorizationTotal:    categorizationTotal,
		webhookEventsTotal:     webhookEventsTotal,
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

func (m *HTTPServerMetrics) RecordInferenceAttempt(task, provider, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.inferenceAttemptsTotal.WithLabelValues(m.service, task, provider, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordFallback(task string) {
	m.inferenceFallbackTotal.WithLabelValues(m.service, task).Inc()
}

func (m *HTTPServerMetrics) RecordStreamedTokens(provider string, count int) {
	if count <= 0 {
		return
	}
	m.streamedTokensTotal.WithLabelValues(m.service, provider).Add(float64(count))
}

func (m *HTTPServerMetrics) RecordCategorization(source string) {
	if source == "" {
		source = "unknown"
	}
	m.categorizationTotal.WithLabelValues(m.service, source).Inc()
}

func (m *HTTPServerMetrics) RecordWebhookEvent(eventType, outcome string) {
	if eventType == "" {
		eventType = "unknown"
	}
	m.webhookEventsTotal.WithLabelValues(m.service, eventType, outcome).Inc()
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
