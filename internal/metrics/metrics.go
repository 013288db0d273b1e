// Package metrics holds the Prometheus collectors for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stepwise"

// Solve outcomes used as the "outcome" label.
const (
	OutcomeSuccess       = "success"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeInvalid       = "invalid"
	OutcomeUpstreamError = "upstream_error"
	OutcomeError         = "error"
)

// Metrics is the set of collectors, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	solves          *prometheus.CounterVec
	quotaRejections *prometheus.CounterVec
	aiDuration      *prometheus.HistogramVec
	usersCreated    prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_total",
			Help:      "Solve attempts by problem type and outcome.",
		}, []string{"type", "outcome"}),
		quotaRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_rejections_total",
			Help:      "Solve attempts rejected because the monthly limit was reached.",
		}, []string{"plan"}),
		aiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_request_duration_seconds",
			Help:      "Latency of explanation requests to the AI model.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"type"}),
		usersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_created_total",
			Help:      "Directory rows created on first sight of an identity.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.solves,
		m.quotaRejections,
		m.aiDuration,
		m.usersCreated,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSolve counts one solve attempt.
func (m *Metrics) ObserveSolve(problemType, outcome string) {
	m.solves.WithLabelValues(problemType, outcome).Inc()
}

// ObserveQuotaRejection counts one rejected solve on plan.
func (m *Metrics) ObserveQuotaRejection(plan string) {
	m.quotaRejections.WithLabelValues(plan).Inc()
}

// ObserveAIRequest records how long one AI call took.
func (m *Metrics) ObserveAIRequest(problemType string, d time.Duration) {
	m.aiDuration.WithLabelValues(problemType).Observe(d.Seconds())
}

// ObserveUserCreated counts one new directory row.
func (m *Metrics) ObserveUserCreated() {
	m.usersCreated.Inc()
}

// statusRecorder captures the response status for the HTTP collectors.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency per chi route pattern. The
// pattern is read after the handler ran, once chi has resolved it, so
// "/api/solutions/{problemNumber}" is one series, not one per number.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
