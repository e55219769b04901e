package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics of the API process.
type Metrics struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	distributionLines prometheus.Counter
	distributionRuns  prometheus.Counter
	residualCents     prometheus.Histogram
	balanceMutations  *prometheus.CounterVec
}

// NewMetrics initialises the registry with HTTP and domain metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fincas_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fincas_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	lines := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fincas_distribution_lines_total",
		Help: "Ledger lines generated by expense distributions.",
	})
	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fincas_distributions_total",
		Help: "Expense distributions committed.",
	})
	residual := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fincas_distribution_residual_cents",
		Help:    "Absolute rounding residual left by a distribution, in cents.",
		Buckets: []float64{0, 1, 2, 5, 10, 50},
	})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fincas_treasury_balance_mutations_total",
		Help: "Committed balance mutations by operation.",
	}, []string{"op"})
	registry.MustRegister(requests, duration, lines, runs, residual, mutations)
	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:     requests,
		requestDuration:   duration,
		distributionLines: lines,
		distributionRuns:  runs,
		residualCents:     residual,
		balanceMutations:  mutations,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveDistribution records one committed distribution.
func (m *Metrics) ObserveDistribution(lines int, residual float64) {
	if m == nil {
		return
	}
	m.distributionRuns.Inc()
	m.distributionLines.Add(float64(lines))
	if residual < 0 {
		residual = -residual
	}
	m.residualCents.Observe(residual * 100)
}

// ObserveBalanceMutation counts a committed balance change.
func (m *Metrics) ObserveBalanceMutation(op string) {
	if m == nil {
		return
	}
	m.balanceMutations.WithLabelValues(op).Inc()
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
