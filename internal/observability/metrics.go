package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/shared"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi ledger.
type Metrics struct {
	registry            *prometheus.Registry
	handler             http.Handler
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	transitionsTotal    *prometheus.CounterVec
	integrityViolations prometheus.Gauge
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_vouchers_transitions_total",
		Help: "Jumlah transisi status voucher berdasarkan jenis dan hasil.",
	}, []string{"transition", "outcome"})
	violations := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_integrity_violations",
		Help: "Jumlah pelanggaran integritas ledger pada pemindaian terakhir.",
	})
	registry.MustRegister(requests, duration, transitions, violations)
	return &Metrics{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:       requests,
		requestDuration:     duration,
		transitionsTotal:    transitions,
		integrityViolations: violations,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
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

// ObserveTransition mencatat hasil post, cancel, delete, atau purge voucher.
func (m *Metrics) ObserveTransition(transition string, err error) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(transition, Outcome(err)).Inc()
}

// SetIntegrityViolations menyimpan hasil pemindaian integritas terakhir.
func (m *Metrics) SetIntegrityViolations(n int) {
	if m == nil {
		return
	}
	m.integrityViolations.Set(float64(n))
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Outcome memetakan error domain ke label metrik yang stabil.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, shared.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, shared.ErrUnbalancedVoucher):
		return "unbalanced"
	case errors.Is(err, shared.ErrMixedOrEmptyLine), errors.Is(err, shared.ErrEmptyVoucher), errors.Is(err, shared.ErrUnknownAccount):
		return "invalid_entries"
	case errors.Is(err, shared.ErrForbidden), errors.Is(err, shared.ErrPurgeDisabled):
		return "forbidden"
	case errors.Is(err, shared.ErrVoucherNotFound):
		return "not_found"
	default:
		return "error"
	}
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
