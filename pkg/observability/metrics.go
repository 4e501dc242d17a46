package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Gate metrics
	GateDecisionsTotal *prometheus.CounterVec

	// Subscription metrics
	SnapshotLoadsTotal       *prometheus.CounterVec
	SnapshotLoadDuration     prometheus.Histogram
	CreditDeductionsTotal    *prometheus.CounterVec
	SessionsActive           prometheus.Gauge
	ChangeNotificationsTotal *prometheus.CounterVec
	SubscriptionsExpired     prometheus.Counter

	// Database metrics
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizgate_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bizgate_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		GateDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizgate_gate_decisions_total",
				Help: "Feature and route gate decisions",
			},
			[]string{"kind", "subject", "result"},
		),
		SnapshotLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizgate_subscription_loads_total",
				Help: "Subscription snapshot loads by outcome",
			},
			[]string{"result"},
		),
		SnapshotLoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bizgate_subscription_load_duration_seconds",
				Help:    "Time to fetch subscription, plans and credits",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
		),
		CreditDeductionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizgate_credit_deductions_total",
				Help: "Credit deduction attempts by credit type and outcome",
			},
			[]string{"type", "result"},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bizgate_sessions_active",
				Help: "Subscription managers currently cached",
			},
		),
		ChangeNotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizgate_change_notifications_total",
				Help: "Subscription change notifications by kind",
			},
			[]string{"kind"},
		),
		SubscriptionsExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bizgate_subscriptions_expired_total",
				Help: "Subscriptions transitioned to expired by the reconciler",
			},
		),
		DBConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bizgate_db_connections_open",
				Help: "Open database connections",
			},
		),
		DBConnectionsInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bizgate_db_connections_in_use",
				Help: "Database connections in use",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GateDecisionsTotal,
		m.SnapshotLoadsTotal,
		m.SnapshotLoadDuration,
		m.CreditDeductionsTotal,
		m.SessionsActive,
		m.ChangeNotificationsTotal,
		m.SubscriptionsExpired,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
	)

	return m
}

// RecordGateDecision counts one gate decision. Safe on a nil receiver.
func (m *Metrics) RecordGateDecision(kind, subject string, allowed bool) {
	if m == nil {
		return
	}
	m.GateDecisionsTotal.WithLabelValues(kind, subject, resultLabel(allowed, "allowed", "denied")).Inc()
}

// RecordCreditDeduction counts one deduction attempt. Safe on a nil receiver.
func (m *Metrics) RecordCreditDeduction(creditType, result string) {
	if m == nil {
		return
	}
	m.CreditDeductionsTotal.WithLabelValues(creditType, result).Inc()
}

// RecordSnapshotLoad counts one snapshot load. Safe on a nil receiver.
func (m *Metrics) RecordSnapshotLoad(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.SnapshotLoadsTotal.WithLabelValues(result).Inc()
	m.SnapshotLoadDuration.Observe(took.Seconds())
}

func resultLabel(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests. The route label is the mux
// path template when available so ids do not explode cardinality.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, gatherer prometheus.Gatherer) {
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
