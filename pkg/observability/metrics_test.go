package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersEverything(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	require.NotNil(t, m)

	assert.Panics(t, func() { NewMetrics(registry) }, "double registration should panic")
}

func TestMetrics_Recorders(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordGateDecision("feature", "marketplace", false)
	m.RecordGateDecision("feature", "marketplace", false)
	m.RecordCreditDeduction("ocr", "deducted")
	m.RecordSnapshotLoad("ok", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GateDecisionsTotal.WithLabelValues("feature", "marketplace", "denied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CreditDeductionsTotal.WithLabelValues("ocr", "deducted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotLoadsTotal.WithLabelValues("ok")))
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordGateDecision("route", "/x", true)
		m.RecordCreditDeduction("ocr", "declined")
		m.RecordSnapshotLoad("error", time.Second)
	})
}

func TestHTTPMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(m))
	router.HandleFunc("/v1/me/credits/{type}/deduct", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}).Methods(http.MethodPost)

	req := httptest.NewRequest(http.MethodPost, "/v1/me/credits/ocr/deduct", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/v1/me/credits/{type}/deduct", "402")))
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.SessionsActive.Set(3)

	serveMux := http.NewServeMux()
	RegisterMetricsEndpoint(serveMux, registry)

	rec := httptest.NewRecorder()
	serveMux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(string(body), "bizgate_sessions_active 3"))
}
