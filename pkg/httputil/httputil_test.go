package httputil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bizflow/bizgate/pkg/contextkeys"
	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteJSON(w, http.StatusAccepted, map[string]int{"n": 1}))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, w.Body.String())
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		body   string
	}{
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "nope") }, 400, `{"error":"nope"}`},
		{"unauthorized", func(w http.ResponseWriter) { WriteUnauthorized(w, "who") }, 401, `{"error":"who"}`},
		{"not found", func(w http.ResponseWriter) { WriteNotFound(w, "gone") }, 404, `{"error":"gone"}`},
		{"internal", func(w http.ResponseWriter) { WriteInternalError(w) }, 500, `{"error":"internal server error"}`},
		{"too many", func(w http.ResponseWriter) { WriteTooManyRequests(w, "slow") }, 429, `{"error":"slow"}`},
		{"unavailable", func(w http.ResponseWriter) { WriteServiceUnavailable(w, "down") }, 503, `{"error":"down"}`},
		{"detailed", func(w http.ResponseWriter) {
			WriteDetailedError(w, 409, "conflict", map[string]string{"plan": "ORTA"})
		}, 409, `{"error":"conflict","details":{"plan":"ORTA"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestParseJSON(t *testing.T) {
	type body struct {
		Plan string `json:"plan"`
	}

	var b body
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"plan":"ORTA"}`))
	require.NoError(t, ParseJSON(httptest.NewRecorder(), r, &b))
	assert.Equal(t, "ORTA", b.Plan)

	for name, payload := range map[string]string{
		"empty":    "",
		"unknown":  `{"plan":"ORTA","admin":true}`,
		"trailing": `{"plan":"ORTA"}{"plan":"FREE"}`,
		"broken":   `{"plan":`,
	} {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
			w := httptest.NewRecorder()
			assert.False(t, ParseJSONOrError(w, r, &b))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestParsePathString(t *testing.T) {
	r := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"type": "ocr"})
	v, ok := ParsePathStringOrError(httptest.NewRecorder(), r, "type")
	assert.True(t, ok)
	assert.Equal(t, "ocr", v)

	w := httptest.NewRecorder()
	_, ok = ParsePathStringOrError(w, httptest.NewRequest(http.MethodGet, "/", nil), "type")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseQueryString(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?route=/projects", nil)
	assert.Equal(t, "/projects", ParseQueryString(r, "route", ""))
	assert.Equal(t, "x", ParseQueryString(r, "missing", "x"))
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.DebugLevel, &buf)

	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	req = req.WithContext(contextkeys.WithRequestID(req.Context(), "req-1"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "/v1/plans", line["path"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, "req-1", line["request_id"])
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(observability.NopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestChain(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mw("a"), mw("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}
