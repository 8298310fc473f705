package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/bgfactura/invoicing/internal/logging"
)

func TestCORSAllowedOrigin(t *testing.T) {
	handler := NewCORSMiddleware([]string{"http://localhost:3000/", " "}).Handler(okHandler())

	req := httptest.NewRequest("GET", "/api/clients", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	req = httptest.NewRequest("GET", "/api/clients", nil)
	req.Header.Set("Origin", "http://evil.localhost:3000")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	called := false
	handler := NewCORSMiddleware([]string{"*"}).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/documents", nil)
	req.Header.Set("Origin", "https://app.example.bg")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.bg", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, called)
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 2, logging.NewDiscard())
	frozen := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return frozen }
	handler := rl.Handler(okHandler())

	hit := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusOK, hit("10.0.0.1:5001").Code)
	limited := hit("10.0.0.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", gjson.Get(limited.Body.String(), "code").String())

	assert.Equal(t, http.StatusOK, hit("10.0.0.2:5000").Code)

	frozen = frozen.Add(time.Minute)
	assert.Equal(t, http.StatusOK, hit("10.0.0.1:5003").Code)
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(5, 1, logging.NewDiscard())
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.getLimiter("10.0.0.1")

	now = now.Add(11 * time.Minute)
	rl.getLimiter("10.0.0.2")
	rl.Cleanup()

	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "10.0.0.2")
}

func TestTracingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New("invoicer", "info", "json")
	logger.SetOutput(&buf)

	var seen string
	handler := NewTracingMiddleware(logger).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetTraceID(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest("POST", "/api/clients", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "trace-123", seen)
	assert.Equal(t, "trace-123", rec.Header().Get("X-Trace-ID"))
	require.NotZero(t, buf.Len())
	assert.Equal(t, int64(http.StatusCreated), gjson.Get(buf.String(), "status").Int())
	assert.Equal(t, "trace-123", gjson.Get(buf.String(), "trace_id").String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/clients", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))
}
