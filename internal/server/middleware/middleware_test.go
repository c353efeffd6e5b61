package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthOnlyGuardsMutations(t *testing.T) {
	h := Auth("secret")(ok)

	tests := []struct {
		name   string
		method string
		header map[string]string
		want   int
	}{
		{"get passes", http.MethodGet, nil, http.StatusTeapot},
		{"post without token", http.MethodPost, nil, http.StatusUnauthorized},
		{"post wrong token", http.MethodPost, map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"post api key", http.MethodPost, map[string]string{"X-API-Key": "secret"}, http.StatusTeapot},
		{"post bearer", http.MethodPost, map[string]string{"Authorization": "bearer secret"}, http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/api/pools", nil)
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAuthDisabledWithoutKey(t *testing.T) {
	rec := httptest.NewRecorder()
	Auth("")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://app.test"})(ok)

	r := httptest.NewRequest(http.MethodOptions, "/api/pools", nil)
	r.Header.Set("Origin", "http://app.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://app.test", rec.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/api/pools", nil)
	r.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allow, f.err
}

func TestRateLimit(t *testing.T) {
	lim := &fakeLimiter{allow: false}
	h := RateLimit(lim, 10, time.Minute, discard())(ok)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, []string{"api:203.0.113.7"}, lim.keys)

	lim.allow = true
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	h := RateLimit(&fakeLimiter{err: errors.New("redis down")}, 1, time.Second, discard())(ok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

type recObserver struct {
	route  string
	status int
}

func (o *recObserver) ObserveHTTP(_, route string, status int, _ time.Duration) {
	o.route, o.status = route, status
}

func TestLoggingReportsRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /api/pools/{id}", ok)
	obs := &recObserver{}

	rec := httptest.NewRecorder()
	Logging(discard(), obs)(mux).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pools/0x1", nil))
	assert.Equal(t, "GET /api/pools/{id}", obs.route)
	assert.Equal(t, http.StatusTeapot, obs.status)

	Logging(discard(), obs)(mux).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, "unmatched", obs.route)
	assert.Equal(t, http.StatusNotFound, obs.status)
}
