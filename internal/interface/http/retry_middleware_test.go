package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mealsnap/mealsnap/internal/infra/config"
)

func TestWithRetryReplaysTransientFailures(t *testing.T) {
	var calls atomic.Int32
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, 4)
		n, _ := r.Body.Read(body)
		require.Equal(t, "ping", string(body[:n]))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := withRetry(inner, config.RetryConfig{
		Enabled:     true,
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
	}, newTestLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/thing", strings.NewReader("ping")))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
	require.Equal(t, int32(3), calls.Load())
}

func TestWithRetrySkipsExcludedPrefixes(t *testing.T) {
	var calls atomic.Int32
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	handler := withRetry(inner, config.RetryConfig{
		Enabled:     true,
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		Exclude:     []string{"/api/v1/sessions/"},
	}, newTestLogger())

	// State-transition endpoints run exactly once.
	for _, path := range []string{
		"/api/v1/sessions/abc/events/capture",
		"/api/v1/sessions/abc/events/start",
		"/api/v1/sessions/abc/speech",
	} {
		calls.Store(0)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}")))
		require.Equal(t, http.StatusBadGateway, rec.Code)
		require.Equal(t, int32(1), calls.Load(), "path %s must not be retried", path)
	}

	// Session creation is outside the prefix and still retried.
	calls.Store(0)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader("{}")))
	require.Equal(t, int32(3), calls.Load())
}

func TestWithRetryIgnoresNonPost(t *testing.T) {
	var calls atomic.Int32
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	handler := withRetry(inner, config.RetryConfig{
		Enabled:     true,
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
	}, newTestLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	require.Equal(t, int32(1), calls.Load())
}

func TestWithRetryRejectsOversizedBody(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	handler := withRetry(inner, config.RetryConfig{
		Enabled:     true,
		MaxAttempts: 2,
		BaseBackoff: time.Millisecond,
	}, newTestLogger())

	rec := httptest.NewRecorder()
	big := strings.NewReader(strings.Repeat("a", retryBodyLimit+1))
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/thing", big))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
