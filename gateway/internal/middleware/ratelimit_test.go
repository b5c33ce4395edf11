package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayroom/relayroom/common/logging"
	"github.com/relayroom/relayroom/gateway/internal/ratelimit"
)

type stubLimiter struct {
	decision ratelimit.Decision
	err      error

	lastRule ratelimit.Rule
	lastKey  string
}

func (s *stubLimiter) Check(ctx context.Context, rule ratelimit.Rule, key string) (ratelimit.Decision, error) {
	s.lastRule = rule
	s.lastKey = key
	return s.decision, s.err
}

func (s *stubLimiter) Close() error { return nil }

func testRules() Rules {
	return Rules{
		Auth:  ratelimit.Rule{Name: "auth", PerMinute: 10, Burst: 5},
		Write: ratelimit.Rule{Name: "write", PerMinute: 60, Burst: 20},
		Read:  ratelimit.Rule{Name: "read", PerMinute: 240, Burst: 60},
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitRouteClassification(t *testing.T) {
	tests := []struct {
		method   string
		path     string
		wantRule string
	}{
		{http.MethodPost, "/api/v1/auth/login", "auth"},
		{http.MethodPost, "/api/v1/auth/register", "auth"},
		{http.MethodPost, "/api/v1/rooms", "write"},
		{http.MethodDelete, "/api/v1/rooms/r1/messages/m1", "write"},
		{http.MethodGet, "/api/v1/rooms", "read"},
		{http.MethodGet, "/api/v1/rooms/r1/messages", "read"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			limiter := &stubLimiter{decision: ratelimit.Decision{Allowed: true, Remaining: 4}}
			handler := RateLimit(limiter, testRules(), logging.New(slog.LevelError, "text"))(okHandler())

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantRule, limiter.lastRule.Name)
			assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
		})
	}
}

func TestRateLimitDenied(t *testing.T) {
	limiter := &stubLimiter{decision: ratelimit.Decision{RetryAfter: 1500 * time.Millisecond}}
	handler := RateLimit(limiter, testRules(), logging.New(slog.LevelError, "text"))(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
}

func TestRateLimitKeyedByUserThenIP(t *testing.T) {
	limiter := &stubLimiter{decision: ratelimit.Decision{Allowed: true}}
	handler := RateLimit(limiter, testRules(), logging.New(slog.LevelError, "text"))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "10.1.2.3", limiter.lastKey)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	req = req.WithContext(context.WithValue(req.Context(), userIDKey, "user-1"))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "user-1", limiter.lastKey)
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &stubLimiter{err: context.DeadlineExceeded}
	handler := RateLimit(limiter, testRules(), logging.New(slog.LevelError, "text"))(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
