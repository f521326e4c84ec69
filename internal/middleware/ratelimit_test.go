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

	"github.com/pinguard/pinguard/internal/metrics"
	"github.com/pinguard/pinguard/internal/ratelimit"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (*ratelimit.Result, error) {
	return nil, errors.New("backend down")
}

func newRateLimited(limiter ratelimit.Limiter, recorder metrics.Recorder) http.Handler {
	return RateLimitIP(RateLimitConfig{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Limiter: limiter,
		Metrics: recorder,
		Enabled: true,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRateLimitIP_RejectsOverBudget(t *testing.T) {
	t.Parallel()

	recorder := metrics.NewInMemory()
	handler := newRateLimited(ratelimit.NewMemoryLimiter(ratelimit.Config{Requests: 2, Window: time.Minute}), recorder)

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/doors/main", nil)
		req.RemoteAddr = "203.0.113.7:51234"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("status codes = %v, want [200 200 429]", codes)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if last.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", last.Header().Get("X-RateLimit-Remaining"))
	}
	if got := recorder.Snapshot().RateLimitRejected; got != 1 {
		t.Errorf("RateLimitRejected = %d, want 1", got)
	}
}

func TestRateLimitIP_SeparatesClients(t *testing.T) {
	t.Parallel()

	handler := newRateLimited(ratelimit.NewMemoryLimiter(ratelimit.Config{Requests: 1, Window: time.Minute}), nil)

	for _, ip := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/doors", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("client %s: status = %d, want 200", ip, rec.Code)
		}
	}
}

func TestRateLimitIP_FailsOpen(t *testing.T) {
	t.Parallel()

	handler := newRateLimited(failingLimiter{}, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/doors", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when the limiter errors", rec.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{"forwarded for first hop", "203.0.113.9, 10.0.0.1", "", "10.0.0.2:80", "203.0.113.9"},
		{"real ip", "", "203.0.113.10", "10.0.0.2:80", "203.0.113.10"},
		{"remote addr host", "", "", "192.0.2.4:5555", "192.0.2.4"},
		{"remote addr without port", "", "", "192.0.2.5", "192.0.2.5"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
