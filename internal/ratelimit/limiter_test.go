package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_AllowsUpToLimit(t *testing.T) {
	t.Parallel()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(Config{Requests: 3, Window: time.Minute})
	l.now = func() time.Time { return clock }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "ip-a")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if res.Remaining != int64(2-i) {
			t.Errorf("Remaining = %d, want %d", res.Remaining, 2-i)
		}
	}

	res, _ := l.Allow(ctx, "ip-a")
	if res.Allowed {
		t.Fatal("fourth request should be rejected")
	}
	if res.RetryAfter != time.Minute {
		t.Errorf("RetryAfter = %v, want 1m", res.RetryAfter)
	}

	// Other keys are independent.
	if res, _ := l.Allow(ctx, "ip-b"); !res.Allowed {
		t.Error("different key should be allowed")
	}
}

func TestMemoryLimiter_WindowSlides(t *testing.T) {
	t.Parallel()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(Config{Requests: 1, Window: time.Minute})
	l.now = func() time.Time { return clock }

	ctx := context.Background()
	if res, _ := l.Allow(ctx, "ip"); !res.Allowed {
		t.Fatal("first request should be allowed")
	}

	clock = clock.Add(30 * time.Second)
	if res, _ := l.Allow(ctx, "ip"); res.Allowed {
		t.Fatal("request inside window should be rejected")
	}

	clock = clock.Add(31 * time.Second)
	if res, _ := l.Allow(ctx, "ip"); !res.Allowed {
		t.Fatal("request after window should be allowed")
	}
}

func TestHashKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ip   string
	}{
		{"IPv4", "192.168.1.1"},
		{"IPv6 localhost", "::1"},
		{"empty", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := HashKey(tt.ip)
			if len(h) != 16 {
				t.Errorf("HashKey(%q) length = %d, want 16", tt.ip, len(h))
			}
			if h != HashKey(tt.ip) {
				t.Error("HashKey should be deterministic")
			}
		})
	}

	if HashKey("10.0.0.1") == HashKey("10.0.0.2") {
		t.Error("different keys should hash differently")
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Requests != 20 || cfg.Window != time.Minute {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
}
