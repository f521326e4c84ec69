package ratelimit

import (
	"context"
	"sync"
	"time"
)

var _ Limiter = (*MemoryLimiter)(nil)

// MemoryLimiter is a process-local sliding window limiter.
type MemoryLimiter struct {
	cfg     Config
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

// NewMemoryLimiter creates a limiter for cfg.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		cfg:     cfg,
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records a request for key if the window has room.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.cfg.Window)

	stamps := l.windows[key]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.cfg.Requests {
		l.windows[key] = kept
		resetAt := kept[0].Add(l.cfg.Window)
		return &Result{
			Allowed:    false,
			Limit:      l.cfg.Requests,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}, nil
	}

	kept = append(kept, now)
	l.windows[key] = kept

	return &Result{
		Allowed:   true,
		Limit:     l.cfg.Requests,
		Remaining: int64(l.cfg.Requests - len(kept)),
		ResetAt:   kept[0].Add(l.cfg.Window),
	}, nil
}
