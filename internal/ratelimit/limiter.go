// Package ratelimit limits request rates per client key.
package ratelimit

import (
	"context"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Result describes the outcome of one rate limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter admits or rejects a request for a key.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// Config sets the request budget per window.
type Config struct {
	Requests int
	Window   time.Duration
}

// DefaultConfig allows 20 requests per minute.
func DefaultConfig() Config {
	return Config{Requests: 20, Window: time.Minute}
}

// HashKey shortens and anonymizes a client identifier such as an IP address.
func HashKey(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
