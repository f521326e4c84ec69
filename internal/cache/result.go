package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pinguard/pinguard/internal/apperror"
	"github.com/pinguard/pinguard/internal/metrics"
)

// ResultCache memoizes computed values per namespace.
//
// Values are stored JSON-encoded and decoded per caller, so callers never
// share mutable state with the cache. Backend failures fall through to the
// compute function.
type ResultCache struct {
	backend Backend
	enabled bool
	logger  *slog.Logger
	metrics metrics.Recorder
	group   singleflight.Group

	mu        sync.Mutex
	suspended map[string]bool
}

// New creates an enabled ResultCache over backend.
func New(backend Backend, logger *slog.Logger, recorder metrics.Recorder) *ResultCache {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ResultCache{
		backend:   backend,
		enabled:   backend != nil,
		logger:    logger.With("component", "result_cache"),
		metrics:   recorder,
		suspended: make(map[string]bool),
	}
}

// NewDisabled returns a cache that always calls through.
func NewDisabled() *ResultCache {
	return &ResultCache{logger: slog.Default(), metrics: metrics.NewNoop(), suspended: map[string]bool{}}
}

// Enabled reports whether lookups can hit.
func (c *ResultCache) Enabled() bool {
	return c != nil && c.enabled
}

// Invalidate drops every entry in namespace. If the backend cannot be reached
// the namespace is bypassed until a later invalidation succeeds, so a failed
// invalidation never leaves stale entries readable.
func (c *ResultCache) Invalidate(ctx context.Context, namespace string) error {
	if !c.Enabled() {
		return nil
	}

	if err := c.backend.Invalidate(ctx, namespace); err != nil {
		c.setSuspended(namespace, true)
		c.metrics.IncCacheError(namespace)
		return err
	}

	c.setSuspended(namespace, false)
	c.metrics.IncCacheInvalidation(namespace)
	return nil
}

func (c *ResultCache) setSuspended(namespace string, v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v {
		c.suspended[namespace] = true
		return
	}
	delete(c.suspended, namespace)
}

// usable reports whether namespace may be served from the backend, retrying a
// pending invalidation first.
func (c *ResultCache) usable(ctx context.Context, namespace string) bool {
	c.mu.Lock()
	pending := c.suspended[namespace]
	c.mu.Unlock()

	if !pending {
		return true
	}
	if err := c.Invalidate(ctx, namespace); err != nil {
		c.logger.Warn("cache namespace still bypassed", "namespace", namespace, "error", err)
		return false
	}
	return true
}

type flightResult struct {
	value any
	raw   []byte
}

// Cached returns the value stored for (namespace, Key(args...)) or computes,
// stores and returns it. A non-positive ttl or a disabled cache calls compute
// directly. Errors from compute are returned and never cached.
func Cached[T any](
	ctx context.Context,
	c *ResultCache,
	namespace string,
	ttl time.Duration,
	compute func(context.Context) (T, error),
	args ...any,
) (T, error) {
	var zero T
	if compute == nil {
		return zero, apperror.Internal("cache: compute function is required", nil)
	}
	if !c.Enabled() || ttl <= 0 {
		return compute(ctx)
	}

	key, err := Key(args...)
	if err != nil {
		c.logger.Warn("cache key encoding failed", "namespace", namespace, "error", err)
		c.metrics.IncCacheError(namespace)
		return compute(ctx)
	}

	if !c.usable(ctx, namespace) {
		return compute(ctx)
	}

	gen, err := c.backend.Generation(ctx, namespace)
	if err != nil {
		c.logger.Warn("cache generation lookup failed", "namespace", namespace, "error", err)
		c.metrics.IncCacheError(namespace)
		return compute(ctx)
	}

	raw, ok, err := c.backend.Get(ctx, namespace, gen, key)
	switch {
	case err != nil:
		c.logger.Warn("cache get failed", "namespace", namespace, "error", err)
		c.metrics.IncCacheError(namespace)
	case ok:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			c.metrics.IncCacheHit(namespace)
			return v, nil
		}
		c.logger.Warn("cache entry undecodable, recomputing", "namespace", namespace)
		c.metrics.IncCacheError(namespace)
	}
	c.metrics.IncCacheMiss(namespace)

	flightKey := namespace + ":" + strconv.FormatUint(gen, 10) + ":" + key
	res, err, _ := c.group.Do(flightKey, func() (any, error) {
		v, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(v)
		if err != nil {
			c.logger.Warn("cache value encoding failed", "namespace", namespace, "error", err)
			return flightResult{value: v}, nil
		}
		if err := c.backend.Set(ctx, namespace, gen, key, data, ttl); err != nil {
			c.logger.Warn("cache set failed", "namespace", namespace, "error", err)
			c.metrics.IncCacheError(namespace)
		}
		return flightResult{value: v, raw: data}, nil
	})
	if err != nil {
		return zero, err
	}

	fr := res.(flightResult)
	if fr.raw == nil {
		return fr.value.(T), nil
	}
	var v T
	if err := json.Unmarshal(fr.raw, &v); err != nil {
		return zero, apperror.Internal("cache: decode computed value", err)
	}
	return v, nil
}
