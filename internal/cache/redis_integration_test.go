//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pinguard/pinguard/internal/testutil"
)

func newRedisBackend(t *testing.T) *RedisBackend {
	t.Helper()
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	r, err := Connect(context.Background(), redisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, testutil.FlushRedis(context.Background(), r.Client()))

	return NewRedisBackend(r.Client())
}

func TestIntegrationRedisBackend_GenerationScoping(t *testing.T) {
	ctx := context.Background()
	b := newRedisBackend(t)

	gen, err := b.Generation(ctx, "registrations")
	require.NoError(t, err)
	require.Equal(t, uint64(0), gen)

	require.NoError(t, b.Set(ctx, "registrations", gen, "k", []byte(`"v"`), time.Minute))
	v, ok, err := b.Get(ctx, "registrations", gen, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `"v"`, string(v))

	require.NoError(t, b.Invalidate(ctx, "registrations"))
	next, err := b.Generation(ctx, "registrations")
	require.NoError(t, err)
	require.Equal(t, gen+1, next)

	_, ok, err = b.Get(ctx, "registrations", next, "k")
	require.NoError(t, err)
	require.False(t, ok)

	// A late write for the old generation is discarded.
	require.NoError(t, b.Set(ctx, "registrations", gen, "late", []byte(`"x"`), time.Minute))
	_, ok, err = b.Get(ctx, "registrations", gen, "late")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIntegrationResultCache_RedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(newRedisBackend(t), nil, nil)

	calls := 0
	compute := func(context.Context) ([]string, error) {
		calls++
		return []string{"main", "gym"}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := Cached(ctx, c, "registrations", time.Minute, compute, "ListAll")
		require.NoError(t, err)
		require.Equal(t, []string{"main", "gym"}, v)
	}
	require.Equal(t, 1, calls)
}
