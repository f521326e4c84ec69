package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "pinguard:cache:"

var _ Backend = (*RedisBackend)(nil)

// RedisBackend stores entries under generation-scoped keys:
//
//	pinguard:cache:{ns}:gen          current generation (INCR on invalidate)
//	pinguard:cache:{ns}:{gen}:{key}  value with EX ttl
//
// Entries of old generations are unreachable and age out through their TTL.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend creates a backend on an existing client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func genKey(namespace string) string {
	return redisKeyPrefix + namespace + ":gen"
}

func entryKey(namespace string, gen uint64, key string) string {
	return redisKeyPrefix + namespace + ":" + strconv.FormatUint(gen, 10) + ":" + key
}

func (b *RedisBackend) Generation(ctx context.Context, namespace string) (uint64, error) {
	gen, err := b.client.Get(ctx, genKey(namespace)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation: %w", err)
	}
	return gen, nil
}

func (b *RedisBackend) Get(ctx context.Context, namespace string, gen uint64, key string) ([]byte, bool, error) {
	val, err := b.client.Get(ctx, entryKey(namespace, gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Set writes the entry only while gen is still current. The check and the
// write run in one WATCH transaction so a concurrent Invalidate aborts it.
func (b *RedisBackend) Set(ctx context.Context, namespace string, gen uint64, key string, value []byte, ttl time.Duration) error {
	gk := genKey(namespace)

	err := b.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, gk).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, entryKey(namespace, gen, key), value, ttl)
			return nil
		})
		return err
	}, gk)

	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (b *RedisBackend) Invalidate(ctx context.Context, namespace string) error {
	if err := b.client.Incr(ctx, genKey(namespace)).Err(); err != nil {
		return fmt.Errorf("redis incr generation: %w", err)
	}
	return nil
}
