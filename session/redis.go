package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps credential keys in Redis, namespaced by prefix. It lets
// several processes on one host (or a small fleet of kiosks) share a login.
//
//	Performance: Save is one MULTI/EXEC round-trip; Load is two GETs.
type RedisStorage struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStorage creates a backend. ttl <= 0 stores keys without expiry;
// a positive ttl is applied to both keys of every pair write.
func NewRedisStorage(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisStorage) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisStorage) expiry() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	return s.ttl
}

func (s *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.redis.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return v, true, nil
}

func (s *RedisStorage) Set(ctx context.Context, key, value string) error {
	if err := s.redis.Set(ctx, s.key(key), value, s.expiry()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// SetPair writes both keys inside one MULTI/EXEC transaction.
func (s *RedisStorage) SetPair(ctx context.Context, k1, v1, k2, v2 string) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(k1), v1, s.expiry())
		pipe.Set(ctx, s.key(k2), v2, s.expiry())
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.key(k))
	}
	if err := s.redis.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStorage) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return time.Since(start), nil
}
