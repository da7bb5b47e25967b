package tabstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hnrobert/vanconnect/internal/logger"
	"github.com/hnrobert/vanconnect/internal/session"
)

const redisKeyPrefix = "vanconnect:tab:"

// RedisBackend keeps each tab's storage in a Redis hash keyed by tab id. The
// hash expires after ttl without writes.
type RedisBackend struct {
	rdb        *redis.Client
	cookieName string
	secure     bool
	ttl        time.Duration
}

func NewRedisBackend(rdb *redis.Client, cookieName string, secure bool, ttl time.Duration) *RedisBackend {
	return &RedisBackend{rdb: rdb, cookieName: cookieName, secure: secure, ttl: ttl}
}

// DialRedis parses url and checks the server answers.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (b *RedisBackend) Open(w http.ResponseWriter, r *http.Request) (session.Store, error) {
	id := tabID(w, r, b.cookieName, b.secure)
	return &redisStore{ctx: r.Context(), b: b, key: redisKeyPrefix + id}, nil
}

func (b *RedisBackend) Close() error { return b.rdb.Close() }

type redisStore struct {
	ctx context.Context
	b   *RedisBackend
	key string
}

func (s *redisStore) Get(key string) (string, bool) {
	v, err := s.b.rdb.HGet(s.ctx, s.key, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Error("tabstore: redis get %s: %v", key, err)
		}
		return "", false
	}
	return v, true
}

func (s *redisStore) Set(key, value string) error {
	pipe := s.b.rdb.TxPipeline()
	pipe.HSet(s.ctx, s.key, key, value)
	if s.b.ttl > 0 {
		pipe.Expire(s.ctx, s.key, s.b.ttl)
	}
	if _, err := pipe.Exec(s.ctx); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Remove(key string) error {
	if err := s.b.rdb.HDel(s.ctx, s.key, key).Err(); err != nil {
		return fmt.Errorf("redis remove %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Clear() error {
	if err := s.b.rdb.Del(s.ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}
