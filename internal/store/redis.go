package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/andjpython/Estacionamento-Free/internal/config"
	"github.com/andjpython/Estacionamento-Free/internal/logging"
)

// RedisStore implements Store on a Redis database. Every key is namespaced
// with a prefix so several clients can share one instance.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisStore connects to Redis using the provided configuration.
func NewRedisStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return newRedisStore(ctx, client, cfg.RedisPrefix, logger)
}

func newRedisStore(ctx context.Context, client *redis.Client, prefix string, logger *slog.Logger) (*RedisStore, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", client.Options().Addr, err)
	}
	logger = logging.Component(logger, "store").With("backend", "redis")
	logger.Info("connected to redis", "addr", client.Options().Addr)
	return &RedisStore{client: client, prefix: prefix, logger: logger}, nil
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.logger.Debug("redis", "op", "get", "key", key)

	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key, value string) error {
	s.logger.Debug("redis", "op", "set", "key", key)

	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	s.logger.Debug("redis", "op", "del", "key", key)

	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Migrate verifies connectivity; Redis needs no schema.
func (s *RedisStore) Migrate(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
