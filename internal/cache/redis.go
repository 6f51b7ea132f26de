package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"retail-intel/internal/config"
)

// RedisStore is the Redis-backed PersistentStore. All keys it touches are
// namespaced under the configured prefix so DeletePrefix and Clear never
// reach keys owned by other services sharing the instance.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection before
// returning the store.
func NewRedisStore(cfg *config.RedisConfig, prefix string, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("connected to Redis",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		zap.Int("database", cfg.Database))

	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger,
	}, nil
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

// Get retrieves a payload. A missing key returns (nil, nil).
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // miss
		}
		s.logger.Error("failed to get key from redis",
			zap.Error(err),
			zap.String("key", key))
		return nil, fmt.Errorf("failed to get key from redis: %w", err)
	}
	return data, nil
}

// Set stores a payload. A non-positive TTL stores without expiration.
func (s *RedisStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.key(key), payload, ttl).Err(); err != nil {
		s.logger.Error("failed to set key in redis",
			zap.Error(err),
			zap.String("key", key))
		return fmt.Errorf("failed to set key in redis: %w", err)
	}
	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		s.logger.Error("failed to delete key from redis",
			zap.Error(err),
			zap.String("key", key))
		return fmt.Errorf("failed to delete key from redis: %w", err)
	}
	return nil
}

// DeletePrefix removes every key under the given prefix within the
// store's namespace.
func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := s.key(prefix) + "*"

	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		s.logger.Error("failed to list keys for prefix deletion",
			zap.Error(err),
			zap.String("pattern", pattern))
		return fmt.Errorf("failed to list keys for prefix deletion: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.logger.Error("failed to delete keys by prefix",
			zap.Error(err),
			zap.String("pattern", pattern),
			zap.Int("key_count", len(keys)))
		return fmt.Errorf("failed to delete keys by prefix: %w", err)
	}

	s.logger.Debug("prefix deletion completed",
		zap.String("pattern", pattern),
		zap.Int("key_count", len(keys)))

	return nil
}

// Ping tests the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
