package mirror

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds configuration for the Redis mirror.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore keeps every table payload in a single Redis hash.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "winshirt:mirror"
	}

	logger.Info().Int("db", cfg.DB).Str("prefix", keyPrefix).Msg("redis mirror initialized")
	return &RedisStore{client: client, keyPrefix: keyPrefix}, nil
}

func (s *RedisStore) tablesKey() string {
	return s.keyPrefix + ":tables"
}

// Get returns the payload of a table.
func (s *RedisStore) Get(ctx context.Context, table string) ([]byte, error) {
	data, err := s.client.HGet(ctx, s.tablesKey(), table).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mirror entry %s: %w", table, err)
	}
	return data, nil
}

// Set overwrites the payload of a table.
func (s *RedisStore) Set(ctx context.Context, table string, payload []byte) error {
	if err := s.client.HSet(ctx, s.tablesKey(), table, payload).Err(); err != nil {
		return fmt.Errorf("failed to set mirror entry %s: %w", table, err)
	}
	return nil
}

// Delete removes a table entry.
func (s *RedisStore) Delete(ctx context.Context, table string) error {
	if err := s.client.HDel(ctx, s.tablesKey(), table).Err(); err != nil {
		return fmt.Errorf("failed to delete mirror entry %s: %w", table, err)
	}
	return nil
}

// Keys lists the stored table keys.
func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.client.HKeys(ctx, s.tablesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list mirror entries: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Stats returns the hash length.
func (s *RedisStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	n, err := s.client.HLen(ctx, s.tablesKey()).Result()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"backend":       "redis",
		"total_entries": n,
		"key":           s.tablesKey(),
	}, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
