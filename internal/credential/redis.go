package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions configures a RedisStore
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to Key, allowing several users per server
	Prefix string
}

// RedisStore keeps the credential in Redis
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisStore creates a store. The connection is established lazily.
func NewRedisStore(opts RedisOptions, logger *zap.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisStoreWithClient(client, opts.Prefix, logger)
}

// NewRedisStoreWithClient creates a store on an existing client
func NewRedisStoreWithClient(client *redis.Client, prefix string, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		key:    prefix + Key,
		logger: logger.With(zap.String("component", "credential"), zap.String("store", "redis")),
	}
}

func (r *RedisStore) Get(ctx context.Context) (string, error) {
	val, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		r.logger.Error("credential get failed", zap.Error(err))
		return "", fmt.Errorf("credential get failed: %w", err)
	}
	return val, nil
}

func (r *RedisStore) Set(ctx context.Context, value string) error {
	if err := r.client.Set(ctx, r.key, strings.TrimSpace(value), 0).Err(); err != nil {
		r.logger.Error("credential set failed", zap.Error(err))
		return fmt.Errorf("credential set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("credential clear failed: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (r *RedisStore) Close() error {
	return r.client.Close()
}
