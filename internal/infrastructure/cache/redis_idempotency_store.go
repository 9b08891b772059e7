package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "checkout:idempotency:"
	pendingValue     = "pending"
	completedPrefix  = "completed:"
)

// releaseScript deletes the key only while it is still pending, so a late
// release never drops a completed record.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

const connectTimeout = 5 * time.Second

// RedisIdempotencyStore shares idempotency keys between API instances
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIdempotencyStore connects and pings the server before returning
func NewRedisIdempotencyStore(ctx context.Context, cfg config.RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr(cfg),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", redisAddr(cfg), err)
	}

	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: defaultKeyPrefix,
	}, nil
}

// NewRedisIdempotencyStoreWithClient wraps a client the caller owns
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Reserve sets the key to pending with SETNX. When the key exists the stored
// record is returned instead.
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, *shared.IdempotencyRecord, error) {
	fullKey := s.keyPrefix + key

	ok, err := s.client.SetNX(ctx, fullKey, pendingValue, ttl).Result()
	if err != nil {
		return false, nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if ok {
		return true, nil, nil
	}

	value, err := s.client.Get(ctx, fullKey).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; the caller may retry.
		return false, &shared.IdempotencyRecord{State: shared.IdempotencyPending}, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	return false, decodeRecord(value), nil
}

// Complete overwrites the key with the created resource id
func (s *RedisIdempotencyStore) Complete(ctx context.Context, key, resourceID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, completedPrefix+resourceID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to complete idempotency key: %w", err)
	}
	return nil
}

// Release deletes a pending key
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, s.client, []string{s.keyPrefix + key}, pendingValue).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

// Ping backs the redis health check
func (s *RedisIdempotencyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func decodeRecord(value string) *shared.IdempotencyRecord {
	if id, ok := strings.CutPrefix(value, completedPrefix); ok {
		return &shared.IdempotencyRecord{State: shared.IdempotencyCompleted, ResourceID: id}
	}
	return &shared.IdempotencyRecord{State: shared.IdempotencyPending}
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
