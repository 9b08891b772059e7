// Package cache keeps checkout idempotency keys in Redis or process memory.
package cache

import (
	"context"
	"fmt"

	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore opens the key store named by cfg.Backend. An unreachable
// Redis is fatal unless cfg.AllowFallback is set; the memory store then only
// catches retries that land on the same instance.
func NewIdempotencyStore(ctx context.Context, cfg config.IdempotencyConfig, redisCfg config.RedisConfig, log *zap.Logger) (shared.IdempotencyStore, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch cfg.Backend {
	case "", "memory":
		log.Info("idempotency keys kept in memory")
		return NewInMemoryIdempotencyStore(), nil
	case "redis":
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", cfg.Backend)
	}

	store, err := NewRedisIdempotencyStore(ctx, redisCfg)
	if err == nil {
		log.Info("idempotency keys kept in redis", zap.String("addr", redisAddr(redisCfg)))
		return store, nil
	}
	if !cfg.AllowFallback {
		return nil, err
	}
	log.Warn("redis unreachable, idempotency keys kept in memory; a retry routed to another instance can place a second order",
		zap.String("addr", redisAddr(redisCfg)),
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}

func redisAddr(cfg config.RedisConfig) string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}
