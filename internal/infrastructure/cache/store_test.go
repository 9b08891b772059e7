package cache

import (
	"context"
	"testing"

	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// nothing listens on port 1, so the ping fails fast
var unreachableRedis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

func TestNewIdempotencyStore_Memory(t *testing.T) {
	store, err := NewIdempotencyStore(context.Background(), config.IdempotencyConfig{Backend: "memory"}, unreachableRedis, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}

func TestNewIdempotencyStore_UnknownBackend(t *testing.T) {
	_, err := NewIdempotencyStore(context.Background(), config.IdempotencyConfig{Backend: "memcached"}, unreachableRedis, nil)
	assert.ErrorContains(t, err, `unknown idempotency backend "memcached"`)
}

func TestNewIdempotencyStore_RedisDown(t *testing.T) {
	t.Run("fails without fallback", func(t *testing.T) {
		_, err := NewIdempotencyStore(context.Background(), config.IdempotencyConfig{Backend: "redis"}, unreachableRedis, nil)
		assert.ErrorContains(t, err, "connect to redis at 127.0.0.1:1")
	})

	t.Run("falls back to memory with a warning", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		store, err := NewIdempotencyStore(context.Background(),
			config.IdempotencyConfig{Backend: "redis", AllowFallback: true}, unreachableRedis, zap.New(core))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })

		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "127.0.0.1:1", logs.All()[0].ContextMap()["addr"])
	})
}
