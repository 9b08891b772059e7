package shared

import (
	"context"
	"time"
)

// IdempotencyState is the state of a reserved idempotency key
type IdempotencyState string

const (
	IdempotencyPending   IdempotencyState = "pending"
	IdempotencyCompleted IdempotencyState = "completed"
)

// IdempotencyRecord is what a key store knows about a key
type IdempotencyRecord struct {
	State      IdempotencyState
	ResourceID string
}

// IdempotencyStore guards state-changing requests against duplicate submission.
// A key is reserved before the work starts, completed with the created resource id,
// or released when the work fails so the client can retry.
type IdempotencyStore interface {
	// Reserve marks the key pending. Returns false and the existing record when
	// the key is already known.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, *IdempotencyRecord, error)

	// Complete records the resource created under the key.
	Complete(ctx context.Context, key, resourceID string, ttl time.Duration) error

	// Release forgets a pending key.
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a completed key is remembered
	TTL time.Duration

	// PendingTTL bounds how long a crashed request can hold a key
	PendingTTL time.Duration

	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:        24 * time.Hour,
		PendingTTL: 2 * time.Minute,
		Enabled:    true,
	}
}
