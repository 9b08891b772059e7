package cache

import (
	"context"
	"sync"
	"time"

	"github.com/marketplace/backend/internal/domain/shared"
)

// sweepInterval spaces out the scans that drop expired keys
const sweepInterval = 5 * time.Minute

type memoryKey struct {
	record    shared.IdempotencyRecord
	expiresAt time.Time
}

// InMemoryIdempotencyStore keeps idempotency keys in process memory. It only
// protects a single instance, which is why production requires Redis.
// Expired keys are swept while reserving, so there is no background goroutine.
type InMemoryIdempotencyStore struct {
	mu        sync.Mutex
	keys      map[string]memoryKey
	now       func() time.Time
	lastSweep time.Time
}

func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return newInMemoryIdempotencyStore(time.Now)
}

func newInMemoryIdempotencyStore(now func() time.Time) *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{
		keys:      make(map[string]memoryKey),
		now:       now,
		lastSweep: now(),
	}
}

func (s *InMemoryIdempotencyStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, *shared.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweep(now)
	}

	if k, ok := s.keys[key]; ok && now.Before(k.expiresAt) {
		record := k.record
		return false, &record, nil
	}
	s.keys[key] = memoryKey{
		record:    shared.IdempotencyRecord{State: shared.IdempotencyPending},
		expiresAt: now.Add(ttl),
	}
	return true, nil, nil
}

func (s *InMemoryIdempotencyStore) Complete(_ context.Context, key, resourceID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[key] = memoryKey{
		record:    shared.IdempotencyRecord{State: shared.IdempotencyCompleted, ResourceID: resourceID},
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Release forgets a pending key. A completed key is kept.
func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k, ok := s.keys[key]; ok && k.record.State == shared.IdempotencyPending {
		delete(s.keys, key)
	}
	return nil
}

func (s *InMemoryIdempotencyStore) Close() error {
	return nil
}

// Len is the number of keys held, expired or not
func (s *InMemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// sweep must be called with mu held
func (s *InMemoryIdempotencyStore) sweep(now time.Time) {
	for key, k := range s.keys {
		if !now.Before(k.expiresAt) {
			delete(s.keys, key)
		}
	}
	s.lastSweep = now
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
