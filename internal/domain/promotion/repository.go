package promotion

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for promotion persistence
type Repository interface {
	// FindByID loads a promotion with its rules, actions and overrides
	FindByID(ctx context.Context, id uuid.UUID) (*Promotion, error)

	// FindActiveByStoreIDs loads all active promotions of the given stores in one round trip,
	// with rules, actions and overrides. Window filtering is left to the resolver.
	FindActiveByStoreIDs(ctx context.Context, storeIDs []uuid.UUID) ([]Promotion, error)

	// Save creates or updates a promotion together with its children
	Save(ctx context.Context, p *Promotion) error
}
