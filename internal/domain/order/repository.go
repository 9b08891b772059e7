package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/promotion"
	"github.com/marketplace/backend/internal/domain/shared"
)

// CommitFunc builds the order inside the commit transaction. The ledger it receives
// writes through the same transaction.
type CommitFunc func(ctx context.Context, ledger promotion.UsageLedger) (*Order, error)

// Repository defines the interface for order persistence
type Repository interface {
	// FindByID loads an order with its items and transactions
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByBuyer lists a buyer's orders, newest first, with the total count
	FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) ([]Order, int64, error)

	// Commit runs build and persists the order it returns in a single database
	// transaction. Any error rolls back usage increments and rows alike.
	Commit(ctx context.Context, build CommitFunc) (*Order, error)
}
