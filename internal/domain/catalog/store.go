package catalog

import (
	"strings"

	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SubscriptionTier is the vendor's plan, which decides its platform commission
type SubscriptionTier string

const (
	TierBasic    SubscriptionTier = "basic"
	TierStandard SubscriptionTier = "standard"
	TierPremium  SubscriptionTier = "premium"
)

// StoreStatus represents the status of a vendor store
type StoreStatus string

const (
	StoreStatusActive    StoreStatus = "active"
	StoreStatusSuspended StoreStatus = "suspended"
)

// Store is a vendor's shop on the marketplace
type Store struct {
	shared.BaseAggregateRoot
	Name             string
	District         string
	SubscriptionTier SubscriptionTier
	// CommissionRate is a percentage of the store's order amount kept by the platform
	CommissionRate decimal.Decimal
	Status         StoreStatus
}

// NewStore creates a new active store
func NewStore(name, district string, tier SubscriptionTier, commissionRate decimal.Decimal) (*Store, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Store name cannot be empty")
	}
	if commissionRate.IsNegative() || commissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_COMMISSION", "Commission rate must be between 0 and 100")
	}
	if tier == "" {
		tier = TierBasic
	}
	return &Store{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		District:          district,
		SubscriptionTier:  tier,
		CommissionRate:    commissionRate,
		Status:            StoreStatusActive,
	}, nil
}

// IsActive returns true if the store is trading
func (s *Store) IsActive() bool {
	return s.Status == StoreStatusActive
}

// Suspend stops the store from trading
func (s *Store) Suspend() {
	s.Status = StoreStatusSuspended
	s.Changed()
}
