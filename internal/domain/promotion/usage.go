package promotion

import (
	"context"

	"github.com/google/uuid"
)

// UsageSnapshot holds usage counts read once before resolution
type UsageSnapshot struct {
	global   map[uuid.UUID]int64
	perBuyer map[uuid.UUID]int64
}

// NewUsageSnapshot creates an empty snapshot
func NewUsageSnapshot() UsageSnapshot {
	return UsageSnapshot{
		global:   make(map[uuid.UUID]int64),
		perBuyer: make(map[uuid.UUID]int64),
	}
}

// SetGlobal records the total use count of a promotion
func (s UsageSnapshot) SetGlobal(promotionID uuid.UUID, count int64) {
	s.global[promotionID] = count
}

// SetBuyer records the buyer's use count of a promotion
func (s UsageSnapshot) SetBuyer(promotionID uuid.UUID, count int64) {
	s.perBuyer[promotionID] = count
}

// Global returns the total use count
func (s UsageSnapshot) Global(promotionID uuid.UUID) int64 {
	return s.global[promotionID]
}

// Buyer returns the buyer's use count
func (s UsageSnapshot) Buyer(promotionID uuid.UUID) int64 {
	return s.perBuyer[promotionID]
}

// Exhausted reports whether the promotion is out of uses for this buyer.
// Guests (nil buyer) can never use a promotion with a per-buyer limit.
func (s UsageSnapshot) Exhausted(p *Promotion, buyerID uuid.UUID) bool {
	if p.UsageLimit != nil && s.Global(p.ID) >= *p.UsageLimit {
		return true
	}
	if p.UsageLimitPerUser != nil {
		if buyerID == uuid.Nil {
			return true
		}
		if s.Buyer(p.ID) >= *p.UsageLimitPerUser {
			return true
		}
	}
	return false
}

// UsageClaim asks the ledger to count one use of a promotion
type UsageClaim struct {
	PromotionID  uuid.UUID
	BuyerID      uuid.UUID
	Limit        *int64
	PerUserLimit *int64
}

// ClaimFor builds the claim for applying p on behalf of buyerID
func ClaimFor(p *Promotion, buyerID uuid.UUID) UsageClaim {
	return UsageClaim{
		PromotionID:  p.ID,
		BuyerID:      buyerID,
		Limit:        p.UsageLimit,
		PerUserLimit: p.UsageLimitPerUser,
	}
}

// UsageLedger counts promotion applications.
// Increment is an atomic compare-and-increment: it returns false, and changes
// nothing, when either the global or the per-buyer limit is already reached.
type UsageLedger interface {
	Snapshot(ctx context.Context, promotionIDs []uuid.UUID, buyerID uuid.UUID) (UsageSnapshot, error)
	Increment(ctx context.Context, claim UsageClaim) (bool, error)
}
