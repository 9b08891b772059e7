package promotion

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a promotion
type Status string

const (
	StatusDraft   Status = "draft"
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusExpired Status = "expired"
)

// DiscountType is the kind of the legacy single-discount descriptor
type DiscountType string

const (
	DiscountPercentage   DiscountType = "percentage"
	DiscountFixed        DiscountType = "fixed"
	DiscountFreeShipping DiscountType = "free_shipping"
)

// Discount is the legacy single-discount descriptor stored on every promotion.
// Promotions without explicit actions are priced from it.
type Discount struct {
	Type  DiscountType
	Value decimal.Decimal
	// MinQuantity gates a line: the line quantity must be at least this much. Zero disables the gate.
	MinQuantity int
}

// Promotion is a vendor-defined discount scoped to one store
type Promotion struct {
	shared.BaseAggregateRoot
	StoreID  uuid.UUID
	Name     string
	Discount Discount
	Scope    Scope
	StartAt  time.Time
	// EndAt nil means the promotion never ends
	EndAt    *time.Time
	Status   Status
	Priority int
	// UsageLimit caps applications across all buyers, nil for unlimited
	UsageLimit *int64
	// UsageLimitPerUser caps applications per buyer, nil for unlimited
	UsageLimitPerUser *int64
	Stackable         bool
	Rules             []Rule
	Actions           []Action
	Overrides         []ProductOverride
}

// NewPromotion creates a draft promotion
func NewPromotion(storeID uuid.UUID, name string, discount Discount, scope Scope, startAt time.Time) (*Promotion, error) {
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Promotion must belong to a store")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Promotion name cannot be empty")
	}
	if err := discount.validate(); err != nil {
		return nil, err
	}
	return &Promotion{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		StoreID:           storeID,
		Name:              name,
		Discount:          discount,
		Scope:             scope,
		StartAt:           startAt,
		Status:            StatusDraft,
	}, nil
}

func (d Discount) validate() error {
	switch d.Type {
	case DiscountPercentage:
		if d.Value.IsNegative() || d.Value.GreaterThan(decimal.NewFromInt(100)) {
			return shared.NewDomainError("INVALID_DISCOUNT", "Percentage discount must be between 0 and 100")
		}
	case DiscountFixed:
		if d.Value.IsNegative() {
			return shared.NewDomainError("INVALID_DISCOUNT", "Fixed discount cannot be negative")
		}
	case DiscountFreeShipping:
	default:
		return shared.NewDomainError("INVALID_DISCOUNT", "Unknown discount type: "+string(d.Type))
	}
	if d.MinQuantity < 0 {
		return shared.NewDomainError("INVALID_DISCOUNT", "Minimum quantity cannot be negative")
	}
	return nil
}

// SetWindow sets the validity window. A nil end leaves the promotion open ended.
func (p *Promotion) SetWindow(startAt time.Time, endAt *time.Time) error {
	if endAt != nil && endAt.Before(startAt) {
		return shared.NewDomainError("INVALID_WINDOW", "Promotion cannot end before it starts")
	}
	p.StartAt = startAt
	p.EndAt = endAt
	p.Changed()
	return nil
}

// SetLimits sets the global and per-buyer usage limits
func (p *Promotion) SetLimits(total, perUser *int64) error {
	if (total != nil && *total < 0) || (perUser != nil && *perUser < 0) {
		return shared.NewDomainError("INVALID_LIMIT", "Usage limits cannot be negative")
	}
	p.UsageLimit = total
	p.UsageLimitPerUser = perUser
	p.Changed()
	return nil
}

// Activate makes the promotion eligible for pricing
func (p *Promotion) Activate() error {
	if p.Status == StatusExpired {
		return shared.NewDomainError("INVALID_STATE", "Expired promotion cannot be activated")
	}
	p.Status = StatusActive
	p.Changed()
	return nil
}

// Pause suspends an active promotion
func (p *Promotion) Pause() error {
	if p.Status != StatusActive {
		return shared.NewDomainError("INVALID_STATE", "Only active promotions can be paused")
	}
	p.Status = StatusPaused
	p.Changed()
	return nil
}

// Expire ends the promotion permanently
func (p *Promotion) Expire() {
	p.Status = StatusExpired
	p.Changed()
}

// IsActiveAt reports whether the promotion is active and now lies inside its window, bounds inclusive.
func (p *Promotion) IsActiveAt(now time.Time) bool {
	if p.Status != StatusActive {
		return false
	}
	if now.Before(p.StartAt) {
		return false
	}
	if p.EndAt != nil && now.After(*p.EndAt) {
		return false
	}
	return true
}

// EffectiveActions returns the promotion's actions, synthesising one from the
// legacy discount descriptor when none are configured.
func (p *Promotion) EffectiveActions() []Action {
	if len(p.Actions) > 0 {
		return p.Actions
	}
	switch p.Discount.Type {
	case DiscountPercentage:
		return []Action{{Type: ActionPercentageDiscount, Target: TargetLineItem, Value: p.Discount.Value}}
	case DiscountFixed:
		return []Action{{Type: ActionFixedAmount, Target: TargetLineItem, Value: p.Discount.Value}}
	case DiscountFreeShipping:
		return []Action{{Type: ActionFreeShipping, Target: TargetShipping}}
	}
	return nil
}

// OverrideFor returns the product-specific override, or nil
func (p *Promotion) OverrideFor(productID uuid.UUID) *ProductOverride {
	for i := range p.Overrides {
		if p.Overrides[i].ProductID == productID {
			return &p.Overrides[i]
		}
	}
	return nil
}

// HasUsageLimits reports whether applying the promotion must touch the usage ledger
func (p *Promotion) HasUsageLimits() bool {
	return p.UsageLimit != nil || p.UsageLimitPerUser != nil
}

// ProductOverride adjusts how a promotion treats one product
type ProductOverride struct {
	ProductID uuid.UUID
	// OverridePrice is a promotional unit price; the lower of it and the action price wins
	OverridePrice *decimal.Decimal
	// MaxQuantity limits the discount to this many units of the line
	MaxQuantity *int
	// Rules are extra conditions for this product, AND-ed with the promotion rules
	Rules []Rule
}
