package shipping

import (
	"context"
	"strings"

	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RateRule prices a parcel for one carrier, method and zone inside a weight band
type RateRule struct {
	shared.BaseEntity
	Enabled     bool
	Carrier     string
	Method      string
	Zone        string
	MinWeightKg decimal.Decimal
	MaxWeightKg decimal.Decimal
	BaseRate    decimal.Decimal
	PerKgRate   decimal.Decimal
	// DimensionalFactor converts cubic centimetres to kilograms, nil disables volumetric weight
	DimensionalFactor *decimal.Decimal
	Surcharge         decimal.Decimal
	Priority          int
}

// NewRateRule creates an enabled rate rule
func NewRateRule(carrier, method, zone string, minKg, maxKg, base, perKg decimal.Decimal) (*RateRule, error) {
	if strings.TrimSpace(zone) == "" || strings.TrimSpace(method) == "" {
		return nil, shared.NewDomainError("INVALID_RULE", "Zone and method are required")
	}
	if minKg.IsNegative() || maxKg.LessThan(minKg) {
		return nil, shared.NewDomainError("INVALID_BAND", "Weight band must satisfy 0 <= min <= max")
	}
	if base.IsNegative() || perKg.IsNegative() {
		return nil, shared.NewDomainError("INVALID_RATE", "Rates cannot be negative")
	}
	return &RateRule{
		BaseEntity:  shared.NewBaseEntity(),
		Enabled:     true,
		Carrier:     carrier,
		Method:      method,
		Zone:        zone,
		MinWeightKg: minKg,
		MaxWeightKg: maxKg,
		BaseRate:    base,
		PerKgRate:   perKg,
		Surcharge:   decimal.Zero,
	}, nil
}

// serves reports whether the rule is for this zone and method
func (r *RateRule) serves(zone, method string) bool {
	return r.Enabled && strings.EqualFold(r.Zone, strings.TrimSpace(zone)) && strings.EqualFold(r.Method, strings.TrimSpace(method))
}

// BillableWeight is the larger of actual and volumetric weight
func (r *RateRule) BillableWeight(actualKg, volumeCm3 decimal.Decimal) decimal.Decimal {
	if r.DimensionalFactor == nil || !r.DimensionalFactor.IsPositive() {
		return actualKg
	}
	volumetric := volumeCm3.Div(*r.DimensionalFactor)
	if volumetric.GreaterThan(actualKg) {
		return volumetric
	}
	return actualKg
}

// InBand reports whether min <= weight <= max
func (r *RateRule) InBand(weightKg decimal.Decimal) bool {
	return weightKg.GreaterThanOrEqual(r.MinWeightKg) && weightKg.LessThanOrEqual(r.MaxWeightKg)
}

// Cost is base + perKg x weight + surcharge, unrounded
func (r *RateRule) Cost(weightKg decimal.Decimal) decimal.Decimal {
	return r.BaseRate.Add(r.PerKgRate.Mul(weightKg)).Add(r.Surcharge)
}

// RuleRepository provides the platform shipping rate rules
type RuleRepository interface {
	// FindEnabledForZone returns enabled rules of a zone, case-insensitively
	FindEnabledForZone(ctx context.Context, zone string) ([]RateRule, error)
	Save(ctx context.Context, rule *RateRule) error
}
