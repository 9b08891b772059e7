package shipping

import (
	"sort"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Parcel is one item line of a store group
type Parcel struct {
	WeightKg   decimal.Decimal
	Dimensions valueobject.Dimensions
	Quantity   int
}

// Destination is where and how the group ships
type Destination struct {
	Zone   string
	Method string
}

// Quote is the shipping price of one store group
type Quote struct {
	// RuleID is the matched rule, uuid.Nil when none matched
	RuleID         uuid.UUID
	BillableWeight decimal.Decimal
	Cost           decimal.Decimal
}

// Matched reports whether a rule priced the quote
func (q Quote) Matched() bool {
	return q.RuleID != uuid.Nil
}

// Resolver computes shipping per store group
type Resolver struct {
	enabled bool
	rules   []RateRule
}

// NewResolver creates a resolver over a rule snapshot. When enabled is false shipping is free.
func NewResolver(enabled bool, rules []RateRule) *Resolver {
	return &Resolver{enabled: enabled, rules: rules}
}

// Quote prices the parcels. Rules are tried from the highest priority, lower id first on ties;
// the first one whose band contains the billable weight wins. No match costs zero.
func (r *Resolver) Quote(dest Destination, parcels []Parcel) Quote {
	q := Quote{BillableWeight: decimal.Zero, Cost: decimal.Zero}
	if !r.enabled {
		return q
	}

	weight, volume := Totals(parcels)
	q.BillableWeight = weight

	candidates := make([]*RateRule, 0, len(r.rules))
	for i := range r.rules {
		if r.rules[i].serves(dest.Zone, dest.Method) {
			candidates = append(candidates, &r.rules[i])
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})

	for _, rule := range candidates {
		billable := rule.BillableWeight(weight, volume)
		if !rule.InBand(billable) {
			continue
		}
		q.RuleID = rule.ID
		q.BillableWeight = billable
		q.Cost = valueobject.RoundMoney(valueobject.NonNegative(rule.Cost(billable)))
		return q
	}
	return q
}

// Totals sums weight x quantity and volume x quantity over the parcels
func Totals(parcels []Parcel) (weightKg, volumeCm3 decimal.Decimal) {
	weightKg, volumeCm3 = decimal.Zero, decimal.Zero
	for _, p := range parcels {
		qty := decimal.NewFromInt(int64(p.Quantity))
		weightKg = weightKg.Add(p.WeightKg.Mul(qty))
		volumeCm3 = volumeCm3.Add(p.Dimensions.Volume().Mul(qty))
	}
	return weightKg, volumeCm3
}
