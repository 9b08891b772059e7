package tax

import (
	"sort"

	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Query describes one post-discount line to tax
type Query struct {
	Category      string
	Province      string
	ProductExempt bool
	BuyerExempt   bool
	// Amount is the line total after discounts
	Amount decimal.Decimal
}

// Resolver computes line tax from the platform rule set
type Resolver struct {
	enabled bool
	rules   []Rule
}

// NewResolver creates a resolver over a rule snapshot. When enabled is false every line is untaxed.
func NewResolver(enabled bool, rules []Rule) *Resolver {
	return &Resolver{enabled: enabled, rules: rules}
}

// Rate returns the percentage that applies to the query, and whether any rule matched.
//
// Exemptions on the product or buyer short-circuit to zero. Among matching rules the
// highest priority tier decides: an exempt rule in that tier zero-rates the line,
// otherwise the most specific rule of the tier wins, ties going to the lower id.
func (r *Resolver) Rate(q Query) (decimal.Decimal, bool) {
	if !r.enabled || q.ProductExempt || q.BuyerExempt {
		return decimal.Zero, false
	}

	matched := make([]*Rule, 0, len(r.rules))
	for i := range r.rules {
		if r.rules[i].Matches(q.Category, q.Province) {
			matched = append(matched, &r.rules[i])
		}
	}
	if len(matched) == 0 {
		return decimal.Zero, false
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.specificity() != b.specificity() {
			return a.specificity() > b.specificity()
		}
		return a.ID.String() < b.ID.String()
	})

	top := matched[0].Priority
	for _, rule := range matched {
		if rule.Priority != top {
			break
		}
		if rule.Exempt {
			return decimal.Zero, true
		}
	}
	return matched[0].Rate, true
}

// Tax returns the rounded tax for the query
func (r *Resolver) Tax(q Query) decimal.Decimal {
	rate, _ := r.Rate(q)
	if rate.IsZero() {
		return decimal.Zero
	}
	return valueobject.RoundMoney(valueobject.Percent(q.Amount, rate))
}
