package tax

import (
	"context"
	"strings"

	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Rule is a platform tax rule. Empty Category or Province is a wildcard.
type Rule struct {
	shared.BaseEntity
	Name     string
	Enabled  bool
	Category string
	Province string
	// Rate is a percentage, 5 means 5%
	Rate     decimal.Decimal
	Exempt   bool
	Priority int
}

// NewRule creates an enabled tax rule
func NewRule(name, category, province string, rate decimal.Decimal, priority int) (*Rule, error) {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_RATE", "Tax rate must be between 0 and 100")
	}
	return &Rule{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Enabled:    true,
		Category:   normalize(category),
		Province:   normalize(province),
		Rate:       rate,
		Priority:   priority,
	}, nil
}

// NewExemptRule creates an enabled rule that zero-rates what it matches
func NewExemptRule(name, category, province string, priority int) *Rule {
	return &Rule{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Enabled:    true,
		Category:   normalize(category),
		Province:   normalize(province),
		Rate:       decimal.Zero,
		Exempt:     true,
		Priority:   priority,
	}
}

// Matches reports whether the rule covers the category and province
func (r *Rule) Matches(category, province string) bool {
	if !r.Enabled {
		return false
	}
	if r.Category != "" && r.Category != normalize(category) {
		return false
	}
	if r.Province != "" && r.Province != normalize(province) {
		return false
	}
	return true
}

// specificity counts the non-wildcard dimensions
func (r *Rule) specificity() int {
	n := 0
	if r.Category != "" {
		n++
	}
	if r.Province != "" {
		n++
	}
	return n
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// RuleRepository provides the platform tax rules
type RuleRepository interface {
	FindEnabled(ctx context.Context) ([]Rule, error)
	Save(ctx context.Context, rule *Rule) error
}
