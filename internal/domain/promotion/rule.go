package promotion

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleType is the condition a rule checks
type RuleType string

const (
	RuleMinOrderValue   RuleType = "min_order_value"
	RuleSpecificProduct RuleType = "specific_product"
	RuleCustomerGroup   RuleType = "customer_group"
	RuleFirstTimeOrder  RuleType = "first_time_order"
	RuleMinQuantity     RuleType = "min_quantity"
)

// Operator compares the context value with the rule value
type Operator string

const (
	OpEq  Operator = "eq"
	OpGt  Operator = "gt"
	OpLt  Operator = "lt"
	OpGte Operator = "gte"
	OpLte Operator = "lte"
	OpIn  Operator = "in"
)

// Rule is one eligibility condition. All rules of a promotion must pass.
// Value holds a decimal, an id, a boolean or, for OpIn, a comma separated list.
type Rule struct {
	Type     RuleType
	Operator Operator
	Value    string
}

// RuleContext carries the facts rules are evaluated against
type RuleContext struct {
	// StoreSubtotal is the store group's subtotal before any discount
	StoreSubtotal decimal.Decimal
	ProductID     uuid.UUID
	Quantity      int
	CustomerGroup string
	FirstOrder    bool
}

// Evaluate reports whether the rule holds. Unknown types, unknown operators and
// unparsable values fail the rule.
func (r Rule) Evaluate(ctx RuleContext) bool {
	switch r.Type {
	case RuleMinOrderValue:
		return compareDecimal(ctx.StoreSubtotal, r.Operator, r.Value)
	case RuleMinQuantity:
		return compareDecimal(decimal.NewFromInt(int64(ctx.Quantity)), r.Operator, r.Value)
	case RuleSpecificProduct:
		return matchString(ctx.ProductID.String(), r.Operator, r.Value, false)
	case RuleCustomerGroup:
		if ctx.CustomerGroup == "" {
			return false
		}
		return matchString(ctx.CustomerGroup, r.Operator, r.Value, true)
	case RuleFirstTimeOrder:
		want, err := strconv.ParseBool(strings.TrimSpace(r.Value))
		if err != nil || r.Operator != OpEq {
			return false
		}
		return ctx.FirstOrder == want
	default:
		return false
	}
}

// EvaluateAll reports whether every rule holds. An empty set holds.
func EvaluateAll(rules []Rule, ctx RuleContext) bool {
	for _, r := range rules {
		if !r.Evaluate(ctx) {
			return false
		}
	}
	return true
}

func compareDecimal(actual decimal.Decimal, op Operator, raw string) bool {
	if op == OpIn {
		for _, part := range splitList(raw) {
			v, err := decimal.NewFromString(part)
			if err == nil && actual.Equal(v) {
				return true
			}
		}
		return false
	}
	want, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	switch op {
	case OpEq:
		return actual.Equal(want)
	case OpGt:
		return actual.GreaterThan(want)
	case OpLt:
		return actual.LessThan(want)
	case OpGte:
		return actual.GreaterThanOrEqual(want)
	case OpLte:
		return actual.LessThanOrEqual(want)
	default:
		return false
	}
}

func matchString(actual string, op Operator, raw string, foldCase bool) bool {
	eq := func(a, b string) bool {
		if foldCase {
			return strings.EqualFold(a, b)
		}
		return a == b
	}
	switch op {
	case OpEq:
		return eq(actual, strings.TrimSpace(raw))
	case OpIn:
		for _, part := range splitList(raw) {
			if eq(actual, part) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
