package promotion

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActionType is what a promotion does once it applies
type ActionType string

const (
	ActionPercentageDiscount ActionType = "percentage_discount"
	ActionFixedAmount        ActionType = "fixed_amount"
	ActionFreeShipping       ActionType = "free_shipping"
	ActionFreeGift           ActionType = "free_gift"
)

// ActionTarget is what an action's value is applied to
type ActionTarget string

const (
	TargetOrderTotal   ActionTarget = "order_total"
	TargetShipping     ActionTarget = "shipping"
	TargetLineItem     ActionTarget = "line_item"
	TargetCheapestItem ActionTarget = "cheapest_item"
)

// Action is one effect of a promotion
type Action struct {
	Type          ActionType
	Target        ActionTarget
	Value         decimal.Decimal
	GiftProductID *uuid.UUID
	GiftQuantity  int
}

// affectsLines reports whether the action changes line prices
func (a Action) affectsLines() bool {
	if a.Type != ActionPercentageDiscount && a.Type != ActionFixedAmount {
		return false
	}
	return a.Target != TargetShipping
}

// affectsShipping reports whether the action changes the group's shipping
func (a Action) affectsShipping() bool {
	return a.Type == ActionFreeShipping || (a.Target == TargetShipping && a.Type != ActionFreeGift)
}
