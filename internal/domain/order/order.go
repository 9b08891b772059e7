package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Status represents the status of a marketplace order
type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusCancelled Status = "CANCELLED"
)

// PaymentMethod is how the buyer pays
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "COD"
	PaymentCard           PaymentMethod = "CARD"
	PaymentWallet         PaymentMethod = "WALLET"
)

// IsValid checks if the payment method is supported
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCashOnDelivery, PaymentCard, PaymentWallet:
		return true
	}
	return false
}

// ShippingInfo is the delivery address and requested service
type ShippingInfo struct {
	RecipientName string
	Phone         string
	AddressLine   string
	City          string
	Province      string
	Zone          string
	Method        string
}

// Item is one priced line of an order
type Item struct {
	ID                  uuid.UUID
	OrderID             uuid.UUID
	StoreID             uuid.UUID
	ProductID           uuid.UUID
	Quantity            int
	UnitPrice           decimal.Decimal
	DiscountedUnitPrice decimal.Decimal
	LineTotal           decimal.Decimal
	Tax                 decimal.Decimal
	AppliedPromotionIDs []uuid.UUID
	// GiftPromotionID is set on zero-priced lines added by a free gift action
	GiftPromotionID *uuid.UUID
}

// IsGift reports whether the item was added by a promotion
func (i *Item) IsGift() bool {
	return i.GiftPromotionID != nil
}

// Order is a committed multi-vendor purchase. It is written once, together with
// one vendor transaction per store.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber   string
	BuyerID       uuid.UUID
	Status        Status
	PaymentMethod PaymentMethod
	Shipping      ShippingInfo
	Currency      valueobject.Currency
	Subtotal      decimal.Decimal
	TaxTotal      decimal.Decimal
	ShippingTotal decimal.Decimal
	Total         decimal.Decimal
	Items         []Item
	Transactions  []Transaction
}

// NewOrder creates an empty placed order
func NewOrder(buyerID uuid.UUID, shipping ShippingInfo, payment PaymentMethod, currency valueobject.Currency) (*Order, error) {
	if !payment.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Unsupported payment method: %s", payment))
	}
	if strings.TrimSpace(shipping.AddressLine) == "" {
		return nil, shared.NewDomainError("INVALID_SHIPPING", "Shipping address is required")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	root := shared.NewBaseAggregateRoot()
	return &Order{
		BaseAggregateRoot: root,
		OrderNumber:       GenerateOrderNumber(root.ID, root.CreatedAt),
		BuyerID:           buyerID,
		Status:            StatusPlaced,
		PaymentMethod:     payment,
		Shipping:          shipping,
		Currency:          currency,
		Subtotal:          decimal.Zero,
		TaxTotal:          decimal.Zero,
		ShippingTotal:     decimal.Zero,
		Total:             decimal.Zero,
	}, nil
}

// GenerateOrderNumber builds a human readable number such as MKT-20260301-1A2B3C4D
func GenerateOrderNumber(id uuid.UUID, at time.Time) string {
	return fmt.Sprintf("MKT-%s-%s", at.UTC().Format("20060102"), strings.ToUpper(id.String()[:8]))
}

// AddItem appends a priced line
func (o *Order) AddItem(item Item) error {
	if item.ProductID == uuid.Nil || item.StoreID == uuid.Nil {
		return shared.NewDomainError("INVALID_ITEM", "Item needs a product and a store")
	}
	if item.Quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.OrderID = o.ID
	o.Items = append(o.Items, item)
	return nil
}

// AddTransaction appends a vendor transaction. A store can only have one.
func (o *Order) AddTransaction(tx Transaction) error {
	for _, existing := range o.Transactions {
		if existing.StoreID == tx.StoreID {
			return shared.NewDomainError("DUPLICATE_TRANSACTION", "Store already has a transaction for this order")
		}
	}
	tx.OrderID = o.ID
	o.Transactions = append(o.Transactions, tx)
	return nil
}

// SetTotals records the order level amounts, rounded, with the total floored at zero
func (o *Order) SetTotals(subtotal, tax, shipping decimal.Decimal) {
	o.Subtotal = valueobject.RoundMoney(subtotal)
	o.TaxTotal = valueobject.RoundMoney(tax)
	o.ShippingTotal = valueobject.RoundMoney(shipping)
	o.Total = valueobject.RoundMoney(valueobject.NonNegative(subtotal.Add(tax).Add(shipping)))
}
