package checkout

import (
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// CartItem is one line the buyer wants to price. StoreID is optional; when given it
// must match the product's store.
type CartItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	StoreID   uuid.UUID `json:"store_id"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=10000"`
}

// ShippingContext selects the shipping zone, method and tax province
type ShippingContext struct {
	Zone     string `json:"zone"`
	Method   string `json:"method"`
	Province string `json:"province"`
}

// BuyerContext is who is buying. A nil BuyerID is a guest.
type BuyerContext struct {
	BuyerID       uuid.UUID
	CustomerGroup string
	FirstOrder    bool
	TaxExempt     bool
}

// IsGuest reports whether the buyer has no account
func (b BuyerContext) IsGuest() bool {
	return b.BuyerID == uuid.Nil
}

// PricedLine is a cart line after promotions and tax
type PricedLine struct {
	ProductID           uuid.UUID
	StoreID             uuid.UUID
	Quantity            int
	UnitPrice           decimal.Decimal
	DiscountedUnitPrice decimal.Decimal
	LineTotal           decimal.Decimal
	Tax                 decimal.Decimal
	AppliedPromotionIDs []uuid.UUID
}

// GiftLine is a zero-priced item granted by a promotion
type GiftLine struct {
	StoreID     uuid.UUID
	ProductID   uuid.UUID
	PromotionID uuid.UUID
	Quantity    int
}

// StoreSummary is the per-vendor slice of the breakdown
type StoreSummary struct {
	StoreID                uuid.UUID
	Subtotal               decimal.Decimal
	Tax                    decimal.Decimal
	ShippingBeforeDiscount decimal.Decimal
	Shipping               decimal.Decimal
	FreeShipping           bool
	AppliedPromotionIDs    []uuid.UUID
	CommissionRate         decimal.Decimal
}

// Amount is what the store's transaction is raised for
func (s StoreSummary) Amount() decimal.Decimal {
	return s.Subtotal.Add(s.Tax).Add(s.Shipping)
}

// PriceBreakdown is the authoritative price of a cart
type PriceBreakdown struct {
	Subtotal decimal.Decimal
	Taxes    decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
	Currency valueobject.Currency
	Lines    []PricedLine
	Stores   []StoreSummary
	Gifts    []GiftLine
	Warnings []string
}

// AppliedPromotionIDs returns every promotion applied anywhere in the cart, without duplicates
func (b *PriceBreakdown) AppliedPromotionIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, s := range b.Stores {
		for _, id := range s.AppliedPromotionIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// IsEmpty reports whether no line survived validation
func (b *PriceBreakdown) IsEmpty() bool {
	return len(b.Lines) == 0
}
