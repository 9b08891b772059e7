package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/application/checkout"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
)

// CartItemRequest is one cart line in a checkout request. Lines are not validated
// here: the calculator drops a bad line with a warning and prices the rest.
type CartItemRequest struct {
	ProductID string `json:"product_id"`
	StoreID   string `json:"store_id"`
	Quantity  int    `json:"quantity"`
}

// ShippingRequest selects where and how the cart ships
type ShippingRequest struct {
	Zone     string `json:"zone" binding:"max=50"`
	Method   string `json:"method" binding:"max=50"`
	Province string `json:"province" binding:"max=100"`
}

// PreviewRequest prices a cart without placing an order
type PreviewRequest struct {
	Items    []CartItemRequest `json:"items" binding:"required,min=1,max=200"`
	Shipping ShippingRequest   `json:"shipping"`
}

// AddressRequest is the delivery address of an order
type AddressRequest struct {
	RecipientName string `json:"recipient_name" binding:"required,max=100"`
	Phone         string `json:"phone" binding:"max=30"`
	AddressLine   string `json:"address_line" binding:"required,max=255"`
	City          string `json:"city" binding:"required,max=100"`
	Province      string `json:"province" binding:"max=100"`
	Zone          string `json:"zone" binding:"max=50"`
	Method        string `json:"method" binding:"max=50"`
}

// PlaceOrderRequest commits a cart as an order
type PlaceOrderRequest struct {
	Items         []CartItemRequest `json:"items" binding:"required,min=1,max=200"`
	Shipping      AddressRequest    `json:"shipping" binding:"required"`
	PaymentMethod string            `json:"payment_method" binding:"required,oneof=COD CARD WALLET"`
}

// PricedLineResponse is one priced cart line
type PricedLineResponse struct {
	ProductID           string   `json:"product_id"`
	StoreID             string   `json:"store_id"`
	Quantity            int      `json:"quantity"`
	UnitPrice           string   `json:"unit_price"`
	DiscountedUnitPrice string   `json:"discounted_unit_price"`
	LineTotal           string   `json:"line_total"`
	Tax                 string   `json:"tax"`
	AppliedPromotionIDs []string `json:"applied_promotion_ids"`
}

// StoreSummaryResponse is the per-store slice of a price breakdown
type StoreSummaryResponse struct {
	StoreID             string   `json:"store_id"`
	Subtotal            string   `json:"subtotal"`
	Tax                 string   `json:"tax"`
	Shipping            string   `json:"shipping"`
	FreeShipping        bool     `json:"free_shipping"`
	AppliedPromotionIDs []string `json:"applied_promotion_ids"`
}

// GiftLineResponse is a free gift granted by a promotion
type GiftLineResponse struct {
	StoreID     string `json:"store_id"`
	ProductID   string `json:"product_id"`
	PromotionID string `json:"promotion_id"`
	Quantity    int    `json:"quantity"`
}

// PriceBreakdownResponse is the JSON form of a price breakdown. Money is a 2-decimal string.
type PriceBreakdownResponse struct {
	Subtotal string                 `json:"subtotal"`
	Taxes    string                 `json:"taxes"`
	Shipping string                 `json:"shipping"`
	Total    string                 `json:"total"`
	Currency string                 `json:"currency"`
	Lines    []PricedLineResponse   `json:"lines"`
	Stores   []StoreSummaryResponse `json:"stores"`
	Gifts    []GiftLineResponse     `json:"gifts"`
	Warnings []string               `json:"warnings"`
}

// OrderItemResponse is one line of a committed order
type OrderItemResponse struct {
	ID                  string   `json:"id"`
	StoreID             string   `json:"store_id"`
	ProductID           string   `json:"product_id"`
	Quantity            int      `json:"quantity"`
	UnitPrice           string   `json:"unit_price"`
	DiscountedUnitPrice string   `json:"discounted_unit_price"`
	LineTotal           string   `json:"line_total"`
	Tax                 string   `json:"tax"`
	AppliedPromotionIDs []string `json:"applied_promotion_ids"`
	GiftPromotionID     *string  `json:"gift_promotion_id,omitempty"`
}

// TransactionResponse is a store's share of an order
type TransactionResponse struct {
	ID             string `json:"id"`
	StoreID        string `json:"store_id"`
	Amount         string `json:"amount"`
	CommissionRate string `json:"commission_rate"`
	Commission     string `json:"commission"`
	VendorEarnings string `json:"vendor_earnings"`
	Status         string `json:"status"`
}

// ShippingInfoResponse is the delivery address stored on an order
type ShippingInfoResponse struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone,omitempty"`
	AddressLine   string `json:"address_line"`
	City          string `json:"city"`
	Province      string `json:"province,omitempty"`
	Zone          string `json:"zone"`
	Method        string `json:"method"`
}

// OrderResponse is a committed order with its vendor transactions
type OrderResponse struct {
	ID            string                `json:"id"`
	OrderNumber   string                `json:"order_number"`
	BuyerID       string                `json:"buyer_id"`
	Status        string                `json:"status"`
	PaymentMethod string                `json:"payment_method"`
	Currency      string                `json:"currency"`
	Subtotal      string                `json:"subtotal"`
	Taxes         string                `json:"taxes"`
	Shipping      string                `json:"shipping"`
	Total         string                `json:"total"`
	ShippingInfo  ShippingInfoResponse  `json:"shipping_info"`
	Items         []OrderItemResponse   `json:"items"`
	Transactions  []TransactionResponse `json:"transactions"`
	CreatedAt     time.Time             `json:"created_at"`
}

// invalidStoreID never names a store, so a malformed store id drops its line
var invalidStoreID = uuid.Max

func parseCartItems(reqs []CartItemRequest) []checkout.CartItem {
	items := make([]checkout.CartItem, 0, len(reqs))
	for _, r := range reqs {
		// an unparseable product id stays uuid.Nil and fails line validation
		productID, err := uuid.Parse(r.ProductID)
		if err != nil {
			productID = uuid.Nil
		}
		var storeID uuid.UUID
		if r.StoreID != "" {
			if storeID, err = uuid.Parse(r.StoreID); err != nil {
				// a store id that matches nothing makes the line a mismatch
				storeID = invalidStoreID
			}
		}
		items = append(items, checkout.CartItem{
			ProductID: productID,
			StoreID:   storeID,
			Quantity:  r.Quantity,
		})
	}
	return items
}

func (r ShippingRequest) toContext() checkout.ShippingContext {
	return checkout.ShippingContext{Zone: r.Zone, Method: r.Method, Province: r.Province}
}

func (r AddressRequest) toShippingInfo() order.ShippingInfo {
	return order.ShippingInfo{
		RecipientName: r.RecipientName,
		Phone:         r.Phone,
		AddressLine:   r.AddressLine,
		City:          r.City,
		Province:      r.Province,
		Zone:          r.Zone,
		Method:        r.Method,
	}
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

// ToPriceBreakdownResponse converts a breakdown to its JSON form
func ToPriceBreakdownResponse(b *checkout.PriceBreakdown) PriceBreakdownResponse {
	resp := PriceBreakdownResponse{
		Subtotal: valueobject.FormatMoney(b.Subtotal),
		Taxes:    valueobject.FormatMoney(b.Taxes),
		Shipping: valueobject.FormatMoney(b.Shipping),
		Total:    valueobject.FormatMoney(b.Total),
		Currency: string(b.Currency),
		Lines:    make([]PricedLineResponse, 0, len(b.Lines)),
		Stores:   make([]StoreSummaryResponse, 0, len(b.Stores)),
		Gifts:    make([]GiftLineResponse, 0, len(b.Gifts)),
		Warnings: b.Warnings,
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	for _, l := range b.Lines {
		resp.Lines = append(resp.Lines, PricedLineResponse{
			ProductID:           l.ProductID.String(),
			StoreID:             l.StoreID.String(),
			Quantity:            l.Quantity,
			UnitPrice:           valueobject.FormatMoney(l.UnitPrice),
			DiscountedUnitPrice: valueobject.FormatMoney(l.DiscountedUnitPrice),
			LineTotal:           valueobject.FormatMoney(l.LineTotal),
			Tax:                 valueobject.FormatMoney(l.Tax),
			AppliedPromotionIDs: idStrings(l.AppliedPromotionIDs),
		})
	}
	for _, s := range b.Stores {
		resp.Stores = append(resp.Stores, StoreSummaryResponse{
			StoreID:             s.StoreID.String(),
			Subtotal:            valueobject.FormatMoney(s.Subtotal),
			Tax:                 valueobject.FormatMoney(s.Tax),
			Shipping:            valueobject.FormatMoney(s.Shipping),
			FreeShipping:        s.FreeShipping,
			AppliedPromotionIDs: idStrings(s.AppliedPromotionIDs),
		})
	}
	for _, g := range b.Gifts {
		resp.Gifts = append(resp.Gifts, GiftLineResponse{
			StoreID:     g.StoreID.String(),
			ProductID:   g.ProductID.String(),
			PromotionID: g.PromotionID.String(),
			Quantity:    g.Quantity,
		})
	}
	return resp
}

// ToOrderResponse converts a committed order to its JSON form
func ToOrderResponse(o *order.Order) OrderResponse {
	resp := OrderResponse{
		ID:            o.ID.String(),
		OrderNumber:   o.OrderNumber,
		BuyerID:       o.BuyerID.String(),
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		Currency:      string(o.Currency),
		Subtotal:      valueobject.FormatMoney(o.Subtotal),
		Taxes:         valueobject.FormatMoney(o.TaxTotal),
		Shipping:      valueobject.FormatMoney(o.ShippingTotal),
		Total:         valueobject.FormatMoney(o.Total),
		ShippingInfo: ShippingInfoResponse{
			RecipientName: o.Shipping.RecipientName,
			Phone:         o.Shipping.Phone,
			AddressLine:   o.Shipping.AddressLine,
			City:          o.Shipping.City,
			Province:      o.Shipping.Province,
			Zone:          o.Shipping.Zone,
			Method:        o.Shipping.Method,
		},
		Items:        make([]OrderItemResponse, 0, len(o.Items)),
		Transactions: make([]TransactionResponse, 0, len(o.Transactions)),
		CreatedAt:    o.CreatedAt,
	}
	for _, item := range o.Items {
		ir := OrderItemResponse{
			ID:                  item.ID.String(),
			StoreID:             item.StoreID.String(),
			ProductID:           item.ProductID.String(),
			Quantity:            item.Quantity,
			UnitPrice:           valueobject.FormatMoney(item.UnitPrice),
			DiscountedUnitPrice: valueobject.FormatMoney(item.DiscountedUnitPrice),
			LineTotal:           valueobject.FormatMoney(item.LineTotal),
			Tax:                 valueobject.FormatMoney(item.Tax),
			AppliedPromotionIDs: idStrings(item.AppliedPromotionIDs),
		}
		if item.GiftPromotionID != nil {
			id := item.GiftPromotionID.String()
			ir.GiftPromotionID = &id
		}
		resp.Items = append(resp.Items, ir)
	}
	for _, tx := range o.Transactions {
		resp.Transactions = append(resp.Transactions, TransactionResponse{
			ID:             tx.ID.String(),
			StoreID:        tx.StoreID.String(),
			Amount:         valueobject.FormatMoney(tx.Amount),
			CommissionRate: tx.CommissionRate.String(),
			Commission:     valueobject.FormatMoney(tx.Commission),
			VendorEarnings: valueobject.FormatMoney(tx.VendorEarnings),
			Status:         string(tx.Status),
		})
	}
	return resp
}
