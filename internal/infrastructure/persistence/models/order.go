package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate.
type OrderModel struct {
	AggregateModel
	OrderNumber       string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	BuyerID           uuid.UUID           `gorm:"type:uuid;not null;index"`
	Status            order.Status        `gorm:"type:varchar(20);not null;default:'PLACED'"`
	PaymentMethod     order.PaymentMethod `gorm:"type:varchar(20);not null"`
	Currency          string              `gorm:"type:varchar(3);not null"`
	ShippingRecipient string              `gorm:"type:varchar(200)"`
	ShippingPhone     string              `gorm:"type:varchar(50)"`
	ShippingAddress   string              `gorm:"type:varchar(500);not null"`
	ShippingCity      string              `gorm:"type:varchar(100)"`
	ShippingProvince  string              `gorm:"type:varchar(100)"`
	ShippingZone      string              `gorm:"type:varchar(50)"`
	ShippingMethod    string              `gorm:"type:varchar(50)"`
	Subtotal          decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	TaxTotal          decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	ShippingTotal     decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	Total             decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	Items             []OrderItemModel    `gorm:"foreignKey:OrderID;references:ID"`
	Transactions      []TransactionModel  `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is the persistence model for one priced order line.
type OrderItemModel struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	StoreID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID           uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity            int             `gorm:"not null"`
	UnitPrice           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DiscountedUnitPrice decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LineTotal           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Tax                 decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	AppliedPromotionIDs []uuid.UUID     `gorm:"type:jsonb;serializer:json"`
	GiftPromotionID     *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// TransactionModel is the persistence model for a store's share of an order.
type TransactionModel struct {
	ID             uuid.UUID               `gorm:"type:uuid;primary_key"`
	OrderID        uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_transaction_order_store,priority:1"`
	StoreID        uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_transaction_order_store,priority:2;index"`
	Amount         decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	CommissionRate decimal.Decimal         `gorm:"type:decimal(5,2);not null"`
	Commission     decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	VendorEarnings decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	Status         order.TransactionStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	SettledAt      *time.Time              `gorm:""`
	CreatedAt      time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "vendor_transactions"
}

// ToDomain converts the persistence model to a domain Order with its items and transactions.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		OrderNumber:   m.OrderNumber,
		BuyerID:       m.BuyerID,
		Status:        m.Status,
		PaymentMethod: m.PaymentMethod,
		Currency:      valueobject.Currency(m.Currency),
		Shipping: order.ShippingInfo{
			RecipientName: m.ShippingRecipient,
			Phone:         m.ShippingPhone,
			AddressLine:   m.ShippingAddress,
			City:          m.ShippingCity,
			Province:      m.ShippingProvince,
			Zone:          m.ShippingZone,
			Method:        m.ShippingMethod,
		},
		Subtotal:      m.Subtotal,
		TaxTotal:      m.TaxTotal,
		ShippingTotal: m.ShippingTotal,
		Total:         m.Total,
		Items:         make([]order.Item, 0, len(m.Items)),
		Transactions:  make([]order.Transaction, 0, len(m.Transactions)),
	}
	o.BaseAggregateRoot = m.AggregateModel.aggregate()
	for i := range m.Items {
		o.Items = append(o.Items, m.Items[i].ToDomain())
	}
	for i := range m.Transactions {
		o.Transactions = append(o.Transactions, m.Transactions[i].ToDomain())
	}
	return o
}

// FromDomain populates the persistence model and its children from a domain Order.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.AggregateModel = aggregateModelOf(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.BuyerID = o.BuyerID
	m.Status = o.Status
	m.PaymentMethod = o.PaymentMethod
	m.Currency = string(o.Currency)
	m.ShippingRecipient = o.Shipping.RecipientName
	m.ShippingPhone = o.Shipping.Phone
	m.ShippingAddress = o.Shipping.AddressLine
	m.ShippingCity = o.Shipping.City
	m.ShippingProvince = o.Shipping.Province
	m.ShippingZone = o.Shipping.Zone
	m.ShippingMethod = o.Shipping.Method
	m.Subtotal = o.Subtotal
	m.TaxTotal = o.TaxTotal
	m.ShippingTotal = o.ShippingTotal
	m.Total = o.Total
	m.Items = make([]OrderItemModel, 0, len(o.Items))
	for i := range o.Items {
		item := o.Items[i]
		item.OrderID = o.ID
		m.Items = append(m.Items, OrderItemModelFromDomain(&item))
	}
	m.Transactions = make([]TransactionModel, 0, len(o.Transactions))
	for i := range o.Transactions {
		t := o.Transactions[i]
		t.OrderID = o.ID
		m.Transactions = append(m.Transactions, TransactionModelFromDomain(&t))
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// ToDomain converts the persistence model to a domain order Item.
func (m *OrderItemModel) ToDomain() order.Item {
	return order.Item{
		ID:                  m.ID,
		OrderID:             m.OrderID,
		StoreID:             m.StoreID,
		ProductID:           m.ProductID,
		Quantity:            m.Quantity,
		UnitPrice:           m.UnitPrice,
		DiscountedUnitPrice: m.DiscountedUnitPrice,
		LineTotal:           m.LineTotal,
		Tax:                 m.Tax,
		AppliedPromotionIDs: m.AppliedPromotionIDs,
		GiftPromotionID:     m.GiftPromotionID,
	}
}

// OrderItemModelFromDomain creates a new persistence model from a domain order Item.
func OrderItemModelFromDomain(i *order.Item) OrderItemModel {
	id := i.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return OrderItemModel{
		ID:                  id,
		OrderID:             i.OrderID,
		StoreID:             i.StoreID,
		ProductID:           i.ProductID,
		Quantity:            i.Quantity,
		UnitPrice:           i.UnitPrice,
		DiscountedUnitPrice: i.DiscountedUnitPrice,
		LineTotal:           i.LineTotal,
		Tax:                 i.Tax,
		AppliedPromotionIDs: i.AppliedPromotionIDs,
		GiftPromotionID:     i.GiftPromotionID,
	}
}

// ToDomain converts the persistence model to a domain Transaction.
func (m *TransactionModel) ToDomain() order.Transaction {
	return order.Transaction{
		ID:             m.ID,
		OrderID:        m.OrderID,
		StoreID:        m.StoreID,
		Amount:         m.Amount,
		CommissionRate: m.CommissionRate,
		Commission:     m.Commission,
		VendorEarnings: m.VendorEarnings,
		Status:         m.Status,
		SettledAt:      m.SettledAt,
		CreatedAt:      m.CreatedAt,
	}
}

// TransactionModelFromDomain creates a new persistence model from a domain Transaction.
func TransactionModelFromDomain(t *order.Transaction) TransactionModel {
	return TransactionModel{
		ID:             t.ID,
		OrderID:        t.OrderID,
		StoreID:        t.StoreID,
		Amount:         t.Amount,
		CommissionRate: t.CommissionRate,
		Commission:     t.Commission,
		VendorEarnings: t.VendorEarnings,
		Status:         t.Status,
		SettledAt:      t.SettledAt,
		CreatedAt:      t.CreatedAt,
	}
}
