package models

import (
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// StoreModel is the persistence model for the Store domain entity.
type StoreModel struct {
	AggregateModel
	Name             string                   `gorm:"type:varchar(200);not null"`
	District         string                   `gorm:"type:varchar(100)"`
	SubscriptionTier catalog.SubscriptionTier `gorm:"type:varchar(20);not null;default:'basic'"`
	CommissionRate   decimal.Decimal          `gorm:"type:decimal(5,2);not null;default:0"`
	Status           catalog.StoreStatus      `gorm:"type:varchar(20);not null;default:'active';index"`
}

// TableName returns the table name for GORM
func (StoreModel) TableName() string {
	return "stores"
}

// ToDomain converts the persistence model to a domain Store entity.
func (m *StoreModel) ToDomain() *catalog.Store {
	s := &catalog.Store{
		Name:             m.Name,
		District:         m.District,
		SubscriptionTier: m.SubscriptionTier,
		CommissionRate:   m.CommissionRate,
		Status:           m.Status,
	}
	s.BaseAggregateRoot = m.AggregateModel.aggregate()
	return s
}

// FromDomain populates the persistence model from a domain Store entity.
func (m *StoreModel) FromDomain(s *catalog.Store) {
	m.AggregateModel = aggregateModelOf(s.BaseAggregateRoot)
	m.Name = s.Name
	m.District = s.District
	m.SubscriptionTier = s.SubscriptionTier
	m.CommissionRate = s.CommissionRate
	m.Status = s.Status
}

// StoreModelFromDomain creates a new persistence model from a domain Store entity.
func StoreModelFromDomain(s *catalog.Store) *StoreModel {
	m := &StoreModel{}
	m.FromDomain(s)
	return m
}

// ProductModel is the persistence model for the Product domain entity.
type ProductModel struct {
	AggregateModel
	StoreID   uuid.UUID             `gorm:"type:uuid;not null;index"`
	Name      string                `gorm:"type:varchar(200);not null"`
	Category  string                `gorm:"type:varchar(100);index"`
	Price     decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	WeightKg  decimal.Decimal       `gorm:"type:decimal(10,3);not null;default:0"`
	LengthCm  decimal.Decimal       `gorm:"type:decimal(10,2);not null;default:0"`
	WidthCm   decimal.Decimal       `gorm:"type:decimal(10,2);not null;default:0"`
	HeightCm  decimal.Decimal       `gorm:"type:decimal(10,2);not null;default:0"`
	TaxExempt bool                  `gorm:"not null;default:false"`
	Status    catalog.ProductStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		StoreID:  m.StoreID,
		Name:     m.Name,
		Category: m.Category,
		Price:    m.Price,
		WeightKg: m.WeightKg,
		Dimensions: valueobject.Dimensions{
			Length: m.LengthCm,
			Width:  m.WidthCm,
			Height: m.HeightCm,
		},
		TaxExempt: m.TaxExempt,
		Status:    m.Status,
	}
	p.BaseAggregateRoot = m.AggregateModel.aggregate()
	return p
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.AggregateModel = aggregateModelOf(p.BaseAggregateRoot)
	m.StoreID = p.StoreID
	m.Name = p.Name
	m.Category = p.Category
	m.Price = p.Price
	m.WeightKg = p.WeightKg
	m.LengthCm = p.Dimensions.Length
	m.WidthCm = p.Dimensions.Width
	m.HeightCm = p.Dimensions.Height
	m.TaxExempt = p.TaxExempt
	m.Status = p.Status
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
