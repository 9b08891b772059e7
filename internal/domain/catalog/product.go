package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product is a sellable item listed by exactly one store
type Product struct {
	shared.BaseAggregateRoot
	StoreID    uuid.UUID
	Name       string
	Category   string
	Price      decimal.Decimal
	WeightKg   decimal.Decimal
	Dimensions valueobject.Dimensions
	TaxExempt  bool
	Status     ProductStatus
}

// NewProduct creates a new active product
func NewProduct(storeID uuid.UUID, name, category string, price decimal.Decimal) (*Product, error) {
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Product must belong to a store")
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Product price cannot be negative")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		StoreID:           storeID,
		Name:              name,
		Category:          normalizeCategory(category),
		Price:             price,
		WeightKg:          decimal.Zero,
		Status:            ProductStatusActive,
	}, nil
}

// SetShippingProfile sets the physical attributes used for shipping cost
func (p *Product) SetShippingProfile(weightKg decimal.Decimal, dims valueobject.Dimensions) error {
	if weightKg.IsNegative() {
		return shared.NewDomainError("INVALID_WEIGHT", "Weight cannot be negative")
	}
	p.WeightKg = weightKg
	p.Dimensions = dims
	p.Changed()
	return nil
}

// IsActive returns true if the product can be sold
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// Deactivate takes the product off sale
func (p *Product) Deactivate() {
	p.Status = ProductStatusInactive
	p.Changed()
}

func validateProductName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}

// normalizeCategory lower-cases category names so rule matching is case-insensitive
func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
