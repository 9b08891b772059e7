package models

import (
	"github.com/marketplace/backend/internal/domain/shipping"
	"github.com/marketplace/backend/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// TaxRuleModel is the persistence model for a platform tax rule.
// Empty category or province means the rule applies to any.
type TaxRuleModel struct {
	BaseModel
	Name     string          `gorm:"type:varchar(100);not null"`
	Enabled  bool            `gorm:"not null;index"`
	Category string          `gorm:"type:varchar(100);not null;default:''"`
	Province string          `gorm:"type:varchar(100);not null;default:''"`
	Rate     decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Exempt   bool            `gorm:"not null;default:false"`
	Priority int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (TaxRuleModel) TableName() string {
	return "tax_rules"
}

// ToDomain converts the persistence model to a domain tax Rule.
func (m *TaxRuleModel) ToDomain() *tax.Rule {
	return &tax.Rule{
		BaseEntity: m.BaseModel.entity(),
		Name:       m.Name,
		Enabled:    m.Enabled,
		Category:   m.Category,
		Province:   m.Province,
		Rate:       m.Rate,
		Exempt:     m.Exempt,
		Priority:   m.Priority,
	}
}

// FromDomain populates the persistence model from a domain tax Rule.
func (m *TaxRuleModel) FromDomain(r *tax.Rule) {
	m.BaseModel = baseModelOf(r.BaseEntity)
	m.Name = r.Name
	m.Enabled = r.Enabled
	m.Category = r.Category
	m.Province = r.Province
	m.Rate = r.Rate
	m.Exempt = r.Exempt
	m.Priority = r.Priority
}

// TaxRuleModelFromDomain creates a new persistence model from a domain tax Rule.
func TaxRuleModelFromDomain(r *tax.Rule) *TaxRuleModel {
	m := &TaxRuleModel{}
	m.FromDomain(r)
	return m
}

// ShippingRateRuleModel is the persistence model for a platform shipping rate rule.
type ShippingRateRuleModel struct {
	BaseModel
	Enabled           bool                `gorm:"not null"`
	Carrier           string              `gorm:"type:varchar(50);not null"`
	Method            string              `gorm:"type:varchar(50);not null"`
	Zone              string              `gorm:"type:varchar(50);not null;index"`
	MinWeightKg       decimal.Decimal     `gorm:"type:decimal(10,3);not null;default:0"`
	MaxWeightKg       decimal.Decimal     `gorm:"type:decimal(10,3);not null"`
	BaseRate          decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	PerKgRate         decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	DimensionalFactor decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	Surcharge         decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	Priority          int                 `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ShippingRateRuleModel) TableName() string {
	return "shipping_rate_rules"
}

// ToDomain converts the persistence model to a domain shipping RateRule.
func (m *ShippingRateRuleModel) ToDomain() *shipping.RateRule {
	r := &shipping.RateRule{
		BaseEntity:  m.BaseModel.entity(),
		Enabled:     m.Enabled,
		Carrier:     m.Carrier,
		Method:      m.Method,
		Zone:        m.Zone,
		MinWeightKg: m.MinWeightKg,
		MaxWeightKg: m.MaxWeightKg,
		BaseRate:    m.BaseRate,
		PerKgRate:   m.PerKgRate,
		Surcharge:   m.Surcharge,
		Priority:    m.Priority,
	}
	if m.DimensionalFactor.Valid {
		factor := m.DimensionalFactor.Decimal
		r.DimensionalFactor = &factor
	}
	return r
}

// FromDomain populates the persistence model from a domain shipping RateRule.
func (m *ShippingRateRuleModel) FromDomain(r *shipping.RateRule) {
	m.BaseModel = baseModelOf(r.BaseEntity)
	m.Enabled = r.Enabled
	m.Carrier = r.Carrier
	m.Method = r.Method
	m.Zone = r.Zone
	m.MinWeightKg = r.MinWeightKg
	m.MaxWeightKg = r.MaxWeightKg
	m.BaseRate = r.BaseRate
	m.PerKgRate = r.PerKgRate
	m.Surcharge = r.Surcharge
	m.Priority = r.Priority
	m.DimensionalFactor = decimal.NullDecimal{}
	if r.DimensionalFactor != nil {
		m.DimensionalFactor = decimal.NewNullDecimal(*r.DimensionalFactor)
	}
}

// ShippingRateRuleModelFromDomain creates a new persistence model from a domain shipping RateRule.
func ShippingRateRuleModelFromDomain(r *shipping.RateRule) *ShippingRateRuleModel {
	m := &ShippingRateRuleModel{}
	m.FromDomain(r)
	return m
}
