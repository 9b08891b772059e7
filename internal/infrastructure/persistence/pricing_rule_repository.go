package persistence

import (
	"context"
	"strings"

	"github.com/marketplace/backend/internal/domain/shipping"
	"github.com/marketplace/backend/internal/domain/tax"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTaxRuleRepository implements tax.RuleRepository using GORM
type GormTaxRuleRepository struct {
	db *gorm.DB
}

// NewGormTaxRuleRepository creates a new GormTaxRuleRepository
func NewGormTaxRuleRepository(db *gorm.DB) *GormTaxRuleRepository {
	return &GormTaxRuleRepository{db: db}
}

// FindEnabled returns all enabled tax rules, highest priority first
func (r *GormTaxRuleRepository) FindEnabled(ctx context.Context) ([]tax.Rule, error) {
	var rows []models.TaxRuleModel
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("priority DESC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	rules := make([]tax.Rule, 0, len(rows))
	for i := range rows {
		rules = append(rules, *rows[i].ToDomain())
	}
	return rules, nil
}

// Save creates or updates a tax rule
func (r *GormTaxRuleRepository) Save(ctx context.Context, rule *tax.Rule) error {
	return r.db.WithContext(ctx).Save(models.TaxRuleModelFromDomain(rule)).Error
}

// GormShippingRuleRepository implements shipping.RuleRepository using GORM
type GormShippingRuleRepository struct {
	db *gorm.DB
}

// NewGormShippingRuleRepository creates a new GormShippingRuleRepository
func NewGormShippingRuleRepository(db *gorm.DB) *GormShippingRuleRepository {
	return &GormShippingRuleRepository{db: db}
}

// FindEnabledForZone returns the enabled rate rules of a zone, matched case-insensitively
func (r *GormShippingRuleRepository) FindEnabledForZone(ctx context.Context, zone string) ([]shipping.RateRule, error) {
	var rows []models.ShippingRateRuleModel
	if err := r.db.WithContext(ctx).
		Where("enabled = ? AND LOWER(zone) = ?", true, strings.ToLower(strings.TrimSpace(zone))).
		Order("priority DESC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	rules := make([]shipping.RateRule, 0, len(rows))
	for i := range rows {
		rules = append(rules, *rows[i].ToDomain())
	}
	return rules, nil
}

// Save creates or updates a shipping rate rule
func (r *GormShippingRuleRepository) Save(ctx context.Context, rule *shipping.RateRule) error {
	return r.db.WithContext(ctx).Save(models.ShippingRateRuleModelFromDomain(rule)).Error
}

// Ensure interfaces are implemented
var (
	_ tax.RuleRepository      = (*GormTaxRuleRepository)(nil)
	_ shipping.RuleRepository = (*GormShippingRuleRepository)(nil)
)
