package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/promotion"
	"github.com/shopspring/decimal"
)

// PromotionModel is the persistence model for the Promotion aggregate.
// The legacy discount descriptor is flattened onto the row; rules, actions,
// overrides and scope entries live in child tables.
type PromotionModel struct {
	AggregateModel
	StoreID             uuid.UUID                 `gorm:"type:uuid;not null;index:idx_promotion_store_status,priority:1"`
	Name                string                    `gorm:"type:varchar(200);not null"`
	DiscountType        promotion.DiscountType    `gorm:"type:varchar(20);not null"`
	DiscountValue       decimal.Decimal           `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountMinQuantity int                       `gorm:"not null;default:0"`
	ScopeKind           promotion.ScopeKind       `gorm:"type:varchar(20);not null;default:'all'"`
	StartAt             time.Time                 `gorm:"not null"`
	EndAt               *time.Time                `gorm:""`
	Status              promotion.Status          `gorm:"type:varchar(20);not null;default:'draft';index:idx_promotion_store_status,priority:2"`
	Priority            int                       `gorm:"not null;default:0"`
	UsageLimit          *int64                    `gorm:""`
	UsageLimitPerUser   *int64                    `gorm:""`
	Stackable           bool                      `gorm:"not null;default:false"`
	Rules               []PromotionRuleModel      `gorm:"foreignKey:PromotionID;references:ID"`
	Actions             []PromotionActionModel    `gorm:"foreignKey:PromotionID;references:ID"`
	Overrides           []PromotionOverrideModel  `gorm:"foreignKey:PromotionID;references:ID"`
	ScopeItems          []PromotionScopeItemModel `gorm:"foreignKey:PromotionID;references:ID"`
}

// TableName returns the table name for GORM
func (PromotionModel) TableName() string {
	return "promotions"
}

// PromotionRuleModel stores one rule condition. ProductID is set for rules
// that belong to a product override instead of the promotion itself.
type PromotionRuleModel struct {
	ID          uuid.UUID          `gorm:"type:uuid;primary_key"`
	PromotionID uuid.UUID          `gorm:"type:uuid;not null;index"`
	ProductID   *uuid.UUID         `gorm:"type:uuid"`
	Position    int                `gorm:"not null;default:0"`
	Type        promotion.RuleType `gorm:"type:varchar(30);not null"`
	Operator    promotion.Operator `gorm:"type:varchar(10);not null"`
	Value       string             `gorm:"type:varchar(1000);not null"`
}

// TableName returns the table name for GORM
func (PromotionRuleModel) TableName() string {
	return "promotion_rules"
}

// PromotionActionModel stores one promotion effect
type PromotionActionModel struct {
	ID            uuid.UUID              `gorm:"type:uuid;primary_key"`
	PromotionID   uuid.UUID              `gorm:"type:uuid;not null;index"`
	Position      int                    `gorm:"not null;default:0"`
	Type          promotion.ActionType   `gorm:"type:varchar(30);not null"`
	Target        promotion.ActionTarget `gorm:"type:varchar(30);not null"`
	Value         decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	GiftProductID *uuid.UUID             `gorm:"type:uuid"`
	GiftQuantity  int                    `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (PromotionActionModel) TableName() string {
	return "promotion_actions"
}

// PromotionOverrideModel stores per-product promotion adjustments
type PromotionOverrideModel struct {
	ID            uuid.UUID           `gorm:"type:uuid;primary_key"`
	PromotionID   uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_promotion_override_product,priority:1"`
	ProductID     uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_promotion_override_product,priority:2"`
	OverridePrice decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	MaxQuantity   *int                `gorm:""`
}

// TableName returns the table name for GORM
func (PromotionOverrideModel) TableName() string {
	return "promotion_product_overrides"
}

// PromotionScopeItemModel is one product or category a scoped promotion covers
type PromotionScopeItemModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key"`
	PromotionID uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductID   *uuid.UUID `gorm:"type:uuid"`
	Category    string     `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (PromotionScopeItemModel) TableName() string {
	return "promotion_scope_items"
}

// ToDomain converts the persistence model to a domain Promotion.
// The scope is resolved here so the domain never sees raw id lists.
func (m *PromotionModel) ToDomain() *promotion.Promotion {
	p := &promotion.Promotion{
		StoreID: m.StoreID,
		Name:    m.Name,
		Discount: promotion.Discount{
			Type:        m.DiscountType,
			Value:       m.DiscountValue,
			MinQuantity: m.DiscountMinQuantity,
		},
		Scope:             m.scope(),
		StartAt:           m.StartAt,
		EndAt:             m.EndAt,
		Status:            m.Status,
		Priority:          m.Priority,
		UsageLimit:        m.UsageLimit,
		UsageLimitPerUser: m.UsageLimitPerUser,
		Stackable:         m.Stackable,
	}
	p.BaseAggregateRoot = m.AggregateModel.aggregate()

	overrideRules := make(map[uuid.UUID][]promotion.Rule)
	for _, r := range m.Rules {
		rule := promotion.Rule{Type: r.Type, Operator: r.Operator, Value: r.Value}
		if r.ProductID != nil {
			overrideRules[*r.ProductID] = append(overrideRules[*r.ProductID], rule)
			continue
		}
		p.Rules = append(p.Rules, rule)
	}
	for _, a := range m.Actions {
		p.Actions = append(p.Actions, promotion.Action{
			Type:          a.Type,
			Target:        a.Target,
			Value:         a.Value,
			GiftProductID: a.GiftProductID,
			GiftQuantity:  a.GiftQuantity,
		})
	}
	for _, o := range m.Overrides {
		override := promotion.ProductOverride{
			ProductID:   o.ProductID,
			MaxQuantity: o.MaxQuantity,
			Rules:       overrideRules[o.ProductID],
		}
		if o.OverridePrice.Valid {
			price := o.OverridePrice.Decimal
			override.OverridePrice = &price
		}
		p.Overrides = append(p.Overrides, override)
	}
	return p
}

func (m *PromotionModel) scope() promotion.Scope {
	switch m.ScopeKind {
	case promotion.ScopeKindProducts:
		ids := make([]uuid.UUID, 0, len(m.ScopeItems))
		for _, item := range m.ScopeItems {
			if item.ProductID != nil {
				ids = append(ids, *item.ProductID)
			}
		}
		return promotion.ScopeProducts(ids...)
	case promotion.ScopeKindCategories:
		categories := make([]string, 0, len(m.ScopeItems))
		for _, item := range m.ScopeItems {
			if item.Category != "" {
				categories = append(categories, item.Category)
			}
		}
		return promotion.ScopeCategories(categories...)
	default:
		return promotion.ScopeAll()
	}
}

// FromDomain populates the persistence model and its children from a domain Promotion.
// Child ids are regenerated; children are replaced as a whole on save.
func (m *PromotionModel) FromDomain(p *promotion.Promotion) {
	m.AggregateModel = aggregateModelOf(p.BaseAggregateRoot)
	m.StoreID = p.StoreID
	m.Name = p.Name
	m.DiscountType = p.Discount.Type
	m.DiscountValue = p.Discount.Value
	m.DiscountMinQuantity = p.Discount.MinQuantity
	m.ScopeKind = p.Scope.Kind()
	m.StartAt = p.StartAt
	m.EndAt = p.EndAt
	m.Status = p.Status
	m.Priority = p.Priority
	m.UsageLimit = p.UsageLimit
	m.UsageLimitPerUser = p.UsageLimitPerUser
	m.Stackable = p.Stackable

	m.Rules = nil
	for i, r := range p.Rules {
		m.Rules = append(m.Rules, PromotionRuleModel{
			ID:          uuid.New(),
			PromotionID: p.ID,
			Position:    i,
			Type:        r.Type,
			Operator:    r.Operator,
			Value:       r.Value,
		})
	}

	m.Actions = nil
	for i, a := range p.Actions {
		m.Actions = append(m.Actions, PromotionActionModel{
			ID:            uuid.New(),
			PromotionID:   p.ID,
			Position:      i,
			Type:          a.Type,
			Target:        a.Target,
			Value:         a.Value,
			GiftProductID: a.GiftProductID,
			GiftQuantity:  a.GiftQuantity,
		})
	}

	m.Overrides = nil
	for _, o := range p.Overrides {
		om := PromotionOverrideModel{
			ID:          uuid.New(),
			PromotionID: p.ID,
			ProductID:   o.ProductID,
			MaxQuantity: o.MaxQuantity,
		}
		if o.OverridePrice != nil {
			om.OverridePrice = decimal.NewNullDecimal(*o.OverridePrice)
		}
		m.Overrides = append(m.Overrides, om)
		productID := o.ProductID
		for i, r := range o.Rules {
			m.Rules = append(m.Rules, PromotionRuleModel{
				ID:          uuid.New(),
				PromotionID: p.ID,
				ProductID:   &productID,
				Position:    i,
				Type:        r.Type,
				Operator:    r.Operator,
				Value:       r.Value,
			})
		}
	}

	m.ScopeItems = nil
	for _, id := range p.Scope.ProductIDs() {
		productID := id
		m.ScopeItems = append(m.ScopeItems, PromotionScopeItemModel{ID: uuid.New(), PromotionID: p.ID, ProductID: &productID})
	}
	for _, c := range p.Scope.Categories() {
		m.ScopeItems = append(m.ScopeItems, PromotionScopeItemModel{ID: uuid.New(), PromotionID: p.ID, Category: c})
	}
}

// PromotionModelFromDomain creates a new persistence model from a domain Promotion.
func PromotionModelFromDomain(p *promotion.Promotion) *PromotionModel {
	m := &PromotionModel{}
	m.FromDomain(p)
	return m
}

// PromotionUsageModel is one usage counter. BuyerID uuid.Nil is the global
// counter of the promotion; other rows count a single buyer.
type PromotionUsageModel struct {
	PromotionID uuid.UUID `gorm:"type:uuid;primaryKey"`
	BuyerID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UsedCount   int64     `gorm:"not null;default:0"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PromotionUsageModel) TableName() string {
	return "promotion_usages"
}
