package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
)

// BaseModel holds the identity columns every table shares
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func baseModelOf(e shared.BaseEntity) BaseModel {
	return BaseModel{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

func (m BaseModel) entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

// AggregateModel adds the version column of stores, products, promotions and orders
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

func aggregateModelOf(a shared.BaseAggregateRoot) AggregateModel {
	return AggregateModel{BaseModel: baseModelOf(a.BaseEntity), Version: a.Version}
}

func (m AggregateModel) aggregate() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{BaseEntity: m.BaseModel.entity(), Version: m.Version}
}

// All returns every persistence model, parents before children
func All() []any {
	return []any{
		&StoreModel{},
		&ProductModel{},
		&PromotionModel{},
		&PromotionRuleModel{},
		&PromotionActionModel{},
		&PromotionOverrideModel{},
		&PromotionScopeItemModel{},
		&PromotionUsageModel{},
		&TaxRuleModel{},
		&ShippingRateRuleModel{},
		&OrderModel{},
		&OrderItemModel{},
		&TransactionModel{},
	}
}
