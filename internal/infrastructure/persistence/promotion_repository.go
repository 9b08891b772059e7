package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/promotion"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPromotionRepository implements promotion.Repository using GORM
type GormPromotionRepository struct {
	db *gorm.DB
}

// NewGormPromotionRepository creates a new GormPromotionRepository
func NewGormPromotionRepository(db *gorm.DB) *GormPromotionRepository {
	return &GormPromotionRepository{db: db}
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// withChildren preloads everything ToDomain needs to rebuild the aggregate
func withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Rules", byPosition).
		Preload("Actions", byPosition).
		Preload("Overrides").
		Preload("ScopeItems")
}

// FindByID loads a promotion with its rules, actions, overrides and scope
func (r *GormPromotionRepository) FindByID(ctx context.Context, id uuid.UUID) (*promotion.Promotion, error) {
	var model models.PromotionModel
	if err := withChildren(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByStoreIDs loads the active promotions of the given stores.
// Window filtering is left to the resolver so a single clock is used per calculation.
func (r *GormPromotionRepository) FindActiveByStoreIDs(ctx context.Context, storeIDs []uuid.UUID) ([]promotion.Promotion, error) {
	if len(storeIDs) == 0 {
		return []promotion.Promotion{}, nil
	}
	var rows []models.PromotionModel
	if err := withChildren(r.db.WithContext(ctx)).
		Where("store_id IN ? AND status = ?", storeIDs, promotion.StatusActive).
		Order("priority DESC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	promotions := make([]promotion.Promotion, 0, len(rows))
	for i := range rows {
		promotions = append(promotions, *rows[i].ToDomain())
	}
	return promotions, nil
}

// Save creates or updates a promotion. Children are replaced as a whole.
func (r *GormPromotionRepository) Save(ctx context.Context, p *promotion.Promotion) error {
	model := models.PromotionModelFromDomain(p)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return fmt.Errorf("failed to save promotion: %w", err)
		}

		children := []any{
			&models.PromotionRuleModel{},
			&models.PromotionActionModel{},
			&models.PromotionOverrideModel{},
			&models.PromotionScopeItemModel{},
		}
		for _, child := range children {
			if err := tx.Where("promotion_id = ?", p.ID).Delete(child).Error; err != nil {
				return fmt.Errorf("failed to clear promotion children: %w", err)
			}
		}

		if len(model.Rules) > 0 {
			if err := tx.Create(&model.Rules).Error; err != nil {
				return fmt.Errorf("failed to save promotion rules: %w", err)
			}
		}
		if len(model.Actions) > 0 {
			if err := tx.Create(&model.Actions).Error; err != nil {
				return fmt.Errorf("failed to save promotion actions: %w", err)
			}
		}
		if len(model.Overrides) > 0 {
			if err := tx.Create(&model.Overrides).Error; err != nil {
				return fmt.Errorf("failed to save promotion overrides: %w", err)
			}
		}
		if len(model.ScopeItems) > 0 {
			if err := tx.Create(&model.ScopeItems).Error; err != nil {
				return fmt.Errorf("failed to save promotion scope: %w", err)
			}
		}
		return nil
	})
}

// Ensure interface is implemented
var _ promotion.Repository = (*GormPromotionRepository)(nil)
