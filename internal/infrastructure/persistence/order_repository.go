package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID loads an order with its items and vendor transactions
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Transactions").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByBuyer lists a buyer's orders with their children and the total count
func (r *GormOrderRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) ([]order.Order, int64, error) {
	base := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("buyer_id = ?", buyerID).
		Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OrderModel
	if err := r.applyFilter(base, filter).
		Preload("Items").
		Preload("Transactions").
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]order.Order, 0, len(rows))
	for i := range rows {
		orders = append(orders, *rows[i].ToDomain())
	}
	return orders, total, nil
}

// Commit runs build with a ledger bound to the transaction and writes the
// order, its items and its vendor transactions in that same transaction.
func (r *GormOrderRepository) Commit(ctx context.Context, build order.CommitFunc) (*order.Order, error) {
	var committed *order.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := build(ctx, NewGormUsageLedger(tx))
		if err != nil {
			return err
		}

		model := models.OrderModelFromDomain(o)
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		if len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				return fmt.Errorf("failed to insert order items: %w", err)
			}
		}
		if len(model.Transactions) > 0 {
			if err := tx.Create(&model.Transactions).Error; err != nil {
				return fmt.Errorf("failed to insert vendor transactions: %w", err)
			}
		}

		committed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query.Order(orderSort(filter.OrderBy, filter.OrderDir))
}

// Ensure interface is implemented
var _ order.Repository = (*GormOrderRepository)(nil)
