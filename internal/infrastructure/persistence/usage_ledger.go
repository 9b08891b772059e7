package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/promotion"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// errUsageLimitReached rolls back the savepoint of a claim that lost its race
var errUsageLimitReached = errors.New("usage limit reached")

// GormUsageLedger implements promotion.UsageLedger on the promotion_usages table.
// The global counter of a promotion is the row with buyer_id = uuid.Nil.
type GormUsageLedger struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormUsageLedger creates a ledger writing through db, which may be a transaction
func NewGormUsageLedger(db *gorm.DB) *GormUsageLedger {
	return &GormUsageLedger{db: db, now: time.Now}
}

// Snapshot reads the global and buyer counters of the promotions in one query
func (l *GormUsageLedger) Snapshot(ctx context.Context, promotionIDs []uuid.UUID, buyerID uuid.UUID) (promotion.UsageSnapshot, error) {
	snapshot := promotion.NewUsageSnapshot()
	if len(promotionIDs) == 0 {
		return snapshot, nil
	}

	buyers := []uuid.UUID{uuid.Nil}
	if buyerID != uuid.Nil {
		buyers = append(buyers, buyerID)
	}

	var rows []models.PromotionUsageModel
	if err := l.db.WithContext(ctx).
		Where("promotion_id IN ? AND buyer_id IN ?", promotionIDs, buyers).
		Find(&rows).Error; err != nil {
		return snapshot, fmt.Errorf("failed to read promotion usage: %w", err)
	}

	for _, row := range rows {
		if row.BuyerID == uuid.Nil {
			snapshot.SetGlobal(row.PromotionID, row.UsedCount)
		} else {
			snapshot.SetBuyer(row.PromotionID, row.UsedCount)
		}
	}
	return snapshot, nil
}

// Increment counts one use of a promotion. The global and the buyer counters are
// bumped with conditional updates inside one savepoint, so a claim either moves
// both counters or neither.
func (l *GormUsageLedger) Increment(ctx context.Context, claim promotion.UsageClaim) (bool, error) {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := l.incrementRow(tx, claim.PromotionID, uuid.Nil, claim.Limit)
		if err != nil {
			return err
		}
		if !ok {
			return errUsageLimitReached
		}

		if claim.BuyerID == uuid.Nil {
			if claim.PerUserLimit != nil {
				return errUsageLimitReached
			}
			return nil
		}

		ok, err = l.incrementRow(tx, claim.PromotionID, claim.BuyerID, claim.PerUserLimit)
		if err != nil {
			return err
		}
		if !ok {
			return errUsageLimitReached
		}
		return nil
	})
	if errors.Is(err, errUsageLimitReached) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to increment promotion usage: %w", err)
	}
	return true, nil
}

// incrementRow makes sure the counter row exists, then bumps it only while it is below limit
func (l *GormUsageLedger) incrementRow(tx *gorm.DB, promotionID, buyerID uuid.UUID, limit *int64) (bool, error) {
	now := l.now()
	seed := models.PromotionUsageModel{
		PromotionID: promotionID,
		BuyerID:     buyerID,
		UsedCount:   0,
		UpdatedAt:   now,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return false, err
	}

	query := tx.Model(&models.PromotionUsageModel{}).
		Where("promotion_id = ? AND buyer_id = ?", promotionID, buyerID)
	if limit != nil {
		query = query.Where("used_count < ?", *limit)
	}
	result := query.Updates(map[string]any{
		"used_count": gorm.Expr("used_count + ?", 1),
		"updated_at": now,
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Ensure interface is implemented
var _ promotion.UsageLedger = (*GormUsageLedger)(nil)
