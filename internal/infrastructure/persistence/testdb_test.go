package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/promotion"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// setupTestDB opens an in-memory SQLite database with the full schema.
// A single connection keeps every query on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedStore(t *testing.T, db *gorm.DB, commission int64) *catalog.Store {
	t.Helper()
	store, err := catalog.NewStore("Store "+uuid.NewString()[:6], "Lahore", catalog.TierStandard, decimal.NewFromInt(commission))
	require.NoError(t, err)
	require.NoError(t, NewGormStoreRepository(db).Save(context.Background(), store))
	return store
}

func seedProduct(t *testing.T, db *gorm.DB, store *catalog.Store, category string, price int64) *catalog.Product {
	t.Helper()
	product, err := catalog.NewProduct(store.ID, "Product "+uuid.NewString()[:6], category, decimal.NewFromInt(price))
	require.NoError(t, err)
	require.NoError(t, NewGormProductRepository(db).Save(context.Background(), product))
	return product
}

func newActivePromotion(t *testing.T, storeID uuid.UUID, scope promotion.Scope) *promotion.Promotion {
	t.Helper()
	p, err := promotion.NewPromotion(storeID, "Promo "+uuid.NewString()[:6], promotion.Discount{
		Type:  promotion.DiscountPercentage,
		Value: decimal.NewFromInt(10),
	}, scope, testNow.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.NoError(t, p.Activate())
	return p
}

func int64Ptr(v int64) *int64 {
	return &v
}
