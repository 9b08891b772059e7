// Package integration runs the marketplace against a real PostgreSQL started
// with testcontainers. The schema comes from the embedded migrations.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/promotion"
	"github.com/marketplace/backend/internal/domain/shipping"
	"github.com/marketplace/backend/internal/domain/tax"
	"github.com/marketplace/backend/internal/infrastructure/migration"
	"github.com/marketplace/backend/internal/infrastructure/persistence"
	"github.com/marketplace/backend/migrations"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// Shared container for all tests in the package
	sharedContainer    testcontainers.Container
	sharedContainerMu  sync.Mutex
	sharedContainerDSN string
)

// TestDB represents a test database connection
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	DSN   string
	t     *testing.T
}

// NewSharedTestDB returns a connection to the package's PostgreSQL container,
// starting it and applying migrations on first use. Tables are truncated so
// every test starts empty.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	ctx := context.Background()

	if sharedContainer == nil {
		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("marketplace_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("admin123"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		require.NoError(t, err, "Failed to start shared PostgreSQL container")

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err, "Failed to get connection string")

		runMigrations(t, dsn)

		sharedContainer = container
		sharedContainerDSN = dsn
	}

	db, sqlDB := connectToDatabase(t, sharedContainerDSN)

	testDB := &TestDB{
		DB:    db,
		SqlDB: sqlDB,
		DSN:   sharedContainerDSN,
		t:     t,
	}
	testDB.CleanTables()

	t.Cleanup(func() {
		_ = testDB.SqlDB.Close()
	})

	return testDB
}

// CleanTables truncates every application table
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename != 'schema_migrations'
	`).Scan(&tables).Error
	require.NoError(tdb.t, err, "Failed to get table names")

	for _, table := range tables {
		err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %q CASCADE", table)).Error
		require.NoError(tdb.t, err, "Failed to truncate table %s", table)
	}
}

// CreateStore saves an active store with the given commission percentage
func (tdb *TestDB) CreateStore(name string, commission string) *catalog.Store {
	tdb.t.Helper()

	store, err := catalog.NewStore(name, "Lahore", catalog.TierStandard, decimal.RequireFromString(commission))
	require.NoError(tdb.t, err)
	require.NoError(tdb.t, persistence.NewGormStoreRepository(tdb.DB).Save(context.Background(), store))
	return store
}

// CreateProduct saves an active product weighing weightKg
func (tdb *TestDB) CreateProduct(store *catalog.Store, name, category, price, weightKg string) *catalog.Product {
	tdb.t.Helper()

	product, err := catalog.NewProduct(store.ID, name, category, decimal.RequireFromString(price))
	require.NoError(tdb.t, err)
	product.WeightKg = decimal.RequireFromString(weightKg)
	require.NoError(tdb.t, persistence.NewGormProductRepository(tdb.DB).Save(context.Background(), product))
	return product
}

// SavePromotion activates and saves a promotion built by the caller
func (tdb *TestDB) SavePromotion(p *promotion.Promotion) *promotion.Promotion {
	tdb.t.Helper()

	if p.Status == promotion.StatusDraft {
		require.NoError(tdb.t, p.Activate())
	}
	require.NoError(tdb.t, persistence.NewGormPromotionRepository(tdb.DB).Save(context.Background(), p))
	return p
}

// CreateTaxRule saves an enabled tax rule
func (tdb *TestDB) CreateTaxRule(name, category, province, rate string, priority int) *tax.Rule {
	tdb.t.Helper()

	rule, err := tax.NewRule(name, category, province, decimal.RequireFromString(rate), priority)
	require.NoError(tdb.t, err)
	require.NoError(tdb.t, persistence.NewGormTaxRuleRepository(tdb.DB).Save(context.Background(), rule))
	return rule
}

// CreateShippingRule saves an enabled flat rate rule for zone and method
func (tdb *TestDB) CreateShippingRule(zone, method, maxKg, base, perKg string) *shipping.RateRule {
	tdb.t.Helper()

	rule, err := shipping.NewRateRule("TCS", method, zone, decimal.Zero,
		decimal.RequireFromString(maxKg), decimal.RequireFromString(base), decimal.RequireFromString(perKg))
	require.NoError(tdb.t, err)
	require.NoError(tdb.t, persistence.NewGormShippingRuleRepository(tdb.DB).Save(context.Background(), rule))
	return rule
}

// UsageCount returns the recorded uses of a promotion, globally for uuid.Nil
func (tdb *TestDB) UsageCount(promotionID, buyerID uuid.UUID) int64 {
	tdb.t.Helper()

	var count int64
	err := tdb.DB.Raw(`SELECT COALESCE(MAX(used_count), 0) FROM promotion_usages WHERE promotion_id = ? AND buyer_id = ?`,
		promotionID, buyerID).Scan(&count).Error
	require.NoError(tdb.t, err)
	return count
}

// connectToDatabase establishes a GORM connection to the database
func connectToDatabase(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	// Enable debug logging if TEST_DB_DEBUG is set
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), gormConfig)
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")

	// Concurrency tests need more than a handful of connections
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, sqlDB
}

// runMigrations applies the embedded migrations over a dedicated connection,
// which the migrator closes when done.
func runMigrations(t *testing.T, dsn string) {
	t.Helper()

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err, "Failed to open migration connection")

	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	defer func() {
		_ = m.Close()
	}()

	require.NoError(t, m.Up(), "Failed to run migrations")
}

// CleanupSharedContainer terminates the shared container.
// Call it from TestMain after the package's tests ran.
func CleanupSharedContainer() {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = sharedContainer.Terminate(ctx)
		sharedContainer = nil
		sharedContainerDSN = ""
	}
}
