package persistence

import (
	"context"
	"testing"

	"github.com/marketplace/backend/internal/domain/shipping"
	"github.com/marketplace/backend/internal/domain/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTaxRuleRepository_FindEnabled(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormTaxRuleRepository(db)
	ctx := context.Background()

	gst, err := tax.NewRule("gst", "", "", decimal.NewFromInt(17), 0)
	require.NoError(t, err)
	punjab, err := tax.NewRule("punjab-apparel", "Apparel", "Punjab", decimal.NewFromInt(5), 10)
	require.NoError(t, err)
	books := tax.NewExemptRule("books", "books", "", 20)
	disabled, err := tax.NewRule("old", "", "", decimal.NewFromInt(20), 99)
	require.NoError(t, err)
	disabled.Enabled = false

	for _, r := range []*tax.Rule{gst, punjab, books, disabled} {
		require.NoError(t, repo.Save(ctx, r))
	}

	rules, err := repo.FindEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "books", rules[0].Name)
	assert.True(t, rules[0].Exempt)
	assert.Equal(t, "punjab-apparel", rules[1].Name)
	assert.Equal(t, "apparel", rules[1].Category)
	assert.Equal(t, "punjab", rules[1].Province)
	assert.True(t, decimal.NewFromInt(5).Equal(rules[1].Rate))
	assert.Equal(t, "gst", rules[2].Name)
}

func TestGormShippingRuleRepository_FindEnabledForZone(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormShippingRuleRepository(db)
	ctx := context.Background()

	light, err := shipping.NewRateRule("TCS", "standard", "PK", decimal.Zero, decimal.NewFromInt(5), decimal.NewFromInt(150), decimal.NewFromInt(30))
	require.NoError(t, err)
	factor := decimal.NewFromInt(5000)
	light.DimensionalFactor = &factor
	light.Surcharge = decimal.NewFromInt(10)

	heavy, err := shipping.NewRateRule("Leopards", "standard", "pk", decimal.NewFromInt(5), decimal.NewFromInt(50), decimal.NewFromInt(400), decimal.NewFromInt(20))
	require.NoError(t, err)
	heavy.Priority = 3

	offZone, err := shipping.NewRateRule("DHL", "express", "AE", decimal.Zero, decimal.NewFromInt(50), decimal.NewFromInt(2000), decimal.Zero)
	require.NoError(t, err)

	disabled, err := shipping.NewRateRule("TCS", "overnight", "PK", decimal.Zero, decimal.NewFromInt(50), decimal.NewFromInt(900), decimal.Zero)
	require.NoError(t, err)
	disabled.Enabled = false

	for _, r := range []*shipping.RateRule{light, heavy, offZone, disabled} {
		require.NoError(t, repo.Save(ctx, r))
	}

	rules, err := repo.FindEnabledForZone(ctx, " Pk ")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "Leopards", rules[0].Carrier)
	assert.Nil(t, rules[0].DimensionalFactor)

	assert.Equal(t, "TCS", rules[1].Carrier)
	require.NotNil(t, rules[1].DimensionalFactor)
	assert.True(t, factor.Equal(*rules[1].DimensionalFactor))
	assert.True(t, decimal.NewFromInt(10).Equal(rules[1].Surcharge))
	assert.True(t, decimal.NewFromInt(5).Equal(rules[1].MaxWeightKg))
}

func TestGormTaxRuleRepository_DisabledRuleIsNeverPriced(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormTaxRuleRepository(db)
	ctx := context.Background()

	retired, err := tax.NewRule("retired", "", "", decimal.NewFromInt(20), 99)
	require.NoError(t, err)
	retired.Enabled = false
	require.NoError(t, repo.Save(ctx, retired))

	var stored bool
	require.NoError(t, db.Table("tax_rules").Select("enabled").Where("id = ?", retired.ID).Scan(&stored).Error)
	assert.False(t, stored, "a disabled rule is stored disabled")

	rules, err := repo.FindEnabled(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
	assert.True(t, tax.NewResolver(true, rules).Tax(tax.Query{Amount: decimal.NewFromInt(1000)}).IsZero())

	// re-enabling goes through the update path
	retired.Enabled = true
	require.NoError(t, repo.Save(ctx, retired))
	rules, err = repo.FindEnabled(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestGormShippingRuleRepository_DisabledRuleIsNeverQuoted(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormShippingRuleRepository(db)
	ctx := context.Background()

	paused, err := shipping.NewRateRule("TCS", "standard", "domestic", decimal.Zero, decimal.NewFromInt(30), decimal.NewFromInt(200), decimal.Zero)
	require.NoError(t, err)
	paused.Enabled = false
	require.NoError(t, repo.Save(ctx, paused))

	rules, err := repo.FindEnabledForZone(ctx, "domestic")
	require.NoError(t, err)
	assert.Empty(t, rules)
}
