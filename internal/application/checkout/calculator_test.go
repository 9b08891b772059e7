package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/promotion"
	"github.com/marketplace/backend/internal/domain/shipping"
	"github.com/marketplace/backend/internal/domain/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	products  *MockProductRepository
	stores    *MockStoreRepository
	promos    *MockPromotionRepository
	taxes     *MockTaxRuleRepository
	shipRules *MockShippingRuleRepository
	usage     *MockUsageLedger
	calc      *PriceCalculator
}

func defaultSettings() Settings {
	return Settings{TaxEnabled: true, ShippingEnabled: true, Currency: "PKR", DefaultZone: "PK", DefaultMethod: "standard"}
}

func newFixture(settings Settings) *fixture {
	f := &fixture{
		products:  new(MockProductRepository),
		stores:    new(MockStoreRepository),
		promos:    new(MockPromotionRepository),
		taxes:     new(MockTaxRuleRepository),
		shipRules: new(MockShippingRuleRepository),
		usage:     new(MockUsageLedger),
	}
	f.calc = NewPriceCalculator(Repositories{
		Products:      f.products,
		Stores:        f.stores,
		Promotions:    f.promos,
		TaxRules:      f.taxes,
		ShippingRules: f.shipRules,
		Usage:         f.usage,
	}, settings, nil)
	f.calc.SetClock(func() time.Time { return testNow })
	return f
}

func newStore(t *testing.T, commission string) *catalog.Store {
	t.Helper()
	s, err := catalog.NewStore("store", "Lahore", catalog.TierStandard, dec(commission))
	require.NoError(t, err)
	return s
}

func newProduct(t *testing.T, store *catalog.Store, price string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(store.ID, "product", "groceries", dec(price))
	require.NoError(t, err)
	p.WeightKg = dec("1")
	return p
}

func newPromotion(t *testing.T, store *catalog.Store, d promotion.Discount, priority int, stackable bool) *promotion.Promotion {
	t.Helper()
	p, err := promotion.NewPromotion(store.ID, "promo", d, promotion.ScopeAll(), testNow.Add(-time.Hour))
	require.NoError(t, err)
	require.NoError(t, p.Activate())
	p.Priority = priority
	p.Stackable = stackable
	return p
}

func flatShipping(t *testing.T, cost string) shipping.RateRule {
	t.Helper()
	r, err := shipping.NewRateRule("TCS", "standard", "PK", dec("0"), dec("100"), dec(cost), dec("0"))
	require.NoError(t, err)
	return *r
}

func flatTax(t *testing.T, rate string) tax.Rule {
	t.Helper()
	r, err := tax.NewRule("gst", "", "", dec(rate), 0)
	require.NoError(t, err)
	return *r
}

func (f *fixture) withCatalog(products []catalog.Product, stores []catalog.Store) {
	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return(products, nil)
	f.stores.On("FindByIDs", mock.Anything, mock.Anything).Return(stores, nil)
}

func (f *fixture) withRules(promos []promotion.Promotion, taxes []tax.Rule, ships []shipping.RateRule) {
	f.promos.On("FindActiveByStoreIDs", mock.Anything, mock.Anything).Return(promos, nil)
	f.taxes.On("FindEnabled", mock.Anything).Return(taxes, nil)
	f.shipRules.On("FindEnabledForZone", mock.Anything, "PK").Return(ships, nil)
}

var domestic = ShippingContext{Zone: "PK", Method: "standard", Province: "Punjab"}

func TestPriceCalculator_EndToEndExample(t *testing.T) {
	f := newFixture(defaultSettings())
	store := newStore(t, "10")
	product := newProduct(t, store, "500")
	promo := newPromotion(t, store, promotion.Discount{Type: promotion.DiscountPercentage, Value: dec("10")}, 1, false)

	f.withCatalog([]catalog.Product{*product}, []catalog.Store{*store})
	f.withRules([]promotion.Promotion{*promo}, []tax.Rule{flatTax(t, "5")}, []shipping.RateRule{flatShipping(t, "150")})

	b, err := f.calc.Calculate(context.Background(), []CartItem{{ProductID: product.ID, StoreID: store.ID, Quantity: 2}}, domestic, BuyerContext{BuyerID: uuid.New()})
	require.NoError(t, err)

	assert.Equal(t, "900.00", b.Subtotal.StringFixed(2))
	assert.Equal(t, "45.00", b.Taxes.StringFixed(2))
	assert.Equal(t, "150.00", b.Shipping.StringFixed(2))
	assert.Equal(t, "1095.00", b.Total.StringFixed(2))
	require.Len(t, b.Lines, 1)
	assert.Equal(t, "450.00", b.Lines[0].DiscountedUnitPrice.StringFixed(2))
	assert.Equal(t, []uuid.UUID{promo.ID}, b.Lines[0].AppliedPromotionIDs)
	assert.Empty(t, b.Warnings)
	assert.Equal(t, []uuid.UUID{promo.ID}, b.AppliedPromotionIDs())

	f.usage.AssertNotCalled(t, "Snapshot", mock.Anything, mock.Anything, mock.Anything)
}

func TestPriceCalculator_TotalIdentityAndIdempotence(t *testing.T) {
	f := newFixture(defaultSettings())
	storeA, storeB := newStore(t, "10"), newStore(t, "5")
	pA := newProduct(t, storeA, "333.33")
	pB := newProduct(t, storeB, "19.99")
	promo := newPromotion(t, storeA, promotion.Discount{Type: promotion.DiscountPercentage, Value: dec("7")}, 1, false)

	f.withCatalog([]catalog.Product{*pA, *pB}, []catalog.Store{*storeA, *storeB})
	f.withRules([]promotion.Promotion{*promo}, []tax.Rule{flatTax(t, "17")}, []shipping.RateRule{flatShipping(t, "99.5")})

	items := []CartItem{{ProductID: pA.ID, Quantity: 3}, {ProductID: pB.ID, Quantity: 7}}
	first, err := f.calc.Calculate(context.Background(), items, domestic, BuyerContext{})
	require.NoError(t, err)
	second, err := f.calc.Calculate(context.Background(), items, domestic, BuyerContext{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, first.Total.Equal(first.Subtotal.Add(first.Taxes).Add(first.Shipping).Round(2)))
	assert.False(t, first.Total.IsNegative())
	require.Len(t, first.Stores, 2)
	assert.Equal(t, storeA.ID, first.Stores[0].StoreID)
	assert.Equal(t, "199.00", first.Shipping.StringFixed(2))
}

func TestPriceCalculator_DropsBadLinesWithWarnings(t *testing.T) {
	f := newFixture(defaultSettings())
	store := newStore(t, "10")
	good := newProduct(t, store, "100")
	inactive := newProduct(t, store, "100")
	inactive.Deactivate()
	unknown := uuid.New()

	f.withCatalog([]catalog.Product{*good, *inactive}, []catalog.Store{*store})
	f.withRules(nil, nil, nil)

	items := []CartItem{
		{ProductID: good.ID, Quantity: 0},
		{ProductID: unknown, Quantity: 1},
		{ProductID: inactive.ID, Quantity: 1},
		{ProductID: good.ID, StoreID: uuid.New(), Quantity: 1},
		{ProductID: good.ID, Quantity: 2},
	}
	b, err := f.calc.Calculate(context.Background(), items, domestic, BuyerContext{})
	require.NoError(t, err)

	require.Len(t, b.Lines, 1)
	assert.Equal(t, 2, b.Lines[0].Quantity)
	assert.Len(t, b.Warnings, 4)
	assert.Contains(t, b.Warnings[0], "quantity")
	assert.Equal(t, "200.00", b.Total.StringFixed(2))
}

func TestPriceCalculator_SuspendedStore(t *testing.T) {
	f := newFixture(defaultSettings())
	store := newStore(t, "10")
	store.Suspend()
	product := newProduct(t, store, "100")

	f.withCatalog([]catalog.Product{*product}, []catalog.Store{*store})

	b, err := f.calc.Calculate(context.Background(), []CartItem{{ProductID: product.ID, Quantity: 1}}, domestic, BuyerContext{})
	require.NoError(t, err)
	assert.True(t, b.IsEmpty())
	assert.Len(t, b.Warnings, 1)
	f.promos.AssertNotCalled(t, "FindActiveByStoreIDs", mock.Anything, mock.Anything)
}

func TestPriceCalculator_AllInvalidSkipsRepositories(t *testing.T) {
	f := newFixture(defaultSettings())
	b, err := f.calc.Calculate(context.Background(), []CartItem{{Quantity: 1}}, domestic, BuyerContext{})
	require.NoError(t, err)
	assert.True(t, b.IsEmpty())
	assert.Equal(t, "0.00", b.Total.StringFixed(2))
	f.products.AssertNotCalled(t, "FindByIDs", mock.Anything, mock.Anything)
}

func TestPriceCalculator_PlatformSwitches(t *testing.T) {
	settings := defaultSettings()
	settings.TaxEnabled = false
	settings.ShippingEnabled = false
	f := newFixture(settings)
	store := newStore(t, "10")
	product := newProduct(t, store, "500")

	f.withCatalog([]catalog.Product{*product}, []catalog.Store{*store})
	f.promos.On("FindActiveByStoreIDs", mock.Anything, mock.Anything).Return([]promotion.Promotion{}, nil)

	b, err := f.calc.Calculate(context.Background(), []CartItem{{ProductID: product.ID, Quantity: 1}}, domestic, BuyerContext{})
	require.NoError(t, err)
	assert.True(t, b.Taxes.IsZero())
	assert.True(t, b.Shipping.IsZero())
	f.taxes.AssertNotCalled(t, "FindEnabled", mock.Anything)
	f.shipRules.AssertNotCalled(t, "FindEnabledForZone", mock.Anything, mock.Anything)
}

func TestPriceCalculator_Exemptions(t *testing.T) {
	f := newFixture(defaultSettings())
	store := newStore(t, "10")
	exempt := newProduct(t, store, "100")
	exempt.TaxExempt = true
	taxed := newProduct(t, store, "100")

	f.withCatalog([]catalog.Product{*exempt, *taxed}, []catalog.Store{*store})
	f.withRules(nil, []tax.Rule{flatTax(t, "5")}, nil)

	items := []CartItem{{ProductID: exempt.ID, Quantity: 1}, {ProductID: taxed.ID, Quantity: 1}}

	b, err := f.calc.Calculate(context.Background(), items, domestic, BuyerContext{})
	require.NoError(t, err)
	assert.True(t, b.Lines[0].Tax.IsZero())
	assert.Equal(t, "5.00", b.Lines[1].Tax.StringFixed(2))

	b, err = f.calc.Calculate(context.Background(), items, domestic, BuyerContext{TaxExempt: true})
	require.NoError(t, err)
	assert.True(t, b.Taxes.IsZero())
}

func TestPriceCalculator_FreeShippingPromotion(t *testing.T) {
	f := newFixture(defaultSettings())
	store := newStore(t, "10")
	product := newProduct(t, store, "100")
	promo := newPromotion(t, store, promotion.Discount{Type: promotion.DiscountFreeShipping}, 1, false)

	f.withCatalog([]catalog.Product{*product}, []catalog.Store{*store})
	f.withRules([]promotion.Promotion{*promo}, nil, []shipping.RateRule{flatShipping(t, "150")})

	b, err := f.calc.Calculate(context.Background(), []CartItem{{ProductID: product.ID, Quantity: 1}}, ShippingContext{}, BuyerContext{})
	require.NoError(t, err)
	require.Len(t, b.Stores, 1)
	assert.True(t, b.Stores[0].FreeShipping)
	assert.Equal(t, "150.00", b.Stores[0].ShippingBeforeDiscount.StringFixed(2))
	assert.True(t, b.Shipping.IsZero())
	assert.Equal(t, "100.00", b.Total.StringFixed(2))
}

func TestPriceCalculator_UsageSnapshotForLimitedPromotions(t *testing.T) {
	f := newFixture(defaultSettings())
	store := newStore(t, "10")
	product := newProduct(t, store, "100")
	promo := newPromotion(t, store, promotion.Discount{Type: promotion.DiscountPercentage, Value: dec("10")}, 1, false)
	one := int64(1)
	promo.UsageLimitPerUser = &one
	buyer := uuid.New()

	f.withCatalog([]catalog.Product{*product}, []catalog.Store{*store})
	f.withRules([]promotion.Promotion{*promo}, nil, nil)
	usage := promotion.NewUsageSnapshot()
	usage.SetBuyer(promo.ID, 1)
	f.usage.On("Snapshot", mock.Anything, []uuid.UUID{promo.ID}, buyer).Return(usage, nil)

	b, err := f.calc.Calculate(context.Background(), []CartItem{{ProductID: product.ID, Quantity: 1}}, domestic, BuyerContext{BuyerID: buyer})
	require.NoError(t, err)
	assert.Empty(t, b.Lines[0].AppliedPromotionIDs)
	assert.Equal(t, "100.00", b.Subtotal.StringFixed(2))
	f.usage.AssertExpectations(t)
}

func TestPriceCalculator_RepositoryErrors(t *testing.T) {
	t.Run("products", func(t *testing.T) {
		f := newFixture(defaultSettings())
		f.products.On("FindByIDs", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
		_, err := f.calc.Calculate(context.Background(), []CartItem{{ProductID: uuid.New(), Quantity: 1}}, domestic, BuyerContext{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load products")
	})

	t.Run("tax rules", func(t *testing.T) {
		f := newFixture(defaultSettings())
		store := newStore(t, "10")
		product := newProduct(t, store, "100")
		f.withCatalog([]catalog.Product{*product}, []catalog.Store{*store})
		f.promos.On("FindActiveByStoreIDs", mock.Anything, mock.Anything).Return([]promotion.Promotion{}, nil)
		f.taxes.On("FindEnabled", mock.Anything).Return(nil, errors.New("timeout"))

		_, err := f.calc.Calculate(context.Background(), []CartItem{{ProductID: product.ID, Quantity: 1}}, domestic, BuyerContext{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load tax rules")
	})
}
