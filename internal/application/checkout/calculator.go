package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/promotion"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/marketplace/backend/internal/domain/shipping"
	"github.com/marketplace/backend/internal/domain/tax"
	"github.com/marketplace/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Repositories are the read models the calculator prices against
type Repositories struct {
	Products      catalog.ProductRepository
	Stores        catalog.StoreRepository
	Promotions    promotion.Repository
	TaxRules      tax.RuleRepository
	ShippingRules shipping.RuleRepository
	Usage         promotion.UsageLedger
}

// Settings are the platform switches that shape every price
type Settings struct {
	TaxEnabled      bool
	ShippingEnabled bool
	Currency        valueobject.Currency
	DefaultZone     string
	DefaultMethod   string
}

// PriceCalculator turns a cart into a PriceBreakdown. It never writes.
type PriceCalculator struct {
	repos    Repositories
	settings Settings
	resolver *promotion.Resolver
	validate *validator.Validate
	now      func() time.Time
	logger   *zap.Logger
	metrics  *telemetry.CheckoutMetrics
}

// NewPriceCalculator creates a new PriceCalculator
func NewPriceCalculator(repos Repositories, settings Settings, logger *zap.Logger) *PriceCalculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.Currency == "" {
		settings.Currency = valueobject.DefaultCurrency
	}
	return &PriceCalculator{
		repos:    repos,
		settings: settings,
		resolver: promotion.NewResolver(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock replaces the time source used for promotion windows
func (c *PriceCalculator) SetClock(now func() time.Time) {
	c.now = now
}

// SetCheckoutMetrics sets the checkout metrics recorder
func (c *PriceCalculator) SetCheckoutMetrics(m *telemetry.CheckoutMetrics) {
	c.metrics = m
}

// Calculate prices the cart. Invalid or unknown lines are dropped with a warning;
// only repository failures return an error.
func (c *PriceCalculator) Calculate(ctx context.Context, items []CartItem, ship ShippingContext, buyer BuyerContext) (*PriceBreakdown, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "calculate",
		attribute.Int("items_count", len(items)))
	defer span.End()

	snap, err := c.load(ctx, items, ship, buyer)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	breakdown := c.price(snap, nil)

	span.SetAttributes(
		attribute.Int("stores_count", len(breakdown.Stores)),
		attribute.Int("warnings_count", len(breakdown.Warnings)),
		attribute.String("total", breakdown.Total.String()),
	)
	if c.metrics != nil {
		c.metrics.RecordPreview(ctx, buyer.CustomerGroup, len(breakdown.Warnings))
	}
	return breakdown, nil
}

// groupLine is a validated cart line bound to its product
type groupLine struct {
	product  *catalog.Product
	quantity int
}

// storeGroup holds the lines of one store in cart order
type storeGroup struct {
	store      *catalog.Store
	lines      []groupLine
	promotions []promotion.Promotion
}

// snapshot is everything read from storage for one pricing run
type snapshot struct {
	groups        []*storeGroup
	warnings      []string
	taxRules      []tax.Rule
	shippingRules []shipping.RateRule
	usage         promotion.UsageSnapshot
	promotions    map[uuid.UUID]*promotion.Promotion
	ship          ShippingContext
	buyer         BuyerContext
	now           time.Time
}

// load validates the cart and performs one batched read per table
func (c *PriceCalculator) load(ctx context.Context, items []CartItem, ship ShippingContext, buyer BuyerContext) (*snapshot, error) {
	snap := &snapshot{
		usage:      promotion.NewUsageSnapshot(),
		promotions: make(map[uuid.UUID]*promotion.Promotion),
		ship:       c.withDefaults(ship),
		buyer:      buyer,
		now:        c.now(),
	}

	valid := make([]CartItem, 0, len(items))
	productIDs := make([]uuid.UUID, 0, len(items))
	seenProduct := make(map[uuid.UUID]bool)
	for i, item := range items {
		if err := c.validate.Struct(item); err != nil {
			snap.warn(fmt.Sprintf("item %d: invalid line: %s", i, describeValidation(err)))
			continue
		}
		valid = append(valid, item)
		if !seenProduct[item.ProductID] {
			seenProduct[item.ProductID] = true
			productIDs = append(productIDs, item.ProductID)
		}
	}
	if len(valid) == 0 {
		return snap, nil
	}

	products, err := c.repos.Products.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	productByID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		productByID[products[i].ID] = &products[i]
	}

	type bound struct {
		product *catalog.Product
		item    CartItem
	}
	lines := make([]bound, 0, len(valid))
	storeIDs := make([]uuid.UUID, 0)
	seenStore := make(map[uuid.UUID]bool)
	for _, item := range valid {
		p, ok := productByID[item.ProductID]
		switch {
		case !ok:
			snap.warn(fmt.Sprintf("product %s not found", item.ProductID))
			continue
		case !p.IsActive():
			snap.warn(fmt.Sprintf("product %s is not available", item.ProductID))
			continue
		case item.StoreID != uuid.Nil && item.StoreID != p.StoreID:
			snap.warn(fmt.Sprintf("product %s does not belong to store %s", item.ProductID, item.StoreID))
			continue
		}
		lines = append(lines, bound{product: p, item: item})
		if !seenStore[p.StoreID] {
			seenStore[p.StoreID] = true
			storeIDs = append(storeIDs, p.StoreID)
		}
	}
	if len(lines) == 0 {
		return snap, nil
	}

	stores, err := c.repos.Stores.FindByIDs(ctx, storeIDs)
	if err != nil {
		return nil, fmt.Errorf("load stores: %w", err)
	}
	storeByID := make(map[uuid.UUID]*catalog.Store, len(stores))
	for i := range stores {
		storeByID[stores[i].ID] = &stores[i]
	}

	groupByStore := make(map[uuid.UUID]*storeGroup)
	activeStoreIDs := make([]uuid.UUID, 0, len(storeIDs))
	for _, l := range lines {
		st, ok := storeByID[l.product.StoreID]
		if !ok || !st.IsActive() {
			snap.warn(fmt.Sprintf("store %s is not available for product %s", l.product.StoreID, l.product.ID))
			continue
		}
		g, ok := groupByStore[st.ID]
		if !ok {
			g = &storeGroup{store: st}
			groupByStore[st.ID] = g
			snap.groups = append(snap.groups, g)
			activeStoreIDs = append(activeStoreIDs, st.ID)
		}
		g.lines = append(g.lines, groupLine{product: l.product, quantity: l.item.Quantity})
	}
	if len(snap.groups) == 0 {
		return snap, nil
	}

	promos, err := c.repos.Promotions.FindActiveByStoreIDs(ctx, activeStoreIDs)
	if err != nil {
		return nil, fmt.Errorf("load promotions: %w", err)
	}
	limited := make([]uuid.UUID, 0)
	for _, p := range promos {
		g, ok := groupByStore[p.StoreID]
		if !ok {
			continue
		}
		g.promotions = append(g.promotions, p)
	}
	for _, g := range snap.groups {
		for i := range g.promotions {
			p := &g.promotions[i]
			snap.promotions[p.ID] = p
			if p.HasUsageLimits() {
				limited = append(limited, p.ID)
			}
		}
	}

	if len(limited) > 0 {
		snap.usage, err = c.repos.Usage.Snapshot(ctx, limited, buyer.BuyerID)
		if err != nil {
			return nil, fmt.Errorf("load promotion usage: %w", err)
		}
	}

	if c.settings.TaxEnabled {
		snap.taxRules, err = c.repos.TaxRules.FindEnabled(ctx)
		if err != nil {
			return nil, fmt.Errorf("load tax rules: %w", err)
		}
	}
	if c.settings.ShippingEnabled {
		snap.shippingRules, err = c.repos.ShippingRules.FindEnabledForZone(ctx, snap.ship.Zone)
		if err != nil {
			return nil, fmt.Errorf("load shipping rules: %w", err)
		}
	}
	return snap, nil
}

// price runs the resolvers over a snapshot. restrict, when non-nil, limits the
// promotions that may apply. It is deterministic for a given snapshot.
func (c *PriceCalculator) price(snap *snapshot, restrict map[uuid.UUID]struct{}) *PriceBreakdown {
	b := &PriceBreakdown{
		Subtotal: decimal.Zero,
		Taxes:    decimal.Zero,
		Shipping: decimal.Zero,
		Total:    decimal.Zero,
		Currency: c.settings.Currency,
		Warnings: append([]string(nil), snap.warnings...),
	}
	taxer := tax.NewResolver(c.settings.TaxEnabled, snap.taxRules)
	shipper := shipping.NewResolver(c.settings.ShippingEnabled, snap.shippingRules)
	buyer := promotion.Buyer{
		ID:            snap.buyer.BuyerID,
		CustomerGroup: snap.buyer.CustomerGroup,
		FirstOrder:    snap.buyer.FirstOrder,
	}

	for _, g := range snap.groups {
		in := promotion.Input{
			Lines:      make([]promotion.Line, len(g.lines)),
			Promotions: g.promotions,
			Buyer:      buyer,
			Usage:      snap.usage,
			Now:        snap.now,
			Restrict:   restrict,
		}
		parcels := make([]shipping.Parcel, len(g.lines))
		for i, l := range g.lines {
			in.Lines[i] = promotion.Line{
				ProductID: l.product.ID,
				Category:  l.product.Category,
				Quantity:  l.quantity,
				UnitPrice: l.product.Price,
			}
			parcels[i] = shipping.Parcel{
				WeightKg:   l.product.WeightKg,
				Dimensions: l.product.Dimensions,
				Quantity:   l.quantity,
			}
		}
		res := c.resolver.Resolve(in)

		summary := StoreSummary{
			StoreID:             g.store.ID,
			Subtotal:            decimal.Zero,
			Tax:                 decimal.Zero,
			FreeShipping:        res.FreeShipping,
			AppliedPromotionIDs: res.AppliedPromotionIDs,
			CommissionRate:      g.store.CommissionRate,
		}
		for i, lr := range res.Lines {
			p := g.lines[i].product
			lineTotal := valueobject.RoundMoney(lr.DiscountedUnitPrice.Mul(decimal.NewFromInt(int64(lr.Quantity))))
			lineTax := taxer.Tax(tax.Query{
				Category:      p.Category,
				Province:      snap.ship.Province,
				ProductExempt: p.TaxExempt,
				BuyerExempt:   snap.buyer.TaxExempt,
				Amount:        lineTotal,
			})
			b.Lines = append(b.Lines, PricedLine{
				ProductID:           p.ID,
				StoreID:             g.store.ID,
				Quantity:            lr.Quantity,
				UnitPrice:           lr.UnitPrice,
				DiscountedUnitPrice: lr.DiscountedUnitPrice,
				LineTotal:           lineTotal,
				Tax:                 lineTax,
				AppliedPromotionIDs: lr.AppliedPromotionIDs,
			})
			summary.Subtotal = summary.Subtotal.Add(lineTotal)
			summary.Tax = summary.Tax.Add(lineTax)
		}

		quote := shipper.Quote(shipping.Destination{Zone: snap.ship.Zone, Method: snap.ship.Method}, parcels)
		if c.settings.ShippingEnabled && !quote.Matched() {
			c.logger.Debug("no shipping rule matched",
				zap.String("store_id", g.store.ID.String()),
				zap.String("zone", snap.ship.Zone),
				zap.String("method", snap.ship.Method),
				zap.String("billable_weight", quote.BillableWeight.String()),
			)
		}
		summary.ShippingBeforeDiscount = quote.Cost
		summary.Shipping = res.ApplyShipping(quote.Cost)

		for _, gift := range res.Gifts {
			b.Gifts = append(b.Gifts, GiftLine{
				StoreID:     g.store.ID,
				ProductID:   gift.ProductID,
				PromotionID: gift.PromotionID,
				Quantity:    gift.Quantity,
			})
		}

		b.Stores = append(b.Stores, summary)
		b.Subtotal = b.Subtotal.Add(summary.Subtotal)
		b.Taxes = b.Taxes.Add(summary.Tax)
		b.Shipping = b.Shipping.Add(summary.Shipping)
	}

	b.Total = valueobject.RoundMoney(valueobject.NonNegative(b.Subtotal.Add(b.Taxes).Add(b.Shipping)))
	if len(b.Warnings) > 0 {
		c.logger.Debug("cart lines dropped", zap.Strings("warnings", b.Warnings))
	}
	return b
}

func (c *PriceCalculator) withDefaults(ship ShippingContext) ShippingContext {
	if strings.TrimSpace(ship.Zone) == "" {
		ship.Zone = c.settings.DefaultZone
	}
	if strings.TrimSpace(ship.Method) == "" {
		ship.Method = c.settings.DefaultMethod
	}
	return ship
}

func (s *snapshot) warn(msg string) {
	s.warnings = append(s.warnings, msg)
}

// describeValidation flattens validator errors into "field: tag" pairs
func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
