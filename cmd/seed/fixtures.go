package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/promotion"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/marketplace/backend/internal/domain/shipping"
	"github.com/marketplace/backend/internal/domain/tax"
	"github.com/marketplace/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixtures is the YAML document accepted by the seeder. Decimal fields are
// strings so amounts keep their exact scale.
type Fixtures struct {
	Stores        []StoreFixture        `yaml:"stores"`
	TaxRules      []TaxRuleFixture      `yaml:"tax_rules"`
	ShippingRules []ShippingRuleFixture `yaml:"shipping_rules"`
}

type StoreFixture struct {
	Name       string             `yaml:"name"`
	District   string             `yaml:"district"`
	Tier       string             `yaml:"tier"`
	Commission string             `yaml:"commission"`
	Products   []ProductFixture   `yaml:"products"`
	Promotions []PromotionFixture `yaml:"promotions"`
}

type ProductFixture struct {
	Name       string             `yaml:"name"`
	Category   string             `yaml:"category"`
	Price      string             `yaml:"price"`
	WeightKg   string             `yaml:"weight_kg"`
	Dimensions *DimensionsFixture `yaml:"dimensions"`
	TaxExempt  bool               `yaml:"tax_exempt"`
}

type DimensionsFixture struct {
	Length string `yaml:"length"`
	Width  string `yaml:"width"`
	Height string `yaml:"height"`
}

type PromotionFixture struct {
	Name              string            `yaml:"name"`
	Discount          DiscountFixture   `yaml:"discount"`
	Products          []string          `yaml:"products"`
	Categories        []string          `yaml:"categories"`
	StartAt           *time.Time        `yaml:"start_at"`
	EndAt             *time.Time        `yaml:"end_at"`
	Status            string            `yaml:"status"`
	Priority          int               `yaml:"priority"`
	Stackable         bool              `yaml:"stackable"`
	UsageLimit        *int64            `yaml:"usage_limit"`
	UsageLimitPerUser *int64            `yaml:"usage_limit_per_user"`
	Rules             []RuleFixture     `yaml:"rules"`
	Actions           []ActionFixture   `yaml:"actions"`
	Overrides         []OverrideFixture `yaml:"overrides"`
}

type DiscountFixture struct {
	Type        string `yaml:"type"`
	Value       string `yaml:"value"`
	MinQuantity int    `yaml:"min_quantity"`
}

type RuleFixture struct {
	Type     string `yaml:"type"`
	Operator string `yaml:"operator"`
	Value    string `yaml:"value"`
}

type ActionFixture struct {
	Type         string `yaml:"type"`
	Target       string `yaml:"target"`
	Value        string `yaml:"value"`
	GiftProduct  string `yaml:"gift_product"`
	GiftQuantity int    `yaml:"gift_quantity"`
}

type OverrideFixture struct {
	Product       string        `yaml:"product"`
	OverridePrice string        `yaml:"override_price"`
	MaxQuantity   *int          `yaml:"max_quantity"`
	Rules         []RuleFixture `yaml:"rules"`
}

type TaxRuleFixture struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Province string `yaml:"province"`
	Rate     string `yaml:"rate"`
	Exempt   bool   `yaml:"exempt"`
	Priority int    `yaml:"priority"`
}

type ShippingRuleFixture struct {
	Carrier           string `yaml:"carrier"`
	Method            string `yaml:"method"`
	Zone              string `yaml:"zone"`
	MinWeightKg       string `yaml:"min_weight_kg"`
	MaxWeightKg       string `yaml:"max_weight_kg"`
	BaseRate          string `yaml:"base_rate"`
	PerKgRate         string `yaml:"per_kg_rate"`
	DimensionalFactor string `yaml:"dimensional_factor"`
	Surcharge         string `yaml:"surcharge"`
	Priority          int    `yaml:"priority"`
}

// Plan is the set of aggregates built from a fixture document, ready to save
type Plan struct {
	Stores        []*catalog.Store
	Products      []*catalog.Product
	Promotions    []*promotion.Promotion
	TaxRules      []*tax.Rule
	ShippingRules []*shipping.RateRule
}

// ParseFixtures decodes a fixture document. Unknown keys are rejected so
// typos in hand-written fixtures fail loudly.
func ParseFixtures(data []byte) (*Fixtures, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Fixtures
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return &f, nil
}

// Build turns fixtures into domain aggregates. Promotions without a start
// time start at now; promotions without a status are activated.
func (f *Fixtures) Build(now time.Time) (*Plan, error) {
	plan := &Plan{}
	storeNames := make(map[string]struct{}, len(f.Stores))

	for _, sf := range f.Stores {
		if _, dup := storeNames[sf.Name]; dup {
			return nil, fmt.Errorf("store %q: duplicate name", sf.Name)
		}
		storeNames[sf.Name] = struct{}{}

		commission, err := parseDecimal("commission", sf.Commission)
		if err != nil {
			return nil, fmt.Errorf("store %q: %w", sf.Name, err)
		}
		store, err := catalog.NewStore(sf.Name, sf.District, catalog.SubscriptionTier(sf.Tier), commission)
		if err != nil {
			return nil, fmt.Errorf("store %q: %w", sf.Name, err)
		}
		plan.Stores = append(plan.Stores, store)

		products := make(map[string]uuid.UUID, len(sf.Products))
		for _, pf := range sf.Products {
			product, err := pf.build(store.ID)
			if err != nil {
				return nil, fmt.Errorf("store %q product %q: %w", sf.Name, pf.Name, err)
			}
			if _, dup := products[pf.Name]; dup {
				return nil, fmt.Errorf("store %q product %q: duplicate name", sf.Name, pf.Name)
			}
			products[pf.Name] = product.ID
			plan.Products = append(plan.Products, product)
		}

		for _, promo := range sf.Promotions {
			p, err := promo.build(store.ID, products, now)
			if err != nil {
				return nil, fmt.Errorf("store %q promotion %q: %w", sf.Name, promo.Name, err)
			}
			plan.Promotions = append(plan.Promotions, p)
		}
	}

	for _, tf := range f.TaxRules {
		rule, err := tf.build()
		if err != nil {
			return nil, fmt.Errorf("tax rule %q: %w", tf.Name, err)
		}
		plan.TaxRules = append(plan.TaxRules, rule)
	}

	for i, sf := range f.ShippingRules {
		rule, err := sf.build()
		if err != nil {
			return nil, fmt.Errorf("shipping rule %d (%s/%s): %w", i, sf.Zone, sf.Method, err)
		}
		plan.ShippingRules = append(plan.ShippingRules, rule)
	}

	return plan, nil
}

func (pf ProductFixture) build(storeID uuid.UUID) (*catalog.Product, error) {
	price, err := parseDecimal("price", pf.Price)
	if err != nil {
		return nil, err
	}
	product, err := catalog.NewProduct(storeID, pf.Name, pf.Category, price)
	if err != nil {
		return nil, err
	}
	weight, err := parseDecimal("weight_kg", pf.WeightKg)
	if err != nil {
		return nil, err
	}
	var dims valueobject.Dimensions
	if pf.Dimensions != nil {
		if dims.Length, err = parseDecimal("dimensions.length", pf.Dimensions.Length); err != nil {
			return nil, err
		}
		if dims.Width, err = parseDecimal("dimensions.width", pf.Dimensions.Width); err != nil {
			return nil, err
		}
		if dims.Height, err = parseDecimal("dimensions.height", pf.Dimensions.Height); err != nil {
			return nil, err
		}
	}
	if err := product.SetShippingProfile(weight, dims); err != nil {
		return nil, err
	}
	product.TaxExempt = pf.TaxExempt
	return product, nil
}

func (pf PromotionFixture) build(storeID uuid.UUID, products map[string]uuid.UUID, now time.Time) (*promotion.Promotion, error) {
	value, err := parseDecimal("discount.value", pf.Discount.Value)
	if err != nil {
		return nil, err
	}
	discount := promotion.Discount{
		Type:        promotion.DiscountType(pf.Discount.Type),
		Value:       value,
		MinQuantity: pf.Discount.MinQuantity,
	}

	var scope promotion.Scope
	switch {
	case len(pf.Products) > 0 && len(pf.Categories) > 0:
		return nil, fmt.Errorf("products and categories are mutually exclusive")
	case len(pf.Products) > 0:
		ids, err := lookupProducts(products, pf.Products)
		if err != nil {
			return nil, err
		}
		scope = promotion.ScopeProducts(ids...)
	case len(pf.Categories) > 0:
		scope = promotion.ScopeCategories(pf.Categories...)
	default:
		scope = promotion.ScopeAll()
	}

	startAt := now
	if pf.StartAt != nil {
		startAt = *pf.StartAt
	}
	p, err := promotion.NewPromotion(storeID, pf.Name, discount, scope, startAt)
	if err != nil {
		return nil, err
	}
	if err := p.SetWindow(startAt, pf.EndAt); err != nil {
		return nil, err
	}
	if err := p.SetLimits(pf.UsageLimit, pf.UsageLimitPerUser); err != nil {
		return nil, err
	}
	p.Priority = pf.Priority
	p.Stackable = pf.Stackable
	p.Rules = buildRules(pf.Rules)

	for _, af := range pf.Actions {
		action, err := af.build(products)
		if err != nil {
			return nil, err
		}
		p.Actions = append(p.Actions, action)
	}

	for _, of := range pf.Overrides {
		ids, err := lookupProducts(products, []string{of.Product})
		if err != nil {
			return nil, err
		}
		override := promotion.ProductOverride{
			ProductID:   ids[0],
			MaxQuantity: of.MaxQuantity,
			Rules:       buildRules(of.Rules),
		}
		if of.OverridePrice != "" {
			price, err := parseDecimal("override_price", of.OverridePrice)
			if err != nil {
				return nil, err
			}
			override.OverridePrice = &price
		}
		p.Overrides = append(p.Overrides, override)
	}

	switch promotion.Status(pf.Status) {
	case "", promotion.StatusActive:
		err = p.Activate()
	case promotion.StatusDraft:
	case promotion.StatusPaused:
		if err = p.Activate(); err == nil {
			err = p.Pause()
		}
	case promotion.StatusExpired:
		p.Expire()
	default:
		err = fmt.Errorf("unknown status %q", pf.Status)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (af ActionFixture) build(products map[string]uuid.UUID) (promotion.Action, error) {
	value, err := parseDecimal("action.value", af.Value)
	if err != nil {
		return promotion.Action{}, err
	}
	action := promotion.Action{
		Type:         promotion.ActionType(af.Type),
		Target:       promotion.ActionTarget(af.Target),
		Value:        value,
		GiftQuantity: af.GiftQuantity,
	}
	if af.GiftProduct != "" {
		ids, err := lookupProducts(products, []string{af.GiftProduct})
		if err != nil {
			return promotion.Action{}, err
		}
		action.GiftProductID = &ids[0]
	}
	return action, nil
}

func (tf TaxRuleFixture) build() (*tax.Rule, error) {
	if tf.Exempt {
		return tax.NewExemptRule(tf.Name, tf.Category, tf.Province, tf.Priority), nil
	}
	rate, err := parseDecimal("rate", tf.Rate)
	if err != nil {
		return nil, err
	}
	return tax.NewRule(tf.Name, tf.Category, tf.Province, rate, tf.Priority)
}

func (sf ShippingRuleFixture) build() (*shipping.RateRule, error) {
	var band [4]decimal.Decimal
	for i, field := range []struct{ name, raw string }{
		{"min_weight_kg", sf.MinWeightKg},
		{"max_weight_kg", sf.MaxWeightKg},
		{"base_rate", sf.BaseRate},
		{"per_kg_rate", sf.PerKgRate},
	} {
		d, err := parseDecimal(field.name, field.raw)
		if err != nil {
			return nil, err
		}
		band[i] = d
	}
	rule, err := shipping.NewRateRule(sf.Carrier, sf.Method, sf.Zone, band[0], band[1], band[2], band[3])
	if err != nil {
		return nil, err
	}
	if sf.DimensionalFactor != "" {
		factor, err := parseDecimal("dimensional_factor", sf.DimensionalFactor)
		if err != nil {
			return nil, err
		}
		rule.DimensionalFactor = &factor
	}
	if rule.Surcharge, err = parseDecimal("surcharge", sf.Surcharge); err != nil {
		return nil, err
	}
	rule.Priority = sf.Priority
	return rule, nil
}

// Apply saves the plan in one transaction, stores before the rows that reference them
func (p *Plan) Apply(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stores := persistence.NewGormStoreRepository(tx)
		for _, s := range p.Stores {
			if err := stores.Save(ctx, s); err != nil {
				return fmt.Errorf("save store %q: %w", s.Name, err)
			}
		}
		products := persistence.NewGormProductRepository(tx)
		for _, prod := range p.Products {
			if err := products.Save(ctx, prod); err != nil {
				return fmt.Errorf("save product %q: %w", prod.Name, err)
			}
		}
		promotions := persistence.NewGormPromotionRepository(tx)
		for _, promo := range p.Promotions {
			if err := promotions.Save(ctx, promo); err != nil {
				return fmt.Errorf("save promotion %q: %w", promo.Name, err)
			}
		}
		taxRules := persistence.NewGormTaxRuleRepository(tx)
		for _, r := range p.TaxRules {
			if err := taxRules.Save(ctx, r); err != nil {
				return fmt.Errorf("save tax rule %q: %w", r.Name, err)
			}
		}
		shippingRules := persistence.NewGormShippingRuleRepository(tx)
		for _, r := range p.ShippingRules {
			if err := shippingRules.Save(ctx, r); err != nil {
				return fmt.Errorf("save shipping rule %s/%s: %w", r.Zone, r.Method, err)
			}
		}
		return nil
	})
}

func buildRules(fixtures []RuleFixture) []promotion.Rule {
	if len(fixtures) == 0 {
		return nil
	}
	rules := make([]promotion.Rule, 0, len(fixtures))
	for _, rf := range fixtures {
		rules = append(rules, promotion.Rule{
			Type:     promotion.RuleType(rf.Type),
			Operator: promotion.Operator(rf.Operator),
			Value:    rf.Value,
		})
	}
	return rules
}

func lookupProducts(products map[string]uuid.UUID, names []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		id, ok := products[name]
		if !ok {
			return nil, fmt.Errorf("unknown product %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseDecimal treats an empty field as zero
func parseDecimal(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid decimal %q", field, raw)
	}
	return d, nil
}
