package promotion

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Buyer is who the cart is priced for. A nil ID is a guest.
type Buyer struct {
	ID            uuid.UUID
	CustomerGroup string
	FirstOrder    bool
}

// Line is one cart line of a store group
type Line struct {
	ProductID uuid.UUID
	Category  string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Input is everything the resolver needs for one store group
type Input struct {
	Lines      []Line
	Promotions []Promotion
	Buyer      Buyer
	Usage      UsageSnapshot
	Now        time.Time
	// Restrict, when non-nil, limits resolution to the listed promotions
	Restrict map[uuid.UUID]struct{}
}

// LineResult is the resolved price of one line
type LineResult struct {
	ProductID           uuid.UUID
	Quantity            int
	UnitPrice           decimal.Decimal
	DiscountedUnitPrice decimal.Decimal
	AppliedPromotionIDs []uuid.UUID
}

// Gift is a zero-priced line added by a free_gift action
type Gift struct {
	PromotionID uuid.UUID
	ProductID   uuid.UUID
	Quantity    int
}

// Result is the resolution of one store group
type Result struct {
	Lines               []LineResult
	FreeShipping        bool
	ShippingPercentOff  decimal.Decimal
	ShippingAmountOff   decimal.Decimal
	Gifts               []Gift
	AppliedPromotionIDs []uuid.UUID
}

// ApplyShipping returns the group's shipping cost after shipping discounts
func (r Result) ApplyShipping(cost decimal.Decimal) decimal.Decimal {
	if r.FreeShipping {
		return decimal.Zero
	}
	if r.ShippingPercentOff.IsPositive() {
		cost = cost.Sub(valueobject.Percent(cost, r.ShippingPercentOff))
	}
	cost = cost.Sub(r.ShippingAmountOff)
	return valueobject.RoundMoney(valueobject.NonNegative(cost))
}

// Resolver picks and applies promotions for a store group. It has no side effects.
type Resolver struct{}

// NewResolver creates a resolver
func NewResolver() *Resolver {
	return &Resolver{}
}

// plan is a candidate promotion prepared against the group's lines
type plan struct {
	promo     *Promotion
	actions   []Action
	qualifies []bool
	cheapest  int
	// qualifyingBase is the pre-discount value of all qualifying lines, for order_total proration
	qualifyingBase decimal.Decimal
}

// Resolve applies the winning promotions to every line of the group.
//
// Candidates are ordered by priority (desc), then creation time, then id. On each line
// the first qualifying candidate always applies; a non-stackable one ends the line.
// A stackable one lets the following stackable candidates compound on the reduced
// price until a non-stackable candidate is met.
func (r *Resolver) Resolve(in Input) Result {
	res := Result{
		Lines:              make([]LineResult, len(in.Lines)),
		ShippingPercentOff: decimal.Zero,
		ShippingAmountOff:  decimal.Zero,
	}
	subtotal := decimal.Zero
	for i, l := range in.Lines {
		res.Lines[i] = LineResult{
			ProductID:           l.ProductID,
			Quantity:            l.Quantity,
			UnitPrice:           l.UnitPrice,
			DiscountedUnitPrice: l.UnitPrice,
		}
		subtotal = subtotal.Add(lineBase(l))
	}

	candidates := r.candidates(in)
	plans := make([]plan, len(candidates))
	for k, p := range candidates {
		plans[k] = r.plan(p, in, subtotal)
	}

	applied := make(map[uuid.UUID]bool, len(candidates))
	for i, line := range in.Lines {
		price := line.UnitPrice
		first := true
		for k := range plans {
			pl := &plans[k]
			if !pl.qualifies[i] {
				continue
			}
			if !first && !pl.promo.Stackable {
				break
			}
			price = pl.apply(i, line, price)
			res.Lines[i].AppliedPromotionIDs = append(res.Lines[i].AppliedPromotionIDs, pl.promo.ID)
			applied[pl.promo.ID] = true
			if !pl.promo.Stackable {
				break
			}
			first = false
		}
		res.Lines[i].DiscountedUnitPrice = valueobject.NonNegative(price)
	}

	for k := range plans {
		pl := &plans[k]
		if !applied[pl.promo.ID] {
			continue
		}
		res.AppliedPromotionIDs = append(res.AppliedPromotionIDs, pl.promo.ID)
		for _, a := range pl.actions {
			res.applyGroupAction(pl.promo.ID, a)
		}
	}
	return res
}

func (res *Result) applyGroupAction(promotionID uuid.UUID, a Action) {
	switch {
	case a.Type == ActionFreeGift:
		if a.GiftProductID == nil {
			return
		}
		qty := a.GiftQuantity
		if qty < 1 {
			qty = 1
		}
		res.Gifts = append(res.Gifts, Gift{PromotionID: promotionID, ProductID: *a.GiftProductID, Quantity: qty})
	case a.Type == ActionFreeShipping:
		res.FreeShipping = true
	case a.affectsShipping() && a.Type == ActionPercentageDiscount:
		// compound: 1 - (1-a)(1-b)
		remaining := hundred.Sub(res.ShippingPercentOff).Mul(hundred.Sub(clampPercent(a.Value))).Div(hundred)
		res.ShippingPercentOff = hundred.Sub(remaining)
		if res.ShippingPercentOff.GreaterThanOrEqual(hundred) {
			res.FreeShipping = true
		}
	case a.affectsShipping() && a.Type == ActionFixedAmount:
		res.ShippingAmountOff = res.ShippingAmountOff.Add(valueobject.NonNegative(a.Value))
	}
}

// candidates filters promotions down to those usable now and sorts them into application order
func (r *Resolver) candidates(in Input) []*Promotion {
	out := make([]*Promotion, 0, len(in.Promotions))
	for i := range in.Promotions {
		p := &in.Promotions[i]
		if in.Restrict != nil {
			if _, ok := in.Restrict[p.ID]; !ok {
				continue
			}
		}
		if !p.IsActiveAt(in.Now) {
			continue
		}
		if in.Usage.Exhausted(p, in.Buyer.ID) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return out
}

func (r *Resolver) plan(p *Promotion, in Input, subtotal decimal.Decimal) plan {
	pl := plan{
		promo:          p,
		actions:        p.EffectiveActions(),
		qualifies:      make([]bool, len(in.Lines)),
		cheapest:       -1,
		qualifyingBase: decimal.Zero,
	}
	if len(pl.actions) == 0 {
		return pl
	}

	base := make([]bool, len(in.Lines))
	for i, line := range in.Lines {
		base[i] = qualifiesLine(p, line, in.Buyer, subtotal)
		if base[i] && (pl.cheapest < 0 || line.UnitPrice.LessThan(in.Lines[pl.cheapest].UnitPrice)) {
			pl.cheapest = i
		}
	}

	// shipping and gift actions do not decide which lines a cheapest-item promotion touches
	lineActions, cheapestActions := 0, 0
	for _, a := range pl.actions {
		if !a.affectsLines() {
			continue
		}
		lineActions++
		if a.Target == TargetCheapestItem {
			cheapestActions++
		}
	}
	onlyCheapest := lineActions > 0 && cheapestActions == lineActions
	for i := range in.Lines {
		pl.qualifies[i] = base[i] && (!onlyCheapest || i == pl.cheapest)
		if pl.qualifies[i] {
			pl.qualifyingBase = pl.qualifyingBase.Add(lineBase(in.Lines[i]))
		}
	}
	return pl
}

func qualifiesLine(p *Promotion, line Line, buyer Buyer, subtotal decimal.Decimal) bool {
	if line.Quantity < 1 {
		return false
	}
	if !p.Scope.Matches(line.ProductID, line.Category) {
		return false
	}
	if p.Discount.MinQuantity > 0 && line.Quantity < p.Discount.MinQuantity {
		return false
	}
	ctx := RuleContext{
		StoreSubtotal: subtotal,
		ProductID:     line.ProductID,
		Quantity:      line.Quantity,
		CustomerGroup: buyer.CustomerGroup,
		FirstOrder:    buyer.FirstOrder,
	}
	if !EvaluateAll(p.Rules, ctx) {
		return false
	}
	if ov := p.OverrideFor(line.ProductID); ov != nil && !EvaluateAll(ov.Rules, ctx) {
		return false
	}
	return true
}

// apply computes the unit price of line i after this promotion, starting from price
func (pl *plan) apply(i int, line Line, price decimal.Decimal) decimal.Decimal {
	before := price
	for _, a := range pl.actions {
		if !a.affectsLines() {
			continue
		}
		if a.Target == TargetCheapestItem && i != pl.cheapest {
			continue
		}
		switch a.Type {
		case ActionPercentageDiscount:
			price = price.Sub(valueobject.Percent(price, clampPercent(a.Value)))
		case ActionFixedAmount:
			if a.Target == TargetOrderTotal {
				if pl.qualifyingBase.IsPositive() {
					share := a.Value.Mul(lineBase(line)).Div(pl.qualifyingBase)
					price = price.Sub(share.Div(decimal.NewFromInt(int64(line.Quantity))))
				}
			} else {
				price = price.Sub(a.Value)
			}
		}
		price = valueobject.NonNegative(price)
	}

	if ov := pl.promo.OverrideFor(line.ProductID); ov != nil {
		if ov.OverridePrice != nil && ov.OverridePrice.LessThan(price) {
			price = valueobject.NonNegative(*ov.OverridePrice)
		}
		if ov.MaxQuantity != nil && *ov.MaxQuantity >= 0 && line.Quantity > *ov.MaxQuantity {
			discounted := decimal.NewFromInt(int64(*ov.MaxQuantity))
			full := decimal.NewFromInt(int64(line.Quantity - *ov.MaxQuantity))
			price = price.Mul(discounted).Add(before.Mul(full)).Div(decimal.NewFromInt(int64(line.Quantity)))
		}
	}
	return price
}

func lineBase(l Line) decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func clampPercent(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(hundred) {
		return hundred
	}
	return v
}
