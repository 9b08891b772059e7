package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/promotion"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Service commits priced carts as orders split into per-vendor transactions
type Service struct {
	calculator  *PriceCalculator
	orders      order.Repository
	keys        shared.IdempotencyStore
	idempotency shared.IdempotencyConfig
	logger      *zap.Logger
	metrics     *telemetry.CheckoutMetrics
}

// NewService creates a new checkout Service
func NewService(calculator *PriceCalculator, orders order.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		calculator:  calculator,
		orders:      orders,
		idempotency: shared.DefaultIdempotencyConfig(),
		logger:      logger,
	}
}

// SetIdempotencyStore enables duplicate-submission protection for PlaceOrder
func (s *Service) SetIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) {
	s.keys = store
	s.idempotency = cfg
}

// SetCheckoutMetrics sets the checkout metrics recorder
func (s *Service) SetCheckoutMetrics(m *telemetry.CheckoutMetrics) {
	s.metrics = m
}

// Preview prices a cart without side effects
func (s *Service) Preview(ctx context.Context, items []CartItem, ship ShippingContext, buyer BuyerContext) (*PriceBreakdown, error) {
	return s.calculator.Calculate(ctx, items, ship, buyer)
}

// PlaceOrderRequest is a commit request guarded by an optional idempotency key
type PlaceOrderRequest struct {
	IdempotencyKey string
	Items          []CartItem
	Shipping       order.ShippingInfo
	PaymentMethod  order.PaymentMethod
	Buyer          BuyerContext
}

// PlaceOrder commits the cart once per idempotency key. A repeated key returns the
// order created the first time; a key whose first request is still running is rejected.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*order.Order, error) {
	if s.keys == nil || !s.idempotency.Enabled || req.IdempotencyKey == "" {
		return s.CommitOrder(ctx, req.Items, req.Shipping, req.PaymentMethod, req.Buyer)
	}

	key := idempotencyKey(req.Buyer.BuyerID, req.IdempotencyKey)
	reserved, existing, err := s.keys.Reserve(ctx, key, s.idempotency.PendingTTL)
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if !reserved {
		if existing != nil && existing.State == shared.IdempotencyCompleted {
			id, perr := uuid.Parse(existing.ResourceID)
			if perr != nil {
				return nil, fmt.Errorf("corrupt idempotency record: %w", perr)
			}
			s.logger.Info("replaying committed order", zap.String("order_id", id.String()))
			return s.orders.FindByID(ctx, id)
		}
		return nil, shared.ErrRequestInProgress
	}

	o, err := s.CommitOrder(ctx, req.Items, req.Shipping, req.PaymentMethod, req.Buyer)
	if err != nil {
		if rerr := s.keys.Release(context.WithoutCancel(ctx), key); rerr != nil {
			s.logger.Warn("failed to release idempotency key", zap.Error(rerr))
		}
		return nil, err
	}
	if cerr := s.keys.Complete(context.WithoutCancel(ctx), key, o.ID.String(), s.idempotency.TTL); cerr != nil {
		s.logger.Warn("failed to complete idempotency key", zap.String("order_id", o.ID.String()), zap.Error(cerr))
	}
	return o, nil
}

// CommitOrder re-prices the cart on the server and atomically persists the order,
// its items, one transaction per store and the promotion usage increments.
//
// A promotion whose usage limit was taken by a concurrent commit is dropped and the
// affected lines are re-priced with the remaining promotions; the order still commits.
func (s *Service) CommitOrder(ctx context.Context, items []CartItem, info order.ShippingInfo, payment order.PaymentMethod, buyer BuyerContext) (*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "commit_order",
		attribute.Int("items_count", len(items)))
	defer span.End()

	if !payment.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Unsupported payment method: %s", payment))
	}

	ship := ShippingContext{Zone: info.Zone, Method: info.Method, Province: info.Province}
	snap, err := s.calculator.load(ctx, items, ship, buyer)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	quote := s.calculator.price(snap, nil)
	if quote.IsEmpty() {
		s.logger.Info("rejecting empty cart", zap.Strings("warnings", quote.Warnings))
		return nil, shared.ErrEmptyCart
	}
	if info.Zone == "" {
		info.Zone = snap.ship.Zone
	}
	if info.Method == "" {
		info.Method = snap.ship.Method
	}

	o, err := s.orders.Commit(ctx, func(ctx context.Context, ledger promotion.UsageLedger) (*order.Order, error) {
		final, err := s.claimUsage(ctx, ledger, snap, quote)
		if err != nil {
			return nil, err
		}
		return s.buildOrder(final, info, payment, buyer)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		var de *shared.DomainError
		if !errors.As(err, &de) {
			s.logger.Error("order commit failed", zap.Error(err))
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.String("order_id", o.ID.String()),
		attribute.Int("stores_count", len(o.Transactions)),
		attribute.String("total", o.Total.String()),
	)
	if s.metrics != nil {
		s.metrics.RecordOrderCommitted(ctx, buyer.CustomerGroup, string(payment), o.Total, len(o.Transactions))
	}
	s.logger.Info("order committed",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.Int("stores", len(o.Transactions)),
		zap.String("total", o.Total.StringFixed(2)),
	)
	return o, nil
}

// claimUsage increments usage for every applied promotion and re-prices without
// the ones that lost a limit race
func (s *Service) claimUsage(ctx context.Context, ledger promotion.UsageLedger, snap *snapshot, quote *PriceBreakdown) (*PriceBreakdown, error) {
	applied := quote.AppliedPromotionIDs()
	if len(applied) == 0 {
		return quote, nil
	}

	kept := make(map[uuid.UUID]struct{}, len(applied))
	lost := 0
	for _, id := range applied {
		p, ok := snap.promotions[id]
		if !ok {
			continue
		}
		claimed, err := ledger.Increment(ctx, promotion.ClaimFor(p, snap.buyer.BuyerID))
		if err != nil {
			return nil, fmt.Errorf("increment usage of promotion %s: %w", id, err)
		}
		if !claimed {
			lost++
			s.logger.Warn("promotion usage limit reached during commit, dropping discount",
				zap.String("promotion_id", id.String()),
				zap.String("buyer_id", snap.buyer.BuyerID.String()),
			)
			if s.metrics != nil {
				s.metrics.RecordUsageRaceLost(ctx, id)
			}
			continue
		}
		kept[id] = struct{}{}
	}
	if lost == 0 {
		return quote, nil
	}
	return s.calculator.price(snap, kept), nil
}

// buildOrder turns the final breakdown into the order aggregate
func (s *Service) buildOrder(b *PriceBreakdown, info order.ShippingInfo, payment order.PaymentMethod, buyer BuyerContext) (*order.Order, error) {
	o, err := order.NewOrder(buyer.BuyerID, info, payment, b.Currency)
	if err != nil {
		return nil, err
	}
	for _, l := range b.Lines {
		if err := o.AddItem(order.Item{
			StoreID:             l.StoreID,
			ProductID:           l.ProductID,
			Quantity:            l.Quantity,
			UnitPrice:           l.UnitPrice,
			DiscountedUnitPrice: l.DiscountedUnitPrice,
			LineTotal:           l.LineTotal,
			Tax:                 l.Tax,
			AppliedPromotionIDs: l.AppliedPromotionIDs,
		}); err != nil {
			return nil, err
		}
	}
	for _, g := range b.Gifts {
		promotionID := g.PromotionID
		if err := o.AddItem(order.Item{
			StoreID:             g.StoreID,
			ProductID:           g.ProductID,
			Quantity:            g.Quantity,
			UnitPrice:           decimal.Zero,
			DiscountedUnitPrice: decimal.Zero,
			LineTotal:           decimal.Zero,
			Tax:                 decimal.Zero,
			AppliedPromotionIDs: []uuid.UUID{promotionID},
			GiftPromotionID:     &promotionID,
		}); err != nil {
			return nil, err
		}
	}
	for _, st := range b.Stores {
		tx, err := order.NewTransaction(st.StoreID, st.Amount(), st.CommissionRate)
		if err != nil {
			return nil, err
		}
		if err := o.AddTransaction(*tx); err != nil {
			return nil, err
		}
	}
	o.SetTotals(b.Subtotal, b.Taxes, b.Shipping)
	return o, nil
}

// GetOrder returns one of the buyer's orders
func (s *Service) GetOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

// ListOrders returns a page of the buyer's orders
func (s *Service) ListOrders(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (shared.Paginated[order.Order], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	orders, total, err := s.orders.FindByBuyer(ctx, buyerID, filter)
	if err != nil {
		return shared.Paginated[order.Order]{}, err
	}
	return shared.NewPaginated(orders, total, filter.Page, filter.PageSize), nil
}

func idempotencyKey(buyerID uuid.UUID, key string) string {
	return fmt.Sprintf("checkout:%s:%s", buyerID, key)
}

