package telemetry

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when checkout metrics are built without a meter
var ErrMeterNil = errors.New("checkout metrics: meter is nil")

// CheckoutMetrics records pricing and order commit activity
type CheckoutMetrics struct {
	log *zap.Logger

	previews      *Counter
	droppedLines  *Counter
	orders        *Counter
	orderAmount   *Histogram
	orderStores   *Histogram
	usageRaceLost *Counter
}

func NewCheckoutMetrics(meter metric.Meter, log *zap.Logger) (*CheckoutMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if log == nil {
		log = zap.NewNop()
	}

	m := &CheckoutMetrics{log: log}
	var err error
	if m.previews, err = NewCounter(meter, "checkout_preview_total", "Priced carts", "{cart}"); err != nil {
		return nil, err
	}
	if m.droppedLines, err = NewCounter(meter, "checkout_preview_dropped_lines_total", "Cart lines dropped with a warning while pricing", "{line}"); err != nil {
		return nil, err
	}
	if m.orders, err = NewCounter(meter, "checkout_order_committed_total", "Committed orders", "{order}"); err != nil {
		return nil, err
	}
	if m.orderAmount, err = NewHistogram(meter, "checkout_order_amount", "Grand total of committed orders", "{currency}", OrderAmountBuckets); err != nil {
		return nil, err
	}
	if m.orderStores, err = NewHistogram(meter, "checkout_order_stores", "Vendors in a committed order", "{store}", StoreCountBuckets); err != nil {
		return nil, err
	}
	if m.usageRaceLost, err = NewCounter(meter, "checkout_promotion_usage_race_lost_total", "Promotions dropped at commit because their usage limit was reached", "{promotion}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordPreview counts one priced cart and the lines it dropped
func (m *CheckoutMetrics) RecordPreview(ctx context.Context, customerGroup string, droppedLines int) {
	group := groupAttr(customerGroup)
	m.previews.Inc(ctx, group)
	if droppedLines > 0 {
		m.droppedLines.Add(ctx, int64(droppedLines), group)
	}
}

// RecordOrderCommitted records a committed order, its grand total and vendor count
func (m *CheckoutMetrics) RecordOrderCommitted(ctx context.Context, customerGroup, paymentMethod string, total decimal.Decimal, stores int) {
	attrs := []attribute.KeyValue{groupAttr(customerGroup), AttrPaymentMethod.String(paymentMethod)}
	m.orders.Inc(ctx, attrs...)
	m.orderAmount.Record(ctx, total.InexactFloat64(), attrs[0])
	m.orderStores.Record(ctx, float64(stores), attrs[0])
}

// RecordUsageRaceLost counts a promotion whose last use went to a concurrent order
func (m *CheckoutMetrics) RecordUsageRaceLost(ctx context.Context, promotionID uuid.UUID) {
	m.usageRaceLost.Inc(ctx, AttrPromotionID.String(promotionID.String()))
	m.log.Debug("promotion usage race lost", zap.Stringer("promotion_id", promotionID))
}

// groupAttr labels guests, who carry no group, as "guest"
func groupAttr(group string) attribute.KeyValue {
	if group == "" {
		group = "guest"
	}
	return AttrCustomerGroup.String(group)
}
