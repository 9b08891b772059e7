package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type scopeKey struct{}

// scope is what the HTTP layer learns about a request on its way through the
// middleware chain. Each With* call stores a modified copy.
type scope struct {
	log           *zap.Logger
	requestID     string
	buyerID       string
	customerGroup string
}

func scopeOf(ctx context.Context) scope {
	if s, ok := ctx.Value(scopeKey{}).(scope); ok {
		return s
	}
	return scope{}
}

func withScope(ctx context.Context, s scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithContext attaches the base logger for a request
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	s := scopeOf(ctx)
	s.log = log
	return withScope(ctx, s)
}

// WithRequestID records the request id
func WithRequestID(ctx context.Context, requestID string) context.Context {
	s := scopeOf(ctx)
	s.requestID = requestID
	return withScope(ctx, s)
}

// WithBuyer records the authenticated buyer. Guests never call it.
func WithBuyer(ctx context.Context, buyerID, customerGroup string) context.Context {
	s := scopeOf(ctx)
	s.buyerID = buyerID
	s.customerGroup = customerGroup
	return withScope(ctx, s)
}

// FromContext returns the bare request logger, or a no-op logger outside a request
func FromContext(ctx context.Context) *zap.Logger {
	if s := scopeOf(ctx); s.log != nil {
		return s.log
	}
	return zap.NewNop()
}

// RequestID returns the request id, empty outside a request
func RequestID(ctx context.Context) string {
	return scopeOf(ctx).requestID
}

// BuyerID returns the authenticated buyer id, empty for guests
func BuyerID(ctx context.Context) string {
	return scopeOf(ctx).buyerID
}

// L returns the request logger with request, buyer and trace fields attached.
//
//	logger.L(ctx).Warn("promotion usage race lost", zap.Stringer("promotion_id", id))
func L(ctx context.Context) *zap.Logger {
	s := scopeOf(ctx)
	log := s.log
	if log == nil {
		log = zap.NewNop()
	}

	fields := make([]zap.Field, 0, 5)
	if s.requestID != "" {
		fields = append(fields, zap.String("request_id", s.requestID))
	}
	if s.buyerID != "" {
		fields = append(fields, zap.String("buyer_id", s.buyerID))
	}
	if s.customerGroup != "" {
		fields = append(fields, zap.String("customer_group", s.customerGroup))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}
