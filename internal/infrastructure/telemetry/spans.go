package telemetry

import (
	"context"
	"errors"

	"github.com/marketplace/backend/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/marketplace/backend"

// StartServiceSpan starts an internal span named "<service>.<method>" on the
// global tracer. The caller ends it.
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "commit_order",
//	    attribute.Int("items_count", len(items)))
//	defer span.End()
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, service+"."+method,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// RecordError attaches err to the span. A domain rejection such as an empty
// cart is recorded as an event only; anything else fails the span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		span.AddEvent("rejected", trace.WithAttributes(
			attribute.String("error.code", de.Code),
			attribute.String("error.message", de.Message),
		))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
