package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func tracedRouter(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	router := gin.New()
	router.Use(RequestID())
	router.Use(Tracing("marketplace-test", otelgin.WithTracerProvider(tp))...)
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/api/v1/checkout/orders", func(c *gin.Context) {
		_ = c.Error(errors.New("usage ledger write failed"))
		c.Status(http.StatusInternalServerError)
	})
	router.GET("/api/v1/orders/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router, recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

func TestTracing_TagsCheckoutSpan(t *testing.T) {
	router, recorder := tracedRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/orders", nil)
	req.Header.Set(HeaderRequestID, "req-order-9")
	req.Header.Set("Idempotency-Key", "cart-5c1e")
	router.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "POST /api/v1/checkout/orders", span.Name())
	assert.Equal(t, codes.Error, span.Status().Code)

	attrs := spanAttrs(span)
	assert.Equal(t, "req-order-9", attrs["request_id"].AsString())
	assert.Equal(t, "cart-5c1e", attrs["idempotency_key"].AsString())

	var recorded bool
	for _, ev := range span.Events() {
		if ev.Name == "exception" {
			recorded = true
		}
	}
	assert.True(t, recorded, "handler error should be on the span")
}

func TestTracing_UsesRoutePatternAndSkipsHealth(t *testing.T) {
	router, recorder := tracedRouter(t)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/orders/0b9f6f7e-1d7c-4c57-9d0e-2b8b1f3d8a11", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/v1/orders/:id", spans[0].Name())
	_, tagged := spanAttrs(spans[0])["idempotency_key"]
	assert.False(t, tagged)
}
