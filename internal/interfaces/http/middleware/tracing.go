// Package middleware provides the gin middleware of the marketplace API.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request through otelgin and tags it with
// the request id. Health probes are not traced. Mount both handlers after
// RequestID:
//
//	engine.Use(middleware.Tracing("marketplace-backend")...)
func Tracing(serviceName string, opts ...otelgin.Option) []gin.HandlerFunc {
	opts = append([]otelgin.Option{otelgin.WithGinFilter(notHealthProbe)}, opts...)
	return []gin.HandlerFunc{otelgin.Middleware(serviceName, opts...), tagSpan}
}

func notHealthProbe(c *gin.Context) bool {
	return !strings.HasPrefix(c.Request.URL.Path, "/health")
}

// tagSpan adds the request id and idempotency key to the otelgin span.
// otelgin itself records c.Errors when the span ends.
func tagSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	if id := GetRequestID(c); id != "" {
		span.SetAttributes(attribute.String("request_id", id))
	}
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		span.SetAttributes(attribute.String("idempotency_key", key))
	}
}
