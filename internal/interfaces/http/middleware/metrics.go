package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type httpMetrics struct {
	requests     *telemetry.Counter
	duration     *telemetry.Histogram
	requestSize  *telemetry.Histogram
	responseSize *telemetry.Histogram
	inFlight     metric.Int64UpDownCounter
}

// HTTPMetrics records request count, latency and body sizes per route pattern.
// The request counter is also split by customer group; guests count as "guest".
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	m := &httpMetrics{}
	var err error
	if m.requests, err = telemetry.NewCounter(meter, "http_server_request_total", "HTTP requests served", "{request}"); err != nil {
		return nil, err
	}
	if m.duration, err = telemetry.NewHistogram(meter, "http_server_request_duration_seconds", "HTTP request latency", "s", telemetry.HTTPDurationBuckets); err != nil {
		return nil, err
	}
	if m.requestSize, err = telemetry.NewHistogram(meter, "http_server_request_size_bytes", "HTTP request body size", "By", telemetry.SizeBuckets); err != nil {
		return nil, err
	}
	if m.responseSize, err = telemetry.NewHistogram(meter, "http_server_response_size_bytes", "HTTP response body size", "By", telemetry.SizeBuckets); err != nil {
		return nil, err
	}
	if m.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests in flight"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	return m.handle, nil
}

func (m *httpMetrics) handle(c *gin.Context) {
	ctx := c.Request.Context()
	start := time.Now()
	m.inFlight.Add(ctx, 1)

	c.Next()

	m.inFlight.Add(ctx, -1)

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	base := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(c.Request.Method),
		telemetry.AttrHTTPRoute.String(route),
	}

	group := GetJWTCustomerGroup(c)
	if GetJWTBuyerID(c) == "" {
		group = "guest"
	}
	m.requests.Inc(ctx, append(base,
		telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()),
		telemetry.AttrCustomerGroup.String(group),
	)...)
	m.duration.RecordDuration(ctx, time.Since(start), base...)
	if n := c.Request.ContentLength; n > 0 {
		m.requestSize.Record(ctx, float64(n), base...)
	}
	if n := c.Writer.Size(); n > 0 {
		m.responseSize.Record(ctx, float64(n), base...)
	}
}
