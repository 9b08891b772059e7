package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newCheckoutEngine(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(requestIDKey, "req-9")
		c.Next()
	})
	r.Use(Recovery(log), GinMiddleware(log))
	return r
}

func TestGinMiddleware_AccessLineCarriesBuyer(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := newCheckoutEngine(zap.New(core))

	authenticate := func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithBuyer(c.Request.Context(), "buyer-3", "vip"))
		c.Next()
	}
	r.GET("/api/v1/orders/:id", authenticate, func(c *gin.Context) {
		L(c.Request.Context()).Info("loading order")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/ord-123", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, 2, logs.Len())
	access := logs.All()[1]
	assert.Equal(t, "request completed", access.Message)
	fields := access.ContextMap()
	assert.Equal(t, "/api/v1/orders/:id", fields["route"])
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "buyer-3", fields["buyer_id"])
	assert.Equal(t, "vip", fields["customer_group"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}

func TestGinMiddleware_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		want   zapcore.Level
	}{
		{http.StatusCreated, zapcore.InfoLevel},
		{http.StatusUnprocessableEntity, zapcore.WarnLevel},
		{http.StatusServiceUnavailable, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			r := newCheckoutEngine(zap.New(core))
			r.POST("/api/v1/checkout/orders", func(c *gin.Context) { c.Status(tt.status) })

			req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/orders", nil)
			req.Header.Set("Idempotency-Key", "idem-1")
			r.ServeHTTP(httptest.NewRecorder(), req)

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.want, entry.Level)
			assert.Equal(t, "idem-1", entry.ContextMap()["idempotency_key"])
		})
	}
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := newCheckoutEngine(zap.New(core))
	r.POST("/api/v1/checkout/preview", func(c *gin.Context) { panic("nil calculator") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/preview", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_INTERNAL")
	panics := logs.FilterMessage("panic recovered").All()
	require.Len(t, panics, 1)
	assert.Equal(t, "req-9", panics[0].ContextMap()["request_id"])
}
