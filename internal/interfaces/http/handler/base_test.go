package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/logger"
	"github.com/marketplace/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(requestID string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/checkout/orders", nil)
	if requestID != "" {
		c.Set("request_id", requestID)
	}
	return c, w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestBaseHandler_HandleErrorReportsDomainRejections(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"order missing", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"empty cart", shared.ErrEmptyCart, http.StatusUnprocessableEntity, dto.ErrCodeEmptyCart},
		{"promotion used up", shared.ErrUsageLimitExceeded, http.StatusConflict, dto.ErrCodeUsageLimitExceeded},
		{"idempotency key in flight", shared.ErrRequestInProgress, http.StatusConflict, dto.ErrCodeRequestInProgress},
		{"second split for a store", shared.NewDomainError("DUPLICATE_TRANSACTION", "Store already has a transaction"), http.StatusConflict, "ERR_DUPLICATE_TRANSACTION"},
		{"bad payment method", shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unsupported payment method"), http.StatusBadRequest, "ERR_INVALID_PAYMENT_METHOD"},
		{"wrapped rejection", fmt.Errorf("place order: %w", shared.ErrEmptyCart), http.StatusUnprocessableEntity, dto.ErrCodeEmptyCart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext("req-checkout-1")

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			info := decodeError(t, w)
			assert.Equal(t, tt.wantCode, info.Code)
			assert.Equal(t, "req-checkout-1", info.RequestID)
			assert.Empty(t, c.Errors)
		})
	}
}

func TestBaseHandler_HandleErrorHidesInfrastructureFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := &BaseHandler{}
	c, w := newTestContext("req-db-down")
	ctx := logger.WithRequestID(logger.WithContext(c.Request.Context(), zap.New(core)), "req-db-down")
	c.Request = c.Request.WithContext(ctx)

	h.HandleError(c, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	info := decodeError(t, w)
	assert.Equal(t, dto.ErrCodeInternal, info.Code)
	assert.NotContains(t, info.Message, "10.0.0.5")

	require.Equal(t, 1, logs.FilterMessage("request failed").Len())
	entry := logs.All()[0]
	assert.Equal(t, "req-db-down", entry.ContextMap()["request_id"])
	assert.Len(t, c.Errors, 1)
}

func TestBaseHandler_HandleErrorIgnoresNil(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext("")

	h.HandleError(c, nil)

	assert.Zero(t, w.Body.Len())
}

func TestBaseHandler_Envelopes(t *testing.T) {
	h := &BaseHandler{}

	c, w := newTestContext("")
	h.Created(c, gin.H{"order_number": "ORD-1"})
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = newTestContext("")
	h.SuccessWithMeta(c, []string{"a", "b"}, 41, 2, 20)
	var page dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.True(t, page.Success)
	assert.Equal(t, 3, page.Meta.TotalPages)

	c, w = newTestContext("req-anon")
	h.Unauthorized(c, "Sign in to place an order")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	info := decodeError(t, w)
	assert.Equal(t, dto.ErrCodeUnauthorized, info.Code)
	assert.Equal(t, "req-anon", info.RequestID)
}
