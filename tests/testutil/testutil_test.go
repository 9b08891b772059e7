package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/marketplace/backend/internal/interfaces/http/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignBuyerToken_VerifiesWithService(t *testing.T) {
	const secret = "testutil-secret-testutil-secret!!"
	buyerID := uuid.New()

	header := SignBuyerToken(t, secret, BuyerClaims(buyerID, "wholesale", time.Hour))
	require.Contains(t, header, "Bearer ")

	claims, err := auth.NewJWTService(config.JWTConfig{Secret: secret}).Verify(header[len("Bearer "):])
	require.NoError(t, err)
	assert.Equal(t, buyerID.String(), claims.Subject)
	assert.Equal(t, "wholesale", claims.CustomerGroup)
}

func TestAPICall_SendsCheckoutHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/api/v1/checkout/orders", func(c *gin.Context) {
		var body map[string]any
		require.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"data": gin.H{
				"auth":  c.GetHeader("Authorization"),
				"key":   c.GetHeader(handler.IdempotencyKeyHeader),
				"items": len(body["items"].([]any)),
			},
		})
	})

	w := APICall{
		Method:         http.MethodPost,
		Path:           "/api/v1/checkout/orders",
		Body:           map[string]any{"items": []map[string]any{{"quantity": 1}}},
		Token:          "Bearer abc",
		IdempotencyKey: "cart-77",
	}.Do(t, engine)

	require.Equal(t, http.StatusCreated, w.Code)
	resp := Decode[map[string]any](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "Bearer abc", resp.Data["auth"])
	assert.Equal(t, "cart-77", resp.Data["key"])
	assert.Equal(t, float64(1), resp.Data["items"])
}
