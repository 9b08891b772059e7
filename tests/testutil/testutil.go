// Package testutil holds helpers shared by the API level tests: signed buyer
// tokens and a small client for the checkout endpoints.
package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"github.com/stretchr/testify/require"
)

// BuyerClaims builds claims for a buyer token expiring after ttl
func BuyerClaims(buyerID uuid.UUID, customerGroup string, ttl time.Duration) *auth.Claims {
	now := time.Now()
	return &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   buyerID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		CustomerGroup: customerGroup,
	}
}

// SignBuyerToken returns an HS256 Authorization header value for claims
func SignBuyerToken(t *testing.T, secret string, claims *auth.Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err, "sign buyer token")
	return "Bearer " + signed
}
