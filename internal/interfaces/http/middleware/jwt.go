package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"github.com/marketplace/backend/internal/infrastructure/logger"
	"github.com/marketplace/backend/internal/interfaces/http/dto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Gin context keys written by JWTAuth
const (
	JWTClaimsKey        = "jwt_claims"
	JWTBuyerIDKey       = "jwt_buyer_id"
	JWTCustomerGroupKey = "jwt_customer_group"
)

const bearerPrefix = "Bearer "

// JWTConfig configures JWTAuth
type JWTConfig struct {
	JWTService *auth.JWTService
	// Optional lets requests without an Authorization header through as guests.
	// A header that is present must still carry a valid token.
	Optional bool
	Logger   *zap.Logger
}

// RequireBuyer rejects requests without a valid buyer token
func RequireBuyer(svc *auth.JWTService, log *zap.Logger) gin.HandlerFunc {
	return JWTAuth(JWTConfig{JWTService: svc, Logger: log})
}

// OptionalBuyer prices anonymous requests as guests but rejects a bearer
// token that does not verify
func OptionalBuyer(svc *auth.JWTService, log *zap.Logger) gin.HandlerFunc {
	return JWTAuth(JWTConfig{JWTService: svc, Optional: true, Logger: log})
}

// JWTAuth verifies the bearer token and records the buyer on the gin context,
// the request logger scope and the current span
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" && cfg.Optional {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok || token == "" {
			rejectToken(c, log, auth.ErrInvalidToken)
			return
		}
		claims, err := cfg.JWTService.Verify(token)
		if err != nil {
			rejectToken(c, log, err)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTBuyerIDKey, claims.Subject)
		c.Set(JWTCustomerGroupKey, claims.CustomerGroup)

		ctx := logger.WithBuyer(c.Request.Context(), claims.Subject, claims.CustomerGroup)
		c.Request = c.Request.WithContext(ctx)
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("buyer_id", claims.Subject),
			attribute.String("customer_group", claims.CustomerGroup),
		)
		c.Next()
	}
}

func rejectToken(c *gin.Context, log *zap.Logger, err error) {
	code, message := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		code, message = dto.ErrCodeTokenInvalid, "Token is not yet valid"
	case errors.Is(err, auth.ErrNotABuyer):
		code, message = dto.ErrCodeTokenInvalid, "Token does not identify a buyer"
	case errors.Is(err, auth.ErrInvalidToken) && c.GetHeader("Authorization") != "":
		code, message = dto.ErrCodeTokenInvalid, "Invalid token"
	}

	log.Warn("buyer authentication failed",
		zap.String("request_id", GetRequestID(c)),
		zap.String("path", c.Request.URL.Path),
		zap.String("code", code),
		zap.Error(err),
	)
	abort(c, http.StatusUnauthorized, code, message)
}

// GetJWTClaims returns the verified claims, nil for guests
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetJWTBuyerID returns the authenticated buyer id, empty for guests
func GetJWTBuyerID(c *gin.Context) string {
	return c.GetString(JWTBuyerIDKey)
}

// GetJWTCustomerGroup returns the buyer's customer group, empty for guests
func GetJWTCustomerGroup(c *gin.Context) string {
	return c.GetString(JWTCustomerGroupKey)
}
