// Package auth verifies the buyer bearer tokens minted by the identity service.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/infrastructure/config"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrNotABuyer        = errors.New("token subject is not a buyer id")
)

// Claims are the pricing attributes of a buyer. The buyer id is the
// registered "sub" claim.
type Claims struct {
	jwt.RegisteredClaims
	CustomerGroup string `json:"customer_group,omitempty"`
	FirstOrder    bool   `json:"first_order,omitempty"`
	TaxExempt     bool   `json:"tax_exempt,omitempty"`
}

// BuyerID is the subject as a uuid. Verify guarantees it parses, so it is
// uuid.Nil only for claims that never went through Verify.
func (c *Claims) BuyerID() uuid.UUID {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// JWTService verifies HS256 tokens against the shared secret
type JWTService struct {
	parser *jwt.Parser
	secret []byte
}

// NewJWTService pins the algorithm to HS256 and, when cfg.Issuer is set, the issuer
func NewJWTService(cfg config.JWTConfig) *JWTService {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &JWTService{parser: jwt.NewParser(opts...), secret: []byte(cfg.Secret)}
}

// Verify checks the signature and time claims and that the subject is a buyer id
func (s *JWTService) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, ErrTokenNotYetValid
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrNotABuyer
	}
	return claims, nil
}
