package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/interfaces/http/dto"
)

const (
	// HeaderRequestID carries the request id in both directions
	HeaderRequestID = "X-Request-ID"

	requestIDKey       = "request_id"
	maxRequestIDLength = 128
)

// RequestID keeps a well-formed X-Request-ID from the caller and mints a UUID
// otherwise. The id is echoed on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID returns the id set by RequestID, empty if it did not run
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '!' || id[i] > '~' {
			return false
		}
	}
	return true
}

// abort ends the request with the standard error envelope
func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// CORSConfig lists what browsers on other origins may do
type CORSConfig struct {
	AllowOrigins     []string // "*" allows any origin without credentials
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// CORS answers preflight requests itself and decorates the rest. An origin
// outside the list gets no CORS headers, so the browser blocks the response.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	origins := make(map[string]struct{}, len(cfg.AllowOrigins))
	wildcard := false
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		origins[o] = struct{}{}
	}
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge.Seconds()))

	return func(c *gin.Context) {
		h := c.Writer.Header()
		allowed := ""
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := origins[origin]; ok {
				allowed = origin
			} else if wildcard {
				allowed = "*"
			}
		}

		if allowed != "" {
			h.Set("Access-Control-Allow-Origin", allowed)
			if allowed != "*" {
				h.Add("Vary", "Origin")
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}
			if expose != "" {
				h.Set("Access-Control-Expose-Headers", expose)
			}
		}

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}
		if allowed != "" {
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", maxAge)
			}
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}

// SecurityConfig tunes the response hardening headers
type SecurityConfig struct {
	HSTSMaxAge time.Duration // zero leaves HSTS off; only set it behind TLS
}

// Secure sets hardening headers for a JSON API. Quotes are never cacheable:
// prices and promotions can change between requests.
func Secure(cfg SecurityConfig) gin.HandlerFunc {
	headers := [][2]string{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
		{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
		{"Cache-Control", "no-store"},
	}
	if cfg.HSTSMaxAge > 0 {
		headers = append(headers, [2]string{
			"Strict-Transport-Security",
			fmt.Sprintf("max-age=%d; includeSubDomains", int(cfg.HSTSMaxAge.Seconds())),
		})
	}

	return func(c *gin.Context) {
		for _, kv := range headers {
			c.Header(kv[0], kv[1])
		}
		c.Next()
	}
}

// Timeout bounds the request context so repository calls are cancelled once
// the deadline passes
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
