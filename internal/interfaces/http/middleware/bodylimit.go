package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects a declared body over maxBytes up front and caps chunked
// bodies while they are read
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			abort(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge, "Request body exceeds the allowed size")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
