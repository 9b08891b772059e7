package router

import (
	"github.com/gin-gonic/gin"
	"github.com/marketplace/backend/internal/interfaces/http/handler"
)

// Auth selects the middleware per route class. Guest routes price anonymous
// carts; Buyer routes need a verified buyer. RateLimit, when set, is mounted
// after the token check so signed-in buyers are limited per account.
type Auth struct {
	Guest     gin.HandlerFunc
	Buyer     gin.HandlerFunc
	RateLimit gin.HandlerFunc
}

func (a Auth) guest() []gin.HandlerFunc { return present(a.Guest, a.RateLimit) }
func (a Auth) buyer() []gin.HandlerFunc { return present(a.Buyer, a.RateLimit) }

// present drops the nil entries. Every handler stays a separate link of the
// gin chain so c.Next and c.Abort behave.
func present(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers)+1)
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// CheckoutRoutes builds the checkout and order groups
func CheckoutRoutes(h *handler.CheckoutHandler, auth Auth) []RouteRegistrar {
	checkout := NewDomainGroup("checkout", "/checkout").
		POST("/preview", append(auth.guest(), h.Preview)...).
		POST("/orders", append(auth.buyer(), h.PlaceOrder)...)

	orders := NewDomainGroup("orders", "/orders").
		Use(auth.buyer()...).
		GET("", h.ListOrders).
		GET("/:id", h.GetOrder)

	return []RouteRegistrar{checkout, orders}
}

// SystemRoutes builds the versioned system group
func SystemRoutes(h *handler.SystemHandler) RouteRegistrar {
	return NewDomainGroup("system", "/system").
		GET("/info", h.GetSystemInfo).
		GET("/ping", h.Ping)
}

// RegisterHealth mounts the unversioned probes used by load balancers
func RegisterHealth(engine *gin.Engine, h *handler.SystemHandler) {
	engine.GET("/health", h.Health)
	engine.GET("/healthz", h.Health)
}
