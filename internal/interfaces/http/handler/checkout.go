package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/application/checkout"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/interfaces/http/dto"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
)

// IdempotencyKeyHeader carries the client's key for duplicate-safe order placement
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

// CheckoutService is the application service behind the checkout endpoints
type CheckoutService interface {
	Preview(ctx context.Context, items []checkout.CartItem, ship checkout.ShippingContext, buyer checkout.BuyerContext) (*checkout.PriceBreakdown, error)
	PlaceOrder(ctx context.Context, req checkout.PlaceOrderRequest) (*order.Order, error)
	GetOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*order.Order, error)
	ListOrders(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (shared.Paginated[order.Order], error)
}

// CheckoutHandler handles cart pricing and order placement
type CheckoutHandler struct {
	BaseHandler
	service CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(service CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

// buyerFromContext builds the pricing context from verified token claims.
// Without claims the request is priced as a guest.
func buyerFromContext(c *gin.Context) checkout.BuyerContext {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		return checkout.BuyerContext{}
	}
	return checkout.BuyerContext{
		BuyerID:       claims.BuyerID(),
		CustomerGroup: claims.CustomerGroup,
		FirstOrder:    claims.FirstOrder,
		TaxExempt:     claims.TaxExempt,
	}
}

// Preview godoc
// @ID           previewCheckout
//
//	@Summary		Price a cart
//	@Description	Prices the cart with store promotions, platform tax and shipping without placing an order. Guests are priced without group or first-order promotions.
//	@Tags			checkout
//	@Accept			json
//	@Produce		json
//	@Param			request	body		PreviewRequest	true	"Cart and shipping destination"
//	@Success		200		{object}	APIResponse[PriceBreakdownResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		429		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/checkout/preview [post]
func (h *CheckoutHandler) Preview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	breakdown, err := h.service.Preview(c.Request.Context(), parseCartItems(req.Items), req.Shipping.toContext(), buyerFromContext(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ToPriceBreakdownResponse(breakdown))
}

// PlaceOrder re-prices the cart and commits it as an order split per store
// @ID           placeOrder
//
//	@Summary		Place an order
//	@Description	Re-prices the cart, consumes promotion usage and stores one vendor transaction per store. A repeated Idempotency-Key returns the order created the first time.
//	@Tags			checkout
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string				false	"Client key for duplicate-safe retries"
//	@Param			request			body		PlaceOrderRequest	true	"Cart, shipping and payment method"
//	@Success		201				{object}	APIResponse[OrderResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		409				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		429				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/checkout/orders [post]
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	buyer := buyerFromContext(c)
	if buyer.IsGuest() {
		h.Unauthorized(c, "Sign in to place an order")
		return
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLength {
		h.BadRequest(c, "Idempotency-Key is too long")
		return
	}

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	o, err := h.service.PlaceOrder(c.Request.Context(), checkout.PlaceOrderRequest{
		IdempotencyKey: key,
		Items:          parseCartItems(req.Items),
		Shipping:       req.Shipping.toShippingInfo(),
		PaymentMethod:  order.PaymentMethod(req.PaymentMethod),
		Buyer:          buyer,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, ToOrderResponse(o))
}

// GetOrder returns one of the caller's orders
// @ID           getOrderById
//
//	@Summary		Get an order
//	@Tags			orders
//	@Produce		json
//	@Param			id	path		string	true	"Order ID"	format(uuid)
//	@Success		200	{object}	APIResponse[OrderResponse]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/orders/{id} [get]
func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	buyer := buyerFromContext(c)
	if buyer.IsGuest() {
		h.Unauthorized(c, "Sign in to view orders")
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	o, err := h.service.GetOrder(c.Request.Context(), buyer.BuyerID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ToOrderResponse(o))
}

// ListOrders returns a page of the caller's orders
// @ID           listOrders
//
//	@Summary		List my orders
//	@Tags			orders
//	@Produce		json
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)	maximum(100)
//	@Param			order_by	query		string	false	"Sort column"	Enums(created_at, order_number, status, subtotal, total)
//	@Param			order_dir	query		string	false	"Sort direction"	Enums(asc, desc)
//	@Success		200			{object}	APIResponse[[]OrderResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/orders [get]
func (h *CheckoutHandler) ListOrders(c *gin.Context) {
	buyer := buyerFromContext(c)
	if buyer.IsGuest() {
		h.Unauthorized(c, "Sign in to view orders")
		return
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	page, err := h.service.ListOrders(c.Request.Context(), buyer.BuyerID, shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]OrderResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ToOrderResponse(&page.Items[i]))
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}
