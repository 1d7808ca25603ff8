package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AddToCartRequest is the body of POST /api/cart/add
type AddToCartRequest struct {
	UserID    int64 `json:"userId" validate:"required,gt=0"`
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1,lte=1000"`
}

// UpdateCartRequest is the body of PUT /api/cart/{cartId}
type UpdateCartRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1,lte=1000"`
}

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers the cart routes. All of them require a bearer
// token.
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(middleware.ValidateJSON[AddToCartRequest](h.logger)).Post("/add", h.Add)
		r.With(middleware.RequireSelfOrAdmin("userId", h.logger)).Get("/user/{userId}", h.View)
		r.With(middleware.ValidateJSON[UpdateCartRequest](h.logger)).Put("/{cartId}", h.UpdateQuantity)
		r.Delete("/{cartId}", h.Remove)
	})
}

// Add puts a product in the user's cart or raises its quantity
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	req, ok := validated[AddToCartRequest](w, r)
	if !ok {
		return
	}
	if !middleware.CanActFor(r.Context(), req.UserID) {
		forbidden(w)
		return
	}

	item, err := h.cartService.Add(r.Context(), req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Debug("Cart updated",
		zap.Int64("user_id", item.UserID),
		zap.Int64("product_id", item.ProductID),
		zap.Int("quantity", item.Quantity),
	)
	middleware.RespondWithJSON(w, http.StatusOK, item)
}

// View returns the user's cart with product details and total
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	cart, err := h.cartService.View(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// UpdateQuantity sets the quantity of one cart row
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.ownedCartRow(w, r)
	if !ok {
		return
	}
	req, ok := validated[UpdateCartRequest](w, r)
	if !ok {
		return
	}

	item, err := h.cartService.UpdateQuantity(r.Context(), cartID, req.Quantity)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, item)
}

// Remove deletes one cart row
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.ownedCartRow(w, r)
	if !ok {
		return
	}

	if err := h.cartService.Remove(r.Context(), cartID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedCartRow resolves {cartId} and checks that the caller owns the row or
// is an admin.
func (h *CartHandler) ownedCartRow(w http.ResponseWriter, r *http.Request) (int64, bool) {
	cartID, ok := pathID(w, r, "cartId")
	if !ok {
		return 0, false
	}

	item, err := h.cartService.Get(r.Context(), cartID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return 0, false
	}
	if !middleware.CanActFor(r.Context(), item.UserID) {
		callerID, _ := middleware.GetUserID(r.Context())
		h.logger.Warn("Cart row belongs to another user",
			zap.Int64("caller_id", callerID),
			zap.Int64("cart_id", cartID),
		)
		forbidden(w)
		return 0, false
	}
	return cartID, true
}
