package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ToggleWishlistRequest is the body of POST /api/wishlist/toggle
type ToggleWishlistRequest struct {
	UserID    int64 `json:"userId" validate:"required,gt=0"`
	ProductID int64 `json:"productId" validate:"required,gt=0"`
}

// ToggleWishlistResponse reports whether the product is now in the wishlist
type ToggleWishlistResponse struct {
	Status    service.ToggleResult `json:"status"`
	ProductID int64                `json:"productId"`
}

// WishlistHandler handles wishlist endpoints
type WishlistHandler struct {
	wishlistService service.WishlistService
	logger          *zap.Logger
}

// NewWishlistHandler creates a new WishlistHandler
func NewWishlistHandler(wishlistService service.WishlistService, logger *zap.Logger) *WishlistHandler {
	return &WishlistHandler{
		wishlistService: wishlistService,
		logger:          logger,
	}
}

// RegisterRoutes registers the wishlist routes
func (h *WishlistHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/wishlist", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(middleware.ValidateJSON[ToggleWishlistRequest](h.logger)).Post("/toggle", h.Toggle)
		r.With(middleware.RequireSelfOrAdmin("userId", h.logger)).Get("/{userId}", h.List)
	})
}

// Toggle adds the product to the wishlist or removes it when present
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	req, ok := validated[ToggleWishlistRequest](w, r)
	if !ok {
		return
	}
	if !middleware.CanActFor(r.Context(), req.UserID) {
		forbidden(w)
		return
	}

	result, err := h.wishlistService.Toggle(r.Context(), req.UserID, req.ProductID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ToggleWishlistResponse{
		Status:    result,
		ProductID: req.ProductID,
	})
}

// List returns the user's wishlist with product details
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	items, err := h.wishlistService.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, items)
}
