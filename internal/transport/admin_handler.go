package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler serves account management for admins
type AdminHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(userService service.UserService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers the admin routes
func (h *AdminHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/admin/users", func(r chi.Router) {
		r.Use(authMiddleware, middleware.RequireAdmin(h.logger))
		r.Get("/", h.ListUsers)
		r.Patch("/{userId}/approve", h.ApproveUser)
		r.Delete("/{userId}", h.DeleteUser)
	})
}

// ListUsers returns every account
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, users)
}

// ApproveUser lets a pending account log in
func (h *AdminHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	user, err := h.userService.Approve(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, user)
}

// DeleteUser removes an account together with its cart, wishlist, orders and
// sessions
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	actorID, _ := middleware.GetUserID(r.Context())

	if err := h.userService.Delete(r.Context(), actorID, userID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
