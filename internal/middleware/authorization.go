package middleware

import (
	"context"
	"net/http"
	"strconv"

	"storefront/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RequireAdmin middleware ensures the user has admin role
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]string{domain.RoleAdmin}, logger)
}

// RequireRole middleware ensures the user has one of the specified roles
func RequireRole(allowedRoles []string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok {
				logger.Warn("Role not found in context")
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			for _, allowedRole := range allowedRoles {
				if role == allowedRole {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("User role not authorized",
				zap.String("role", role),
				zap.Strings("allowed_roles", allowedRoles),
				zap.String("path", r.URL.Path),
			)
			RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

// CanActFor reports whether the authenticated caller may act on behalf of
// userID: either it is the same user or the caller is an admin.
func CanActFor(ctx context.Context, userID int64) bool {
	if role, ok := GetUserRole(ctx); ok && role == domain.RoleAdmin {
		return true
	}
	callerID, ok := GetUserID(ctx)
	return ok && callerID == userID
}

// RequireSelfOrAdmin restricts a route to the user named by the URL
// parameter param, or to admins. A malformed id is rejected with 400.
func RequireSelfOrAdmin(param string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
			if err != nil || userID <= 0 {
				RespondWithError(w, http.StatusBadRequest, "invalid "+param)
				return
			}

			if !CanActFor(r.Context(), userID) {
				callerID, _ := GetUserID(r.Context())
				logger.Warn("Access to another user's resources denied",
					zap.Int64("caller_id", callerID),
					zap.Int64("target_user_id", userID),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
