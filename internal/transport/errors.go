package transport

import (
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/auth"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type errorStatus struct {
	target error
	status int
}

// errorStatuses maps domain errors to response codes. The first entry that
// matches with errors.Is wins.
var errorStatuses = []errorStatus{
	{service.ErrInvalidQuantity, http.StatusBadRequest},
	{service.ErrInvalidProduct, http.StatusBadRequest},
	{service.ErrEmptySearchTerm, http.StatusBadRequest},
	{service.ErrEmptyCart, http.StatusBadRequest},
	{service.ErrOrderTotalTooLarge, http.StatusBadRequest},
	{service.ErrInvalidRole, http.StatusBadRequest},
	{service.ErrInvalidOrderStatus, http.StatusBadRequest},

	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{auth.ErrTokenExpired, http.StatusUnauthorized},

	{service.ErrAccountNotApproved, http.StatusForbidden},
	{service.ErrCannotDeleteSelf, http.StatusForbidden},

	{repository.ErrUserNotFound, http.StatusNotFound},
	{repository.ErrProductNotFound, http.StatusNotFound},
	{repository.ErrCartItemNotFound, http.StatusNotFound},
	{repository.ErrOrderNotFound, http.StatusNotFound},
	{repository.ErrWishlistItemNotFound, http.StatusNotFound},

	{repository.ErrUserAlreadyExists, http.StatusConflict},
	{repository.ErrProductSKUDuplicate, http.StatusConflict},
	{repository.ErrProductInUse, http.StatusConflict},
	{repository.ErrWishlistItemExists, http.StatusConflict},
	{service.ErrInvalidStatusTransition, http.StatusConflict},
}

// statusFor returns the response code and client message for err.
func statusFor(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.target) {
			return e.status, e.target.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

// writeError responds with the mapped status. Unmapped errors are logged with
// their full chain and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status, message := statusFor(err)

	if status == http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	} else {
		logger.Debug("Request rejected",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	middleware.RespondWithError(w, status, message)
}

// pathID parses a positive int64 path parameter. It writes a 400 and returns
// false when the value is malformed.
func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+param)
		return 0, false
	}
	return id, true
}

// validated returns the body accepted by middleware.ValidateJSON[T].
func validated[T any](w http.ResponseWriter, r *http.Request) (*T, bool) {
	body, ok := middleware.ValidatedBody[T](r)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
	}
	return body, ok
}

// forbidden answers requests for another user's resources.
func forbidden(w http.ResponseWriter) {
	middleware.RespondWithError(w, http.StatusForbidden, "insufficient permissions")
}
