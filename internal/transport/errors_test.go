package transport

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"storefront/internal/auth"
	"storefront/internal/repository"
	"storefront/internal/service"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{service.ErrEmptyCart, http.StatusBadRequest, "cart is empty"},
		{fmt.Errorf("checkout: %w", service.ErrOrderTotalTooLarge), http.StatusBadRequest, service.ErrOrderTotalTooLarge.Error()},
		{fmt.Errorf("failed to get product: %w", repository.ErrProductNotFound), http.StatusNotFound, "product not found"},
		{fmt.Errorf("failed to find user: %w", repository.ErrUserNotFound), http.StatusNotFound, "user not found"},
		{repository.ErrUserAlreadyExists, http.StatusConflict, repository.ErrUserAlreadyExists.Error()},
		{fmt.Errorf("%w: shipped to pending", service.ErrInvalidStatusTransition), http.StatusConflict, service.ErrInvalidStatusTransition.Error()},
		{fmt.Errorf("%w: sku is required", service.ErrInvalidProduct), http.StatusBadRequest, "invalid product"},
		{auth.ErrTokenExpired, http.StatusUnauthorized, auth.ErrTokenExpired.Error()},
		{service.ErrAccountNotApproved, http.StatusForbidden, service.ErrAccountNotApproved.Error()},
		{errors.New("connection refused"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		status, message := statusFor(tt.err)
		if status != tt.status || message != tt.message {
			t.Errorf("statusFor(%v) = %d %q, want %d %q", tt.err, status, message, tt.status, tt.message)
		}
	}
}
