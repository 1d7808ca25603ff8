package transport

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/service"

	"github.com/shopspring/decimal"
)

func TestPlaceOrderFromCart(t *testing.T) {
	api := newTestAPI()
	user, token := api.seedUser(t, domain.RoleBuyer)
	teapot := api.seedProduct(t, "Teapot", "Porcelain", "12.50")
	tea := api.seedProduct(t, "Green tea", "Loose leaf", "3.75")

	for _, add := range []AddToCartRequest{
		{UserID: user.ID, ProductID: teapot.ID, Quantity: 2},
		{UserID: user.ID, ProductID: tea.ID, Quantity: 1},
	} {
		expectStatus(t, api.do(t, http.MethodPost, "/api/cart/add", add, token), http.StatusOK)
	}

	path := fmt.Sprintf("/api/orders/%d", user.ID)
	rec := api.do(t, http.MethodPost, path, nil, token)
	expectStatus(t, rec, http.StatusCreated)

	order := decodeBody[domain.Order](t, rec)
	if order.Status != domain.OrderStatusPending || order.UserID != user.ID {
		t.Errorf("unexpected order header: %+v", order)
	}
	if !order.Total.Equal(decimal.RequireFromString("28.75")) {
		t.Errorf("expected total 28.75, got %s", order.Total)
	}
	if len(order.Items) != 2 || !order.Items[0].Price.Equal(teapot.Price) || order.Items[0].Quantity != 2 {
		t.Errorf("unexpected items: %+v", order.Items)
	}

	cart := decodeBody[service.CartView](t, api.do(t, http.MethodGet, fmt.Sprintf("/api/cart/user/%d", user.ID), nil, token))
	if len(cart.Items) != 0 {
		t.Errorf("expected the cart to be cleared, got %d rows", len(cart.Items))
	}

	rec = api.do(t, http.MethodGet, path, nil, token)
	expectStatus(t, rec, http.StatusOK)
	if history := decodeBody[[]domain.Order](t, rec); len(history) != 1 || len(history[0].Items) != 2 {
		t.Errorf("expected one order with two items in history, got %+v", history)
	}
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	api := newTestAPI()
	user, token := api.seedUser(t, domain.RoleBuyer)

	rec := api.do(t, http.MethodPost, fmt.Sprintf("/api/orders/%d", user.ID), nil, token)
	expectStatus(t, rec, http.StatusBadRequest)
	if msg := errorMessage(t, rec); msg != service.ErrEmptyCart.Error() {
		t.Errorf("unexpected message %q", msg)
	}

	rec = api.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d", user.ID), nil, token)
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "[]\n" {
		t.Errorf("expected an empty history, got %q", rec.Body.String())
	}
}

func TestPlaceOrderFailureKeepsCart(t *testing.T) {
	api := newTestAPI()
	user, token := api.seedUser(t, domain.RoleBuyer)
	mug := api.seedProduct(t, "Plain mug", "Ceramic", "8.00")
	add := AddToCartRequest{UserID: user.ID, ProductID: mug.ID, Quantity: 3}
	expectStatus(t, api.do(t, http.MethodPost, "/api/cart/add", add, token), http.StatusOK)

	api.store.FailOn("Carts.DeleteItems", errors.New("connection reset"))
	rec := api.do(t, http.MethodPost, fmt.Sprintf("/api/orders/%d", user.ID), nil, token)
	expectStatus(t, rec, http.StatusInternalServerError)
	if msg := errorMessage(t, rec); msg != "internal server error" {
		t.Errorf("internal errors must not leak, got %q", msg)
	}
	api.store.FailOn("Carts.DeleteItems", nil)

	cart := decodeBody[service.CartView](t, api.do(t, http.MethodGet, fmt.Sprintf("/api/cart/user/%d", user.ID), nil, token))
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 3 {
		t.Errorf("expected the cart to survive the failed checkout, got %+v", cart.Items)
	}
	history := decodeBody[[]domain.Order](t, api.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d", user.ID), nil, token))
	if len(history) != 0 {
		t.Errorf("expected no order after rollback, got %d", len(history))
	}
}

func TestOrdersOfAnotherUserAreForbidden(t *testing.T) {
	api := newTestAPI()
	_, token := api.seedUser(t, domain.RoleBuyer)
	other, _ := api.seedUser(t, domain.RoleBuyer)
	path := fmt.Sprintf("/api/orders/%d", other.ID)

	expectStatus(t, api.do(t, http.MethodPost, path, nil, token), http.StatusForbidden)
	expectStatus(t, api.do(t, http.MethodGet, path, nil, token), http.StatusForbidden)
	expectStatus(t, api.do(t, http.MethodGet, path, nil, ""), http.StatusUnauthorized)
}

func TestOrderStatusTransitions(t *testing.T) {
	api := newTestAPI()
	user, token := api.seedUser(t, domain.RoleBuyer)
	_, adminToken := api.seedUser(t, domain.RoleAdmin)
	mug := api.seedProduct(t, "Plain mug", "Ceramic", "8.00")

	add := AddToCartRequest{UserID: user.ID, ProductID: mug.ID, Quantity: 1}
	expectStatus(t, api.do(t, http.MethodPost, "/api/cart/add", add, token), http.StatusOK)
	rec := api.do(t, http.MethodPost, fmt.Sprintf("/api/orders/%d", user.ID), nil, token)
	expectStatus(t, rec, http.StatusCreated)
	order := decodeBody[domain.Order](t, rec)
	path := fmt.Sprintf("/api/orders/%d/status", order.ID)

	tests := []struct {
		name   string
		token  string
		status string
		want   int
	}{
		{"buyer cannot change status", token, "confirmed", http.StatusForbidden},
		{"unknown status", adminToken, "lost", http.StatusBadRequest},
		{"skip ahead", adminToken, "delivered", http.StatusConflict},
		{"confirm", adminToken, "confirmed", http.StatusOK},
		{"back to pending", adminToken, "pending", http.StatusConflict},
		{"ship", adminToken, "shipped", http.StatusOK},
		{"cancel after shipping", adminToken, "cancelled", http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPatch, path, UpdateOrderStatusRequest{Status: tt.status}, tt.token)
			expectStatus(t, rec, tt.want)
			if tt.want == http.StatusOK {
				if got := decodeBody[domain.Order](t, rec); string(got.Status) != tt.status || len(got.Items) != 1 {
					t.Errorf("unexpected order after update: %+v", got)
				}
			}
		})
	}

	expectStatus(t, api.do(t, http.MethodPatch, "/api/orders/999/status", UpdateOrderStatusRequest{Status: "confirmed"}, adminToken), http.StatusNotFound)
}
