package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository/repotest"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

var seq int64

func nextSeq() int64 {
	return atomic.AddInt64(&seq, 1)
}

// testAPI is the full route table over an in-memory store.
type testAPI struct {
	store  *repotest.Store
	tokens *auth.TokenManager
	auth   service.AuthService
	router chi.Router
}

func newTestAPI() *testAPI {
	return newTestAPIWithLimiter(nil)
}

func newTestAPIWithLimiter(rateLimit func(http.Handler) http.Handler) *testAPI {
	store := repotest.NewStore()
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	logger := zap.NewNop()

	authService := service.NewAuthService(store.Users(), store.RefreshTokens(), tokens, 7*24*time.Hour, logger)
	authMiddleware := middleware.AuthMiddleware(tokens, logger)

	r := chi.NewRouter()
	NewAuthHandler(authService, logger).RegisterRoutes(r, authMiddleware, rateLimit)
	NewProductHandler(service.NewProductService(store.Products(), logger), logger).RegisterRoutes(r, authMiddleware)
	NewCartHandler(service.NewCartService(store.Carts(), store.Products()), logger).RegisterRoutes(r, authMiddleware)
	NewWishlistHandler(service.NewWishlistService(store.Wishlists(), store.Products()), logger).RegisterRoutes(r, authMiddleware)
	NewOrderHandler(service.NewOrderService(store, logger), logger).RegisterRoutes(r, authMiddleware)
	NewAdminHandler(service.NewUserService(store.Users(), logger), logger).RegisterRoutes(r, authMiddleware)

	return &testAPI{store: store, tokens: tokens, auth: authService, router: r}
}

// do sends body as JSON, or verbatim when it is a string, with an optional
// bearer token.
func (a *testAPI) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// seedUser stores an approved account and returns it with an access token.
func (a *testAPI) seedUser(t *testing.T, role string) (*domain.User, string) {
	t.Helper()

	user := &domain.User{
		UserName: role,
		Email:    fmt.Sprintf("%s-%d@example.com", role, nextSeq()),
		Role:     role,
		Approved: true,
	}
	if err := a.store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	token, _, err := a.tokens.Issue(user.ID, user.Role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return user, token
}

func (a *testAPI) seedProduct(t *testing.T, name, description, price string) *domain.Product {
	t.Helper()

	product := &domain.Product{
		Name:        name,
		Description: description,
		Price:       decimal.RequireFromString(price),
		Stock:       10,
		SKU:         fmt.Sprintf("SKU-%d", nextSeq()),
		Family:      "general",
	}
	if err := a.store.Products().Create(context.Background(), product); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response (status %d): %v", rec.Code, err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[middleware.ErrorResponse](t, rec).Error.Message
}
