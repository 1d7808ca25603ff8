package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/repository/repotest"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

var seq int64

func nextSeq() int64 {
	return atomic.AddInt64(&seq, 1)
}

type services struct {
	store    *repotest.Store
	tokens   *auth.TokenManager
	auth     AuthService
	users    UserService
	products ProductService
	carts    CartService
	wishlist WishlistService
	orders   OrderService
}

func newServices() *services {
	store := repotest.NewStore()
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	logger := zap.NewNop()

	return &services{
		store:    store,
		tokens:   tokens,
		auth:     NewAuthService(store.Users(), store.RefreshTokens(), tokens, 7*24*time.Hour, logger),
		users:    NewUserService(store.Users(), logger),
		products: NewProductService(store.Products(), logger),
		carts:    NewCartService(store.Carts(), store.Products()),
		wishlist: NewWishlistService(store.Wishlists(), store.Products()),
		orders:   NewOrderService(store, logger),
	}
}

func (s *services) seedUser(t *testing.T) *domain.User {
	t.Helper()
	user := &domain.User{
		UserName: "shopper",
		Email:    fmt.Sprintf("shopper-%d@example.com", nextSeq()),
		Role:     domain.RoleBuyer,
		Approved: true,
	}
	if err := s.store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (s *services) seedProduct(t *testing.T, name, price string) *domain.Product {
	t.Helper()
	product, err := s.products.Create(context.Background(), ProductInput{
		Name:        name,
		Description: name + " for everyday use",
		Price:       decimal.RequireFromString(price),
		Stock:       10,
		SKU:         fmt.Sprintf("SKU-%d", nextSeq()),
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}
