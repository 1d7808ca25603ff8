package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/shopspring/decimal"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// CartView is a user's cart with product details and the running total
type CartView struct {
	UserID int64              `json:"userId"`
	Items  []*domain.CartItem `json:"items"`
	Total  decimal.Decimal    `json:"total"`
}

// CartService defines the interface for cart logic
type CartService interface {
	Add(ctx context.Context, userID, productID int64, quantity int) (*domain.CartItem, error)
	Get(ctx context.Context, cartID int64) (*domain.CartItem, error)
	UpdateQuantity(ctx context.Context, cartID int64, quantity int) (*domain.CartItem, error)
	Remove(ctx context.Context, cartID int64) error
	View(ctx context.Context, userID int64) (*CartView, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{cartRepo: cartRepo, productRepo: productRepo}
}

// Add puts quantity of a product in the user's cart. Adding a product that
// is already there increases its quantity.
func (s *cartService) Add(ctx context.Context, userID, productID int64, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	item, err := s.cartRepo.Upsert(ctx, userID, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to add to cart: %w", err)
	}
	item.Product = product

	return item, nil
}

// Get returns one cart row; used for ownership checks
func (s *cartService) Get(ctx context.Context, cartID int64) (*domain.CartItem, error) {
	item, err := s.cartRepo.FindByID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	return item, nil
}

func (s *cartService) UpdateQuantity(ctx context.Context, cartID int64, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	item, err := s.cartRepo.UpdateQuantity(ctx, cartID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	return item, nil
}

func (s *cartService) Remove(ctx context.Context, cartID int64) error {
	if err := s.cartRepo.Delete(ctx, cartID); err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

func (s *cartService) View(ctx context.Context, userID int64) (*CartView, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}

	return &CartView{UserID: userID, Items: items, Total: total}, nil
}
