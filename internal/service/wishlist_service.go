package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// ToggleResult reports what a wishlist toggle did
type ToggleResult string

const (
	WishlistAdded   ToggleResult = "added"
	WishlistRemoved ToggleResult = "removed"
)

// WishlistService defines the interface for wishlist logic
type WishlistService interface {
	Toggle(ctx context.Context, userID, productID int64) (ToggleResult, error)
	List(ctx context.Context, userID int64) ([]*domain.WishlistItem, error)
}

type wishlistService struct {
	wishlistRepo repository.WishlistRepository
	productRepo  repository.ProductRepository
}

// NewWishlistService creates a new instance of WishlistService
func NewWishlistService(wishlistRepo repository.WishlistRepository, productRepo repository.ProductRepository) WishlistService {
	return &wishlistService{wishlistRepo: wishlistRepo, productRepo: productRepo}
}

// Toggle removes the product from the user's wishlist when present and adds
// it otherwise.
func (s *wishlistService) Toggle(ctx context.Context, userID, productID int64) (ToggleResult, error) {
	existing, err := s.wishlistRepo.Find(ctx, userID, productID)
	switch {
	case err == nil:
		if err := s.wishlistRepo.Delete(ctx, existing.ID); err != nil && !errors.Is(err, repository.ErrWishlistItemNotFound) {
			return "", fmt.Errorf("failed to remove from wishlist: %w", err)
		}
		return WishlistRemoved, nil

	case !errors.Is(err, repository.ErrWishlistItemNotFound):
		return "", fmt.Errorf("failed to look up wishlist: %w", err)
	}

	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		return "", fmt.Errorf("failed to get product: %w", err)
	}

	item := &domain.WishlistItem{UserID: userID, ProductID: productID}
	if err := s.wishlistRepo.Create(ctx, item); err != nil {
		// A concurrent toggle created the row first; it is present either way.
		if errors.Is(err, repository.ErrWishlistItemExists) {
			return WishlistAdded, nil
		}
		return "", fmt.Errorf("failed to add to wishlist: %w", err)
	}

	return WishlistAdded, nil
}

func (s *wishlistService) List(ctx context.Context, userID int64) ([]*domain.WishlistItem, error) {
	items, err := s.wishlistRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wishlist: %w", err)
	}
	return items, nil
}
