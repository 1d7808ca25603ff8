package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"
)

var (
	ErrWishlistItemNotFound = errors.New("wishlist item not found")
	ErrWishlistItemExists   = errors.New("product is already in the wishlist")
)

// WishlistRepository defines the interface for wishlist data access
type WishlistRepository interface {
	Find(ctx context.Context, userID, productID int64) (*domain.WishlistItem, error)
	Create(ctx context.Context, item *domain.WishlistItem) error
	Delete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID int64) ([]*domain.WishlistItem, error)
}

type wishlistRepository struct {
	db DBTX
}

// NewWishlistRepository creates a new instance of WishlistRepository
func NewWishlistRepository(db DBTX) WishlistRepository {
	return &wishlistRepository{db: db}
}

func (r *wishlistRepository) Find(ctx context.Context, userID, productID int64) (*domain.WishlistItem, error) {
	query := `
		SELECT id, user_id, product_id, created_at
		FROM wishlist_items
		WHERE user_id = $1 AND product_id = $2
	`

	item := &domain.WishlistItem{}
	err := r.db.QueryRowContext(ctx, query, userID, productID).
		Scan(&item.ID, &item.UserID, &item.ProductID, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWishlistItemNotFound
		}
		return nil, fmt.Errorf("failed to find wishlist item: %w", err)
	}

	return item, nil
}

func (r *wishlistRepository) Create(ctx context.Context, item *domain.WishlistItem) error {
	query := `
		INSERT INTO wishlist_items (user_id, product_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, item.UserID, item.ProductID).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		switch {
		case constraintViolation(err, pgUniqueViolation, "wishlist_items_user_product_key"):
			return ErrWishlistItemExists
		case constraintViolation(err, pgForeignKeyViolation, "fk_wishlist_items_product"):
			return ErrProductNotFound
		case constraintViolation(err, pgForeignKeyViolation, "fk_wishlist_items_user"):
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create wishlist item: %w", err)
	}

	return nil
}

func (r *wishlistRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM wishlist_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete wishlist item: %w", err)
	}

	return expectAffected(result, ErrWishlistItemNotFound)
}

// ListByUser returns the user's wishlist with product details, oldest first
func (r *wishlistRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.WishlistItem, error) {
	query := `
		SELECT w.id, w.user_id, w.product_id, w.created_at,
		       p.id, p.name, p.description, p.price, p.stock, p.sku, p.family, p.image_url, p.created_at, p.updated_at
		FROM wishlist_items w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	defer rows.Close()

	items := []*domain.WishlistItem{}
	for rows.Next() {
		item := &domain.WishlistItem{Product: &domain.Product{}}
		p := item.Product
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.CreatedAt,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.SKU, &p.Family, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wishlist: %w", err)
	}

	return items, nil
}
