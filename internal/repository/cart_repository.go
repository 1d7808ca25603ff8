package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"
)

var ErrCartItemNotFound = errors.New("cart item not found")

// CartRepository defines the interface for cart data access
type CartRepository interface {
	// Upsert adds quantity to the user's row for productID, creating the row
	// when it does not exist yet.
	Upsert(ctx context.Context, userID, productID int64, quantity int) (*domain.CartItem, error)
	FindByID(ctx context.Context, id int64) (*domain.CartItem, error)
	UpdateQuantity(ctx context.Context, id int64, quantity int) (*domain.CartItem, error)
	Delete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID int64) ([]*domain.CartItem, error)
	// ListByUserForUpdate is ListByUser holding row locks until the
	// surrounding transaction ends.
	ListByUserForUpdate(ctx context.Context, userID int64) ([]*domain.CartItem, error)
	// DeleteItems removes the listed rows of the user's cart and nothing else.
	DeleteItems(ctx context.Context, userID int64, ids []int64) (int64, error)
}

type cartRepository struct {
	db DBTX
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db DBTX) CartRepository {
	return &cartRepository{db: db}
}

const cartColumns = `id, user_id, product_id, quantity, created_at, updated_at`

func scanCartItem(row rowScanner) (*domain.CartItem, error) {
	item := &domain.CartItem{}
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (r *cartRepository) Upsert(ctx context.Context, userID, productID int64, quantity int) (*domain.CartItem, error) {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING ` + cartColumns

	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, userID, productID, quantity))
	if err != nil {
		switch {
		case constraintViolation(err, pgForeignKeyViolation, "fk_cart_items_product"):
			return nil, ErrProductNotFound
		case constraintViolation(err, pgForeignKeyViolation, "fk_cart_items_user"):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to upsert cart item: %w", err)
	}

	return item, nil
}

func (r *cartRepository) FindByID(ctx context.Context, id int64) (*domain.CartItem, error) {
	query := `SELECT ` + cartColumns + ` FROM cart_items WHERE id = $1`

	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}

	return item, nil
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, id int64, quantity int) (*domain.CartItem, error) {
	query := `UPDATE cart_items SET quantity = $2 WHERE id = $1 RETURNING ` + cartColumns

	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, id, quantity))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}

	return item, nil
}

func (r *cartRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	return expectAffected(result, ErrCartItemNotFound)
}

func (r *cartRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.CartItem, error) {
	return r.listByUser(ctx, userID, "")
}

func (r *cartRepository) ListByUserForUpdate(ctx context.Context, userID int64) ([]*domain.CartItem, error) {
	return r.listByUser(ctx, userID, "FOR UPDATE OF c")
}

func (r *cartRepository) listByUser(ctx context.Context, userID int64, lock string) ([]*domain.CartItem, error) {
	query := `
		SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at,
		       p.id, p.name, p.description, p.price, p.stock, p.sku, p.family, p.image_url, p.created_at, p.updated_at
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.id ASC
	` + lock

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []*domain.CartItem{}
	for rows.Next() {
		item := &domain.CartItem{Product: &domain.Product{}}
		p := item.Product
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.SKU, &p.Family, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// DeleteItems returns the number of removed rows
func (r *cartRepository) DeleteItems(ctx context.Context, userID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND id = ANY($2)`, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return n, nil
}
