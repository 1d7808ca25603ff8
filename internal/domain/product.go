package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Catalog limits that fit the products table columns.
const (
	MaxProductStock = 2147483647
	MaxSKULength    = 64
)

// MaxProductPrice is the highest unit price accepted for a product.
var MaxProductPrice = decimal.RequireFromString("99999999.99")

// Product represents a product in the catalog
type Product struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       int             `json:"stock" db:"stock"`
	SKU         string          `json:"sku" db:"sku"`
	Family      string          `json:"family" db:"family"`
	ImageURL    string          `json:"imageUrl" db:"image_url"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}
