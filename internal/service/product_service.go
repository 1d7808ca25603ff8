package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"go.uber.org/zap"
)

var (
	ErrEmptySearchTerm = errors.New("search term must not be empty")
	ErrInvalidProduct  = errors.New("invalid product")
)

// ProductInput carries the writable fields of a product
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	SKU         string
	Family      string
	ImageURL    string
}

// ProductService defines the interface for catalog logic
type ProductService interface {
	List(ctx context.Context) ([]*domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Search(ctx context.Context, term string) ([]*domain.Product, error)
	Create(ctx context.Context, in ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id int64, in ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
	Export(ctx context.Context, w io.Writer) error
}

type productService struct {
	productRepo repository.ProductRepository
	logger      *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository, logger *zap.Logger) ProductService {
	return &productService{productRepo: productRepo, logger: logger}
}

func (s *productService) List(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *productService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// Search matches term against product names and descriptions. No match is
// an empty result, not an error.
func (s *productService) Search(ctx context.Context, term string) ([]*domain.Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrEmptySearchTerm
	}

	products, err := s.productRepo.Search(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

func (s *productService) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	product, err := in.toProduct()
	if err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("sku", product.SKU))
	return product, nil
}

func (s *productService) Update(ctx context.Context, id int64, in ProductInput) (*domain.Product, error) {
	product, err := in.toProduct()
	if err != nil {
		return nil, err
	}
	product.ID = id

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

func (s *productService) Delete(ctx context.Context, id int64) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

var exportHeaders = []string{
	"ID", "Name", "Description", "Price", "Stock", "SKU", "Family", "ImageURL", "CreatedAt", "UpdatedAt",
}

// Export writes the whole catalog to w as an xlsx workbook with one sheet
func (s *productService) Export(ctx context.Context, w io.Writer) error {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range exportHeaders {
		headerRow.AddCell().SetString(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetInt64(p.ID)
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Description)
		row.AddCell().SetString(p.Price.StringFixed(2))
		row.AddCell().SetInt(p.Stock)
		row.AddCell().SetString(p.SKU)
		row.AddCell().SetString(p.Family)
		row.AddCell().SetString(p.ImageURL)
		row.AddCell().SetString(p.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetString(p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	return nil
}

func (in ProductInput) toProduct() (*domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	sku := strings.TrimSpace(in.SKU)

	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case sku == "":
		return nil, fmt.Errorf("%w: sku is required", ErrInvalidProduct)
	case len(sku) > domain.MaxSKULength:
		return nil, fmt.Errorf("%w: sku is too long", ErrInvalidProduct)
	case in.Price.IsNegative():
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case in.Price.Round(2).GreaterThan(domain.MaxProductPrice):
		return nil, fmt.Errorf("%w: price exceeds %s", ErrInvalidProduct, domain.MaxProductPrice.StringFixed(2))
	case in.Stock < 0:
		return nil, fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	case in.Stock > domain.MaxProductStock:
		return nil, fmt.Errorf("%w: stock exceeds %d", ErrInvalidProduct, domain.MaxProductStock)
	}

	return &domain.Product{
		Name:        name,
		Description: in.Description,
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
		SKU:         sku,
		Family:      strings.TrimSpace(in.Family),
		ImageURL:    in.ImageURL,
	}, nil
}
