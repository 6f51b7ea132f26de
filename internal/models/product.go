package models

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a catalog item as fetched from the backing store.
// Prices and quantities are non-negative; absent numeric fields are treated
// as zero by every computation.
type Product struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	SKU             string     `json:"sku" db:"sku"`
	Description     string     `json:"description,omitempty" db:"description"`
	CostPrice       float64    `json:"cost_price" db:"cost_price"`
	SalePrice       float64    `json:"sale_price" db:"sale_price"`
	StockQuantity   int        `json:"stock_quantity" db:"stock_quantity"`
	MinStock        int        `json:"min_stock" db:"min_stock"`
	CategoryID      *uuid.UUID `json:"category_id,omitempty" db:"category_id"`
	SupplierID      *uuid.UUID `json:"supplier_id,omitempty" db:"supplier_id"`
	IsActive        bool       `json:"is_active" db:"is_active"`
	DiscountPercent float64    `json:"discount_percent,omitempty" db:"discount_percent"`
	Images          []string   `json:"images,omitempty" db:"images"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Margin returns the unit margin ratio (sale − cost) / sale, or 0 when the
// sale price is zero.
func (p *Product) Margin() float64 {
	if p.SalePrice <= 0 {
		return 0
	}
	return (p.SalePrice - p.CostPrice) / p.SalePrice
}

// InStock reports whether the product has any units on hand.
func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}

// Category represents a product grouping. Products reference at most one
// category by id; the reference is lookup-only.
type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CreateProductRequest represents a request to create a product.
type CreateProductRequest struct {
	Name            string     `json:"name" binding:"required"`
	SKU             string     `json:"sku" binding:"required"`
	Description     string     `json:"description"`
	CostPrice       float64    `json:"cost_price"`
	SalePrice       float64    `json:"sale_price"`
	StockQuantity   int        `json:"stock_quantity"`
	MinStock        int        `json:"min_stock"`
	CategoryID      *uuid.UUID `json:"category_id,omitempty"`
	SupplierID      *uuid.UUID `json:"supplier_id,omitempty"`
	DiscountPercent float64    `json:"discount_percent"`
}

// UpdateProductRequest represents a partial product update.
type UpdateProductRequest struct {
	Name            *string    `json:"name,omitempty"`
	Description     *string    `json:"description,omitempty"`
	CostPrice       *float64   `json:"cost_price,omitempty"`
	SalePrice       *float64   `json:"sale_price,omitempty"`
	StockQuantity   *int       `json:"stock_quantity,omitempty"`
	MinStock        *int       `json:"min_stock,omitempty"`
	CategoryID      *uuid.UUID `json:"category_id,omitempty"`
	IsActive        *bool      `json:"is_active,omitempty"`
	DiscountPercent *float64   `json:"discount_percent,omitempty"`
}

// ProductQuery represents list filters for the product repository.
type ProductQuery struct {
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	IsActive   *bool      `json:"is_active,omitempty"`
	Search     string     `json:"search,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}
