package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kasirpos/kasirpos/internal/shared"
)

// Product is a sellable item tracked at the register. Stock counts whole
// units; prices are exact decimals in rupiah.
type Product struct {
	ID         int64           `json:"id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	CategoryID int64           `json:"category_id"`
	Unit       string          `json:"unit"`
	Price      decimal.Decimal `json:"price"`
	CostPrice  decimal.Decimal `json:"cost_price"`
	Stock      int             `json:"stock"`
	MinStock   int             `json:"min_stock"`
	IsActive   bool            `json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// LowOnStock reports whether the product sits at or below its restock level.
func (p Product) LowOnStock() bool {
	return p.IsActive && p.Stock <= p.MinStock
}

// Category groups products for listing and reporting.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateProductRequest carries payload for POST /products. InitialStock, when
// positive, is recorded as an inbound movement alongside the insert.
type CreateProductRequest struct {
	Code         string          `json:"code" validate:"required,max=50"`
	Name         string          `json:"name" validate:"required,max=150"`
	CategoryID   int64           `json:"category_id" validate:"required"`
	Unit         string          `json:"unit" validate:"required,max=20"`
	Price        decimal.Decimal `json:"price" validate:"required"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	InitialStock int             `json:"initial_stock" validate:"gte=0"`
	MinStock     int             `json:"min_stock" validate:"gte=0"`
}

// UpdateProductRequest carries payload for PUT /products/{code}. Stock is
// deliberately absent; stock changes go through movements.
type UpdateProductRequest struct {
	Name       string          `json:"name" validate:"required,max=150"`
	CategoryID int64           `json:"category_id" validate:"required"`
	Unit       string          `json:"unit" validate:"required,max=20"`
	Price      decimal.Decimal `json:"price" validate:"required"`
	CostPrice  decimal.Decimal `json:"cost_price"`
	MinStock   int             `json:"min_stock" validate:"gte=0"`
	IsActive   *bool           `json:"is_active"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	Search     string
	CategoryID int64
	ActiveOnly bool
	LowStock   bool
	Pagination shared.Pagination
}

// ErrDuplicateCode indicates the product code is already taken.
var ErrDuplicateCode = errors.New("catalog: product code already exists")

// ErrProductInUse indicates the product has sale history and can only be
// deactivated, not removed.
var ErrProductInUse = errors.New("catalog: product has sale history")

// ValidationError reports a rejected field with its reason.
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("catalog: %s %s", e.Field, e.Msg)
}
