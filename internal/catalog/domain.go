package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/pricing"
)

// Product is a sellable item or service. A nil Stock marks a service that is
// not tracked by the stock ledger.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	PricingMode pricing.Mode    `json:"pricing_mode"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Stock       *int            `json:"stock"`
	MinStock    int             `json:"min_stock"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Priced returns the slice of the product the pricing rules need.
func (p Product) Priced() *pricing.PricedProduct {
	return &pricing.PricedProduct{Mode: p.PricingMode, Price: p.Price}
}

// ProductInput is the writable part of a product.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=100"`
	PricingMode pricing.Mode    `json:"pricing_mode" validate:"omitempty,oneof=UNIT M2"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Stock       *int            `json:"stock" validate:"omitempty,min=0"`
	MinStock    int             `json:"min_stock" validate:"min=0"`
}

// Supplier provides outsourced production services.
type Supplier struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	CNPJ        *string   `json:"cnpj"`
	ContactName string    `json:"contact_name"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Services    string    `json:"services"`
	CreatedAt   time.Time `json:"created_at"`
}

// SupplierInput is the writable part of a supplier.
type SupplierInput struct {
	Name        string  `json:"name" validate:"required,max=200"`
	CNPJ        *string `json:"cnpj"`
	ContactName string  `json:"contact_name" validate:"max=100"`
	Phone       string  `json:"phone" validate:"max=20"`
	Email       string  `json:"email" validate:"omitempty,email"`
	Services    string  `json:"services"`
}

// ListFilter narrows list queries.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}

var (
	// ErrProductNotFound indicates a missing product.
	ErrProductNotFound = fmt.Errorf("%w: catalog: product not found", httpx.ErrNotFound)
	// ErrSupplierNotFound indicates a missing supplier.
	ErrSupplierNotFound = fmt.Errorf("%w: catalog: supplier not found", httpx.ErrNotFound)
	// ErrDuplicateCNPJ is returned when another supplier already holds the number.
	ErrDuplicateCNPJ = fmt.Errorf("%w: catalog: a supplier with this cnpj already exists", httpx.ErrDuplicate)
	// ErrInvalidPhone is returned for phones with fewer than ten digits.
	ErrInvalidPhone = fmt.Errorf("%w: catalog: phone must have at least 10 digits", httpx.ErrValidation)
	// ErrProductInUse is returned when a product is referenced by quotes or orders.
	ErrProductInUse = fmt.Errorf("%w: catalog: product is used by quotes or orders", httpx.ErrConflict)
	// ErrSupplierInUse is returned when a supplier has recorded costs.
	ErrSupplierInUse = fmt.Errorf("%w: catalog: supplier has recorded costs", httpx.ErrConflict)

	errNegativeMoney = errors.New("catalog: price and cost must not be negative")
)
