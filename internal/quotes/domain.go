// Package quotes prices customer quotes and turns approved ones into orders.
package quotes

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/pricing"
)

// Status is the lifecycle state of a quote.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Quote is a priced proposal for a customer.
type Quote struct {
	ID           int64           `json:"id"`
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	CreatedAt    time.Time       `json:"created_at"`
	ValidUntil   httpx.Date      `json:"valid_until"`
	Status       Status          `json:"status"`
	Shipping     decimal.Decimal `json:"shipping"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	OrderID      *int64          `json:"order_id"`
	Lines        []Line          `json:"lines,omitempty"`
}

// Line is one item of a quote.
type Line struct {
	ID          int64            `json:"id"`
	QuoteID     int64            `json:"quote_id"`
	ProductID   *int64           `json:"product_id"`
	ProductName string           `json:"product_name,omitempty"`
	Quantity    int              `json:"quantity"`
	Width       *decimal.Decimal `json:"width"`
	Height      *decimal.Decimal `json:"height"`
	Description string           `json:"description"`
	Subtotal    decimal.Decimal  `json:"subtotal"`
}

// Label is what documents print for the line.
func (l Line) Label() string {
	switch {
	case l.Description != "":
		return l.Description
	case l.ProductName != "":
		return l.ProductName
	default:
		return "Item"
	}
}

// LineInput carries a line to be created or changed. A nil Subtotal means
// none was supplied; Recompute forces the pricing formula.
type LineInput struct {
	ProductID   *int64           `json:"product_id" validate:"omitempty,gt=0"`
	Quantity    int              `json:"quantity" validate:"gt=0"`
	Width       *decimal.Decimal `json:"width"`
	Height      *decimal.Decimal `json:"height"`
	Description string           `json:"description" validate:"max=255"`
	Subtotal    *decimal.Decimal `json:"subtotal"`
	Recompute   bool             `json:"recompute"`
}

func (in LineInput) pricingInput() pricing.LineInput {
	return pricing.LineInput{Quantity: in.Quantity, Width: in.Width, Height: in.Height, Subtotal: in.Subtotal}
}

func (in LineInput) policy() pricing.SubtotalPolicy {
	if in.Recompute {
		return pricing.ForceRecompute
	}
	return pricing.KeepSupplied
}

// CreateInput describes a new quote.
type CreateInput struct {
	CustomerID int64           `json:"customer_id" validate:"required,gt=0"`
	ValidUntil httpx.Date      `json:"valid_until"`
	Shipping   decimal.Decimal `json:"shipping"`
	Discount   decimal.Decimal `json:"discount"`
	Lines      []LineInput     `json:"lines" validate:"dive"`
}

// UpdateInput changes header fields; nil fields are left alone. Lines, when
// present, replace every existing line. Setting Status to APPROVED converts
// the quote into an order.
type UpdateInput struct {
	CustomerID *int64           `json:"customer_id" validate:"omitempty,gt=0"`
	ValidUntil *httpx.Date      `json:"valid_until"`
	Status     *Status          `json:"status"`
	Shipping   *decimal.Decimal `json:"shipping"`
	Discount   *decimal.Decimal `json:"discount"`
	Lines      *[]LineInput     `json:"lines"`
}

// header is the part of UpdateInput the repository writes.
type header struct {
	CustomerID *int64
	ValidUntil *httpx.Date
	Status     *Status
	Shipping   *decimal.Decimal
	Discount   *decimal.Decimal
}

// ListFilter narrows quote listings.
type ListFilter struct {
	Search string
	Status Status
	Limit  int
	Offset int
}

var (
	// ErrQuoteNotFound indicates a missing quote.
	ErrQuoteNotFound = fmt.Errorf("%w: quotes: quote not found", httpx.ErrNotFound)
	// ErrLineNotFound indicates a missing line on the quote.
	ErrLineNotFound = fmt.Errorf("%w: quotes: line not found", httpx.ErrNotFound)
	// ErrApproved is returned when changing an approved quote.
	ErrApproved = fmt.Errorf("%w: quotes: approved quotes cannot be changed", httpx.ErrConflict)
	// ErrAlreadyConverted is returned when converting a quote twice.
	ErrAlreadyConverted = fmt.Errorf("%w: quotes: quote was already converted to an order", httpx.ErrConflict)
	// ErrCustomerNotFound is returned when the referenced customer is missing.
	ErrCustomerNotFound = fmt.Errorf("%w: quotes: customer not found", httpx.ErrValidation)
	// ErrProductNotFound is returned when a line references a missing product.
	ErrProductNotFound = fmt.Errorf("%w: quotes: product not found", httpx.ErrValidation)
	// ErrNegativeAmount is returned for negative shipping or discount.
	ErrNegativeAmount = fmt.Errorf("%w: quotes: shipping and discount must not be negative", httpx.ErrValidation)
)
