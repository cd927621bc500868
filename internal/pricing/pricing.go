// Package pricing holds the line subtotal, quote total and payment status rules
// shared by quotes and orders.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/inkworks/inkworks/internal/platform/httpx"
)

// Mode selects how a product is priced.
type Mode string

const (
	// ModeUnit prices per piece.
	ModeUnit Mode = "UNIT"
	// ModeArea prices per square metre.
	ModeArea Mode = "M2"
)

// Valid reports whether m is a known pricing mode.
func (m Mode) Valid() bool {
	return m == ModeUnit || m == ModeArea
}

// SubtotalPolicy decides what happens to a caller supplied subtotal.
type SubtotalPolicy int

const (
	// KeepSupplied keeps a supplied subtotal, including zero, and computes
	// one only when none was given.
	KeepSupplied SubtotalPolicy = iota
	// ForceRecompute ignores any supplied subtotal.
	ForceRecompute
)

// PricedProduct is the slice of a product the formulas need.
type PricedProduct struct {
	Mode  Mode
	Price decimal.Decimal
}

// LineInput carries the values of a quote or order line.
type LineInput struct {
	Quantity int
	Width    *decimal.Decimal
	Height   *decimal.Decimal
	Subtotal *decimal.Decimal
}

// PaymentStatus of an order.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDENTE"
	PaymentPartial PaymentStatus = "PARCIAL"
	PaymentPaid    PaymentStatus = "PAGO"
)

var (
	// ErrDimensionsRequired is returned for area priced lines missing width or height.
	ErrDimensionsRequired = fmt.Errorf("%w: pricing: width and height are required for area priced products", httpx.ErrValidation)
	// ErrInvalidDimensions is returned when width or height is not positive.
	ErrInvalidDimensions = fmt.Errorf("%w: pricing: width and height must be positive", httpx.ErrValidation)
	// ErrInvalidQuantity is returned for non positive quantities.
	ErrInvalidQuantity  = fmt.Errorf("%w: pricing: quantity must be positive", httpx.ErrValidation)
	errNegativeSubtotal = errors.New("pricing: subtotal must not be negative")
)

// ResolveSubtotal returns the subtotal a line should store.
//
// A nil product with no supplied subtotal yields zero so that free text lines
// can be saved and priced later.
func ResolveSubtotal(product *PricedProduct, in LineInput, policy SubtotalPolicy) (decimal.Decimal, error) {
	if in.Quantity <= 0 {
		return decimal.Zero, ErrInvalidQuantity
	}
	if policy == KeepSupplied && in.Subtotal != nil {
		if in.Subtotal.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: %w", httpx.ErrValidation, errNegativeSubtotal)
		}
		return in.Subtotal.Round(2), nil
	}
	if product == nil {
		if policy == ForceRecompute && in.Subtotal != nil {
			// Free text lines have no formula; forcing keeps what is stored.
			return in.Subtotal.Round(2), nil
		}
		return decimal.Zero, nil
	}
	qty := decimal.NewFromInt(int64(in.Quantity))
	switch product.Mode {
	case ModeArea:
		if in.Width == nil || in.Height == nil {
			return decimal.Zero, ErrDimensionsRequired
		}
		if !in.Width.IsPositive() || !in.Height.IsPositive() {
			return decimal.Zero, ErrInvalidDimensions
		}
		return product.Price.Mul(*in.Width).Mul(*in.Height).Mul(qty).Round(2), nil
	default:
		return product.Price.Mul(qty).Round(2), nil
	}
}

// QuoteTotal sums subtotals, subtracts the discount and adds shipping. The
// result never goes below zero.
func QuoteTotal(subtotals []decimal.Decimal, discount, shipping decimal.Decimal) decimal.Decimal {
	total := Sum(subtotals).Sub(discount).Add(shipping)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// Sum adds up values.
func Sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// StatusFor derives the payment status of an order from what has been paid.
func StatusFor(total, paid decimal.Decimal) PaymentStatus {
	switch {
	case paid.IsPositive() && paid.GreaterThanOrEqual(total):
		return PaymentPaid
	case paid.IsPositive():
		return PaymentPartial
	default:
		return PaymentPending
	}
}

// UnitPrice is the per piece price printed on documents.
func UnitPrice(subtotal decimal.Decimal, quantity int) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	return subtotal.Div(decimal.NewFromInt(int64(quantity))).Round(2)
}
