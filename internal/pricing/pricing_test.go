package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/inkworks/inkworks/internal/platform/httpx"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestResolveSubtotalFormulas(t *testing.T) {
	flat := &PricedProduct{Mode: ModeUnit, Price: dec("10")}
	got, err := ResolveSubtotal(flat, LineInput{Quantity: 3}, KeepSupplied)
	require.NoError(t, err)
	require.True(t, got.Equal(dec("30")), got.String())

	area := &PricedProduct{Mode: ModeArea, Price: dec("5")}
	got, err = ResolveSubtotal(area, LineInput{Quantity: 1, Width: ptr("2"), Height: ptr("3")}, KeepSupplied)
	require.NoError(t, err)
	require.True(t, got.Equal(dec("30")), got.String())
}

func TestResolveSubtotalAreaNeedsDimensions(t *testing.T) {
	area := &PricedProduct{Mode: ModeArea, Price: dec("5")}
	_, err := ResolveSubtotal(area, LineInput{Quantity: 1, Width: ptr("2")}, KeepSupplied)
	require.ErrorIs(t, err, ErrDimensionsRequired)
	require.ErrorIs(t, err, httpx.ErrValidation)

	for _, dims := range [][2]string{{"-2", "3"}, {"0", "3"}, {"2", "0"}, {"2", "-1"}} {
		_, err = ResolveSubtotal(area, LineInput{Quantity: 1, Width: ptr(dims[0]), Height: ptr(dims[1])}, KeepSupplied)
		require.ErrorIs(t, err, ErrInvalidDimensions, "width=%s height=%s", dims[0], dims[1])
		require.ErrorIs(t, err, httpx.ErrValidation)
	}
}

func TestResolveSubtotalPolicy(t *testing.T) {
	flat := &PricedProduct{Mode: ModeUnit, Price: dec("10")}

	got, err := ResolveSubtotal(flat, LineInput{Quantity: 3, Subtotal: ptr("25")}, KeepSupplied)
	require.NoError(t, err)
	require.True(t, got.Equal(dec("25")))

	got, err = ResolveSubtotal(flat, LineInput{Quantity: 3, Subtotal: ptr("0")}, KeepSupplied)
	require.NoError(t, err)
	require.True(t, got.IsZero(), "explicit zero is honoured")

	got, err = ResolveSubtotal(flat, LineInput{Quantity: 3, Subtotal: ptr("25")}, ForceRecompute)
	require.NoError(t, err)
	require.True(t, got.Equal(dec("30")))
}

func TestResolveSubtotalWithoutProduct(t *testing.T) {
	got, err := ResolveSubtotal(nil, LineInput{Quantity: 2}, KeepSupplied)
	require.NoError(t, err)
	require.True(t, got.IsZero())

	got, err = ResolveSubtotal(nil, LineInput{Quantity: 2, Subtotal: ptr("12.5")}, ForceRecompute)
	require.NoError(t, err)
	require.True(t, got.Equal(dec("12.5")))

	_, err = ResolveSubtotal(nil, LineInput{Quantity: 0}, KeepSupplied)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestQuoteTotalClampsAtZero(t *testing.T) {
	subtotals := []decimal.Decimal{dec("30"), dec("20")}
	require.True(t, QuoteTotal(subtotals, dec("5"), dec("10")).Equal(dec("55")))
	require.True(t, QuoteTotal(subtotals, dec("80"), dec("0")).IsZero())
	require.True(t, QuoteTotal(nil, decimal.Zero, dec("7")).Equal(dec("7")))
}

func TestStatusFor(t *testing.T) {
	total := dec("100")
	require.Equal(t, PaymentPaid, StatusFor(total, dec("40").Add(dec("60"))))
	require.Equal(t, PaymentPartial, StatusFor(total, dec("40")))
	require.Equal(t, PaymentPending, StatusFor(total, decimal.Zero))
	require.Equal(t, PaymentPaid, StatusFor(total, dec("120")))
}

func TestUnitPrice(t *testing.T) {
	require.True(t, UnitPrice(dec("30"), 3).Equal(dec("10")))
	require.True(t, UnitPrice(dec("30"), 0).IsZero())
}
