package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/pricing"
)

func TestPaymentStatusFollowsPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, LineInput{Description: "Banner", Quantity: 1, Subtotal: decPtr("100")})

	p1, status, err := f.svc.RecordPayment(ctx, o.ID, PaymentInput{Amount: dec("40"), Method: MethodPix}, "")
	require.NoError(t, err)
	require.Equal(t, pricing.PaymentPartial, status)

	_, status, err = f.svc.RecordPayment(ctx, o.ID, PaymentInput{Amount: dec("60"), Method: MethodCash}, "")
	require.NoError(t, err)
	require.Equal(t, pricing.PaymentPaid, status)

	got, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, pricing.PaymentPaid, got.PaymentStatus)
	require.True(t, got.AmountDue.IsZero())

	require.NoError(t, f.svc.DeletePayment(ctx, o.ID, p1.ID))
	got, _ = f.svc.Get(ctx, o.ID)
	require.Equal(t, pricing.PaymentPartial, got.PaymentStatus)
	require.True(t, got.AmountDue.Equal(dec("40")))
}

func TestRecordPaymentValidation(t *testing.T) {
	f := newFixture(t)
	o := f.create(t)
	_, _, err := f.svc.RecordPayment(context.Background(), o.ID, PaymentInput{Amount: dec("0"), Method: MethodPix}, "")
	require.True(t, errors.Is(err, httpx.ErrValidation))

	_, _, err = f.svc.RecordPayment(context.Background(), o.ID, PaymentInput{Amount: dec("10"), Method: "CHEQUE"}, "")
	require.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestRecordPaymentIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, LineInput{Description: "Adesivo", Quantity: 1, Subtotal: decPtr("50")})
	in := PaymentInput{Amount: dec("50"), Method: MethodCard}

	_, _, err := f.svc.RecordPayment(ctx, o.ID, in, "retry-1")
	require.NoError(t, err)
	_, _, err = f.svc.RecordPayment(ctx, o.ID, in, "retry-1")
	require.True(t, errors.Is(err, httpx.ErrConflict))

	payments, err := f.svc.ListPayments(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)

	// a failed attempt releases its key
	_, _, err = f.svc.RecordPayment(ctx, 999, in, "retry-2")
	require.ErrorIs(t, err, ErrOrderNotFound)
	_, _, err = f.svc.RecordPayment(ctx, 999, in, "retry-2")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSupplierCostsDriveProductionCost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t)

	c1, err := f.svc.CreateCost(ctx, o.ID, CostInput{SupplierID: 3, Description: "Corte", Amount: dec("20")})
	require.NoError(t, err)
	require.Equal(t, CostOpen, c1.Status)
	_, err = f.svc.CreateCost(ctx, o.ID, CostInput{SupplierID: 3, Description: "Laminação", Amount: dec("15.50")})
	require.NoError(t, err)

	got, _ := f.svc.Get(ctx, o.ID)
	require.True(t, got.ProductionCost.Equal(dec("35.50")))

	_, err = f.svc.UpdateCost(ctx, c1.ID, CostInput{SupplierID: 3, Description: "Corte", Amount: dec("30")})
	require.NoError(t, err)
	got, _ = f.svc.Get(ctx, o.ID)
	require.True(t, got.ProductionCost.Equal(dec("45.50")))

	require.NoError(t, f.svc.DeleteCost(ctx, c1.ID))
	got, _ = f.svc.Get(ctx, o.ID)
	require.True(t, got.ProductionCost.Equal(dec("15.50")))

	_, err = f.svc.CreateCost(ctx, o.ID, CostInput{SupplierID: 3, Description: "x", Amount: dec("-1")})
	require.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestPayCost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t)
	c, err := f.svc.CreateCost(ctx, o.ID, CostInput{SupplierID: 3, Description: "Corte", Amount: dec("20")})
	require.NoError(t, err)

	paid, err := f.svc.PayCost(ctx, c.ID, httpx.Date{})
	require.NoError(t, err)
	require.Equal(t, CostPaid, paid.Status)
	require.Equal(t, httpx.NewDate(f.now), paid.PaidDate)

	_, err = f.svc.PayCost(ctx, c.ID, httpx.Date{})
	require.ErrorIs(t, err, ErrCostAlreadyPaid)
	require.True(t, errors.Is(err, httpx.ErrConflict))

	open, err := f.svc.ListCosts(ctx, CostFilter{Status: CostOpen})
	require.NoError(t, err)
	require.Empty(t, open)
}
