package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/pricing"
)

const (
	flyerID  int64 = 1
	bannerID int64 = 2
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func idPtr(id int64) *int64 { return &id }

type fixture struct {
	svc   *Service
	repo  *memoryRepo
	idem  *memIdempotency
	stock map[int64]int
	now   time.Time
}

// newFixture wires a service with a listener that mirrors the stock ledger
// arithmetic, so line events can be checked end to end.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:  newMemoryRepo(),
		idem:  &memIdempotency{},
		stock: map[int64]int{flyerID: 100, bannerID: 10},
		now:   time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC),
	}
	products := memProducts{
		flyerID:  {Mode: pricing.ModeUnit, Price: dec("10")},
		bannerID: {Mode: pricing.ModeArea, Price: dec("50")},
	}
	f.svc = NewService(f.repo, products, f.idem, nil).WithClock(func() time.Time { return f.now })
	f.svc.Subscribe(LineListenerFunc(func(_ context.Context, evt LineChanged) error {
		if evt.Before != nil && evt.Before.ProductID != nil {
			f.stock[*evt.Before.ProductID] += evt.Before.Quantity
		}
		if evt.After != nil && evt.After.ProductID != nil {
			f.stock[*evt.After.ProductID] -= evt.After.Quantity
		}
		return nil
	}))
	return f
}

func (f *fixture) create(t *testing.T, lines ...LineInput) Order {
	t.Helper()
	o, err := f.svc.Create(context.Background(), CreateInput{CustomerID: 1, Lines: lines})
	require.NoError(t, err)
	return o
}

func TestCreatePricesLinesAndSumsTotal(t *testing.T) {
	f := newFixture(t)
	o := f.create(t,
		LineInput{ProductID: idPtr(flyerID), Quantity: 3},
		LineInput{ProductID: idPtr(bannerID), Quantity: 2, Width: decPtr("2"), Height: decPtr("1.5")},
		LineInput{Description: "Arte", Quantity: 1, Subtotal: decPtr("45")},
	)
	require.Len(t, o.Lines, 3)
	require.True(t, o.Lines[0].Subtotal.Equal(dec("30")))
	require.True(t, o.Lines[1].Subtotal.Equal(dec("300")))
	require.True(t, o.Lines[2].Subtotal.Equal(dec("45")))
	require.True(t, o.Total.Equal(dec("375")))
	require.Equal(t, pricing.PaymentPending, o.PaymentStatus)
}

func TestCreateAreaLineWithoutDimensionsFails(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateInput{CustomerID: 1, Lines: []LineInput{{ProductID: idPtr(bannerID), Quantity: 1}}})
	require.ErrorIs(t, err, pricing.ErrDimensionsRequired)
	require.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestCreateWithExplicitTotalKeepsIt(t *testing.T) {
	f := newFixture(t)
	total := dec("25")
	o, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID:    1,
		SourceQuoteID: idPtr(7),
		Total:         &total,
		Lines:         []LineInput{{ProductID: idPtr(flyerID), Quantity: 3, Subtotal: decPtr("30")}},
	})
	require.NoError(t, err)
	require.True(t, o.Total.Equal(total))

	_, err = f.svc.Create(context.Background(), CreateInput{CustomerID: 1, SourceQuoteID: idPtr(7)})
	require.ErrorIs(t, err, ErrQuoteAlreadyConverted)
}

func TestUpdateLineKeepsManualSubtotal(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, LineInput{ProductID: idPtr(flyerID), Quantity: 3, Subtotal: decPtr("99.90")})
	lineID := o.Lines[0].ID
	ctx := context.Background()

	// no subtotal supplied: stored value survives
	line, err := f.svc.UpdateLine(ctx, o.ID, lineID, LineInput{ProductID: idPtr(flyerID), Quantity: 4})
	require.NoError(t, err)
	require.True(t, line.Subtotal.Equal(dec("99.90")))

	got, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	require.True(t, got.Total.Equal(dec("99.90")))

	line, err = f.svc.UpdateLine(ctx, o.ID, lineID, LineInput{ProductID: idPtr(flyerID), Quantity: 4, Recompute: true})
	require.NoError(t, err)
	require.True(t, line.Subtotal.Equal(dec("40")))

	line, err = f.svc.UpdateLine(ctx, o.ID, lineID, LineInput{ProductID: idPtr(flyerID), Quantity: 4, Subtotal: decPtr("0")})
	require.NoError(t, err)
	require.True(t, line.Subtotal.IsZero())
}

func TestTotalIsSumOfStoredSubtotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t,
		LineInput{ProductID: idPtr(flyerID), Quantity: 1, Subtotal: decPtr("12.34")},
		LineInput{Description: "Frete avulso", Quantity: 1, Subtotal: decPtr("7.66")},
	)
	require.True(t, o.Total.Equal(dec("20")))

	_, err := f.svc.AddLine(ctx, o.ID, LineInput{ProductID: idPtr(flyerID), Quantity: 2})
	require.NoError(t, err)
	got, _ := f.svc.Get(ctx, o.ID)
	require.True(t, got.Total.Equal(dec("40")))

	require.NoError(t, f.svc.DeleteLine(ctx, o.ID, o.Lines[0].ID))
	got, _ = f.svc.Get(ctx, o.ID)
	require.True(t, got.Total.Equal(dec("27.66")))
}

func TestLineEventsKeepStockInStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o := f.create(t, LineInput{ProductID: idPtr(flyerID), Quantity: 5})
	require.Equal(t, 95, f.stock[flyerID])
	lineID := o.Lines[0].ID

	_, err := f.svc.UpdateLine(ctx, o.ID, lineID, LineInput{ProductID: idPtr(flyerID), Quantity: 8})
	require.NoError(t, err)
	require.Equal(t, 92, f.stock[flyerID])

	_, err = f.svc.UpdateLine(ctx, o.ID, lineID, LineInput{ProductID: idPtr(flyerID), Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, 98, f.stock[flyerID])

	// moving the line to another product restores the first one
	_, err = f.svc.UpdateLine(ctx, o.ID, lineID, LineInput{ProductID: idPtr(bannerID), Quantity: 2, Width: decPtr("1"), Height: decPtr("1")})
	require.NoError(t, err)
	require.Equal(t, 100, f.stock[flyerID])
	require.Equal(t, 8, f.stock[bannerID])

	require.NoError(t, f.svc.DeleteLine(ctx, o.ID, lineID))
	require.Equal(t, 10, f.stock[bannerID])
}

func TestReplaceLinesAndDeleteOrderRestoreStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, LineInput{ProductID: idPtr(flyerID), Quantity: 5})

	lines := []LineInput{{ProductID: idPtr(flyerID), Quantity: 7}}
	updated, err := f.svc.Update(ctx, o.ID, UpdateInput{Lines: &lines})
	require.NoError(t, err)
	require.Len(t, updated.Lines, 1)
	require.Equal(t, 93, f.stock[flyerID])
	require.True(t, updated.Total.Equal(dec("70")))

	require.NoError(t, f.svc.Delete(ctx, o.ID))
	require.Equal(t, 100, f.stock[flyerID])
	_, err = f.svc.Get(ctx, o.ID)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListenerErrorIsReportedAfterCommit(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("boom")
	f.svc.Subscribe(LineListenerFunc(func(context.Context, LineChanged) error { return boom }))

	_, err := f.svc.Create(context.Background(), CreateInput{CustomerID: 1, Lines: []LineInput{{ProductID: idPtr(flyerID), Quantity: 1}}})
	require.ErrorIs(t, err, boom)

	all, total, err := f.repo.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, all[0].Lines, 1)
}

func TestUpdateReturnsCommittedOrderOnListenerError(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, LineInput{ProductID: idPtr(flyerID), Quantity: 1})
	boom := errors.New("boom")
	f.svc.Subscribe(LineListenerFunc(func(context.Context, LineChanged) error { return boom }))

	lines := []LineInput{{ProductID: idPtr(flyerID), Quantity: 4}}
	got, err := f.svc.Update(context.Background(), o.ID, UpdateInput{Lines: &lines})
	require.ErrorIs(t, err, boom)
	require.Equal(t, o.ID, got.ID)
	require.Len(t, got.Lines, 1)
	require.Equal(t, 4, got.Lines[0].Quantity)
	require.True(t, got.Total.Equal(dec("40")))
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	o := f.create(t)
	bad := ProductionStatus("QUEIMADO")
	_, err := f.svc.Update(context.Background(), o.ID, UpdateInput{ProductionStatus: &bad})
	require.True(t, errors.Is(err, httpx.ErrValidation))

	ok := ProductionRunning
	got, err := f.svc.Update(context.Background(), o.ID, UpdateInput{ProductionStatus: &ok})
	require.NoError(t, err)
	require.Equal(t, ProductionRunning, got.ProductionStatus)
}
