package quotes

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/inkworks/inkworks/internal/orders"
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

type memoryRepo struct {
	mu      sync.Mutex
	nextID  int64
	quotes  map[int64]Quote
	lines   map[int64]Line
	orderOf map[int64]int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{quotes: map[int64]Quote{}, lines: map[int64]Line{}, orderOf: map[int64]int64{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	quotes := make(map[int64]Quote, len(m.quotes))
	for k, v := range m.quotes {
		quotes[k] = v
	}
	lines := make(map[int64]Line, len(m.lines))
	for k, v := range m.lines {
		lines[k] = v
	}
	next := m.nextID
	if err := fn(ctx, &memTx{m}); err != nil {
		m.quotes, m.lines, m.nextID = quotes, lines, next
		return err
	}
	return nil
}

func (m *memoryRepo) get(id int64) (Quote, error) {
	q, ok := m.quotes[id]
	if !ok {
		return Quote{}, ErrQuoteNotFound
	}
	if orderID, ok := m.orderOf[id]; ok {
		q.OrderID = &orderID
	}
	q.Lines = m.linesOf(id)
	return q, nil
}

func (m *memoryRepo) linesOf(quoteID int64) []Line {
	var out []Line
	for _, l := range m.lines {
		if l.QuoteID == quoteID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *memoryRepo) List(_ context.Context, f ListFilter) ([]Quote, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Quote{}
	for id, q := range m.quotes {
		if q.Status == StatusApproved || (f.Status != "" && q.Status != f.Status) {
			continue
		}
		full, _ := m.get(id)
		out = append(out, full)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

type memTx struct{ m *memoryRepo }

func (t *memTx) LockQuote(_ context.Context, id int64) (Quote, error) {
	return t.m.get(id)
}

func (t *memTx) InsertQuote(_ context.Context, in CreateInput) (int64, error) {
	t.m.nextID++
	id := t.m.nextID
	t.m.quotes[id] = Quote{
		ID:         id,
		CustomerID: in.CustomerID,
		CreatedAt:  time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		ValidUntil: in.ValidUntil,
		Status:     StatusOpen,
		Shipping:   in.Shipping,
		Discount:   in.Discount,
	}
	return id, nil
}

func (t *memTx) UpdateHeader(_ context.Context, id int64, h header) error {
	q := t.m.quotes[id]
	if h.CustomerID != nil {
		q.CustomerID = *h.CustomerID
	}
	if h.ValidUntil != nil {
		q.ValidUntil = *h.ValidUntil
	}
	if h.Status != nil {
		q.Status = *h.Status
	}
	if h.Shipping != nil {
		q.Shipping = *h.Shipping
	}
	if h.Discount != nil {
		q.Discount = *h.Discount
	}
	t.m.quotes[id] = q
	return nil
}

func (t *memTx) DeleteQuote(_ context.Context, id int64) error {
	delete(t.m.quotes, id)
	return t.DeleteLines(context.Background(), id)
}

func (t *memTx) Lines(_ context.Context, quoteID int64) ([]Line, error) {
	return t.m.linesOf(quoteID), nil
}

func (t *memTx) Line(_ context.Context, quoteID, lineID int64) (Line, error) {
	l, ok := t.m.lines[lineID]
	if !ok || l.QuoteID != quoteID {
		return Line{}, ErrLineNotFound
	}
	return l, nil
}

func (t *memTx) InsertLine(_ context.Context, quoteID int64, in LineInput, subtotal decimal.Decimal) (Line, error) {
	t.m.nextID++
	l := Line{
		ID:          t.m.nextID,
		QuoteID:     quoteID,
		ProductID:   in.ProductID,
		Quantity:    in.Quantity,
		Width:       in.Width,
		Height:      in.Height,
		Description: in.Description,
		Subtotal:    subtotal,
	}
	t.m.lines[l.ID] = l
	return l, nil
}

func (t *memTx) UpdateLine(ctx context.Context, quoteID, lineID int64, in LineInput, subtotal decimal.Decimal) (Line, error) {
	l, err := t.Line(ctx, quoteID, lineID)
	if err != nil {
		return Line{}, err
	}
	l.ProductID, l.Quantity, l.Width, l.Height = in.ProductID, in.Quantity, in.Width, in.Height
	l.Description, l.Subtotal = in.Description, subtotal
	t.m.lines[lineID] = l
	return l, nil
}

func (t *memTx) DeleteLine(ctx context.Context, quoteID, lineID int64) error {
	if _, err := t.Line(ctx, quoteID, lineID); err != nil {
		return err
	}
	delete(t.m.lines, lineID)
	return nil
}

func (t *memTx) DeleteLines(_ context.Context, quoteID int64) error {
	for id, l := range t.m.lines {
		if l.QuoteID == quoteID {
			delete(t.m.lines, id)
		}
	}
	return nil
}

func (t *memTx) SetTotal(_ context.Context, quoteID int64, total decimal.Decimal) error {
	q := t.m.quotes[quoteID]
	q.Total = total
	t.m.quotes[quoteID] = q
	return nil
}

type memProducts map[int64]pricing.PricedProduct

func (m memProducts) PricedProduct(_ context.Context, id int64) (*pricing.PricedProduct, error) {
	p, ok := m[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

// fakeOrders mimics the unique source quote constraint of the orders table.
type fakeOrders struct {
	repo    *memoryRepo
	nextID  int64
	created []orders.CreateInput
	err     error
}

func (f *fakeOrders) Create(_ context.Context, in orders.CreateInput) (orders.Order, error) {
	if f.err != nil {
		return orders.Order{}, f.err
	}
	if in.SourceQuoteID != nil {
		if _, ok := f.repo.orderOf[*in.SourceQuoteID]; ok {
			return orders.Order{}, orders.ErrQuoteAlreadyConverted
		}
	}
	f.nextID++
	f.created = append(f.created, in)
	f.repo.orderOf[*in.SourceQuoteID] = f.nextID
	return orders.Order{ID: f.nextID, CustomerID: in.CustomerID, Total: *in.Total}, nil
}

type fixture struct {
	repo   *memoryRepo
	orders *fakeOrders
	svc    *Service
}

func newFixture() *fixture {
	repo := newMemoryRepo()
	f := &fixture{repo: repo, orders: &fakeOrders{repo: repo}}
	products := memProducts{
		flyerID:  {Mode: pricing.ModeUnit, Price: dec("10")},
		bannerID: {Mode: pricing.ModeArea, Price: dec("50")},
	}
	f.svc = NewService(repo, products, f.orders, nil)
	return f
}

func TestCreateTotalsWithDiscountAndShipping(t *testing.T) {
	f := newFixture()
	q, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID: 7,
		Shipping:   dec("15"),
		Discount:   dec("20"),
		Lines: []LineInput{
			{ProductID: idPtr(flyerID), Quantity: 10},
			{ProductID: idPtr(bannerID), Quantity: 1, Width: decPtr("2"), Height: decPtr("1.5")},
		},
	})
	require.NoError(t, err)
	require.Len(t, q.Lines, 2)
	require.True(t, dec("100").Equal(q.Lines[0].Subtotal))
	require.True(t, dec("150").Equal(q.Lines[1].Subtotal))
	// 250 - 20 + 15
	require.True(t, dec("245").Equal(q.Total), q.Total.String())
	require.Equal(t, StatusOpen, q.Status)
}

func TestTotalNeverNegative(t *testing.T) {
	f := newFixture()
	q, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID: 7,
		Discount:   dec("500"),
		Lines:      []LineInput{{ProductID: idPtr(flyerID), Quantity: 1}},
	})
	require.NoError(t, err)
	require.True(t, q.Total.IsZero())
}

func TestCreateRejectsNegativeAmounts(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), CreateInput{CustomerID: 7, Shipping: dec("-1")})
	require.ErrorIs(t, err, ErrNegativeAmount)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestLineEditsKeepManualSubtotalUntilForced(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q, err := f.svc.Create(ctx, CreateInput{
		CustomerID: 7,
		Lines: []LineInput{
			{ProductID: idPtr(flyerID), Quantity: 10, Subtotal: decPtr("80")},
			{Description: "Arte", Quantity: 1, Subtotal: decPtr("30")},
		},
	})
	require.NoError(t, err)
	require.True(t, dec("110").Equal(q.Total))

	flyer := q.Lines[0]
	_, err = f.svc.UpdateLine(ctx, q.ID, flyer.ID, LineInput{ProductID: idPtr(flyerID), Quantity: 20})
	require.NoError(t, err)
	q, err = f.svc.Get(ctx, q.ID)
	require.NoError(t, err)
	require.True(t, dec("80").Equal(q.Lines[0].Subtotal))

	q, err = f.svc.Recompute(ctx, q.ID, true)
	require.NoError(t, err)
	require.True(t, dec("200").Equal(q.Lines[0].Subtotal))
	require.True(t, dec("30").Equal(q.Lines[1].Subtotal), "free text line keeps its price")
	require.True(t, dec("230").Equal(q.Total))

	require.NoError(t, f.svc.DeleteLine(ctx, q.ID, q.Lines[1].ID))
	q, err = f.svc.Get(ctx, q.ID)
	require.NoError(t, err)
	require.True(t, dec("200").Equal(q.Total))
}

func TestConvertCopiesLinesAndLocksQuote(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q, err := f.svc.Create(ctx, CreateInput{
		CustomerID: 7,
		Shipping:   dec("10"),
		Lines:      []LineInput{{ProductID: idPtr(flyerID), Quantity: 5, Subtotal: decPtr("45")}},
	})
	require.NoError(t, err)

	order, err := f.svc.Convert(ctx, q.ID)
	require.NoError(t, err)
	require.True(t, dec("55").Equal(order.Total))
	require.Len(t, f.orders.created, 1)
	in := f.orders.created[0]
	require.Equal(t, q.ID, *in.SourceQuoteID)
	require.Len(t, in.Lines, 1)
	require.True(t, dec("45").Equal(*in.Lines[0].Subtotal))

	q, err = f.svc.Get(ctx, q.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, q.Status)
	require.Equal(t, order.ID, *q.OrderID)

	_, err = f.svc.Convert(ctx, q.ID)
	require.ErrorIs(t, err, ErrAlreadyConverted)
	_, err = f.svc.AddLine(ctx, q.ID, LineInput{Description: "x", Quantity: 1})
	require.ErrorIs(t, err, ErrApproved)
	require.ErrorIs(t, f.svc.Delete(ctx, q.ID), ErrApproved)
	require.Len(t, f.orders.created, 1)
}

func TestConvertMapsDuplicateOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q, err := f.svc.Create(ctx, CreateInput{CustomerID: 7})
	require.NoError(t, err)
	f.repo.orderOf[q.ID] = 99

	_, err = f.svc.Convert(ctx, q.ID)
	require.ErrorIs(t, err, ErrAlreadyConverted)

	q, err = f.svc.Get(ctx, q.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOpen, q.Status)
}

func TestUpdateToApprovedConverts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q, err := f.svc.Create(ctx, CreateInput{CustomerID: 7, Lines: []LineInput{{ProductID: idPtr(flyerID), Quantity: 2}}})
	require.NoError(t, err)

	approved := StatusApproved
	q, err = f.svc.Update(ctx, q.ID, UpdateInput{Status: &approved, Discount: decPtr("5")})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, q.Status)
	require.True(t, dec("15").Equal(q.Total))
	require.Len(t, f.orders.created, 1)
	require.True(t, dec("15").Equal(*f.orders.created[0].Total))

	rejected := StatusRejected
	_, err = f.svc.Update(ctx, q.ID, UpdateInput{Status: &rejected})
	require.ErrorIs(t, err, ErrApproved)
}

func TestFailedConversionLeavesQuoteOpen(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q, err := f.svc.Create(ctx, CreateInput{CustomerID: 7})
	require.NoError(t, err)
	f.orders.err = errors.New("db down")

	approved := StatusApproved
	_, err = f.svc.Update(ctx, q.ID, UpdateInput{Status: &approved})
	require.Error(t, err)

	q, err = f.svc.Get(ctx, q.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOpen, q.Status)
}

func TestListHidesApproved(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	open, err := f.svc.Create(ctx, CreateInput{CustomerID: 7})
	require.NoError(t, err)
	done, err := f.svc.Create(ctx, CreateInput{CustomerID: 8})
	require.NoError(t, err)
	_, err = f.svc.Convert(ctx, done.ID)
	require.NoError(t, err)

	items, total, err := f.svc.List(ctx, ListFilter{Limit: 50})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, open.ID, items[0].ID)

	items, total, err = f.svc.List(ctx, ListFilter{Status: StatusApproved})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, items)
}

func TestReplaceLinesRollsBackOnPricingError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q, err := f.svc.Create(ctx, CreateInput{CustomerID: 7, Lines: []LineInput{{ProductID: idPtr(flyerID), Quantity: 1}}})
	require.NoError(t, err)

	lines := []LineInput{{ProductID: idPtr(bannerID), Quantity: 1}}
	_, err = f.svc.Update(ctx, q.ID, UpdateInput{Lines: &lines})
	require.ErrorIs(t, err, pricing.ErrDimensionsRequired)

	q, err = f.svc.Get(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, q.Lines, 1)
	require.True(t, dec("10").Equal(q.Total))
}
