package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/pricing"
	"github.com/inkworks/inkworks/internal/shared"
)

// memoryRepo is an in-memory RepositoryPort. WithTx works on a copy and only
// publishes it when the callback succeeds.
type memoryRepo struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	nextID   int64
	orders   map[int64]*Order
	lines    map[int64]*Line
	payments map[int64]*Payment
	costs    map[int64]*SupplierCost
	artworks map[int64]*Artwork
	quotes   map[int64]int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: &memState{
		orders:   map[int64]*Order{},
		lines:    map[int64]*Line{},
		payments: map[int64]*Payment{},
		costs:    map[int64]*SupplierCost{},
		artworks: map[int64]*Artwork{},
		quotes:   map[int64]int64{},
	}}
}

func (s *memState) clone() *memState {
	out := &memState{
		nextID:   s.nextID,
		orders:   map[int64]*Order{},
		lines:    map[int64]*Line{},
		payments: map[int64]*Payment{},
		costs:    map[int64]*SupplierCost{},
		artworks: map[int64]*Artwork{},
		quotes:   map[int64]int64{},
	}
	for k, v := range s.orders {
		c := *v
		out.orders[k] = &c
	}
	for k, v := range s.lines {
		c := *v
		out.lines[k] = &c
	}
	for k, v := range s.payments {
		c := *v
		out.payments[k] = &c
	}
	for k, v := range s.costs {
		c := *v
		out.costs[k] = &c
	}
	for k, v := range s.artworks {
		c := *v
		out.artworks[k] = &c
	}
	for k, v := range s.quotes {
		out.quotes[k] = v
	}
	return out
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	work := r.state.clone()
	if err := fn(ctx, &memTx{s: work}); err != nil {
		return err
	}
	r.state = work
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.view(id)
}

func (s *memState) view(id int64) (Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	out := *o
	out.Lines = s.linesOf(id)
	out.AmountPaid = s.paid(id)
	out.AmountDue = Receivable(out.Total, out.AmountPaid)
	return out, nil
}

func (s *memState) linesOf(orderID int64) []Line {
	var out []Line
	for _, l := range s.lines {
		if l.OrderID == orderID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memState) paid(orderID int64) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range s.payments {
		if p.OrderID == orderID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum
}

func (r *memoryRepo) List(_ context.Context, f ListFilter) ([]Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for id := range r.state.orders {
		o, _ := r.state.view(id)
		if f.CustomerID != 0 && o.CustomerID != f.CustomerID {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (r *memoryRepo) ListPayments(_ context.Context, orderID int64) ([]Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Payment
	for _, p := range r.state.payments {
		if orderID == 0 || p.OrderID == orderID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListCosts(_ context.Context, f CostFilter) ([]SupplierCost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []SupplierCost
	for _, c := range r.state.costs {
		if (f.OrderID == 0 || c.OrderID == f.OrderID) && (f.Status == "" || c.Status == f.Status) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) ListArtworks(_ context.Context, orderID int64) ([]Artwork, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.artworksOf(orderID), nil
}

func (s *memState) artworksOf(orderID int64) []Artwork {
	var out []Artwork
	for _, a := range s.artworks {
		if a.OrderID == orderID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *memoryRepo) ByProductionStatus(_ context.Context, statuses []ProductionStatus) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for id, o := range r.state.orders {
		for _, st := range statuses {
			if o.ProductionStatus == st {
				v, _ := r.state.view(id)
				out = append(out, v)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) Recent(_ context.Context, limit int) ([]Order, error) {
	all, _, _ := r.List(context.Background(), ListFilter{})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memoryRepo) OrderIDByToken(_ context.Context, token uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.byToken(token)
}

func (s *memState) byToken(token uuid.UUID) (int64, error) {
	for id, o := range s.orders {
		if o.ApprovalToken != nil && *o.ApprovalToken == token {
			return id, nil
		}
	}
	return 0, ErrTokenNotFound
}

type memTx struct {
	s *memState
}

func (t *memTx) LockOrder(_ context.Context, id int64) (Order, error) {
	return t.s.view(id)
}

func (t *memTx) LockOrderByToken(_ context.Context, token uuid.UUID) (Order, error) {
	id, err := t.s.byToken(token)
	if err != nil {
		return Order{}, err
	}
	return t.s.view(id)
}

func (t *memTx) InsertOrder(_ context.Context, in CreateInput) (int64, error) {
	if in.SourceQuoteID != nil {
		if _, ok := t.s.quotes[*in.SourceQuoteID]; ok {
			return 0, ErrQuoteAlreadyConverted
		}
	}
	id := t.s.id()
	t.s.orders[id] = &Order{
		ID:               id,
		CustomerID:       in.CustomerID,
		CustomerName:     "Cliente",
		SourceQuoteID:    in.SourceQuoteID,
		CreatedAt:        time.Now(),
		ProductionStatus: ProductionWaiting,
		PaymentStatus:    pricing.PaymentPending,
		ArtStatus:        ArtPending,
		DueDate:          in.DueDate,
		ProductionDate:   in.ProductionDate,
		ShippingMethod:   in.ShippingMethod,
	}
	if in.SourceQuoteID != nil {
		t.s.quotes[*in.SourceQuoteID] = id
	}
	return id, nil
}

func (t *memTx) UpdateHeader(_ context.Context, id int64, in UpdateInput) error {
	o, ok := t.s.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if in.ProductionStatus != nil {
		o.ProductionStatus = *in.ProductionStatus
	}
	if in.ArtStatus != nil {
		o.ArtStatus = *in.ArtStatus
	}
	if in.DueDate != nil {
		o.DueDate = *in.DueDate
	}
	if in.ProductionDate != nil {
		o.ProductionDate = *in.ProductionDate
	}
	if in.ShippingMethod != nil {
		o.ShippingMethod = *in.ShippingMethod
	}
	if in.TrackingCode != nil {
		o.TrackingCode = *in.TrackingCode
	}
	return nil
}

func (t *memTx) DeleteOrder(_ context.Context, id int64) error {
	delete(t.s.orders, id)
	for lid, l := range t.s.lines {
		if l.OrderID == id {
			delete(t.s.lines, lid)
		}
	}
	return nil
}

func (t *memTx) Lines(_ context.Context, orderID int64) ([]Line, error) {
	return t.s.linesOf(orderID), nil
}

func (t *memTx) Line(_ context.Context, orderID, lineID int64) (Line, error) {
	l, ok := t.s.lines[lineID]
	if !ok || l.OrderID != orderID {
		return Line{}, ErrLineNotFound
	}
	return *l, nil
}

func lineFrom(orderID int64, in LineInput, subtotal decimal.Decimal) Line {
	return Line{
		OrderID:         orderID,
		ProductID:       in.ProductID,
		Quantity:        in.Quantity,
		Width:           in.Width,
		Height:          in.Height,
		Description:     in.Description,
		ProductionNotes: in.ProductionNotes,
		Subtotal:        subtotal,
	}
}

func (t *memTx) InsertLine(_ context.Context, orderID int64, in LineInput, subtotal decimal.Decimal) (Line, error) {
	l := lineFrom(orderID, in, subtotal)
	l.ID = t.s.id()
	t.s.lines[l.ID] = &l
	return l, nil
}

func (t *memTx) UpdateLine(_ context.Context, orderID, lineID int64, in LineInput, subtotal decimal.Decimal) (Line, error) {
	if _, ok := t.s.lines[lineID]; !ok {
		return Line{}, ErrLineNotFound
	}
	l := lineFrom(orderID, in, subtotal)
	l.ID = lineID
	t.s.lines[lineID] = &l
	return l, nil
}

func (t *memTx) DeleteLine(_ context.Context, orderID, lineID int64) error {
	if l, ok := t.s.lines[lineID]; !ok || l.OrderID != orderID {
		return ErrLineNotFound
	}
	delete(t.s.lines, lineID)
	return nil
}

func (t *memTx) SetTotal(_ context.Context, orderID int64, total decimal.Decimal) error {
	t.s.orders[orderID].Total = total
	return nil
}

func (t *memTx) InsertPayment(_ context.Context, orderID int64, in PaymentInput) (Payment, error) {
	p := Payment{ID: t.s.id(), OrderID: orderID, Amount: in.Amount, Method: in.Method, PaidAt: *in.PaidAt}
	t.s.payments[p.ID] = &p
	return p, nil
}

func (t *memTx) DeletePayment(_ context.Context, orderID, paymentID int64) error {
	if p, ok := t.s.payments[paymentID]; !ok || p.OrderID != orderID {
		return ErrPaymentNotFound
	}
	delete(t.s.payments, paymentID)
	return nil
}

func (t *memTx) SumPayments(_ context.Context, orderID int64) (decimal.Decimal, error) {
	return t.s.paid(orderID), nil
}

func (t *memTx) SetPaymentStatus(_ context.Context, orderID int64, status pricing.PaymentStatus) error {
	t.s.orders[orderID].PaymentStatus = status
	return nil
}

func (t *memTx) Cost(_ context.Context, id int64) (SupplierCost, error) {
	c, ok := t.s.costs[id]
	if !ok {
		return SupplierCost{}, ErrCostNotFound
	}
	return *c, nil
}

func (t *memTx) InsertCost(_ context.Context, orderID int64, in CostInput) (SupplierCost, error) {
	c := SupplierCost{ID: t.s.id(), OrderID: orderID, SupplierID: in.SupplierID, Description: in.Description,
		Amount: in.Amount, Status: in.Status, DueDate: in.DueDate, PaidDate: in.PaidDate}
	t.s.costs[c.ID] = &c
	return c, nil
}

func (t *memTx) UpdateCost(_ context.Context, id int64, in CostInput) (SupplierCost, error) {
	c, ok := t.s.costs[id]
	if !ok {
		return SupplierCost{}, ErrCostNotFound
	}
	c.SupplierID, c.Description, c.Amount, c.Status, c.DueDate, c.PaidDate = in.SupplierID, in.Description, in.Amount, in.Status, in.DueDate, in.PaidDate
	return *c, nil
}

func (t *memTx) DeleteCost(_ context.Context, id int64) error {
	delete(t.s.costs, id)
	return nil
}

func (t *memTx) MarkCostPaid(_ context.Context, id int64, paidOn httpx.Date) (SupplierCost, error) {
	c := t.s.costs[id]
	c.Status = CostPaid
	c.PaidDate = paidOn
	return *c, nil
}

func (t *memTx) SumCosts(_ context.Context, orderID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, c := range t.s.costs {
		if c.OrderID == orderID {
			sum = sum.Add(c.Amount)
		}
	}
	return sum, nil
}

func (t *memTx) SetProductionCost(_ context.Context, orderID int64, total decimal.Decimal) error {
	t.s.orders[orderID].ProductionCost = total
	return nil
}

func (t *memTx) InsertArtwork(_ context.Context, orderID int64, in ArtworkInput, at time.Time) (Artwork, error) {
	a := Artwork{ID: t.s.id(), OrderID: orderID, LayoutURL: in.LayoutURL, AdminComments: in.AdminComments, UploadedAt: at}
	t.s.artworks[a.ID] = &a
	return a, nil
}

func (t *memTx) SetArtState(_ context.Context, orderID int64, status ArtStatus, token *uuid.UUID) error {
	o := t.s.orders[orderID]
	o.ArtStatus = status
	if o.ApprovalToken == nil && token != nil {
		tok := *token
		o.ApprovalToken = &tok
	}
	return nil
}

func (t *memTx) CommentLatestArtwork(_ context.Context, orderID int64, comment string) error {
	arts := t.s.artworksOf(orderID)
	if len(arts) == 0 {
		return nil
	}
	t.s.artworks[arts[0].ID].ClientComments = comment
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

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	k := module + ":" + key
	if m.keys[k] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[k] = true
	return nil
}

func (m *memIdempotency) Delete(_ context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, module+":"+key)
	return nil
}
