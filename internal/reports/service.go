package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/inkworks/inkworks/internal/documents"
	"github.com/inkworks/inkworks/internal/platform/cache"
	"github.com/inkworks/inkworks/internal/platform/httpx"
)

// Store runs the aggregation queries.
type Store interface {
	PaymentsTotal(ctx context.Context, r Range) (decimal.Decimal, error)
	PaidExpensesTotal(ctx context.Context, r Range) (decimal.Decimal, error)
	PaidCostsTotal(ctx context.Context, r Range) (decimal.Decimal, error)
	ReceivableTotal(ctx context.Context) (decimal.Decimal, error)

	DailyInflows(ctx context.Context, r Range) ([]DayAmount, error)
	DailyOutflows(ctx context.Context, r Range) ([]DayAmount, error)
	RevenueByMethod(ctx context.Context, r Range) ([]MethodTotal, error)
	OpenExpenses(ctx context.Context) ([]Payable, error)
	OpenCosts(ctx context.Context) ([]Payable, error)
	Receivables(ctx context.Context) ([]Receivable, error)
	ConsolidatedExpenses(ctx context.Context) ([]ConsolidatedExpense, error)
	PaidOrders(ctx context.Context, r Range) ([]PaidOrder, error)

	MonthlySales(ctx context.Context, since time.Time) ([]MonthTotal, error)
	OrdersByStatus(ctx context.Context) ([]NameCount, error)
	TopProducts(ctx context.Context, since time.Time, limit int) ([]NameCount, error)
	TopClients(ctx context.Context, limit int) ([]ClientSpend, error)
	Clients(ctx context.Context, today time.Time) (ClientReport, error)
	Orders(ctx context.Context, today time.Time) (OrderReport, error)
	Quotes(ctx context.Context) (QuoteReport, error)
	Products(ctx context.Context, today time.Time) (ProductReport, error)
	Suppliers(ctx context.Context) (SupplierReport, error)
}

// RevenuePrinter renders the revenue report.
type RevenuePrinter interface {
	Revenue(ctx context.Context, r documents.Revenue) ([]byte, error)
}

// Service serves the report endpoints.
type Service struct {
	store   Store
	cache   *cache.Cache
	printer RevenuePrinter
	clock   func() time.Time
}

// NewService builds Service. A nil cache runs every query.
func NewService(store Store, c *cache.Cache, printer RevenuePrinter) *Service {
	return &Service{store: store, cache: c, printer: printer, clock: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) today() time.Time {
	now := s.clock()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Dashboard returns revenue, expenses, profit and receivable for the range.
// The four figures are queried concurrently and cached per range.
func (s *Service) Dashboard(ctx context.Context, r Range) (Dashboard, error) {
	key, err := s.cache.BuildKey(ctx, "dashboard", r.Start.Format(httpx.DateLayout), r.End.Format(httpx.DateLayout))
	if err != nil {
		return Dashboard{}, err
	}
	var out Dashboard
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.dashboard(ctx, r)
	})
	return out, err
}

func (s *Service) dashboard(ctx context.Context, r Range) (Dashboard, error) {
	var revenue, expenses, costs, receivable decimal.Decimal
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		revenue, err = s.store.PaymentsTotal(ctx, r)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.store.PaidExpensesTotal(ctx, r)
		return err
	})
	g.Go(func() (err error) {
		costs, err = s.store.PaidCostsTotal(ctx, r)
		return err
	})
	g.Go(func() (err error) {
		receivable, err = s.store.ReceivableTotal(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("reports: dashboard: %w", err)
	}
	spent := expenses.Add(costs)
	return Dashboard{Revenue: revenue, Expenses: spent, Profit: revenue.Sub(spent), Receivable: receivable}, nil
}

// CashFlow merges daily inflows and outflows, one row per day with movement.
func (s *Service) CashFlow(ctx context.Context, r Range) ([]CashFlowDay, error) {
	in, err := s.store.DailyInflows(ctx, r)
	if err != nil {
		return nil, err
	}
	out, err := s.store.DailyOutflows(ctx, r)
	if err != nil {
		return nil, err
	}
	days := map[time.Time]*CashFlowDay{}
	row := func(d httpx.Date) *CashFlowDay {
		if c, ok := days[d.Time]; ok {
			return c
		}
		c := &CashFlowDay{Date: d}
		days[d.Time] = c
		return c
	}
	for _, a := range in {
		c := row(a.Day)
		c.Inflows = c.Inflows.Add(a.Amount)
	}
	for _, a := range out {
		c := row(a.Day)
		c.Outflows = c.Outflows.Add(a.Amount)
	}
	flow := make([]CashFlowDay, 0, len(days))
	for _, c := range days {
		flow = append(flow, *c)
	}
	sort.Slice(flow, func(i, j int) bool { return flow[i].Date.Before(flow[j].Date.Time) })
	return flow, nil
}

// RevenueByMethod groups received payments by method, largest first.
func (s *Service) RevenueByMethod(ctx context.Context, r Range) ([]MethodTotal, error) {
	return nonNil(s.store.RevenueByMethod(ctx, r))
}

// Payables lists unpaid expenses and supplier costs by due date.
func (s *Service) Payables(ctx context.Context) ([]Payable, error) {
	expenses, err := s.store.OpenExpenses(ctx)
	if err != nil {
		return nil, err
	}
	costs, err := s.store.OpenCosts(ctx)
	if err != nil {
		return nil, err
	}
	all := append(expenses, costs...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].DueDate.Before(all[j].DueDate.Time) })
	if all == nil {
		all = []Payable{}
	}
	return all, nil
}

// Receivables lists orders with money still to collect.
func (s *Service) Receivables(ctx context.Context) ([]Receivable, error) {
	return nonNil(s.store.Receivables(ctx))
}

// ConsolidatedExpenses lists general expenses together with order production
// costs, newest first.
func (s *Service) ConsolidatedExpenses(ctx context.Context) ([]ConsolidatedExpense, error) {
	return nonNil(s.store.ConsolidatedExpenses(ctx))
}

// SalesEvolution returns paid order revenue per month over the last six months.
func (s *Service) SalesEvolution(ctx context.Context) ([]MonthTotal, error) {
	today := s.today()
	since := time.Date(today.Year(), today.Month()-5, 1, 0, 0, 0, 0, time.UTC)
	return nonNil(s.store.MonthlySales(ctx, since))
}

// OrdersByStatus counts orders per production status.
func (s *Service) OrdersByStatus(ctx context.Context) ([]NameCount, error) {
	return nonNil(s.store.OrdersByStatus(ctx))
}

// TopProducts returns the five best sellers by quantity this month.
func (s *Service) TopProducts(ctx context.Context) ([]NameCount, error) {
	today := s.today()
	return nonNil(s.store.TopProducts(ctx, today.AddDate(0, 0, 1-today.Day()), 5))
}

// TopClients returns the five clients who spent the most.
func (s *Service) TopClients(ctx context.Context) ([]ClientSpend, error) {
	return nonNil(s.store.TopClients(ctx, 5))
}

// Clients returns the client report.
func (s *Service) Clients(ctx context.Context) (ClientReport, error) {
	rep, err := s.store.Clients(ctx, s.today())
	if rep.Inactive == nil {
		rep.Inactive = []InactiveClient{}
	}
	return rep, err
}

// Orders returns the order report.
func (s *Service) Orders(ctx context.Context) (OrderReport, error) {
	rep, err := s.store.Orders(ctx, s.today())
	if rep.Late == nil {
		rep.Late = []LateOrder{}
	}
	if rep.PaymentsByMethod == nil {
		rep.PaymentsByMethod = []NameCount{}
	}
	return rep, err
}

// Quotes returns the quote report with its conversion rate in percent.
func (s *Service) Quotes(ctx context.Context) (QuoteReport, error) {
	rep, err := s.store.Quotes(ctx)
	if err != nil {
		return QuoteReport{}, err
	}
	rep.ConversionRate = ConversionRate(rep.Approved, rep.Total)
	return rep, nil
}

// ConversionRate is approved / total in percent with two decimals.
func ConversionRate(approved, total int64) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(approved).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(total)).Round(2)
}

// Products returns the product report.
func (s *Service) Products(ctx context.Context) (ProductReport, error) {
	rep, err := s.store.Products(ctx, s.today())
	if err != nil {
		return ProductReport{}, err
	}
	rep.Cards.StockAlerts = len(rep.StockAlerts)
	return rep, nil
}

// Suppliers returns the supplier rankings.
func (s *Service) Suppliers(ctx context.Context) (SupplierReport, error) {
	return s.store.Suppliers(ctx)
}

// RevenuePDF renders the paid orders created in the range.
func (s *Service) RevenuePDF(ctx context.Context, r Range) ([]byte, error) {
	orders, err := s.store.PaidOrders(ctx, r)
	if err != nil {
		return nil, err
	}
	doc := documents.Revenue{Start: r.Start, End: r.End, Rows: make([]documents.RevenueRow, 0, len(orders))}
	for _, o := range orders {
		doc.Rows = append(doc.Rows, documents.RevenueRow{Number: o.ID, CustomerName: o.CustomerName, CreatedAt: o.CreatedAt, Total: o.Total})
	}
	return s.printer.Revenue(ctx, doc)
}

func nonNil[T any](items []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Invalidate drops every cached report by bumping the cache version.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
