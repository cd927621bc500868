package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/inkworks/inkworks/internal/documents"
	"github.com/inkworks/inkworks/internal/platform/cache"
	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/rbac"
	"github.com/inkworks/inkworks/internal/shared"
)

type fakeStore struct {
	payments, expenses, costs, receivable decimal.Decimal
	paymentCalls                          int32

	inflows, outflows []DayAmount
	openExpenses      []Payable
	openCosts         []Payable
	paidOrders        []PaidOrder
	quotes            QuoteReport
	products          ProductReport
	salesSince        time.Time
}

func (f *fakeStore) PaymentsTotal(context.Context, Range) (decimal.Decimal, error) {
	atomic.AddInt32(&f.paymentCalls, 1)
	return f.payments, nil
}
func (f *fakeStore) PaidExpensesTotal(context.Context, Range) (decimal.Decimal, error) {
	return f.expenses, nil
}
func (f *fakeStore) PaidCostsTotal(context.Context, Range) (decimal.Decimal, error) {
	return f.costs, nil
}
func (f *fakeStore) ReceivableTotal(context.Context) (decimal.Decimal, error) {
	return f.receivable, nil
}
func (f *fakeStore) DailyInflows(context.Context, Range) ([]DayAmount, error) { return f.inflows, nil }
func (f *fakeStore) DailyOutflows(context.Context, Range) ([]DayAmount, error) {
	return f.outflows, nil
}
func (f *fakeStore) RevenueByMethod(context.Context, Range) ([]MethodTotal, error) {
	return nil, nil
}
func (f *fakeStore) OpenExpenses(context.Context) ([]Payable, error) { return f.openExpenses, nil }
func (f *fakeStore) OpenCosts(context.Context) ([]Payable, error)    { return f.openCosts, nil }
func (f *fakeStore) Receivables(context.Context) ([]Receivable, error) {
	return nil, nil
}
func (f *fakeStore) ConsolidatedExpenses(context.Context) ([]ConsolidatedExpense, error) {
	return nil, nil
}
func (f *fakeStore) PaidOrders(context.Context, Range) ([]PaidOrder, error) { return f.paidOrders, nil }
func (f *fakeStore) MonthlySales(_ context.Context, since time.Time) ([]MonthTotal, error) {
	f.salesSince = since
	return nil, nil
}
func (f *fakeStore) OrdersByStatus(context.Context) ([]NameCount, error) { return nil, nil }
func (f *fakeStore) TopProducts(context.Context, time.Time, int) ([]NameCount, error) {
	return nil, nil
}
func (f *fakeStore) TopClients(context.Context, int) ([]ClientSpend, error) { return nil, nil }
func (f *fakeStore) Clients(context.Context, time.Time) (ClientReport, error) {
	return ClientReport{Total: 3}, nil
}
func (f *fakeStore) Orders(context.Context, time.Time) (OrderReport, error) {
	return OrderReport{}, nil
}
func (f *fakeStore) Quotes(context.Context) (QuoteReport, error) { return f.quotes, nil }
func (f *fakeStore) Products(context.Context, time.Time) (ProductReport, error) {
	return f.products, nil
}
func (f *fakeStore) Suppliers(context.Context) (SupplierReport, error) {
	return SupplierReport{}, nil
}

type capturePrinter struct {
	doc documents.Revenue
}

func (c *capturePrinter) Revenue(_ context.Context, r documents.Revenue) ([]byte, error) {
	c.doc = r
	return []byte("%PDF"), nil
}

var fixedNow = time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)

func day(s string) httpx.Date {
	t, _ := time.Parse(httpx.DateLayout, s)
	return httpx.Date{Time: t}
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newRedisCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewCache(client, "reports", time.Minute)
}

func TestDashboardSumsAndCaches(t *testing.T) {
	store := &fakeStore{payments: money("1000"), expenses: money("200"), costs: money("150.50"), receivable: money("320")}
	svc := NewService(store, newRedisCache(t), &capturePrinter{}).WithClock(func() time.Time { return fixedNow })
	ctx := context.Background()
	rg := Range{Start: day("2024-03-01").Time, End: day("2024-03-15").Time}

	d, err := svc.Dashboard(ctx, rg)
	require.NoError(t, err)
	require.Equal(t, "1000", d.Revenue.String())
	require.Equal(t, "350.5", d.Expenses.String())
	require.Equal(t, "649.5", d.Profit.String())
	require.Equal(t, "320", d.Receivable.String())

	_, err = svc.Dashboard(ctx, rg)
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&store.paymentCalls))

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Dashboard(ctx, rg)
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt32(&store.paymentCalls))
}

func TestDashboardWithoutCache(t *testing.T) {
	store := &fakeStore{payments: money("10"), expenses: money("25")}
	svc := NewService(store, nil, &capturePrinter{})
	d, err := svc.Dashboard(context.Background(), Range{})
	require.NoError(t, err)
	require.Equal(t, "-15", d.Profit.String())
	require.NoError(t, svc.Invalidate(context.Background()))
}

func TestCashFlowMergesDays(t *testing.T) {
	store := &fakeStore{
		inflows:  []DayAmount{{Day: day("2024-03-02"), Amount: money("100")}, {Day: day("2024-03-05"), Amount: money("40")}},
		outflows: []DayAmount{{Day: day("2024-03-01"), Amount: money("30")}, {Day: day("2024-03-05"), Amount: money("10")}},
	}
	svc := NewService(store, nil, &capturePrinter{})
	flow, err := svc.CashFlow(context.Background(), Range{})
	require.NoError(t, err)
	require.Len(t, flow, 3)
	require.Equal(t, "2024-03-01", flow[0].Date.Format(httpx.DateLayout))
	require.True(t, flow[0].Inflows.IsZero())
	require.Equal(t, "30", flow[0].Outflows.String())
	require.Equal(t, "2024-03-05", flow[2].Date.Format(httpx.DateLayout))
	require.Equal(t, "40", flow[2].Inflows.String())
	require.Equal(t, "10", flow[2].Outflows.String())
}

func TestPayablesSortedByDueDate(t *testing.T) {
	store := &fakeStore{
		openExpenses: []Payable{{Kind: PayableExpense, ID: 1, DueDate: day("2024-03-20")}, {Kind: PayableExpense, ID: 2, DueDate: day("2024-03-01")}},
		openCosts:    []Payable{{Kind: PayableCost, ID: 7, DueDate: day("2024-03-10")}},
	}
	svc := NewService(store, nil, &capturePrinter{})
	rows, err := svc.Payables(context.Background())
	require.NoError(t, err)
	ids := []int64{}
	for _, p := range rows {
		ids = append(ids, p.ID)
	}
	require.Equal(t, []int64{2, 7, 1}, ids)

	empty, err := NewService(&fakeStore{}, nil, &capturePrinter{}).Payables(context.Background())
	require.NoError(t, err)
	require.NotNil(t, empty)
}

func TestConversionRate(t *testing.T) {
	cases := []struct {
		approved, total int64
		want            string
	}{
		{0, 0, "0"},
		{1, 3, "33.33"},
		{2, 4, "50"},
		{5, 5, "100"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ConversionRate(tc.approved, tc.total).String())
	}

	svc := NewService(&fakeStore{quotes: QuoteReport{Total: 8, Approved: 2}}, nil, &capturePrinter{})
	rep, err := svc.Quotes(context.Background())
	require.NoError(t, err)
	require.Equal(t, "25", rep.ConversionRate.String())
}

func TestProductCardsCountAlerts(t *testing.T) {
	store := &fakeStore{products: ProductReport{StockAlerts: []StockAlert{{ID: 1}, {ID: 2}}}}
	rep, err := NewService(store, nil, &capturePrinter{}).Products(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, rep.Cards.StockAlerts)
}

func TestSalesEvolutionCoversSixMonths(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, nil, &capturePrinter{}).WithClock(func() time.Time { return fixedNow })
	out, err := svc.SalesEvolution(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Equal(t, time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC), store.salesSince)
}

func TestRevenuePDFRows(t *testing.T) {
	created := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{paidOrders: []PaidOrder{
		{ID: 4, CustomerName: "Ana", CreatedAt: created, Total: money("100")},
		{ID: 9, CustomerName: "Bia", CreatedAt: created, Total: money("50.25")},
	}}
	printer := &capturePrinter{}
	rg := Range{Start: day("2024-03-01").Time, End: day("2024-03-31").Time}
	body, err := NewService(store, nil, printer).RevenuePDF(context.Background(), rg)
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(body))
	require.Len(t, printer.doc.Rows, 2)
	require.Equal(t, int64(9), printer.doc.Rows[1].Number)
	require.Equal(t, "150.25", printer.doc.Total().String())
	require.Equal(t, rg.Start, printer.doc.Start)
}

func TestCashFlowXLSX(t *testing.T) {
	body, err := CashFlowXLSX([]CashFlowDay{{Date: day("2024-03-02"), Inflows: money("100"), Outflows: money("30")}})
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, []string{"Data", "Entradas", "Saídas", "Saldo"}, rows[0])
	require.Equal(t, "02/03/2024", rows[1][0])
	require.Equal(t, "70", rows[1][3])
}

func TestPayablesXLSX(t *testing.T) {
	body, err := PayablesXLSX([]Payable{{Kind: PayableExpense, Description: "Aluguel (Fixas)", Amount: money("1500"), DueDate: day("2024-03-10")}})
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Equal(t, []string{"DESPESA", "Aluguel (Fixas)", "10/03/2024", "1500"}, rows[1])
}

type groupStore map[int64][]string

func (g groupStore) Membership(_ context.Context, userID int64) (rbac.Membership, error) {
	groups, ok := g[userID]
	if !ok {
		return rbac.Membership{}, rbac.ErrNotFound
	}
	return rbac.Membership{UserID: userID, Active: true, Groups: groups}, nil
}

func (g groupStore) ListGroups(context.Context) ([]rbac.Group, error) { return nil, nil }

func call(t *testing.T, h http.Handler, method, path string, userID int64) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	sess := &shared.Session{ID: "test"}
	sess.SetUser(strconv.FormatInt(userID, 10))
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCapabilities(t *testing.T) {
	store := &fakeStore{payments: money("10")}
	svc := NewService(store, nil, &capturePrinter{}).WithClock(func() time.Time { return fixedNow })
	groups := groupStore{1: {shared.GroupFinance}, 2: {shared.GroupAttendance}, 3: {shared.GroupProduction}}
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, rbac.Middleware{Service: rbac.NewServiceWithStore(groups)})
	router := chi.NewRouter()
	h.MountRoutes(router)

	require.Equal(t, http.StatusForbidden, call(t, router, http.MethodGet, "/reports/dashboard", 2).Code)
	require.Equal(t, http.StatusForbidden, call(t, router, http.MethodGet, "/reports/clients", 3).Code)

	rec := call(t, router, http.MethodGet, "/reports/dashboard?start=2024-03-01&end=2024-03-10", 1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var d Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	require.Equal(t, "10", d.Revenue.String())

	rec = call(t, router, http.MethodGet, "/reports/clients", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"inactive":[]`)

	rec = call(t, router, http.MethodGet, "/reports/payables.xlsx", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, XLSXContentType, rec.Header().Get("Content-Type"))

	rec = call(t, router, http.MethodGet, "/reports/revenue/pdf", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "faturamento_2024-03-01_2024-03-15.pdf")
}
