package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository runs report queries against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) sum(ctx context.Context, sql string, args ...any) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, sql, args...).Scan(&total)
	return total, err
}

func collect[T any](ctx context.Context, pool *pgxpool.Pool, scan func(pgx.CollectableRow) (T, error), sql string, args ...any) ([]T, error) {
	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scan)
}

func scanDay(row pgx.CollectableRow) (DayAmount, error) {
	var d DayAmount
	err := row.Scan(&d.Day, &d.Amount)
	return d, err
}

func scanNameCount(row pgx.CollectableRow) (NameCount, error) {
	var n NameCount
	err := row.Scan(&n.Name, &n.Value)
	return n, err
}

// PaymentsTotal sums payments received in the range.
func (r *Repository) PaymentsTotal(ctx context.Context, rg Range) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE paid_at::date BETWEEN $1 AND $2`, rg.Start, rg.End)
}

// PaidExpensesTotal sums expenses settled in the range.
func (r *Repository) PaidExpensesTotal(ctx context.Context, rg Range) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE status = 'PAGO' AND paid_date BETWEEN $1 AND $2`, rg.Start, rg.End)
}

// PaidCostsTotal sums supplier costs settled in the range.
func (r *Repository) PaidCostsTotal(ctx context.Context, rg Range) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM supplier_costs WHERE status = 'PAGO' AND paid_date BETWEEN $1 AND $2`, rg.Start, rg.End)
}

const orderPaid = `COALESCE((SELECT SUM(p.amount) FROM payments p WHERE p.order_id = o.id), 0)`

// ReceivableTotal is what open orders still owe.
func (r *Repository) ReceivableTotal(ctx context.Context) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(o.total - `+orderPaid+`), 0) FROM orders o
WHERE o.payment_status IN ('PENDENTE', 'PARCIAL')`)
}

// DailyInflows groups payments by day.
func (r *Repository) DailyInflows(ctx context.Context, rg Range) ([]DayAmount, error) {
	return collect(ctx, r.pool, scanDay, `SELECT paid_at::date, SUM(amount) FROM payments
WHERE paid_at::date BETWEEN $1 AND $2 GROUP BY 1 ORDER BY 1`, rg.Start, rg.End)
}

// DailyOutflows groups settled expenses and supplier costs by paid date.
func (r *Repository) DailyOutflows(ctx context.Context, rg Range) ([]DayAmount, error) {
	return collect(ctx, r.pool, scanDay, `SELECT day, SUM(amount) FROM (
	SELECT paid_date AS day, amount FROM expenses WHERE status = 'PAGO' AND paid_date BETWEEN $1 AND $2
	UNION ALL
	SELECT paid_date, amount FROM supplier_costs WHERE status = 'PAGO' AND paid_date BETWEEN $1 AND $2
) t GROUP BY day ORDER BY day`, rg.Start, rg.End)
}

// RevenueByMethod groups payments in the range by method.
func (r *Repository) RevenueByMethod(ctx context.Context, rg Range) ([]MethodTotal, error) {
	return collect(ctx, r.pool, func(row pgx.CollectableRow) (MethodTotal, error) {
		var m MethodTotal
		err := row.Scan(&m.Method, &m.Total)
		return m, err
	}, `SELECT method, SUM(amount) FROM payments WHERE paid_at::date BETWEEN $1 AND $2
GROUP BY method ORDER BY 2 DESC`, rg.Start, rg.End)
}

func scanPayable(row pgx.CollectableRow) (Payable, error) {
	var p Payable
	err := row.Scan(&p.Kind, &p.ID, &p.Description, &p.Amount, &p.DueDate)
	return p, err
}

// OpenExpenses lists unpaid expenses.
func (r *Repository) OpenExpenses(ctx context.Context) ([]Payable, error) {
	return collect(ctx, r.pool, scanPayable, `SELECT 'DESPESA', id,
	description || ' (' || COALESCE(NULLIF(category, ''), 'Sem categoria') || ')', amount, due_date
FROM expenses WHERE status = 'A_PAGAR' ORDER BY due_date`)
}

// OpenCosts lists unpaid supplier costs. Costs without a due date fall back
// to their creation day.
func (r *Repository) OpenCosts(ctx context.Context) ([]Payable, error) {
	return collect(ctx, r.pool, scanPayable, `SELECT 'CUSTO_PRODUCAO', c.id,
	c.description || ' (Fornecedor: ' || s.name || ') - Pedido #' || c.order_id, c.amount,
	COALESCE(c.due_date, c.created_at::date)
FROM supplier_costs c JOIN suppliers s ON s.id = c.supplier_id
WHERE c.status = 'A_PAGAR' ORDER BY 5`)
}

// Receivables lists orders still awaiting money, oldest first.
func (r *Repository) Receivables(ctx context.Context) ([]Receivable, error) {
	return collect(ctx, r.pool, func(row pgx.CollectableRow) (Receivable, error) {
		var rc Receivable
		err := row.Scan(&rc.OrderID, &rc.CustomerName, &rc.CreatedAt, &rc.Total, &rc.Paid, &rc.PaymentStatus)
		rc.Outstanding = rc.Total.Sub(rc.Paid)
		return rc, err
	}, `SELECT o.id, c.name, o.created_at, o.total, `+orderPaid+`, o.payment_status
FROM orders o JOIN customers c ON c.id = o.customer_id
WHERE o.payment_status IN ('PENDENTE', 'PARCIAL') ORDER BY o.created_at`)
}

// ConsolidatedExpenses lists every expense plus order production costs.
func (r *Repository) ConsolidatedExpenses(ctx context.Context) ([]ConsolidatedExpense, error) {
	return collect(ctx, r.pool, func(row pgx.CollectableRow) (ConsolidatedExpense, error) {
		var e ConsolidatedExpense
		err := row.Scan(&e.Kind, &e.ID, &e.Description, &e.Amount, &e.Date, &e.Category)
		return e, err
	}, `SELECT * FROM (
	SELECT 'DESPESA' AS kind, id, description, amount, due_date AS day, category FROM expenses
	UNION ALL
	SELECT 'CUSTO_PRODUCAO', o.id, 'Custo do Pedido #' || o.id || ' (' || c.name || ')', o.production_cost,
		o.created_at::date, 'Custo de Produção'
	FROM orders o JOIN customers c ON c.id = o.customer_id WHERE o.production_cost > 0
) t ORDER BY day DESC, id DESC`)
}

// PaidOrders lists fully paid orders created in the range.
func (r *Repository) PaidOrders(ctx context.Context, rg Range) ([]PaidOrder, error) {
	return collect(ctx, r.pool, func(row pgx.CollectableRow) (PaidOrder, error) {
		var o PaidOrder
		err := row.Scan(&o.ID, &o.CustomerName, &o.CreatedAt, &o.Total)
		return o, err
	}, `SELECT o.id, c.name, o.created_at, o.total FROM orders o JOIN customers c ON c.id = o.customer_id
WHERE o.payment_status = 'PAGO' AND o.created_at::date BETWEEN $1 AND $2 ORDER BY o.created_at`, rg.Start, rg.End)
}

// MonthlySales sums paid orders per month since the given day.
func (r *Repository) MonthlySales(ctx context.Context, since time.Time) ([]MonthTotal, error) {
	return collect(ctx, r.pool, func(row pgx.CollectableRow) (MonthTotal, error) {
		var m MonthTotal
		err := row.Scan(&m.Month, &m.Total)
		return m, err
	}, `SELECT to_char(date_trunc('month', created_at), 'YYYY-MM'), SUM(total) FROM orders
WHERE payment_status = 'PAGO' AND created_at >= $1 GROUP BY 1 ORDER BY 1`, since)
}

// OrdersByStatus counts orders per production status.
func (r *Repository) OrdersByStatus(ctx context.Context) ([]NameCount, error) {
	return collect(ctx, r.pool, scanNameCount, `SELECT production_status, COUNT(*) FROM orders GROUP BY 1 ORDER BY 2 DESC`)
}

// TopProducts ranks products by quantity sold since the given day.
func (r *Repository) TopProducts(ctx context.Context, since time.Time, limit int) ([]NameCount, error) {
	return collect(ctx, r.pool, scanNameCount, `SELECT p.name, SUM(l.quantity) FROM order_lines l
JOIN products p ON p.id = l.product_id JOIN orders o ON o.id = l.order_id
WHERE o.created_at >= $1 GROUP BY p.name ORDER BY 2 DESC LIMIT $2`, since, limit)
}

// TopClients ranks clients by total ordered.
func (r *Repository) TopClients(ctx context.Context, limit int) ([]ClientSpend, error) {
	return collect(ctx, r.pool, func(row pgx.CollectableRow) (ClientSpend, error) {
		var c ClientSpend
		err := row.Scan(&c.Name, &c.Orders, &c.TotalSpent)
		return c, err
	}, `SELECT c.name, COUNT(o.id), SUM(o.total) FROM customers c JOIN orders o ON o.customer_id = c.id
GROUP BY c.id, c.name ORDER BY 3 DESC LIMIT $1`, limit)
}

// Clients builds the client report.
func (r *Repository) Clients(ctx context.Context, today time.Time) (ClientReport, error) {
	var rep ClientReport
	err := r.pool.QueryRow(ctx, `SELECT
	(SELECT COUNT(*) FROM customers),
	(SELECT COUNT(*) FROM customers WHERE created_at >= $1),
	(SELECT COUNT(DISTINCT customer_id) FROM orders WHERE created_at >= $2)`,
		today.AddDate(0, 0, -30), today.AddDate(0, 0, -90)).Scan(&rep.Total, &rep.New30d, &rep.Active90)
	if err != nil {
		return rep, err
	}
	rep.Inactive, err = collect(ctx, r.pool, func(row pgx.CollectableRow) (InactiveClient, error) {
		var c InactiveClient
		if err := row.Scan(&c.ID, &c.Name, &c.TotalSpent, &c.LastOrder); err != nil {
			return c, err
		}
		c.DaysInactive = daysSince(c.LastOrder.Time, today)
		return c, nil
	}, `SELECT c.id, c.name, COALESCE(SUM(o.total), 0), MAX(o.created_at)::date
FROM customers c LEFT JOIN orders o ON o.customer_id = c.id
GROUP BY c.id, c.name
HAVING MAX(o.created_at) IS NULL OR MAX(o.created_at) < $1
ORDER BY MAX(o.created_at) NULLS FIRST, c.name`, today.AddDate(0, 0, -90))
	return rep, err
}

// Orders builds the order report.
func (r *Repository) Orders(ctx context.Context, today time.Time) (OrderReport, error) {
	var rep OrderReport
	var avgDays decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT
	(SELECT COUNT(*) FROM orders),
	(SELECT COALESCE(AVG(total - production_cost), 0) FROM orders WHERE payment_status = 'PAGO'),
	(SELECT COALESCE(AVG(production_date - created_at::date), 0) FROM orders
		WHERE production_status = 'FINALIZADO' AND production_date IS NOT NULL)`).
		Scan(&rep.Total, &rep.AverageProfit, &avgDays)
	if err != nil {
		return rep, err
	}
	rep.AverageProfit = rep.AverageProfit.Round(2)
	rep.AverageProductionD = int(avgDays.Round(0).IntPart())
	rep.Late, err = collect(ctx, r.pool, func(row pgx.CollectableRow) (LateOrder, error) {
		var o LateOrder
		if err := row.Scan(&o.ID, &o.CustomerName, &o.DueDate, &o.Status); err != nil {
			return o, err
		}
		o.DaysLate = int(today.Sub(o.DueDate.Time).Hours() / 24)
		return o, nil
	}, `SELECT o.id, c.name, o.due_date, o.production_status FROM orders o JOIN customers c ON c.id = o.customer_id
WHERE o.production_status IN ('AGUARDANDO', 'AGUARDANDO_ARTE', 'EM_PRODUCAO') AND o.due_date < $1
ORDER BY o.due_date`, today)
	if err != nil {
		return rep, err
	}
	rep.PaymentsByMethod, err = collect(ctx, r.pool, scanNameCount,
		`SELECT method, COUNT(*) FROM payments GROUP BY method ORDER BY 2 DESC`)
	return rep, err
}

// Quotes builds the quote report. The conversion rate is left to the caller.
func (r *Repository) Quotes(ctx context.Context) (QuoteReport, error) {
	var rep QuoteReport
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*),
	COUNT(*) FILTER (WHERE status = 'APPROVED'),
	COUNT(*) FILTER (WHERE status = 'REJECTED'),
	COUNT(*) FILTER (WHERE status = 'OPEN'),
	COALESCE(SUM(total), 0),
	COALESCE(SUM(total) FILTER (WHERE status = 'APPROVED'), 0)
FROM quotes`).Scan(&rep.Total, &rep.Approved, &rep.Rejected, &rep.Open, &rep.QuotedTotal, &rep.ApprovedTotal)
	if err != nil {
		return rep, err
	}
	if rep.ByStatus, err = collect(ctx, r.pool, scanNameCount,
		`SELECT status, COUNT(*) FROM quotes GROUP BY status ORDER BY 2 DESC`); err != nil {
		return rep, err
	}
	if rep.TopProducts, err = collect(ctx, r.pool, scanNameCount, `SELECT p.name, COUNT(*) FROM quote_lines l
JOIN products p ON p.id = l.product_id GROUP BY p.name ORDER BY 2 DESC LIMIT 5`); err != nil {
		return rep, err
	}
	rep.Recent, err = collect(ctx, r.pool, func(row pgx.CollectableRow) (RecentQuote, error) {
		var q RecentQuote
		err := row.Scan(&q.ID, &q.CustomerName, &q.CreatedAt, &q.Status, &q.Total)
		return q, err
	}, `SELECT q.id, c.name, q.created_at, q.status, q.total FROM quotes q JOIN customers c ON c.id = q.customer_id
ORDER BY q.created_at DESC LIMIT 6`)
	return rep, err
}

// Products builds the product report.
func (r *Repository) Products(ctx context.Context, today time.Time) (ProductReport, error) {
	var rep ProductReport
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(AVG(cost), 0), COALESCE(AVG(price), 0) FROM products`).
		Scan(&rep.Cards.Count, &rep.Cards.AverageCost, &rep.Cards.AveragePrice)
	if err != nil {
		return rep, err
	}
	rep.Cards.AverageCost = rep.Cards.AverageCost.Round(2)
	rep.Cards.AveragePrice = rep.Cards.AveragePrice.Round(2)
	monthStart := today.AddDate(0, 0, 1-today.Day())
	if rep.TopSold, err = r.TopProducts(ctx, monthStart, 5); err != nil {
		return rep, err
	}
	if rep.Profitable, err = collect(ctx, r.pool, func(row pgx.CollectableRow) (ProfitableProduct, error) {
		var p ProfitableProduct
		if err := row.Scan(&p.Name, &p.Revenue, &p.Cost); err != nil {
			return p, err
		}
		p.Profit = p.Revenue.Sub(p.Cost)
		if p.Revenue.IsPositive() {
			p.Margin = p.Profit.Div(p.Revenue).Mul(decimal.NewFromInt(100)).Round(2)
		}
		return p, nil
	}, `SELECT p.name, SUM(l.subtotal), SUM(p.cost * l.quantity) FROM order_lines l
JOIN products p ON p.id = l.product_id WHERE p.cost > 0 AND p.price > 0
GROUP BY p.id, p.name ORDER BY SUM(l.subtotal) - SUM(p.cost * l.quantity) DESC LIMIT 6`); err != nil {
		return rep, err
	}
	if rep.LowDemand, err = collect(ctx, r.pool, func(row pgx.CollectableRow) (IdleProduct, error) {
		var p IdleProduct
		if err := row.Scan(&p.Name, &p.LastSale); err != nil {
			return p, err
		}
		p.DaysSinceSale = daysSince(p.LastSale.Time, today)
		return p, nil
	}, `SELECT p.name, MAX(o.created_at)::date FROM products p
LEFT JOIN order_lines l ON l.product_id = p.id LEFT JOIN orders o ON o.id = l.order_id
GROUP BY p.id, p.name HAVING MAX(o.created_at) IS NULL OR MAX(o.created_at) < $1
ORDER BY MAX(o.created_at) NULLS FIRST LIMIT 6`, today.AddDate(0, 0, -60)); err != nil {
		return rep, err
	}
	rep.StockAlerts, err = collect(ctx, r.pool, func(row pgx.CollectableRow) (StockAlert, error) {
		var a StockAlert
		err := row.Scan(&a.ID, &a.Name, &a.Stock, &a.MinStock)
		return a, err
	}, `SELECT id, name, stock, min_stock FROM products WHERE stock IS NOT NULL AND stock < min_stock ORDER BY name`)
	return rep, err
}

// Suppliers ranks suppliers by cost amount and by number of costs.
func (r *Repository) Suppliers(ctx context.Context) (SupplierReport, error) {
	scan := func(row pgx.CollectableRow) (SupplierSpend, error) {
		var s SupplierSpend
		err := row.Scan(&s.Name, &s.Total, &s.Orders)
		return s, err
	}
	const base = `SELECT s.name, SUM(c.amount), COUNT(c.id) FROM suppliers s
JOIN supplier_costs c ON c.supplier_id = s.id GROUP BY s.id, s.name`
	var rep SupplierReport
	var err error
	if rep.BySpend, err = collect(ctx, r.pool, scan, base+` ORDER BY 2 DESC LIMIT 10`); err != nil {
		return rep, err
	}
	rep.ByUsage, err = collect(ctx, r.pool, scan, base+` ORDER BY 3 DESC LIMIT 10`)
	return rep, err
}

func daysSince(last, today time.Time) *int {
	if last.IsZero() {
		return nil
	}
	d := int(today.Sub(last).Hours() / 24)
	return &d
}
