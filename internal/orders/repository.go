package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/inkworks/inkworks/internal/platform/db"
	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/pricing"
)

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	LockOrder(ctx context.Context, id int64) (Order, error)
	LockOrderByToken(ctx context.Context, token uuid.UUID) (Order, error)
	InsertOrder(ctx context.Context, in CreateInput) (int64, error)
	UpdateHeader(ctx context.Context, id int64, in UpdateInput) error
	DeleteOrder(ctx context.Context, id int64) error

	Lines(ctx context.Context, orderID int64) ([]Line, error)
	Line(ctx context.Context, orderID, lineID int64) (Line, error)
	InsertLine(ctx context.Context, orderID int64, in LineInput, subtotal decimal.Decimal) (Line, error)
	UpdateLine(ctx context.Context, orderID, lineID int64, in LineInput, subtotal decimal.Decimal) (Line, error)
	DeleteLine(ctx context.Context, orderID, lineID int64) error
	SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) error

	InsertPayment(ctx context.Context, orderID int64, in PaymentInput) (Payment, error)
	DeletePayment(ctx context.Context, orderID, paymentID int64) error
	SumPayments(ctx context.Context, orderID int64) (decimal.Decimal, error)
	SetPaymentStatus(ctx context.Context, orderID int64, status pricing.PaymentStatus) error

	Cost(ctx context.Context, id int64) (SupplierCost, error)
	InsertCost(ctx context.Context, orderID int64, in CostInput) (SupplierCost, error)
	UpdateCost(ctx context.Context, id int64, in CostInput) (SupplierCost, error)
	DeleteCost(ctx context.Context, id int64) error
	MarkCostPaid(ctx context.Context, id int64, paidOn httpx.Date) (SupplierCost, error)
	SumCosts(ctx context.Context, orderID int64) (decimal.Decimal, error)
	SetProductionCost(ctx context.Context, orderID int64, total decimal.Decimal) error

	InsertArtwork(ctx context.Context, orderID int64, in ArtworkInput, at time.Time) (Artwork, error)
	SetArtState(ctx context.Context, orderID int64, status ArtStatus, token *uuid.UUID) error
	CommentLatestArtwork(ctx context.Context, orderID int64, comment string) error
}

type txRepo struct {
	q db.Querier
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: tx})
	})
}

const orderSelect = `SELECT o.id, o.customer_id, c.name, o.source_quote_id, o.created_at, o.total, o.production_cost,
       o.production_status, o.payment_status, o.art_status, o.approval_token, o.due_date, o.production_date,
       o.shipping_method, o.tracking_code,
       COALESCE((SELECT SUM(p.amount) FROM payments p WHERE p.order_id = o.id), 0)
FROM orders o JOIN customers c ON c.id = o.customer_id`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.CustomerName, &o.SourceQuoteID, &o.CreatedAt, &o.Total, &o.ProductionCost,
		&o.ProductionStatus, &o.PaymentStatus, &o.ArtStatus, &o.ApprovalToken, &o.DueDate, &o.ProductionDate,
		&o.ShippingMethod, &o.TrackingCode, &o.AmountPaid)
	if err != nil {
		return Order{}, err
	}
	o.AmountDue = Receivable(o.Total, o.AmountPaid)
	return o, nil
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Get returns an order with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		return Order{}, db.NotFound(err, ErrOrderNotFound)
	}
	o.Lines, err = queryLines(ctx, r.pool, id)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

const orderFilter = ` WHERE ($1 = '' OR c.name ILIKE '%' || $1 || '%' OR o.id::text = $1)
AND ($2 = '' OR o.production_status = $2)
AND ($3 = '' OR o.payment_status = $3)
AND ($4 = 0 OR o.customer_id = $4)`

// List returns a page of orders, newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Order, int, error) {
	args := []any{f.Search, string(f.ProductionStatus), string(f.PaymentStatus), f.CustomerID}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders o JOIN customers c ON c.id = o.customer_id`+orderFilter, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, orderSelect+orderFilter+` ORDER BY o.created_at DESC, o.id DESC LIMIT $5 OFFSET $6`, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collectOrders(rows)
	return out, total, err
}

// ByProductionStatus returns orders in the given columns, oldest first.
func (r *Repository) ByProductionStatus(ctx context.Context, statuses []ProductionStatus) ([]Order, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	rows, err := r.pool.Query(ctx, orderSelect+` WHERE o.production_status = ANY($1) ORDER BY o.created_at, o.id`, names)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// Recent returns the newest orders.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Order, error) {
	rows, err := r.pool.Query(ctx, orderSelect+` ORDER BY o.created_at DESC, o.id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// OrderIDByToken resolves an approval token.
func (r *Repository) OrderIDByToken(ctx context.Context, token uuid.UUID) (int64, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, `SELECT id FROM orders WHERE approval_token = $1`, token).Scan(&id); err != nil {
		return 0, db.NotFound(err, ErrTokenNotFound)
	}
	return id, nil
}

// ListPayments returns payments of an order, or the latest of all orders when orderID is 0.
func (r *Repository) ListPayments(ctx context.Context, orderID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, amount, method, paid_at FROM payments WHERE ($1 = 0 OR order_id = $1) ORDER BY paid_at DESC, id DESC LIMIT 500`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.PaidAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const costSelect = `SELECT sc.id, sc.order_id, sc.supplier_id, s.name, sc.description, sc.amount, sc.status, sc.due_date, sc.paid_date, sc.created_at
FROM supplier_costs sc JOIN suppliers s ON s.id = sc.supplier_id`

func scanCost(row pgx.Row) (SupplierCost, error) {
	var c SupplierCost
	err := row.Scan(&c.ID, &c.OrderID, &c.SupplierID, &c.SupplierName, &c.Description, &c.Amount, &c.Status, &c.DueDate, &c.PaidDate, &c.CreatedAt)
	return c, err
}

// ListCosts returns supplier costs ordered by due date.
func (r *Repository) ListCosts(ctx context.Context, f CostFilter) ([]SupplierCost, error) {
	rows, err := r.pool.Query(ctx, costSelect+` WHERE ($1 = 0 OR sc.order_id = $1) AND ($2 = 0 OR sc.supplier_id = $2) AND ($3 = '' OR sc.status = $3)
ORDER BY sc.due_date NULLS LAST, sc.id`, f.OrderID, f.SupplierID, string(f.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SupplierCost
	for rows.Next() {
		c, err := scanCost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListArtworks returns artworks of an order, newest first.
func (r *Repository) ListArtworks(ctx context.Context, orderID int64) ([]Artwork, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, layout_url, admin_comments, client_comments, uploaded_at
FROM artworks WHERE order_id = $1 ORDER BY uploaded_at DESC, id DESC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Artwork
	for rows.Next() {
		var a Artwork
		if err := rows.Scan(&a.ID, &a.OrderID, &a.LayoutURL, &a.AdminComments, &a.ClientComments, &a.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const lineSelect = `SELECT l.id, l.order_id, l.product_id, COALESCE(p.name, ''), l.quantity, l.width, l.height, l.description, l.production_notes, l.subtotal
FROM order_lines l LEFT JOIN products p ON p.id = l.product_id`

func scanLine(row pgx.Row) (Line, error) {
	var l Line
	err := row.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.Width, &l.Height, &l.Description, &l.ProductionNotes, &l.Subtotal)
	return l, err
}

func queryLines(ctx context.Context, q db.Querier, orderID int64) ([]Line, error) {
	rows, err := q.Query(ctx, lineSelect+` WHERE l.order_id = $1 ORDER BY l.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Line
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *txRepo) LockOrder(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(t.q.QueryRow(ctx, orderSelect+` WHERE o.id = $1 FOR UPDATE OF o`, id))
	if err != nil {
		return Order{}, db.NotFound(err, ErrOrderNotFound)
	}
	return o, nil
}

func (t *txRepo) LockOrderByToken(ctx context.Context, token uuid.UUID) (Order, error) {
	o, err := scanOrder(t.q.QueryRow(ctx, orderSelect+` WHERE o.approval_token = $1 FOR UPDATE OF o`, token))
	if err != nil {
		return Order{}, db.NotFound(err, ErrTokenNotFound)
	}
	return o, nil
}

func (t *txRepo) InsertOrder(ctx context.Context, in CreateInput) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `INSERT INTO orders (customer_id, source_quote_id, due_date, production_date, shipping_method)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, in.CustomerID, in.SourceQuoteID, in.DueDate, in.ProductionDate, in.ShippingMethod).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case db.IsUniqueViolation(err):
		return 0, ErrQuoteAlreadyConverted
	case db.IsForeignKeyViolation(err):
		return 0, ErrCustomerNotFound
	default:
		return 0, err
	}
}

func (t *txRepo) UpdateHeader(ctx context.Context, id int64, in UpdateInput) error {
	var (
		dueSet, prodSet bool
		due, prod       httpx.Date
	)
	if in.DueDate != nil {
		dueSet, due = true, *in.DueDate
	}
	if in.ProductionDate != nil {
		prodSet, prod = true, *in.ProductionDate
	}
	_, err := t.q.Exec(ctx, `UPDATE orders SET
  production_status = COALESCE($2, production_status),
  art_status = COALESCE($3, art_status),
  due_date = CASE WHEN $4 THEN $5::date ELSE due_date END,
  production_date = CASE WHEN $6 THEN $7::date ELSE production_date END,
  shipping_method = COALESCE($8, shipping_method),
  tracking_code = COALESCE($9, tracking_code)
WHERE id = $1`, id, in.ProductionStatus, in.ArtStatus, dueSet, due, prodSet, prod, in.ShippingMethod, in.TrackingCode)
	return err
}

func (t *txRepo) DeleteOrder(ctx context.Context, id int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	return err
}

func (t *txRepo) Lines(ctx context.Context, orderID int64) ([]Line, error) {
	return queryLines(ctx, t.q, orderID)
}

func (t *txRepo) Line(ctx context.Context, orderID, lineID int64) (Line, error) {
	l, err := scanLine(t.q.QueryRow(ctx, lineSelect+` WHERE l.order_id = $1 AND l.id = $2`, orderID, lineID))
	if err != nil {
		return Line{}, db.NotFound(err, ErrLineNotFound)
	}
	return l, nil
}

func (t *txRepo) InsertLine(ctx context.Context, orderID int64, in LineInput, subtotal decimal.Decimal) (Line, error) {
	var id int64
	err := t.q.QueryRow(ctx, `INSERT INTO order_lines (order_id, product_id, quantity, width, height, description, production_notes, subtotal)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		orderID, in.ProductID, in.Quantity, in.Width, in.Height, in.Description, in.ProductionNotes, subtotal).Scan(&id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Line{}, ErrProductNotFound
		}
		return Line{}, err
	}
	return t.Line(ctx, orderID, id)
}

func (t *txRepo) UpdateLine(ctx context.Context, orderID, lineID int64, in LineInput, subtotal decimal.Decimal) (Line, error) {
	tag, err := t.q.Exec(ctx, `UPDATE order_lines SET product_id = $3, quantity = $4, width = $5, height = $6, description = $7, production_notes = $8, subtotal = $9
WHERE order_id = $1 AND id = $2`, orderID, lineID, in.ProductID, in.Quantity, in.Width, in.Height, in.Description, in.ProductionNotes, subtotal)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Line{}, ErrProductNotFound
		}
		return Line{}, err
	}
	if tag.RowsAffected() == 0 {
		return Line{}, ErrLineNotFound
	}
	return t.Line(ctx, orderID, lineID)
}

func (t *txRepo) DeleteLine(ctx context.Context, orderID, lineID int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1 AND id = $2`, orderID, lineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (t *txRepo) SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	_, err := t.q.Exec(ctx, `UPDATE orders SET total = $2 WHERE id = $1`, orderID, total)
	return err
}

func (t *txRepo) InsertPayment(ctx context.Context, orderID int64, in PaymentInput) (Payment, error) {
	p := Payment{OrderID: orderID, Amount: in.Amount, Method: in.Method}
	err := t.q.QueryRow(ctx, `INSERT INTO payments (order_id, amount, method, paid_at) VALUES ($1, $2, $3, $4) RETURNING id, paid_at`,
		orderID, in.Amount, in.Method, in.PaidAt).Scan(&p.ID, &p.PaidAt)
	return p, err
}

func (t *txRepo) DeletePayment(ctx context.Context, orderID, paymentID int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM payments WHERE order_id = $1 AND id = $2`, orderID, paymentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (t *txRepo) SumPayments(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := t.q.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = $1`, orderID).Scan(&sum)
	return sum, err
}

func (t *txRepo) SetPaymentStatus(ctx context.Context, orderID int64, status pricing.PaymentStatus) error {
	_, err := t.q.Exec(ctx, `UPDATE orders SET payment_status = $2 WHERE id = $1`, orderID, status)
	return err
}

func (t *txRepo) Cost(ctx context.Context, id int64) (SupplierCost, error) {
	c, err := scanCost(t.q.QueryRow(ctx, costSelect+` WHERE sc.id = $1 FOR UPDATE OF sc`, id))
	if err != nil {
		return SupplierCost{}, db.NotFound(err, ErrCostNotFound)
	}
	return c, nil
}

func (t *txRepo) InsertCost(ctx context.Context, orderID int64, in CostInput) (SupplierCost, error) {
	var id int64
	err := t.q.QueryRow(ctx, `INSERT INTO supplier_costs (order_id, supplier_id, description, amount, status, due_date, paid_date)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`, orderID, in.SupplierID, in.Description, in.Amount, in.Status, in.DueDate, in.PaidDate).Scan(&id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return SupplierCost{}, errSupplierMissing(in.SupplierID)
		}
		return SupplierCost{}, err
	}
	return t.Cost(ctx, id)
}

func (t *txRepo) UpdateCost(ctx context.Context, id int64, in CostInput) (SupplierCost, error) {
	_, err := t.q.Exec(ctx, `UPDATE supplier_costs SET supplier_id = $2, description = $3, amount = $4, status = $5, due_date = $6, paid_date = $7
WHERE id = $1`, id, in.SupplierID, in.Description, in.Amount, in.Status, in.DueDate, in.PaidDate)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return SupplierCost{}, errSupplierMissing(in.SupplierID)
		}
		return SupplierCost{}, err
	}
	return t.Cost(ctx, id)
}

func (t *txRepo) DeleteCost(ctx context.Context, id int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM supplier_costs WHERE id = $1`, id)
	return err
}

func (t *txRepo) MarkCostPaid(ctx context.Context, id int64, paidOn httpx.Date) (SupplierCost, error) {
	if _, err := t.q.Exec(ctx, `UPDATE supplier_costs SET status = 'PAGO', paid_date = $2 WHERE id = $1`, id, paidOn); err != nil {
		return SupplierCost{}, err
	}
	return t.Cost(ctx, id)
}

func (t *txRepo) SumCosts(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := t.q.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM supplier_costs WHERE order_id = $1`, orderID).Scan(&sum)
	return sum, err
}

func (t *txRepo) SetProductionCost(ctx context.Context, orderID int64, total decimal.Decimal) error {
	_, err := t.q.Exec(ctx, `UPDATE orders SET production_cost = $2 WHERE id = $1`, orderID, total)
	return err
}

func (t *txRepo) InsertArtwork(ctx context.Context, orderID int64, in ArtworkInput, at time.Time) (Artwork, error) {
	a := Artwork{OrderID: orderID, LayoutURL: in.LayoutURL, AdminComments: in.AdminComments}
	err := t.q.QueryRow(ctx, `INSERT INTO artworks (order_id, layout_url, admin_comments, uploaded_at) VALUES ($1, $2, $3, $4) RETURNING id, uploaded_at`,
		orderID, in.LayoutURL, in.AdminComments, at).Scan(&a.ID, &a.UploadedAt)
	return a, err
}

func (t *txRepo) SetArtState(ctx context.Context, orderID int64, status ArtStatus, token *uuid.UUID) error {
	_, err := t.q.Exec(ctx, `UPDATE orders SET art_status = $2, approval_token = COALESCE(approval_token, $3) WHERE id = $1`, orderID, status, token)
	return err
}

func (t *txRepo) CommentLatestArtwork(ctx context.Context, orderID int64, comment string) error {
	_, err := t.q.Exec(ctx, `UPDATE artworks SET client_comments = $2
WHERE id = (SELECT id FROM artworks WHERE order_id = $1 ORDER BY uploaded_at DESC, id DESC LIMIT 1)`, orderID, comment)
	return err
}

func errSupplierMissing(id int64) error {
	return fmt.Errorf("%w: orders: supplier %d not found", httpx.ErrValidation, id)
}
