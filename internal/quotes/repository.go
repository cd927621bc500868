package quotes

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/inkworks/inkworks/internal/platform/db"
	"github.com/inkworks/inkworks/internal/platform/httpx"
)

// Repository persists quotes in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	LockQuote(ctx context.Context, id int64) (Quote, error)
	InsertQuote(ctx context.Context, in CreateInput) (int64, error)
	UpdateHeader(ctx context.Context, id int64, h header) error
	DeleteQuote(ctx context.Context, id int64) error

	Lines(ctx context.Context, quoteID int64) ([]Line, error)
	Line(ctx context.Context, quoteID, lineID int64) (Line, error)
	InsertLine(ctx context.Context, quoteID int64, in LineInput, subtotal decimal.Decimal) (Line, error)
	UpdateLine(ctx context.Context, quoteID, lineID int64, in LineInput, subtotal decimal.Decimal) (Line, error)
	DeleteLine(ctx context.Context, quoteID, lineID int64) error
	DeleteLines(ctx context.Context, quoteID int64) error
	SetTotal(ctx context.Context, quoteID int64, total decimal.Decimal) error
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

const quoteSelect = `SELECT q.id, q.customer_id, c.name, q.created_at, q.valid_until, q.status, q.shipping, q.discount, q.total, o.id
FROM quotes q JOIN customers c ON c.id = q.customer_id LEFT JOIN orders o ON o.source_quote_id = q.id`

func scanQuote(row pgx.Row) (Quote, error) {
	var q Quote
	err := row.Scan(&q.ID, &q.CustomerID, &q.CustomerName, &q.CreatedAt, &q.ValidUntil, &q.Status, &q.Shipping, &q.Discount, &q.Total, &q.OrderID)
	return q, err
}

// Get returns a quote with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Quote, error) {
	q, err := scanQuote(r.pool.QueryRow(ctx, quoteSelect+` WHERE q.id = $1`, id))
	if err != nil {
		return Quote{}, db.NotFound(err, ErrQuoteNotFound)
	}
	q.Lines, err = queryLines(ctx, r.pool, id)
	if err != nil {
		return Quote{}, err
	}
	return q, nil
}

const quoteFilter = ` WHERE q.status <> 'APPROVED'
AND ($1 = '' OR c.name ILIKE '%' || $1 || '%' OR q.id::text = $1)
AND ($2 = '' OR q.status = $2)`

// List returns a page of quotes that were not converted, newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Quote, int, error) {
	args := []any{f.Search, string(f.Status)}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quotes q JOIN customers c ON c.id = q.customer_id`+quoteFilter, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, quoteSelect+quoteFilter+` ORDER BY q.created_at DESC, q.id DESC LIMIT $3 OFFSET $4`, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Quote{}
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, q)
	}
	return out, total, rows.Err()
}

const lineSelect = `SELECT l.id, l.quote_id, l.product_id, COALESCE(p.name, ''), l.quantity, l.width, l.height, l.description, l.subtotal
FROM quote_lines l LEFT JOIN products p ON p.id = l.product_id`

func scanLine(row pgx.Row) (Line, error) {
	var l Line
	err := row.Scan(&l.ID, &l.QuoteID, &l.ProductID, &l.ProductName, &l.Quantity, &l.Width, &l.Height, &l.Description, &l.Subtotal)
	return l, err
}

func queryLines(ctx context.Context, q db.Querier, quoteID int64) ([]Line, error) {
	rows, err := q.Query(ctx, lineSelect+` WHERE l.quote_id = $1 ORDER BY l.id`, quoteID)
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

func (t *txRepo) LockQuote(ctx context.Context, id int64) (Quote, error) {
	q, err := scanQuote(t.q.QueryRow(ctx, quoteSelect+` WHERE q.id = $1 FOR UPDATE OF q`, id))
	if err != nil {
		return Quote{}, db.NotFound(err, ErrQuoteNotFound)
	}
	return q, nil
}

func (t *txRepo) InsertQuote(ctx context.Context, in CreateInput) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `INSERT INTO quotes (customer_id, valid_until, shipping, discount) VALUES ($1, $2, $3, $4) RETURNING id`,
		in.CustomerID, in.ValidUntil, in.Shipping, in.Discount).Scan(&id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return 0, ErrCustomerNotFound
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepo) UpdateHeader(ctx context.Context, id int64, h header) error {
	var (
		validSet bool
		valid    httpx.Date
	)
	if h.ValidUntil != nil {
		validSet, valid = true, *h.ValidUntil
	}
	_, err := t.q.Exec(ctx, `UPDATE quotes SET
  customer_id = COALESCE($2, customer_id),
  valid_until = CASE WHEN $3 THEN $4::date ELSE valid_until END,
  status = COALESCE($5, status),
  shipping = COALESCE($6, shipping),
  discount = COALESCE($7, discount)
WHERE id = $1`, id, h.CustomerID, validSet, valid, h.Status, h.Shipping, h.Discount)
	if db.IsForeignKeyViolation(err) {
		return ErrCustomerNotFound
	}
	return err
}

func (t *txRepo) DeleteQuote(ctx context.Context, id int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM quotes WHERE id = $1`, id)
	return err
}

func (t *txRepo) Lines(ctx context.Context, quoteID int64) ([]Line, error) {
	return queryLines(ctx, t.q, quoteID)
}

func (t *txRepo) Line(ctx context.Context, quoteID, lineID int64) (Line, error) {
	l, err := scanLine(t.q.QueryRow(ctx, lineSelect+` WHERE l.quote_id = $1 AND l.id = $2`, quoteID, lineID))
	if err != nil {
		return Line{}, db.NotFound(err, ErrLineNotFound)
	}
	return l, nil
}

func (t *txRepo) InsertLine(ctx context.Context, quoteID int64, in LineInput, subtotal decimal.Decimal) (Line, error) {
	var id int64
	err := t.q.QueryRow(ctx, `INSERT INTO quote_lines (quote_id, product_id, quantity, width, height, description, subtotal)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		quoteID, in.ProductID, in.Quantity, in.Width, in.Height, in.Description, subtotal).Scan(&id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Line{}, ErrProductNotFound
		}
		return Line{}, err
	}
	return t.Line(ctx, quoteID, id)
}

func (t *txRepo) UpdateLine(ctx context.Context, quoteID, lineID int64, in LineInput, subtotal decimal.Decimal) (Line, error) {
	tag, err := t.q.Exec(ctx, `UPDATE quote_lines SET product_id = $3, quantity = $4, width = $5, height = $6, description = $7, subtotal = $8
WHERE quote_id = $1 AND id = $2`, quoteID, lineID, in.ProductID, in.Quantity, in.Width, in.Height, in.Description, subtotal)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Line{}, ErrProductNotFound
		}
		return Line{}, err
	}
	if tag.RowsAffected() == 0 {
		return Line{}, ErrLineNotFound
	}
	return t.Line(ctx, quoteID, lineID)
}

func (t *txRepo) DeleteLine(ctx context.Context, quoteID, lineID int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM quote_lines WHERE quote_id = $1 AND id = $2`, quoteID, lineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (t *txRepo) DeleteLines(ctx context.Context, quoteID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM quote_lines WHERE quote_id = $1`, quoteID)
	return err
}

func (t *txRepo) SetTotal(ctx context.Context, quoteID int64, total decimal.Decimal) error {
	_, err := t.q.Exec(ctx, `UPDATE quotes SET total = $2 WHERE id = $1`, quoteID, total)
	return err
}
