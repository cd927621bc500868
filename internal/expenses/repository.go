package expenses

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkworks/inkworks/internal/platform/db"
	"github.com/inkworks/inkworks/internal/platform/httpx"
)

// Repository persists expenses in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const expenseColumns = `id, description, amount, due_date, category, status, paid_date`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.Description, &e.Amount, &e.DueDate, &e.Category, &e.Status, &e.PaidDate)
	return e, err
}

const expenseFilter = ` WHERE ($1 = '' OR description ILIKE '%' || $1 || '%' OR category ILIKE '%' || $1 || '%')
AND ($2 = '' OR status = $2)
AND ($3 = '' OR category = $3)`

// List returns a page of expenses ordered by due date.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Expense, int, error) {
	args := []any{f.Search, string(f.Status), f.Category}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM expenses`+expenseFilter, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+expenseColumns+` FROM expenses`+expenseFilter+
		` ORDER BY due_date DESC, id DESC LIMIT $4 OFFSET $5`, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// Get returns a single expense.
func (r *Repository) Get(ctx context.Context, id int64) (Expense, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
	if err != nil {
		return Expense{}, db.NotFound(err, ErrExpenseNotFound)
	}
	return e, nil
}

// Create inserts an expense.
func (r *Repository) Create(ctx context.Context, in Input) (Expense, error) {
	return scanExpense(r.pool.QueryRow(ctx, `INSERT INTO expenses (description, amount, due_date, category, status, paid_date)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+expenseColumns,
		in.Description, in.Amount, in.DueDate, in.Category, in.Status, in.PaidDate))
}

// Update replaces an expense.
func (r *Repository) Update(ctx context.Context, id int64, in Input) (Expense, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx, `UPDATE expenses SET description = $2, amount = $3, due_date = $4, category = $5, status = $6, paid_date = $7
WHERE id = $1 RETURNING `+expenseColumns,
		id, in.Description, in.Amount, in.DueDate, in.Category, in.Status, in.PaidDate))
	if err != nil {
		return Expense{}, db.NotFound(err, ErrExpenseNotFound)
	}
	return e, nil
}

// Delete removes an expense.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

// MarkPaid settles the expense only while it is still open, so concurrent
// payments cannot both succeed.
func (r *Repository) MarkPaid(ctx context.Context, id int64, on httpx.Date) (Expense, bool, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx, `UPDATE expenses SET status = 'PAGO', paid_date = $2
WHERE id = $1 AND status = 'A_PAGAR' RETURNING `+expenseColumns, id, on))
	if err == nil {
		return e, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, false, err
	}
	e, err = r.Get(ctx, id)
	return e, false, err
}
