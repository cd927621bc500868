package clients

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkworks/inkworks/internal/platform/db"
)

// Repository persists customers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, name, email, phone, document, notes, postal_code, street, number, district, complement, city, state, created_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Document, &c.Notes, &c.PostalCode, &c.Street, &c.Number,
		&c.District, &c.Complement, &c.City, &c.State, &c.CreatedAt)
	return c, err
}

const search = `($1 = '' OR name ILIKE '%' || $1 || '%' OR COALESCE(document, '') ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')`

// List returns customers ordered by name.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE `+search, filter.Search).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM customers WHERE `+search+`
ORDER BY name, id LIMIT $2 OFFSET $3`, filter.Search, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// Get fetches a customer by id.
func (r *Repository) Get(ctx context.Context, id int64) (Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return Customer{}, db.NotFound(err, ErrCustomerNotFound)
	}
	return c, nil
}

// Create inserts a customer.
func (r *Repository) Create(ctx context.Context, in CustomerInput) (Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, `INSERT INTO customers (name, email, phone, document, notes, postal_code,
street, number, district, complement, city, state)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING `+columns,
		in.Name, in.Email, in.Phone, in.Document, in.Notes, in.PostalCode, in.Street, in.Number, in.District,
		in.Complement, in.City, in.State))
	if db.IsUniqueViolation(err) {
		return Customer{}, ErrDuplicateDocument
	}
	return c, err
}

// Update replaces a customer's fields.
func (r *Repository) Update(ctx context.Context, id int64, in CustomerInput) (Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, `UPDATE customers SET name = $2, email = $3, phone = $4, document = $5,
notes = $6, postal_code = $7, street = $8, number = $9, district = $10, complement = $11, city = $12, state = $13
WHERE id = $1 RETURNING `+columns,
		id, in.Name, in.Email, in.Phone, in.Document, in.Notes, in.PostalCode, in.Street, in.Number, in.District,
		in.Complement, in.City, in.State))
	if db.IsUniqueViolation(err) {
		return Customer{}, ErrDuplicateDocument
	}
	if err != nil {
		return Customer{}, db.NotFound(err, ErrCustomerNotFound)
	}
	return c, nil
}

// Delete removes a customer. Quotes and orders reference customers with
// ON DELETE RESTRICT, so history blocks the delete.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrCustomerInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

// QuoteHistory lists a customer's quotes, newest first.
func (r *Repository) QuoteHistory(ctx context.Context, customerID int64) ([]QuoteSummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, created_at, total, status FROM quotes WHERE customer_id = $1 ORDER BY created_at DESC, id DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []QuoteSummary
	for rows.Next() {
		var q QuoteSummary
		if err := rows.Scan(&q.ID, &q.CreatedAt, &q.Total, &q.Status); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// OrderHistory lists a customer's orders, newest first.
func (r *Repository) OrderHistory(ctx context.Context, customerID int64) ([]OrderSummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, created_at, total, production_status, payment_status FROM orders
WHERE customer_id = $1 ORDER BY created_at DESC, id DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderSummary
	for rows.Next() {
		var o OrderSummary
		if err := rows.Scan(&o.ID, &o.CreatedAt, &o.Total, &o.ProductionStatus, &o.PaymentStatus); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
