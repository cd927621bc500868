package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists notifications in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Recipient returns the oldest active superuser.
func (r *Repository) Recipient(ctx context.Context) (int64, bool, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM users WHERE is_superuser AND is_active ORDER BY id LIMIT 1`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	return id, err == nil, err
}

// LowStock lists tracked products at or below a positive minimum.
func (r *Repository) LowStock(ctx context.Context) ([]LowStock, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, stock, min_stock FROM products
WHERE stock IS NOT NULL AND min_stock > 0 AND stock <= min_stock ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LowStock
	for rows.Next() {
		var p LowStock
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Stock, &p.MinStock); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Overdue lists unfinished orders due before today.
func (r *Repository) Overdue(ctx context.Context, today time.Time) ([]Overdue, error) {
	rows, err := r.pool.Query(ctx, `SELECT o.id, c.name, o.due_date FROM orders o JOIN customers c ON c.id = o.customer_id
WHERE o.due_date IS NOT NULL AND o.due_date < $1 AND o.production_status NOT IN ('FINALIZADO', 'ENTREGUE')
ORDER BY o.due_date, o.id`, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Overdue
	for rows.Next() {
		var o Overdue
		if err := rows.Scan(&o.OrderID, &o.CustomerName, &o.DueDate); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Upsert creates the notification for c.Key, or marks a read one unread with
// a fresh timestamp. An unread one is untouched and no row comes back.
func (r *Repository) Upsert(ctx context.Context, userID int64, c Candidate, at time.Time) (Outcome, error) {
	var inserted bool
	err := r.pool.QueryRow(ctx, `INSERT INTO notifications (user_id, message, link, unique_key, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (unique_key) DO UPDATE SET read = FALSE, created_at = EXCLUDED.created_at
WHERE notifications.read
RETURNING (xmax = 0)`, userID, c.Message, c.Link, c.Key, at).Scan(&inserted)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Unchanged, nil
	case err != nil:
		return Unchanged, err
	case inserted:
		return Created, nil
	default:
		return Resurfaced, nil
	}
}

// List returns the user's latest notifications.
func (r *Repository) List(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, user_id, message, link, read, created_at, unique_key FROM notifications
WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Link, &n.Read, &n.CreatedAt, &n.UniqueKey); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkAllRead flags the user's unread notifications as read.
func (r *Repository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountUnread counts the user's unread notifications.
func (r *Repository) CountUnread(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&n)
	return n, err
}
