package stock

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkworks/inkworks/internal/platform/db"
)

// Repository persists stock data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	AddToStock(ctx context.Context, productID int64, delta int) (int, error)
	InsertMovement(ctx context.Context, in MovementInput) (Movement, error)
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

// ListByProduct returns the newest movements of a product.
func (r *Repository) ListByProduct(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, quantity, kind, note, actor_id, created_at
FROM stock_movements WHERE product_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Quantity, &m.Kind, &m.Note, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ApplyOrderDelta moves a tracked product's counter. Services with a null
// stock are left untouched.
func (r *Repository) ApplyOrderDelta(ctx context.Context, productID int64, delta int) error {
	_, err := r.pool.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id = $1 AND stock IS NOT NULL`, productID, delta)
	return err
}

func (t *txRepo) AddToStock(ctx context.Context, productID int64, delta int) (int, error) {
	var balance int
	err := t.q.QueryRow(ctx, `UPDATE products SET stock = COALESCE(stock, 0) + $2 WHERE id = $1 RETURNING stock`, productID, delta).Scan(&balance)
	if err != nil {
		return 0, db.NotFound(err, ErrProductNotFound)
	}
	return balance, nil
}

func (t *txRepo) InsertMovement(ctx context.Context, in MovementInput) (Movement, error) {
	var actor *int64
	if in.ActorID > 0 {
		actor = &in.ActorID
	}
	m := Movement{ProductID: in.ProductID, Quantity: in.Quantity, Kind: in.Kind, Note: in.Note, ActorID: actor}
	err := t.q.QueryRow(ctx, `INSERT INTO stock_movements (product_id, quantity, kind, note, actor_id)
VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`, in.ProductID, in.Quantity, in.Kind, in.Note, actor).Scan(&m.ID, &m.CreatedAt)
	return m, err
}
