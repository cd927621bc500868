package labels

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkworks/inkworks/internal/platform/db"
)

// Repository persists labels in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const labelColumns = `id, client_type, responsible_name, block, apartment, created_at`

func scanLabel(row pgx.Row) (Label, error) {
	var l Label
	err := row.Scan(&l.ID, &l.ClientType, &l.ResponsibleName, &l.Block, &l.Apartment, &l.CreatedAt)
	return l, err
}

const labelFilter = ` WHERE $1 = '' OR responsible_name ILIKE '%' || $1 || '%' OR block ILIKE $1 OR apartment ILIKE $1`

// List returns a page of labels, newest first.
func (r *Repository) List(ctx context.Context, search string, limit, offset int) ([]Label, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM door_labels`+labelFilter, search).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+labelColumns+` FROM door_labels`+labelFilter+` ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Label{}
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

// Get returns a label.
func (r *Repository) Get(ctx context.Context, id int64) (Label, error) {
	l, err := scanLabel(r.pool.QueryRow(ctx, `SELECT `+labelColumns+` FROM door_labels WHERE id = $1`, id))
	if err != nil {
		return Label{}, db.NotFound(err, ErrLabelNotFound)
	}
	return l, nil
}

// Create inserts a label.
func (r *Repository) Create(ctx context.Context, in Input) (Label, error) {
	return scanLabel(r.pool.QueryRow(ctx, `INSERT INTO door_labels (client_type, responsible_name, block, apartment)
VALUES ($1, $2, $3, $4) RETURNING `+labelColumns, in.ClientType, in.ResponsibleName, in.Block, in.Apartment))
}

// Update replaces a label.
func (r *Repository) Update(ctx context.Context, id int64, in Input) (Label, error) {
	l, err := scanLabel(r.pool.QueryRow(ctx, `UPDATE door_labels SET client_type = $2, responsible_name = $3, block = $4, apartment = $5
WHERE id = $1 RETURNING `+labelColumns, id, in.ClientType, in.ResponsibleName, in.Block, in.Apartment))
	if err != nil {
		return Label{}, db.NotFound(err, ErrLabelNotFound)
	}
	return l, nil
}

// Delete removes a label.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM door_labels WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLabelNotFound
	}
	return nil
}
