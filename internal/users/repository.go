package users

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkworks/inkworks/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userSelect = `SELECT u.id, u.username, u.email, u.name, u.is_active, u.is_superuser, u.created_at, u.last_login_at,
	ARRAY(SELECT g.name FROM user_groups ug JOIN groups g ON g.id = ug.group_id WHERE ug.user_id = u.id ORDER BY g.name)
FROM users u`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Name, &u.IsActive, &u.IsSuperuser, &u.CreatedAt, &u.LastLoginAt, &u.Groups)
	return u, err
}

// ListUsers returns every account that is not a superuser.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, userSelect+` WHERE NOT u.is_superuser ORDER BY u.username`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) { return scanUser(row) })
}

// Get returns a non-superuser account.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE u.id = $1 AND NOT u.is_superuser`, id))
	if err != nil {
		return User{}, db.NotFound(err, ErrUserNotFound)
	}
	return u, nil
}

// Create inserts the account and its groups.
func (r *Repository) Create(ctx context.Context, in CreateInput, hash string) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		active := in.IsActive == nil || *in.IsActive
		err := tx.QueryRow(ctx, `INSERT INTO users (username, email, name, password_hash, is_active, is_superuser)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`, in.Username, in.Email, in.Name, hash, active, in.Superuser).Scan(&id)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrUsernameTaken
			}
			return err
		}
		return setGroups(ctx, tx, id, in.Groups)
	})
	return id, err
}

// Update applies the non-nil fields, the optional new hash and the groups.
func (r *Repository) Update(ctx context.Context, id int64, in UpdateInput, hash *string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET
	username = COALESCE($2, username),
	email = COALESCE($3, email),
	name = COALESCE($4, name),
	is_active = COALESCE($5, is_active),
	password_hash = COALESCE($6, password_hash)
WHERE id = $1 AND NOT is_superuser`, id, in.Username, in.Email, in.Name, in.IsActive, hash)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrUsernameTaken
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		if in.Groups == nil {
			return nil
		}
		return setGroups(ctx, tx, id, *in.Groups)
	})
}

// Delete removes a non-superuser account.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1 AND NOT is_superuser`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func setGroups(ctx context.Context, tx pgx.Tx, userID int64, groups []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM user_groups WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if len(groups) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `INSERT INTO user_groups (user_id, group_id)
SELECT $1, id FROM groups WHERE name = ANY($2)`, userID, groups)
	return err
}
