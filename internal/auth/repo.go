package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkworks/inkworks/internal/platform/db"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByLogin(ctx context.Context, login string) (User, error)
	Get(ctx context.Context, id int64) (User, error)
	TouchLogin(ctx context.Context, id int64, at time.Time) error
	UpdateProfile(ctx context.Context, id int64, in ProfileInput) (User, error)
	SetPassword(ctx context.Context, id int64, hash string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userSelect = `SELECT u.id, u.username, u.email, u.name, u.password_hash, u.is_superuser, u.is_active,
	u.avatar_url, u.created_at, u.last_login_at,
	COALESCE(ARRAY(SELECT g.name FROM user_groups ug JOIN groups g ON g.id = ug.group_id
		WHERE ug.user_id = u.id ORDER BY g.name), '{}')
FROM users u`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Name, &u.PasswordHash, &u.IsSuperuser, &u.IsActive,
		&u.AvatarURL, &u.CreatedAt, &u.LastLoginAt, &u.Groups)
	return u, err
}

// FindByLogin fetches a user by username or, case-insensitively, by email.
func (r *PGRepository) FindByLogin(ctx context.Context, login string) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE u.username = $1 OR (u.email <> '' AND LOWER(u.email) = LOWER($1))
ORDER BY (u.username = $1) DESC LIMIT 1`, login))
	if err != nil {
		return User{}, db.NotFound(err, ErrUserNotFound)
	}
	return u, nil
}

// Get fetches a user by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE u.id = $1`, id))
	if err != nil {
		return User{}, db.NotFound(err, ErrUserNotFound)
	}
	return u, nil
}

// TouchLogin records a successful login.
func (r *PGRepository) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	return err
}

// UpdateProfile stores the caller's own details.
func (r *PGRepository) UpdateProfile(ctx context.Context, id int64, in ProfileInput) (User, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET name = $2, email = $3, avatar_url = $4 WHERE id = $1`,
		id, in.Name, in.Email, in.AvatarURL)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	if tag.RowsAffected() == 0 {
		return User{}, ErrUserNotFound
	}
	return r.Get(ctx, id)
}

// SetPassword replaces the stored hash.
func (r *PGRepository) SetPassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
