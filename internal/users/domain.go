package users

import (
	"fmt"
	"time"

	"github.com/inkworks/inkworks/internal/platform/httpx"
)

// User represents a staff account for management.
type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	IsActive    bool       `json:"is_active"`
	IsSuperuser bool       `json:"-"`
	Groups      []string   `json:"groups"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// CreateInput registers a staff account. Superuser is only reachable from
// the command line.
type CreateInput struct {
	Username  string   `json:"username" validate:"required,max=150"`
	Email     string   `json:"email" validate:"omitempty,email"`
	Name      string   `json:"name" validate:"max=150"`
	Password  string   `json:"password" validate:"required"`
	IsActive  *bool    `json:"is_active"`
	Groups    []string `json:"groups"`
	Superuser bool     `json:"-"`
}

// UpdateInput changes an account. Nil fields are left alone; a non-empty
// Password resets it.
type UpdateInput struct {
	Username *string   `json:"username" validate:"omitempty,max=150"`
	Email    *string   `json:"email" validate:"omitempty,email"`
	Name     *string   `json:"name" validate:"omitempty,max=150"`
	IsActive *bool     `json:"is_active"`
	Groups   *[]string `json:"groups"`
	Password string    `json:"password"`
}

var (
	// ErrUserNotFound indicates a missing or protected account.
	ErrUserNotFound = fmt.Errorf("%w: users: user not found", httpx.ErrNotFound)
	// ErrUsernameTaken is returned when the username or email already exists.
	ErrUsernameTaken = fmt.Errorf("%w: users: username or email already in use", httpx.ErrDuplicate)
	// ErrUnknownGroup is returned for a group outside the fixed set.
	ErrUnknownGroup = fmt.Errorf("%w: users: unknown group", httpx.ErrValidation)
	// ErrSelfDelete is returned when an admin deletes their own account.
	ErrSelfDelete = fmt.Errorf("%w: users: cannot delete your own account", httpx.ErrConflict)
)
