package auth

import (
	"fmt"
	"time"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/shared"
)

// MinPasswordLength is enforced on every new password.
const MinPasswordLength = 8

// User represents an authenticated user account.
type User struct {
	ID           int64
	Username     string
	Email        string
	Name         string
	PasswordHash string
	IsSuperuser  bool
	IsActive     bool
	AvatarURL    string
	Groups       []string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// Profile is the caller's own account as returned by the API.
type Profile struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	AvatarURL    string     `json:"avatar_url"`
	IsSuperuser  bool       `json:"is_superuser"`
	Groups       []string   `json:"groups"`
	Capabilities []string   `json:"capabilities"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// ProfileOf builds the API view of u.
func ProfileOf(u User) Profile {
	groups := u.Groups
	if groups == nil {
		groups = []string{}
	}
	return Profile{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.Name,
		AvatarURL:    u.AvatarURL,
		IsSuperuser:  u.IsSuperuser,
		Groups:       groups,
		Capabilities: shared.CapabilitiesFor(groups, u.IsSuperuser),
		LastLoginAt:  u.LastLoginAt,
	}
}

// LoginInput accepts either the username or the email as Login.
type LoginInput struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput updates the caller's own details.
type ProfileInput struct {
	Name      string `json:"name" validate:"max=150"`
	Email     string `json:"email" validate:"omitempty,email"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

// PasswordChange replaces the caller's password.
type PasswordChange struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

var (
	// ErrUserNotFound indicates a missing account.
	ErrUserNotFound = fmt.Errorf("%w: auth: user not found", httpx.ErrNotFound)
	// ErrWrongPassword is returned when the current password does not match.
	ErrWrongPassword = fmt.Errorf("%w: auth: current password is incorrect", httpx.ErrValidation)
	// ErrWeakPassword is returned for passwords below the minimum length.
	ErrWeakPassword = fmt.Errorf("%w: auth: password must have at least %d characters", httpx.ErrValidation, MinPasswordLength)
	// ErrEmailTaken is returned when another account uses the email.
	ErrEmailTaken = fmt.Errorf("%w: auth: email already in use", httpx.ErrDuplicate)
)
