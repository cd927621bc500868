package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/inkworks/inkworks/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo  Repository
	clock func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// HashPassword checks the minimum length and returns a bcrypt hash.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authenticate validates login/password credentials and stamps the login time.
func (s *Service) Authenticate(ctx context.Context, login, password string) (User, error) {
	user, err := s.repo.FindByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, shared.ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return User{}, shared.ErrInactiveUser
	}
	now := s.clock().UTC()
	if err := s.repo.TouchLogin(ctx, user.ID, now); err != nil {
		return User{}, err
	}
	user.LastLoginAt = &now
	return user, nil
}

// Profile returns the caller's own account.
func (s *Service) Profile(ctx context.Context, userID int64) (User, error) {
	return s.repo.Get(ctx, userID)
}

// UpdateProfile changes name, email and avatar.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)
	return s.repo.UpdateProfile(ctx, userID, in)
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, in PasswordChange) error {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.OldPassword)); err != nil {
		return ErrWrongPassword
	}
	hash, err := HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	return s.repo.SetPassword(ctx, userID, hash)
}
