package users

import (
	"context"
	"strings"

	"github.com/inkworks/inkworks/internal/auth"
	"github.com/inkworks/inkworks/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, in CreateInput, hash string) (int64, error)
	Update(ctx context.Context, id int64, in UpdateInput, hash *string) error
	Delete(ctx context.Context, id int64) error
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns all staff accounts except superusers.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.ListUsers(ctx)
	if users == nil && err == nil {
		users = []User{}
	}
	return users, err
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create hashes the password and stores the account with its groups.
// Superuser accounts are returned directly since Get hides them.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	groups, err := normalizeGroups(in.Groups)
	if err != nil {
		return User{}, err
	}
	in.Groups = groups
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	id, err := s.repo.Create(ctx, in, hash)
	if err != nil {
		return User{}, err
	}
	if in.Superuser {
		return User{ID: id, Username: in.Username, Email: in.Email, Name: in.Name, IsActive: true, IsSuperuser: true, Groups: groups}, nil
	}
	return s.repo.Get(ctx, id)
}

// Update changes an account; groups, when given, replace the current set.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (User, error) {
	if in.Groups != nil {
		groups, err := normalizeGroups(*in.Groups)
		if err != nil {
			return User{}, err
		}
		in.Groups = &groups
	}
	if in.Username != nil {
		trimmed := strings.TrimSpace(*in.Username)
		in.Username = &trimmed
	}
	var hash *string
	if in.Password != "" {
		h, err := auth.HashPassword(in.Password)
		if err != nil {
			return User{}, err
		}
		hash = &h
	}
	if err := s.repo.Update(ctx, id, in, hash); err != nil {
		return User{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes an account. Admins cannot delete themselves.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return ErrSelfDelete
	}
	return s.repo.Delete(ctx, id)
}

func normalizeGroups(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, g := range in {
		name, ok := canonicalGroup(g)
		if !ok {
			return nil, ErrUnknownGroup
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out, nil
}

func canonicalGroup(g string) (string, bool) {
	for _, known := range shared.Groups() {
		if strings.EqualFold(known, strings.TrimSpace(g)) {
			return known, true
		}
	}
	return "", false
}
