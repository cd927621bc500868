package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkworks/inkworks/internal/shared"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// Store loads group membership.
type Store interface {
	Membership(ctx context.Context, userID int64) (Membership, error)
	ListGroups(ctx context.Context) ([]Group, error)
}

// Service resolves capabilities from group membership.
type Service struct {
	store Store
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{store: &pgStore{pool: pool}}
}

// NewServiceWithStore builds a Service over an arbitrary store.
func NewServiceWithStore(store Store) *Service {
	return &Service{store: store}
}

// EffectivePermissions returns the capability names granted to a user.
// Inactive and unknown users get none.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	m, err := s.store.Membership(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !m.Active {
		return nil, nil
	}
	return shared.CapabilitiesFor(m.Groups, m.Superuser), nil
}

// ListGroups returns the staff groups.
func (s *Service) ListGroups(ctx context.Context) ([]Group, error) {
	return s.store.ListGroups(ctx)
}

type pgStore struct {
	pool *pgxpool.Pool
}

func (p *pgStore) Membership(ctx context.Context, userID int64) (Membership, error) {
	m := Membership{UserID: userID}
	err := p.pool.QueryRow(ctx, `SELECT is_active, is_superuser FROM users WHERE id = $1`, userID).Scan(&m.Active, &m.Superuser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Membership{}, ErrNotFound
		}
		return Membership{}, err
	}
	rows, err := p.pool.Query(ctx, `SELECT g.name FROM groups g JOIN user_groups ug ON ug.group_id = g.id WHERE ug.user_id = $1 ORDER BY g.name`, userID)
	if err != nil {
		return Membership{}, err
	}
	m.Groups, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return Membership{}, err
	}
	return m, nil
}

func (p *pgStore) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, name FROM groups ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
