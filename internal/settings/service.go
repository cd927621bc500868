package settings

import (
	"context"
	"errors"
	"strings"

	"github.com/inkworks/inkworks/internal/cnpj"
	"github.com/inkworks/inkworks/internal/platform/cache"
	"github.com/inkworks/inkworks/internal/platform/httpx"
)

// ErrNotConfigured is returned by the store when no profile row exists yet.
var ErrNotConfigured = errors.New("settings: company profile not configured")

// Store persists the profile row.
type Store interface {
	Load(ctx context.Context) (Company, error)
	Save(ctx context.Context, c Company) (Company, error)
}

// Service exposes the company profile singleton.
type Service struct {
	store Store
	cache *cache.Cache
}

// NewService builds the service. cache may be nil.
func NewService(store Store, c *cache.Cache) *Service {
	return &Service{store: store, cache: c}
}

// Get returns the stored profile, or the defaults when none was saved.
func (s *Service) Get(ctx context.Context) (Company, error) {
	var out Company
	key, err := s.cache.BuildKey(ctx, "company")
	if err != nil {
		return s.load(ctx)
	}
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.load(ctx)
	})
	if err != nil {
		return Company{}, err
	}
	return out, nil
}

func (s *Service) load(ctx context.Context) (Company, error) {
	c, err := s.store.Load(ctx)
	if errors.Is(err, ErrNotConfigured) {
		return Defaults(), nil
	}
	return c, err
}

// Update validates and stores the profile, replacing the previous one.
func (s *Service) Update(ctx context.Context, in Company) (Company, error) {
	in.TradeName = strings.TrimSpace(in.TradeName)
	if in.TradeName == "" {
		in.TradeName = DefaultTradeName
	}
	in.State = strings.ToUpper(strings.TrimSpace(in.State))
	if in.CNPJ != "" {
		if err := cnpj.Validate(in.CNPJ); err != nil {
			return Company{}, err
		}
		in.CNPJ = cnpj.Digits(in.CNPJ)
	}
	if err := httpx.Validate(in); err != nil {
		return Company{}, err
	}
	saved, err := s.store.Save(ctx, in)
	if err != nil {
		return Company{}, err
	}
	// A stale profile only affects rendering until the TTL runs out.
	_ = s.cache.Bump(ctx)
	return saved, nil
}
