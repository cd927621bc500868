package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/inkworks/inkworks/internal/platform/cache"
	"github.com/inkworks/inkworks/internal/platform/httpx"
)

type memoryStore struct {
	row   *Company
	loads int
}

func (m *memoryStore) Load(context.Context) (Company, error) {
	m.loads++
	if m.row == nil {
		return Company{}, ErrNotConfigured
	}
	return *m.row, nil
}

func (m *memoryStore) Save(_ context.Context, c Company) (Company, error) {
	c.UpdatedAt = time.Now()
	m.row = &c
	return c, nil
}

func TestGetReturnsDefaultsWhenEmpty(t *testing.T) {
	svc := NewService(&memoryStore{}, nil)
	c, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, DefaultTradeName, c.TradeName)
	require.Equal(t, Public{TradeName: DefaultTradeName}, c.Public())
}

func TestUpdateReplacesSingleton(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, nil)
	ctx := context.Background()

	_, err := svc.Update(ctx, Company{TradeName: "Tinta Fina", State: "sp"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, Company{TradeName: "Tinta Fina Ltda", LogoLargeURL: "https://cdn.example.com/logo.png"})
	require.NoError(t, err)

	c, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "Tinta Fina Ltda", c.TradeName)
	require.Equal(t, "https://cdn.example.com/logo.png", c.Public().LogoLargeURL)
}

func TestUpdateRejectsInvalidCNPJ(t *testing.T) {
	svc := NewService(&memoryStore{}, nil)
	_, err := svc.Update(context.Background(), Company{TradeName: "X", CNPJ: "11.111.111/1111-11"})
	require.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestCachedProfileInvalidatedOnUpdate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := &memoryStore{}
	svc := NewService(store, cache.NewCache(client, "settings", time.Hour))
	ctx := context.Background()

	_, err := svc.Get(ctx)
	require.NoError(t, err)
	_, err = svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, store.loads)

	_, err = svc.Update(ctx, Company{TradeName: "Nova"})
	require.NoError(t, err)
	c, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "Nova", c.TradeName)
	require.Equal(t, 2, store.loads)
}
