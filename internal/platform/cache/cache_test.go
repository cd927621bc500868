package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Value int `json:"value"`
}

func newCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, "test", time.Minute), mr
}

func TestFetchJSONCachesUntilBump(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	var calls int32
	loader := func(context.Context) (any, error) {
		n := atomic.AddInt32(&calls, 1)
		return payload{Value: int(n)}, nil
	}

	key, err := c.BuildKey(ctx, "dashboard", "2026-01")
	require.NoError(t, err)
	var got payload
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, 1, got.Value)
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, 1, got.Value)

	require.NoError(t, c.Bump(ctx))
	key, err = c.BuildKey(ctx, "dashboard", "2026-01")
	require.NoError(t, err)
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, 2, got.Value)
}

func TestFetchJSONExpires(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	var calls int32
	loader := func(context.Context) (any, error) {
		return payload{Value: int(atomic.AddInt32(&calls, 1))}, nil
	}
	key, err := c.BuildKey(ctx, "k")
	require.NoError(t, err)
	var got payload
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	mr.FastForward(2 * time.Minute)
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, 2, got.Value)
}

func TestFetchJSONSharesConcurrentMisses(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	var calls int32
	release := make(chan struct{})
	loader := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return payload{Value: 7}, nil
	}
	key, err := c.BuildKey(ctx, "shared")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got payload
			require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
			require.Equal(t, 7, got.Value)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNilClientLoadsDirectly(t *testing.T) {
	c := NewCache(nil, "off", time.Minute)
	var got payload
	require.NoError(t, c.FetchJSON(context.Background(), "x", &got, func(context.Context) (any, error) {
		return payload{Value: 3}, nil
	}))
	require.Equal(t, 3, got.Value)
}

func TestNewAcceptsAddressOrURL(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := New(ctx, mr.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Set(ctx, "k", "plain", 0).Err())
	require.NoError(t, client.Close())

	client, err = New(ctx, "redis://"+mr.Addr()+"/2")
	require.NoError(t, err)
	require.NoError(t, client.Set(ctx, "k", "db2", 0).Err())
	require.NoError(t, client.Close())
	got, err := mr.DB(2).Get("k")
	require.NoError(t, err)
	require.Equal(t, "db2", got)

	_, err = New(ctx, "redis://%zz")
	require.Error(t, err)
}
