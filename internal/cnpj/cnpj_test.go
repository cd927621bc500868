package cnpj

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inkworks/inkworks/internal/platform/httpx"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Validate("11.222.333/0001-81"))
	require.NoError(t, Validate("11222333000181"))
	require.ErrorIs(t, Validate("11.222.333/0001-82"), ErrInvalid)
	require.ErrorIs(t, Validate("11111111111111"), ErrInvalid)
	require.ErrorIs(t, Validate("1122233300018"), httpx.ErrValidation)
}

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/11222333000181":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"razao_social":"ACME LTDA"}`))
		case "/00000000000191":
			w.WriteHeader(http.StatusNotFound)
		case "/22222222000100":
			time.Sleep(200 * time.Millisecond)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 50*time.Millisecond)
	ctx := context.Background()

	doc, err := c.Lookup(ctx, "11.222.333/0001-81")
	require.NoError(t, err)
	require.Equal(t, "ACME LTDA", doc["razao_social"])

	_, err = c.Lookup(ctx, "00.000.000/0001-91")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.Lookup(ctx, "33333333000100")
	require.ErrorIs(t, err, ErrUpstream)

	_, err = c.Lookup(ctx, "22222222000100")
	require.ErrorIs(t, err, ErrTimeout)

	_, err = c.Lookup(ctx, "123")
	require.ErrorIs(t, err, ErrLength)
}

func TestStatusMapping(t *testing.T) {
	status, _ := httpx.StatusFor(ErrTimeout)
	require.Equal(t, http.StatusRequestTimeout, status)
	status, _ = httpx.StatusFor(ErrUpstream)
	require.Equal(t, http.StatusBadGateway, status)
	status, _ = httpx.StatusFor(ErrNotFound)
	require.Equal(t, http.StatusNotFound, status)
}
