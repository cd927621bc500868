package cnpj

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/inkworks/inkworks/internal/platform/httpx"
)

var (
	// ErrNotFound is returned when the registry does not know the number.
	ErrNotFound = fmt.Errorf("%w: cnpj: not found in registry", httpx.ErrNotFound)
	// ErrTimeout is returned when the registry did not answer in time.
	ErrTimeout = fmt.Errorf("%w: cnpj: registry lookup timed out", httpx.ErrTimeout)
	// ErrUpstream wraps any other registry failure.
	ErrUpstream = fmt.Errorf("%w: cnpj: registry lookup failed", httpx.ErrUpstream)
	// ErrLength is returned when the input does not hold 14 digits.
	ErrLength = fmt.Errorf("%w: cnpj: must contain 14 digits", httpx.ErrValidation)
)

// Client queries the registry API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Lookup returns the registry record as a loosely typed document.
func (c *Client) Lookup(ctx context.Context, raw string) (map[string]any, error) {
	number := Digits(raw)
	if len(number) != 14 {
		return nil, ErrLength
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, number), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	return doc, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
