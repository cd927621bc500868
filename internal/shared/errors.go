package shared

import (
	"fmt"

	"github.com/inkworks/inkworks/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = fmt.Errorf("%w", httpx.ErrNotFound)
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", httpx.ErrUnauthorized)
	// ErrInactiveUser is returned when a disabled account tries to log in.
	ErrInactiveUser = fmt.Errorf("%w: account disabled", httpx.ErrUnauthorized)
	// ErrNotAuthenticated is returned when a request carries no user session.
	ErrNotAuthenticated = fmt.Errorf("%w: authentication required", httpx.ErrUnauthorized)
)
