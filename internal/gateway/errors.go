package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork indicates no response was obtained at all.
	ErrNetwork = errors.New("network request failed, check your connection")

	// ErrNoRefreshToken indicates a refresh was attempted with no stored
	// refresh token; no network call is made in that case.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrSessionExpired indicates the refresh endpoint rejected the
	// refresh token. Local tokens are cleared before this is returned,
	// forcing a full re-login.
	ErrSessionExpired = errors.New("session expired")
)

// APIError is a non-2xx response surfaced to the caller with the
// server-provided message and status code, untouched.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// AsAPIError unwraps err as an *APIError, or returns nil.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
