package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Fallen-6121995/storytime-go/internal/gateway"
)

// FriendlyMessage maps an error from a session operation to the alert
// text shown to the user.
func FriendlyMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, gateway.ErrSessionExpired):
		return "Your session has expired. Please log in again."
	case errors.Is(err, gateway.ErrNetwork):
		return "Please check your internet connection and try again."
	}

	if apiErr := gateway.AsAPIError(err); apiErr != nil {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized:
			return "Incorrect email or password."
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return "Too many attempts. Please try again later."
		case apiErr.StatusCode == http.StatusBadRequest &&
			strings.Contains(strings.ToLower(apiErr.Message), "email"):
			return "This email is already registered."
		}
	}

	return "Something went wrong. Please try again."
}
