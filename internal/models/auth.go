package models

// Credentials is the email/password pair used for login, registration and
// guest-account upgrade.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// AuthResponse is the common shape of every auth endpoint response.
// Refresh always returns both tokens; login/registration may omit the
// refresh token when no rotation occurred.
type AuthResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	User         *UserProfile `json:"user,omitempty"`
	Message      string       `json:"message,omitempty"`
}

// TokenPair is a complete access/refresh token pair. Both fields are
// always set together; a pair with only one token is never stored.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserEnvelope wraps the /user/me response body.
type UserEnvelope struct {
	User *UserProfile `json:"user"`
}
