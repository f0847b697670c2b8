// Package auth implements the user-facing session operations: login,
// registration (including guest and guest-upgrade flows), logout and
// session validation. It translates API responses into stored state and
// never talks to the network except through the gateway.
package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Fallen-6121995/storytime-go/internal/config"
	"github.com/Fallen-6121995/storytime-go/internal/gateway"
	"github.com/Fallen-6121995/storytime-go/internal/logger"
	"github.com/Fallen-6121995/storytime-go/internal/models"
	"github.com/Fallen-6121995/storytime-go/internal/session"
	"github.com/Fallen-6121995/storytime-go/internal/tokens"
)

// ErrNoActiveSession indicates a guest-upgrade attempt with no stored
// access token.
var ErrNoActiveSession = errors.New("no active guest session")

// guestType is the access-token type claim the server sets for guest
// sessions.
const guestType = "guest"

// Service orchestrates session state across the gateway and the local
// stores.
type Service struct {
	gw        *gateway.Gateway
	tokens    *tokens.Store
	sessions  *session.Store
	endpoints config.Endpoints
}

// NewService creates a session service.
func NewService(gw *gateway.Gateway, tokenStore *tokens.Store, sessionStore *session.Store, cfg *config.APIConfig) *Service {
	return &Service{
		gw:        gw,
		tokens:    tokenStore,
		sessions:  sessionStore,
		endpoints: cfg.Endpoints,
	}
}

// Login authenticates with email and password, persisting the returned
// tokens and profile.
func (s *Service) Login(ctx context.Context, creds models.Credentials) (*models.UserProfile, error) {
	resp, err := s.gw.Post(ctx, s.endpoints.Login, map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	})
	if err != nil {
		return nil, err
	}

	auth, err := s.handleAuthResponse(ctx, resp)
	if err != nil {
		return nil, err
	}

	if auth.User != nil {
		if err := s.sessions.SaveUser(ctx, auth.User); err != nil {
			return nil, err
		}
	}
	return auth.User, nil
}

// RegisterGuest creates a device-bound guest session: a persistent
// device id is generated on first use and reused on every later call.
// Both the returned tokens and profile are persisted.
func (s *Service) RegisterGuest(ctx context.Context) (*models.UserProfile, error) {
	deviceID, err := s.tokens.EnsureDeviceID(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.gw.Post(ctx, s.endpoints.Register, map[string]string{
		"deviceId": deviceID,
	})
	if err != nil {
		return nil, err
	}

	auth, err := s.handleAuthResponse(ctx, resp)
	if err != nil {
		return nil, err
	}

	if auth.User != nil {
		if err := s.sessions.SaveUser(ctx, auth.User); err != nil {
			return nil, err
		}
	}
	return auth.User, nil
}

// Register creates a full account. Tokens are persisted; the returned
// profile is not, callers fetch it separately. RegisterGuest behaves
// differently and does persist the profile.
func (s *Service) Register(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error) {
	deviceID, err := s.tokens.EnsureDeviceID(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.gw.Post(ctx, s.endpoints.Register, map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
		"name":     creds.Name,
		"deviceId": deviceID,
	})
	if err != nil {
		return nil, err
	}

	return s.handleAuthResponse(ctx, resp)
}

// UpgradeGuestAccount attaches real credentials to an existing guest
// session. The guest's current access token rides along as bearer auth
// so the server can carry the identity forward; the device id is
// omitted from the body.
func (s *Service) UpgradeGuestAccount(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error) {
	if _, ok := s.tokens.AccessToken(ctx); !ok {
		return nil, ErrNoActiveSession
	}

	resp, err := s.gw.Post(ctx, s.endpoints.Register, map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
		"name":     creds.Name,
	})
	if err != nil {
		return nil, err
	}

	return s.handleAuthResponse(ctx, resp)
}

// Logout revokes the refresh token server-side on a best-effort basis
// and unconditionally clears local tokens and profile. A failed server
// call is logged and swallowed; stale local credentials are never left
// behind.
func (s *Service) Logout(ctx context.Context) error {
	if refreshToken, ok := s.tokens.RefreshToken(ctx); ok {
		if _, err := s.gw.Post(ctx, s.endpoints.Logout, map[string]string{
			"refreshToken": refreshToken,
		}); err != nil {
			logger.Warn("server-side logout failed, clearing local session anyway", zap.Error(err))
		}
	}

	if err := s.tokens.ClearTokens(ctx); err != nil {
		return err
	}
	return s.sessions.ClearUser(ctx)
}

// CurrentUser returns the locally cached profile without a network
// call; nil when none is stored.
func (s *Service) CurrentUser(ctx context.Context) *models.UserProfile {
	return s.sessions.User(ctx)
}

// FetchUserDetails fetches the current user from the server, persisting
// and returning the fresh profile. Every failure collapses to nil:
// "could not confirm identity", which callers treat differently from
// "definitely unauthenticated".
func (s *Service) FetchUserDetails(ctx context.Context) *models.UserProfile {
	resp, err := s.gw.Get(ctx, s.endpoints.Me)
	if err != nil {
		logger.Warn("user details fetch failed", zap.Error(err))
		return nil
	}

	var envelope models.UserEnvelope
	if err := resp.DecodeJSON(&envelope); err != nil || envelope.User == nil {
		logger.Warn("user details response malformed", zap.Error(err))
		return nil
	}

	if err := s.sessions.SaveUser(ctx, envelope.User); err != nil {
		logger.Warn("failed to persist fetched user", zap.Error(err))
		return nil
	}
	return envelope.User
}

// UpdatePreferences merges new preferences into the profile. When the
// server returns the updated user it is persisted as-is; otherwise the
// merge is applied to the local copy.
func (s *Service) UpdatePreferences(ctx context.Context, prefs *models.Preferences) (*models.UserProfile, error) {
	resp, err := s.gw.Put(ctx, s.endpoints.Me, map[string]any{
		"preferences": prefs,
	})
	if err != nil {
		return nil, err
	}

	var envelope models.UserEnvelope
	if err := resp.DecodeJSON(&envelope); err == nil && envelope.User != nil {
		if err := s.sessions.SaveUser(ctx, envelope.User); err != nil {
			return nil, err
		}
		return envelope.User, nil
	}

	return s.sessions.UpdateUser(ctx, models.ProfileUpdate{Preferences: prefs})
}

// IsAuthenticated reports whether a complete token pair is stored.
func (s *Service) IsAuthenticated(ctx context.Context) bool {
	return s.tokens.IsAuthenticated(ctx)
}

// IsGuest reports whether the stored access token carries the guest
// type claim. A missing token or decode failure counts as not-guest.
func (s *Service) IsGuest(ctx context.Context) bool {
	token, ok := s.tokens.AccessToken(ctx)
	if !ok {
		return false
	}

	claims, err := s.tokens.Decode(token)
	if err != nil {
		return false
	}

	tokenType, _ := claims["type"].(string)
	return tokenType == guestType
}

// RefreshToken manually runs the refresh protocol, sharing the
// gateway's single-flight coalescing with any in-flight refresh.
func (s *Service) RefreshToken(ctx context.Context) (string, error) {
	return s.gw.RefreshTokens(ctx)
}

// ValidateSession answers "can this session still be used": true when
// an access token exists and is either unexpired or refreshable.
func (s *Service) ValidateSession(ctx context.Context) bool {
	token, ok := s.tokens.AccessToken(ctx)
	if !ok {
		return false
	}

	if !s.tokens.IsExpired(token) {
		return true
	}

	if _, err := s.gw.RefreshTokens(ctx); err != nil {
		logger.Info("session validation failed", zap.Error(err))
		return false
	}
	return true
}

// handleAuthResponse decodes a successful auth response and persists
// the token pair. When the response carries no refresh token, no
// rotation occurred and the stored pair is left untouched.
func (s *Service) handleAuthResponse(ctx context.Context, resp *gateway.Response) (*models.AuthResponse, error) {
	var auth models.AuthResponse
	if err := resp.DecodeJSON(&auth); err != nil {
		return nil, err
	}

	if auth.AccessToken != "" && auth.RefreshToken != "" {
		pair := models.TokenPair{AccessToken: auth.AccessToken, RefreshToken: auth.RefreshToken}
		if err := s.tokens.SaveTokens(ctx, pair); err != nil {
			return nil, err
		}
	}
	return &auth, nil
}
