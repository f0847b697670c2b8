// Package tokens owns the persisted credential pair and the device
// identity, plus stateless JWT introspection. Decoding never verifies a
// signature: claims are read for UX decisions only, the server remains
// the trust boundary.
package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Fallen-6121995/storytime-go/internal/logger"
	"github.com/Fallen-6121995/storytime-go/internal/models"
	"github.com/Fallen-6121995/storytime-go/internal/storage"
)

const (
	keyAccessToken  = "auth.access_token"
	keyRefreshToken = "auth.refresh_token"
	keyDeviceID     = "device.id"
)

// ErrInvalidToken indicates a token that could not be decoded as a JWT.
var ErrInvalidToken = errors.New("invalid token")

// ErrIncompletePair indicates an attempt to save a pair with a missing half.
var ErrIncompletePair = errors.New("incomplete token pair")

// Store persists the access/refresh token pair and the device id.
type Store struct {
	kv  *storage.Store
	now func() time.Time
}

// NewStore creates a token store over the given key-value storage.
func NewStore(kv *storage.Store) *Store {
	return &Store{kv: kv, now: time.Now}
}

// SaveTokens writes both tokens in one transaction. A pair missing
// either half is rejected so readers never observe a partial pair.
func (s *Store) SaveTokens(ctx context.Context, pair models.TokenPair) error {
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return ErrIncompletePair
	}
	return s.kv.PutAll(ctx, map[string]string{
		keyAccessToken:  pair.AccessToken,
		keyRefreshToken: pair.RefreshToken,
	})
}

// AccessToken returns the stored access token, or false when absent.
// Storage faults are logged and reported as absence.
func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	return s.read(ctx, keyAccessToken)
}

// RefreshToken returns the stored refresh token, or false when absent.
func (s *Store) RefreshToken(ctx context.Context) (string, bool) {
	return s.read(ctx, keyRefreshToken)
}

// Tokens returns the pair only when both halves are present. This is
// the authoritative "has a session" check for low-level code.
func (s *Store) Tokens(ctx context.Context) (models.TokenPair, bool) {
	access, ok := s.read(ctx, keyAccessToken)
	if !ok {
		return models.TokenPair{}, false
	}
	refresh, ok := s.read(ctx, keyRefreshToken)
	if !ok {
		return models.TokenPair{}, false
	}
	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, true
}

// ClearTokens removes both tokens. Clearing an empty store is a no-op.
func (s *Store) ClearTokens(ctx context.Context) error {
	return s.kv.Delete(ctx, keyAccessToken, keyRefreshToken)
}

// IsAuthenticated reports whether a complete token pair is stored.
// Expiry is deliberately not checked here; that is the refresh
// protocol's job.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	_, ok := s.Tokens(ctx)
	return ok
}

// DeviceID returns the persisted device identifier, or false when the
// install has none yet.
func (s *Store) DeviceID(ctx context.Context) (string, bool) {
	return s.read(ctx, keyDeviceID)
}

// EnsureDeviceID returns the persisted device identifier, generating
// and storing one on first use. The id is immutable once set.
func (s *Store) EnsureDeviceID(ctx context.Context) (string, error) {
	if id, ok := s.read(ctx, keyDeviceID); ok {
		return id, nil
	}

	id := uuid.NewString()
	if err := s.kv.Put(ctx, keyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

// Decode parses the claims of a JWT without verifying its signature.
// Any malformed input yields ErrInvalidToken.
func (s *Store) Decode(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IsExpired reports whether the token's exp claim is in the past. It
// fails safe: a token that cannot be decoded, or that carries no exp
// claim, counts as expired.
func (s *Store) IsExpired(token string) bool {
	claims, err := s.Decode(token)
	if err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.Time.Before(s.now())
}

func (s *Store) read(ctx context.Context, key string) (string, bool) {
	value, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("storage read failed, treating as absent",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		return "", false
	}
	return value, true
}
