// Package session persists the last-known user profile and the
// onboarding flag, separate from the credential pair.
package session

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/Fallen-6121995/storytime-go/internal/logger"
	"github.com/Fallen-6121995/storytime-go/internal/models"
	"github.com/Fallen-6121995/storytime-go/internal/storage"
)

const (
	keyUser       = "session.user"
	keyOnboarding = "onboarding.completed"
)

// ErrNoStoredUser indicates an update against an empty session store.
var ErrNoStoredUser = errors.New("no stored user")

// Store persists the cached user profile.
type Store struct {
	kv *storage.Store
}

// NewStore creates a session store over the given key-value storage.
func NewStore(kv *storage.Store) *Store {
	return &Store{kv: kv}
}

// SaveUser persists the profile, replacing any previous one.
func (s *Store) SaveUser(ctx context.Context, user *models.UserProfile) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.kv.Put(ctx, keyUser, string(data))
}

// User returns the cached profile, or nil when none is stored or the
// stored value cannot be decoded.
func (s *Store) User(ctx context.Context) *models.UserProfile {
	raw, err := s.kv.Get(ctx, keyUser)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("user read failed, treating as absent", zap.Error(err))
		}
		return nil
	}

	var user models.UserProfile
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		logger.Warn("stored user is corrupt, treating as absent", zap.Error(err))
		return nil
	}
	return &user
}

// UpdateUser merges a partial update over the stored profile and
// persists the result. It fails when no profile is stored.
func (s *Store) UpdateUser(ctx context.Context, update models.ProfileUpdate) (*models.UserProfile, error) {
	user := s.User(ctx)
	if user == nil {
		return nil, ErrNoStoredUser
	}

	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.MobileNumber != nil {
		user.MobileNumber = *update.MobileNumber
	}
	if update.Preferences != nil {
		user.Preferences = update.Preferences
	}

	if err := s.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ClearUser removes the cached profile.
func (s *Store) ClearUser(ctx context.Context) error {
	return s.kv.Delete(ctx, keyUser)
}

// OnboardingComplete reports whether onboarding has been finished on
// this install.
func (s *Store) OnboardingComplete(ctx context.Context) bool {
	value, err := s.kv.Get(ctx, keyOnboarding)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("onboarding flag read failed, treating as incomplete", zap.Error(err))
		}
		return false
	}
	return value == "true"
}

// SetOnboardingComplete records that onboarding has been finished.
func (s *Store) SetOnboardingComplete(ctx context.Context) error {
	return s.kv.Put(ctx, keyOnboarding, "true")
}
