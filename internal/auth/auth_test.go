package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fallen-6121995/storytime-go/internal/config"
	"github.com/Fallen-6121995/storytime-go/internal/gateway"
	"github.com/Fallen-6121995/storytime-go/internal/models"
	"github.com/Fallen-6121995/storytime-go/internal/session"
	"github.com/Fallen-6121995/storytime-go/internal/storage"
	"github.com/Fallen-6121995/storytime-go/internal/tokens"
)

type fixture struct {
	service  *Service
	tokens   *tokens.Store
	sessions *session.Store
}

func newFixture(t *testing.T, baseURL string) *fixture {
	t.Helper()

	kv, err := storage.Open(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	cfg := &config.APIConfig{
		BaseURL:      baseURL,
		Key:          "test-api-key",
		Platform:     "test",
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		Timeout:      5 * time.Second,
		Endpoints:    config.DefaultEndpoints(),
	}

	tokenStore := tokens.NewStore(kv)
	sessionStore := session.NewStore(kv)
	gw := gateway.New(cfg, tokenStore)

	return &fixture{
		service:  NewService(gw, tokenStore, sessionStore, cfg),
		tokens:   tokenStore,
		sessions: sessionStore,
	}
}

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func TestLoginPersistsTokensAndProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "jamie@example.com", body["email"])
		assert.Equal(t, "hunter2", body["password"])

		writeJSON(t, w, http.StatusOK, models.AuthResponse{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			User:         &models.UserProfile{ID: "u-1", Email: "jamie@example.com"},
		})
	}))
	defer server.Close()

	f := newFixture(t, server.URL)
	ctx := context.Background()

	user, err := f.service.Login(ctx, models.Credentials{Email: "jamie@example.com", Password: "hunter2"})
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "u-1", user.ID)

	assert.True(t, f.service.IsAuthenticated(ctx))
	cached := f.service.CurrentUser(ctx)
	require.NotNil(t, cached)
	assert.Equal(t, "jamie@example.com", cached.Email)
}

func TestLoginFailureSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
	}))
	defer server.Close()

	f := newFixture(t, server.URL)
	ctx := context.Background()

	_, err := f.service.Login(ctx, models.Credentials{Email: "jamie@example.com", Password: "wrong"})
	require.Error(t, err)

	apiErr := gateway.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Incorrect email or password.", FriendlyMessage(err))

	assert.False(t, f.service.IsAuthenticated(ctx))
}

func TestRegisterGuestPersistsProfileAndReusesDeviceID(t *testing.T) {
	var deviceIDs []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/register", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotEmpty(t, body["deviceId"])
		deviceIDs = append(deviceIDs, body["deviceId"])

		writeJSON(t, w, http.StatusOK, models.AuthResponse{
			AccessToken:  "guest-access",
			RefreshToken: "guest-refresh",
			User:         &models.UserProfile{ID: "g-1", IsGuest: true, DeviceID: body["deviceId"]},
		})
	}))
	defer server.Close()

	f := newFixture(t, server.URL)
	ctx := context.Background()

	user, err := f.service.RegisterGuest(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.True(t, user.IsGuest)

	// Guest registration persists the profile
	cached := f.service.CurrentUser(ctx)
	require.NotNil(t, cached)
	assert.Equal(t, "g-1", cached.ID)

	// A second registration reuses the persisted device id
	_, err = f.service.RegisterGuest(ctx)
	require.NoError(t, err)
	require.Len(t, deviceIDs, 2)
	assert.Equal(t, deviceIDs[0], deviceIDs[1])
}

func TestRegisterDoesNotPersistProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body["deviceId"])
		assert.Equal(t, "jamie@example.com", body["email"])

		writeJSON(t, w, http.StatusOK, models.AuthResponse{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			User:         &models.UserProfile{ID: "u-1", Email: "jamie@example.com"},
		})
	}))
	defer server.Close()

	f := newFixture(t, server.URL)
	ctx := context.Background()

	resp, err := f.service.Register(ctx, models.Credentials{
		Email:    "jamie@example.com",
		Password: "hunter2",
		Name:     "Jamie",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.User)

	assert.True(t, f.service.IsAuthenticated(ctx))
	// Full registration stores tokens only; the profile comes from a
	// separate fetch.
	assert.Nil(t, f.service.CurrentUser(ctx))
}

func TestRegisterWithoutRefreshTokenKeepsStoredPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No rotation occurred: the response has no refresh token
		writeJSON(t, w, http.StatusOK, models.AuthResponse{AccessToken: "fresh-access"})
	}))
	defer server.Close()

	f := newFixture(t, server.URL)
	ctx := context.Background()

	require.NoError(t, f.tokens.SaveTokens(ctx, models.TokenPair{
		AccessToken:  "existing-access",
		RefreshToken: "existing-refresh",
	}))

	_, err := f.service.Register(ctx, models.Credentials{Email: "a@b.c", Password: "p"})
	require.NoError(t, err)

	pair, ok := f.tokens.Tokens(ctx)
	require.True(t, ok)
	assert.Equal(t, "existing-access", pair.AccessToken)
	assert.Equal(t, "existing-refresh", pair.RefreshToken)
}

func TestUpgradeGuestAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/register", r.URL.Path)
		// The guest token carries the identity forward
		assert.Equal(t, "Bearer guest-access", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, hasDeviceID := body["deviceId"]
		assert.False(t, hasDeviceID, "upgrade body must omit the device id")

		writeJSON(t, w, http.StatusOK, models.AuthResponse{
			AccessToken:  "full-access",
			RefreshToken: "full-refresh",
		})
	}))
	defer server.Close()

	f := newFixture(t, server.URL)
	ctx := context.Background()

	require.NoError(t, f.tokens.SaveTokens(ctx, models.TokenPair{
		AccessToken:  "guest-access",
		RefreshToken: "guest-refresh",
	}))

	_, err := f.service.UpgradeGuestAccount(ctx, models.Credentials{
		Email:    "jamie@example.com",
		Password: "hunter2",
		Name:     "Jamie",
	})
	require.NoError(t, err)

	pair, ok := f.tokens.Tokens(ctx)
	require.True(t, ok)
	assert.Equal(t, "full-access", pair.AccessToken)
}

func TestUpgradeGuestAccountWithoutSession(t *testing.T) {
	f := newFixture(t, "http://unused.invalid")

	_, err := f.service.UpgradeGuestAccount(context.Background(), models.Credentials{
		Email:    "jamie@example.com",
		Password: "hunter2",
	})
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestLogoutIsUnconditional(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server accepts logout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, http.StatusOK, map[string]string{"message": "bye"})
			},
		},
		{
			name: "server rejects logout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, http.StatusInternalServerError, map[string]string{"message": "boom"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			f := newFixture(t, server.URL)
			ctx := context.Background()

			require.NoError(t, f.tokens.SaveTokens(ctx, models.TokenPair{
				AccessToken:  "access-1",
				RefreshToken: "refresh-1",
			}))
			require.NoError(t, f.sessions.SaveUser(ctx, &models.UserProfile{ID: "u-1"}))

			require.NoError(t, f.service.Logout(ctx))

			assert.False(t, f.service.IsAuthenticated(ctx))
			assert.Nil(t, f.service.CurrentUser(ctx))
		})
	}
}

func TestLogoutSurvivesNetworkFault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // logout call will fail at the network level

	f := newFixture(t, server.URL)
	ctx := context.Background()

	require.NoError(t, f.tokens.SaveTokens(ctx, models.TokenPair{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
	}))
	require.NoError(t, f.sessions.SaveUser(ctx, &models.UserProfile{ID: "u-1"}))

	require.NoError(t, f.service.Logout(ctx))
	assert.False(t, f.service.IsAuthenticated(ctx))
	assert.Nil(t, f.service.CurrentUser(ctx))
}

func TestIsGuest(t *testing.T) {
	f := newFixture(t, "http://unused.invalid")
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(t *testing.T)
		want  bool
	}{
		{
			name:  "no token",
			setup: func(t *testing.T) {},
			want:  false,
		},
		{
			name: "guest token",
			setup: func(t *testing.T) {
				require.NoError(t, f.tokens.SaveTokens(ctx, models.TokenPair{
					AccessToken:  mintToken(t, jwt.MapClaims{"type": "guest"}),
					RefreshToken: "r",
				}))
			},
			want: true,
		},
		{
			name: "regular token",
			setup: func(t *testing.T) {
				require.NoError(t, f.tokens.SaveTokens(ctx, models.TokenPair{
					AccessToken:  mintToken(t, jwt.MapClaims{"type": "user"}),
					RefreshToken: "r",
				}))
			},
			want: false,
		},
		{
			name: "undecodable token",
			setup: func(t *testing.T) {
				require.NoError(t, f.tokens.SaveTokens(ctx, models.TokenPair{
					AccessToken:  "garbage",
					RefreshToken: "r",
				}))
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, f.tokens.ClearTokens(ctx))
			tt.setup(t)
			assert.Equal(t, tt.want, f.service.IsGuest(ctx))
		})
	}
}

func TestValidateSession(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		f := newFixture(t, "http://unused.invalid")
		assert.False(t, f.service.ValidateSession(context.Background()))
	})

	t.Run("unexpired token needs no network", func(t *testing.T) {
		f := newFixture(t, "http://unused.invalid")
		ctx := context.Background()

		require.NoError(t, f.tokens.SaveTokens(ctx, models.TokenPair{
			AccessToken:  mintToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}),
			RefreshToken: "r",
		}))
		assert.True(t, f.service.ValidateSession(ctx))
	})

	t.Run("expired token with successful refresh", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/auth/refresh", r.URL.Path)
			writeJSON(t, w, http.StatusOK, map[string]string{
				"accessToken":  "new-access",
				"refreshToken": "new-refresh",
			})
		}))
		defer server.Close()

		f := newFixture(t, server.URL)
		ctx := context.Background()

		require.NoError(t, f.tokens.SaveTokens(ctx, models.TokenPair{
			AccessToken:  mintToken(t, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()}),
			RefreshToken: "old-refresh",
		}))

		assert.True(t, f.service.ValidateSession(ctx))

		pair, ok := f.tokens.Tokens(ctx)
		require.True(t, ok)
		assert.Equal(t, "new-access", pair.AccessToken)
	})

	t.Run("expired token with failing refresh", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusUnauthorized, map[string]string{"message": "revoked"})
		}))
		defer server.Close()

		f := newFixture(t, server.URL)
		ctx := context.Background()

		require.NoError(t, f.tokens.SaveTokens(ctx, models.TokenPair{
			AccessToken:  mintToken(t, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()}),
			RefreshToken: "old-refresh",
		}))

		assert.False(t, f.service.ValidateSession(ctx))
		assert.False(t, f.service.IsAuthenticated(ctx), "failed refresh clears the pair")
	})
}

func TestFetchUserDetails(t *testing.T) {
	t.Run("success persists profile", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/user/me", r.URL.Path)
			writeJSON(t, w, http.StatusOK, models.UserEnvelope{
				User: &models.UserProfile{ID: "u-1", Email: "jamie@example.com"},
			})
		}))
		defer server.Close()

		f := newFixture(t, server.URL)
		ctx := context.Background()

		user := f.service.FetchUserDetails(ctx)
		require.NotNil(t, user)
		assert.Equal(t, "u-1", user.ID)

		cached := f.service.CurrentUser(ctx)
		require.NotNil(t, cached)
		assert.Equal(t, "u-1", cached.ID)
	})

	t.Run("server fault returns nil", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusInternalServerError, map[string]string{"message": "down"})
		}))
		defer server.Close()

		f := newFixture(t, server.URL)
		assert.Nil(t, f.service.FetchUserDetails(context.Background()))
	})

	t.Run("network fault returns nil", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		f := newFixture(t, server.URL)
		assert.Nil(t, f.service.FetchUserDetails(context.Background()))
	})

	t.Run("malformed body returns nil", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("{not json"))
		}))
		defer server.Close()

		f := newFixture(t, server.URL)
		assert.Nil(t, f.service.FetchUserDetails(context.Background()))
	})
}

func TestUpdatePreferences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/user/me", r.URL.Path)

		writeJSON(t, w, http.StatusOK, models.UserEnvelope{
			User: &models.UserProfile{
				ID:          "u-1",
				Preferences: &models.Preferences{Theme: "night"},
			},
		})
	}))
	defer server.Close()

	f := newFixture(t, server.URL)
	ctx := context.Background()

	user, err := f.service.UpdatePreferences(ctx, &models.Preferences{Theme: "night"})
	require.NoError(t, err)
	require.NotNil(t, user.Preferences)
	assert.Equal(t, "night", user.Preferences.Theme)

	cached := f.service.CurrentUser(ctx)
	require.NotNil(t, cached)
	assert.Equal(t, "night", cached.Preferences.Theme)
}

func TestFriendlyMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "nil error",
			err:  nil,
			want: "",
		},
		{
			name: "session expired",
			err:  gateway.ErrSessionExpired,
			want: "Your session has expired. Please log in again.",
		},
		{
			name: "too many attempts",
			err:  &gateway.APIError{StatusCode: http.StatusTooManyRequests},
			want: "Too many attempts. Please try again later.",
		},
		{
			name: "email already registered",
			err:  &gateway.APIError{StatusCode: http.StatusBadRequest, Message: "Email already in use"},
			want: "This email is already registered.",
		},
		{
			name: "other bad request",
			err:  &gateway.APIError{StatusCode: http.StatusBadRequest, Message: "name too short"},
			want: "Something went wrong. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FriendlyMessage(tt.err))
		})
	}
}
