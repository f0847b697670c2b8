package gateway

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/Fallen-6121995/storytime-go/internal/logger"
	"github.com/Fallen-6121995/storytime-go/internal/models"
)

// RefreshTokens exchanges the stored refresh token for a new pair and
// returns the new access token. Concurrent callers coalesce onto a
// single network call: while a refresh is in flight every later caller
// parks until that refresh settles and then shares its result.
func (g *Gateway) RefreshTokens(ctx context.Context) (string, error) {
	return g.awaitRefresh(ctx)
}

// awaitRefresh is the single-flight entry point. Exactly one caller
// performs the network refresh; everyone else waits on a buffered
// channel for the shared outcome.
func (g *Gateway) awaitRefresh(ctx context.Context) (string, error) {
	g.mu.Lock()
	if g.refreshing {
		ch := make(chan refreshResult, 1)
		g.waiters = append(g.waiters, ch)
		g.mu.Unlock()

		select {
		case res := <-ch:
			return res.accessToken, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	g.refreshing = true
	g.mu.Unlock()

	token, err := g.refresh(ctx)

	// The flag is cleared and the queue drained in every outcome, so a
	// failed refresh leaves the gateway Idle with no stranded waiters.
	g.mu.Lock()
	g.refreshing = false
	waiters := g.waiters
	g.waiters = nil
	g.mu.Unlock()

	for _, ch := range waiters {
		ch <- refreshResult{accessToken: token, err: err}
	}

	return token, err
}

// refresh performs the network refresh protocol. The refresh token
// travels in the body, deliberately without an Authorization header:
// the access token is presumed invalid here, the refresh token is the
// credential. A rejected refresh clears all tokens so the next launch
// falls back to a full login.
func (g *Gateway) refresh(ctx context.Context) (string, error) {
	refreshToken, ok := g.tokens.RefreshToken(ctx)
	if !ok {
		return "", ErrNoRefreshToken
	}

	resp, err := g.send(ctx, http.MethodPost, g.cfg.Endpoints.Refresh,
		map[string]string{"refreshToken": refreshToken}, "")
	if err != nil {
		return "", err
	}

	if !resp.OK() {
		logger.Warn("token refresh rejected, clearing session",
			zap.Int("status", resp.StatusCode),
		)
		if clearErr := g.tokens.ClearTokens(ctx); clearErr != nil {
			logger.Error("failed to clear tokens after rejected refresh", zap.Error(clearErr))
		}
		return "", ErrSessionExpired
	}

	var auth models.AuthResponse
	if err := resp.DecodeJSON(&auth); err != nil || auth.AccessToken == "" || auth.RefreshToken == "" {
		// A 2xx refresh without a complete pair is a broken contract;
		// treat it like a rejection so the client cannot get stuck with
		// half a session.
		logger.Error("refresh response missing token pair", zap.Error(err))
		if clearErr := g.tokens.ClearTokens(ctx); clearErr != nil {
			logger.Error("failed to clear tokens after malformed refresh", zap.Error(clearErr))
		}
		return "", ErrSessionExpired
	}

	pair := models.TokenPair{AccessToken: auth.AccessToken, RefreshToken: auth.RefreshToken}
	if err := g.tokens.SaveTokens(ctx, pair); err != nil {
		return "", err
	}

	logger.Debug("token refresh complete")
	return auth.AccessToken, nil
}
