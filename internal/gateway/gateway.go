// Package gateway is the single chokepoint for every call to the
// Storytime API. It attaches the fixed client-identity headers, adds
// bearer auth when a token is stored, and owns the refresh-and-retry
// protocol for expired sessions.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/Fallen-6121995/storytime-go/internal/config"
	"github.com/Fallen-6121995/storytime-go/internal/logger"
	"github.com/Fallen-6121995/storytime-go/internal/tokens"
)

// Gateway issues authenticated HTTP requests against the API.
type Gateway struct {
	client *http.Client
	cfg    *config.APIConfig
	tokens *tokens.Store

	// mu guards the refresh-in-flight flag and the waiter queue. The
	// check-and-set happens entirely under the lock, with no blocking
	// call inside the critical section, so two refreshes can never be
	// in flight at once.
	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
}

type refreshResult struct {
	accessToken string
	err         error
}

// New creates a gateway over the given token store.
func New(cfg *config.APIConfig, tokenStore *tokens.Store) *Gateway {
	return &Gateway{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg:    cfg,
		tokens: tokenStore,
	}
}

// Do issues a request against path. The stored access token is attached
// when present; endpoints that do not need auth simply ignore it. A 401
// triggers one refresh-and-retry cycle; every other non-2xx status is
// returned as an *APIError with the server's message intact.
func (g *Gateway) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	token, _ := g.tokens.AccessToken(ctx)

	resp, err := g.send(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		newToken, err := g.awaitRefresh(ctx)
		if err != nil {
			return nil, err
		}

		resp, err = g.send(ctx, method, path, body, newToken)
		if err != nil {
			return nil, err
		}
	}

	if !resp.OK() {
		return nil, asAPIError(resp)
	}
	return resp, nil
}

// Get issues a GET request.
func (g *Gateway) Get(ctx context.Context, path string) (*Response, error) {
	return g.Do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST request with a JSON body.
func (g *Gateway) Post(ctx context.Context, path string, body any) (*Response, error) {
	return g.Do(ctx, http.MethodPost, path, body)
}

// Put issues a PUT request with a JSON body.
func (g *Gateway) Put(ctx context.Context, path string, body any) (*Response, error) {
	return g.Do(ctx, http.MethodPut, path, body)
}

// send builds and executes one HTTP call. bearer may be empty, in which
// case no Authorization header is attached; the fixed client-identity
// headers go on every request regardless.
func (g *Gateway) send(ctx context.Context, method, path string, body any, bearer string) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.cfg.Key)
	req.Header.Set("x-platform", g.cfg.Platform)
	req.Header.Set("x-client-id", g.cfg.ClientID)
	req.Header.Set("x-client-secret", g.cfg.ClientSecret)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		logger.Error("request failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       bodyBytes,
		Headers:    resp.Header,
	}, nil
}
