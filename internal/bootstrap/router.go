// Package bootstrap decides the initial screen at process start:
// onboarding, login or the main tabs. The checks run while a splash
// floor timer ticks, so the transition never flashes no matter how fast
// the checks resolve.
package bootstrap

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Fallen-6121995/storytime-go/internal/auth"
	"github.com/Fallen-6121995/storytime-go/internal/config"
	"github.com/Fallen-6121995/storytime-go/internal/logger"
	"github.com/Fallen-6121995/storytime-go/internal/session"
	"github.com/Fallen-6121995/storytime-go/internal/tokens"
)

// Route is the initial destination chosen at launch.
type Route string

const (
	RouteOnboarding Route = "onboarding"
	RouteLogin      Route = "login"
	RouteMain       Route = "main"
)

// Router runs the launch sequence.
type Router struct {
	auth     *auth.Service
	tokens   *tokens.Store
	sessions *session.Store
	floor    time.Duration
}

// NewRouter creates a launch router.
func NewRouter(authService *auth.Service, tokenStore *tokens.Store, sessionStore *session.Store, cfg *config.Config) *Router {
	return &Router{
		auth:     authService,
		tokens:   tokenStore,
		sessions: sessionStore,
		floor:    cfg.Launch.SplashMinDuration,
	}
}

// Decide runs the launch checks and returns the initial route. The
// splash floor timer starts before the checks, and both are awaited, so
// the floor never serializes after slow checks.
func (r *Router) Decide(ctx context.Context) Route {
	timer := time.NewTimer(r.floor)
	defer timer.Stop()

	route := r.decide(ctx)

	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	logger.Info("launch route decided", zap.String("route", string(route)))
	return route
}

// decide performs the four short-circuiting checks. Anything unexpected
// falls back to the login route rather than crashing the launch.
func (r *Router) decide(ctx context.Context) (route Route) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("launch sequence panicked, routing to login", zap.Any("panic", rec))
			route = RouteLogin
		}
	}()

	if !r.sessions.OnboardingComplete(ctx) {
		return RouteOnboarding
	}

	if !r.tokens.IsAuthenticated(ctx) {
		return RouteLogin
	}

	if !r.auth.ValidateSession(ctx) {
		return RouteLogin
	}

	// A nil profile means the server could not confirm the identity;
	// send the user through login rather than into an unconfirmed main
	// screen.
	if user := r.auth.FetchUserDetails(ctx); user == nil {
		return RouteLogin
	}

	return RouteMain
}
