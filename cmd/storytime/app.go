package main

import (
	"context"

	"go.uber.org/fx"

	"github.com/Fallen-6121995/storytime-go/internal/auth"
	"github.com/Fallen-6121995/storytime-go/internal/bootstrap"
	"github.com/Fallen-6121995/storytime-go/internal/config"
	"github.com/Fallen-6121995/storytime-go/internal/gateway"
	"github.com/Fallen-6121995/storytime-go/internal/logger"
	"github.com/Fallen-6121995/storytime-go/internal/session"
	"github.com/Fallen-6121995/storytime-go/internal/storage"
	"github.com/Fallen-6121995/storytime-go/internal/tokens"
)

// deps holds the populated services a command works with.
type deps struct {
	Auth     *auth.Service
	Router   *bootstrap.Router
	Tokens   *tokens.Store
	Sessions *session.Store
}

// withApp wires the full dependency graph, starts it, runs fn and tears
// everything down again. Commands are one-shot, so the fx app lives for
// the duration of a single invocation.
func withApp(fn func(ctx context.Context, d *deps) error) error {
	var d deps

	app := fx.New(
		fx.NopLogger,
		fx.Provide(config.Load),
		fx.Invoke(func(cfg *config.Config) error {
			return logger.InitLogger(&cfg.Logging)
		}),
		storage.Module,
		tokens.Module,
		session.Module,
		gateway.Module,
		auth.Module,
		bootstrap.Module,
		fx.Populate(&d.Auth, &d.Router, &d.Tokens, &d.Sessions),
	)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = app.Stop(ctx)
		_ = logger.Sync()
	}()

	return fn(ctx, &d)
}
