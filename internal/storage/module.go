package storage

import (
	"context"

	"go.uber.org/fx"

	"github.com/Fallen-6121995/storytime-go/internal/config"
)

// Module provides the storage dependencies
var Module = fx.Options(
	fx.Provide(newStore),
)

func newStore(lc fx.Lifecycle, cfg *config.Config) (*Store, error) {
	store, err := Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})

	return store, nil
}
