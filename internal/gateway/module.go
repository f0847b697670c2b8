package gateway

import (
	"go.uber.org/fx"

	"github.com/Fallen-6121995/storytime-go/internal/config"
)

// Module provides the gateway dependencies
var Module = fx.Options(
	fx.Provide(
		New,
		func(cfg *config.Config) *config.APIConfig { return &cfg.API },
	),
)
