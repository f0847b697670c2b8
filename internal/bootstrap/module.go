package bootstrap

import (
	"go.uber.org/fx"
)

// Module provides the launch router dependencies
var Module = fx.Options(
	fx.Provide(
		NewRouter,
	),
)
