package auth

import (
	"go.uber.org/fx"
)

// Module provides the auth service dependencies
var Module = fx.Options(
	fx.Provide(
		NewService,
	),
)
