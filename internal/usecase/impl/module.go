package impl

import "go.uber.org/fx"

// Module provides every use case implementation to fx.
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(
		NewPlanService,
		NewUserService,
		NewSubscriptionService,
	),
)
