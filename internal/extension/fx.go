package extension

import "go.uber.org/fx"

var Module = fx.Module("extension.registry",
	fx.Provide(NewRegistry),
)
