package notification

import "go.uber.org/fx"

var Module = fx.Module("notification",
	fx.Provide(
		NewGateway,
		func(g *Gateway) Sender { return g },
	),
)
