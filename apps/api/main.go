package main

import (
	_ "time/tzdata"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/jobboard/internal/billing"
	"github.com/smallbiznis/jobboard/internal/clock"
	"github.com/smallbiznis/jobboard/internal/config"
	"github.com/smallbiznis/jobboard/internal/employer"
	"github.com/smallbiznis/jobboard/internal/notification"
	"github.com/smallbiznis/jobboard/internal/observability"
	"github.com/smallbiznis/jobboard/internal/payment"
	"github.com/smallbiznis/jobboard/internal/plan"
	"github.com/smallbiznis/jobboard/internal/providers"
	"github.com/smallbiznis/jobboard/internal/ratelimit"
	"github.com/smallbiznis/jobboard/internal/server"
	"github.com/smallbiznis/jobboard/internal/subscriber"
	"github.com/smallbiznis/jobboard/pkg/db"
	"go.uber.org/fx"
)

// api serves HTTP only; renewal jobs run in apps/scheduler.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,
		providers.Module,

		employer.Module,
		subscriber.Module,
		notification.Module,
		plan.Module,
		billing.Module,
		payment.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
