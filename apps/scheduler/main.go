package main

import (
	"context"
	"flag"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/jobboard/internal/billing"
	"github.com/smallbiznis/jobboard/internal/clock"
	"github.com/smallbiznis/jobboard/internal/config"
	"github.com/smallbiznis/jobboard/internal/employer"
	"github.com/smallbiznis/jobboard/internal/notification"
	"github.com/smallbiznis/jobboard/internal/observability"
	"github.com/smallbiznis/jobboard/internal/plan"
	"github.com/smallbiznis/jobboard/internal/providers"
	"github.com/smallbiznis/jobboard/internal/ratelimit"
	"github.com/smallbiznis/jobboard/internal/scheduler"
	"github.com/smallbiznis/jobboard/internal/subscriber"
	"github.com/smallbiznis/jobboard/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	once := flag.Bool("once", false, "run both billing jobs a single time and exit")
	flag.Parse()

	options := []fx.Option{
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,
		providers.Module,

		// Domain services required by scheduler
		employer.Module,
		subscriber.Module,
		notification.Module,
		plan.Module,
		billing.Module,

		// No server module!
		scheduler.Module,
	}
	if *once {
		options = append(options,
			fx.Decorate(func(cfg scheduler.Config) scheduler.Config {
				cfg.Enabled = false
				return cfg
			}),
			fx.Invoke(RunOnce),
		)
	}

	fx.New(options...).Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}

// RunOnce executes both jobs after startup and stops the process with their outcome.
func RunOnce(lc fx.Lifecycle, shutdowner fx.Shutdowner, s *scheduler.Scheduler, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
				defer cancel()

				code := 0
				if err := s.RunOnce(ctx); err != nil {
					log.Error("scheduler run failed", zap.Error(err))
					code = 1
				}
				if err := shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
					log.Error("shutdown failed", zap.Error(err))
					os.Exit(code)
				}
			}()
			return nil
		},
	})
}
