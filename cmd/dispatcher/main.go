package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"workorder-autopilot/pkg/config"
	"workorder-autopilot/pkg/db"
	"workorder-autopilot/pkg/fieldnation"
	"workorder-autopilot/pkg/locker"
	"workorder-autopilot/pkg/logger"
	"workorder-autopilot/pkg/redis"
	"workorder-autopilot/pkg/task"
	"workorder-autopilot/services/cron"
	"workorder-autopilot/services/dispatcher"
	"workorder-autopilot/services/integration"
)

// The dispatcher binary: scheduler tick plus the queue workers that
// execute cron runs. No HTTP surface beyond what the queue needs.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		fx.Provide(
			provideSnowflakeNode,
			locker.NewRedis,
			cron.NewService,
			integration.NewService,
		),
		fieldnation.Module,
		task.Client,
		task.Server,
		dispatcher.Module,
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
