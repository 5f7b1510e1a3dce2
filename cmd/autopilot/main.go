package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"workorder-autopilot/pkg/config"
	"workorder-autopilot/pkg/db"
	"workorder-autopilot/pkg/fieldnation"
	"workorder-autopilot/pkg/health"
	"workorder-autopilot/pkg/locker"
	"workorder-autopilot/pkg/logger"
	"workorder-autopilot/pkg/redis"
	"workorder-autopilot/pkg/server"
	"workorder-autopilot/pkg/session"
	"workorder-autopilot/services/cron"
	"workorder-autopilot/services/dispatcher"
	"workorder-autopilot/services/integration"
	"workorder-autopilot/services/user"
)

// The API binary: admin accounts, cron CRUD, Field Nation integration and
// the manual run trigger. Background execution lives in cmd/dispatcher.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		fx.Provide(
			provideSnowflakeNode,
			locker.NewRedis,
		),
		fx.Invoke(migrate),
		session.Module,
		fieldnation.Module,
		server.Module,
		health.Module,
		user.Module,
		cron.Module,
		integration.Module,
		dispatcher.HTTPModule,
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

func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&user.User{}, &cron.Cron{}, &integration.Integration{})
}
