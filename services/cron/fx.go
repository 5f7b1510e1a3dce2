package cron

import (
	"workorder-autopilot/pkg/session"
	"workorder-autopilot/services/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("cron.service",
	fx.Provide(
		NewService,
		NewHandler,
	),
	fx.Invoke(registerRoutes),
)

func registerRoutes(engine *gin.Engine, h *Handler, sessions *session.Manager, users *user.Service) {
	group := engine.Group("/api/v1/admin", user.RequireAuth(sessions, users))
	h.Register(group)
}
