package dispatcher

import (
	"workorder-autopilot/pkg/session"
	"workorder-autopilot/services/user"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

// Module runs inside the dispatcher binary: scheduler tick plus queue
// workers.
var Module = fx.Module("dispatcher",
	fx.Provide(
		NewRunner,
		NewScheduler,
	),
	fx.Invoke(
		registerHandlers,
		StartScheduler,
	),
)

func registerHandlers(mux *asynq.ServeMux, runner *Runner) {
	mux.HandleFunc(TaskCronRun, runner.HandleCronRun)
}

// HTTPModule exposes the manual trigger on the API binary.
var HTTPModule = fx.Module("dispatcher.http",
	fx.Provide(
		NewRunner,
		NewHandler,
	),
	fx.Invoke(registerRoutes),
)

func registerRoutes(engine *gin.Engine, h *Handler, sessions *session.Manager, users *user.Service) {
	group := engine.Group("/api/v1/admin", user.RequireAuth(sessions, users))
	h.Register(group)
}
