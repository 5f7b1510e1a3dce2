package dispatcher

import (
	"net/http"
	"strconv"

	"workorder-autopilot/pkg/errutil"
	"workorder-autopilot/services/cron"
	"workorder-autopilot/services/user"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	runner *Runner
	crons  *cron.Service
}

func NewHandler(runner *Runner, crons *cron.Service) *Handler {
	return &Handler{runner: runner, crons: crons}
}

func (h *Handler) Register(r *gin.RouterGroup) {
	r.POST("/run-cron/:cronId", h.runCron)
}

// runCron triggers one cron immediately, outside the scheduler tick. The
// run is synchronous so the caller sees the outcome; the single-flight
// lock still applies, so a run overlapping the scheduler is skipped.
func (h *Handler) runCron(c *gin.Context) {
	actor, _ := user.CurrentUser(c)

	cronID, err := strconv.ParseInt(c.Param("cronId"), 10, 64)
	if err != nil {
		_ = c.Error(errutil.BadRequest("invalid cron id"))
		return
	}

	// Ownership check; admins may run any cron.
	if _, err := h.crons.Get(c.Request.Context(), actor, cronID); err != nil {
		_ = c.Error(err)
		return
	}

	out, err := h.runner.Run(c.Request.Context(), cronID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, out)
}
