package cron

import (
	"net/http"
	"strconv"
	"time"

	"workorder-autopilot/pkg/errutil"
	"workorder-autopilot/services/user"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register wires the cron CRUD routes. The group is expected to already
// carry RequireAuth; ownership is enforced in the service.
func (h *Handler) Register(r *gin.RouterGroup) {
	r.POST("/add-cron", h.addCron)
	r.PUT("/update-cron", h.updateCron)
	r.GET("/get-crons", h.getCrons)
	r.GET("/get-cron/:cronId", h.getCron)
	r.DELETE("/delete-cron/:cronId", h.deleteCron)
}

type addCronRequest struct {
	CenterZip            string    `json:"centerZip" binding:"required"`
	DrivingRadius        float64   `json:"drivingRadius" binding:"required"`
	CronStartAt          time.Time `json:"cronStartAt" binding:"required"`
	CronEndAt            time.Time `json:"cronEndAt" binding:"required"`
	WorkingWindowStartAt string    `json:"workingWindowStartAt" binding:"required"`
	WorkingWindowEndAt   string    `json:"workingWindowEndAt" binding:"required"`
	TypesOfWorkOrder     []int64   `json:"typesOfWorkOrder"`
}

func (h *Handler) addCron(c *gin.Context) {
	actor, _ := user.CurrentUser(c)

	var req addCronRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid cron payload", errutil.WithErr(err)))
		return
	}

	created, err := h.svc.Create(c.Request.Context(), actor.UserID, CreateInput{
		CenterZip:            req.CenterZip,
		DrivingRadius:        req.DrivingRadius,
		CronStartAt:          req.CronStartAt,
		CronEndAt:            req.CronEndAt,
		WorkingWindowStartAt: req.WorkingWindowStartAt,
		WorkingWindowEndAt:   req.WorkingWindowEndAt,
		TypesOfWorkOrder:     req.TypesOfWorkOrder,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Successfully added the cron", "cron": created})
}

type updateCronRequest struct {
	CronID int64 `json:"cronId" binding:"required"`
	Patch
}

func (h *Handler) updateCron(c *gin.Context) {
	actor, _ := user.CurrentUser(c)

	var req updateCronRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid cron update payload", errutil.WithErr(err)))
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), actor, req.CronID, req.Patch)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully updated the cron", "cron": updated})
}

func (h *Handler) getCrons(c *gin.Context) {
	actor, _ := user.CurrentUser(c)

	crons, err := h.svc.List(c.Request.Context(), actor)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cronsData": crons})
}

func (h *Handler) getCron(c *gin.Context) {
	actor, _ := user.CurrentUser(c)

	cronID, err := strconv.ParseInt(c.Param("cronId"), 10, 64)
	if err != nil {
		_ = c.Error(errutil.BadRequest("invalid cronId"))
		return
	}

	detail, err := h.svc.Get(c.Request.Context(), actor, cronID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cronData": detail})
}

func (h *Handler) deleteCron(c *gin.Context) {
	actor, _ := user.CurrentUser(c)

	cronID, err := strconv.ParseInt(c.Param("cronId"), 10, 64)
	if err != nil {
		_ = c.Error(errutil.BadRequest("invalid cronId"))
		return
	}

	if err := h.svc.SoftDelete(c.Request.Context(), actor, cronID); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully deleted the cron"})
}
