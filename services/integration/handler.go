package integration

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

func (h *Handler) Register(r *gin.RouterGroup) {
	r.POST("/connect-account", h.connectAccount)
	r.GET("/:id", h.getByUserID)
	r.POST("/refresh-connection/:id", h.refreshConnection)
}

type response struct {
	*Integration
	LastTimeRefreshTokenGeneratedAt string `json:"lastTimeRefreshTokenGeneratedAt"`
	// Token fields are only populated for admins.
	FnAccessToken  string `json:"fnAccessToken,omitempty"`
	FnRefreshToken string `json:"fnRefreshToken,omitempty"`
}

func (h *Handler) render(i *Integration, actor *user.User) response {
	out := response{
		Integration:                     i,
		LastTimeRefreshTokenGeneratedAt: i.LastConnectedAgo(time.Now().UTC()),
	}
	if actor.IsAdmin {
		out.FnAccessToken = i.AccessToken
		out.FnRefreshToken = i.RefreshToken
	}
	return out
}

type connectRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) connectAccount(c *gin.Context) {
	actor, _ := user.CurrentUser(c)

	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid connect payload", errutil.WithErr(err)))
		return
	}

	i, err := h.svc.Connect(c.Request.Context(), actor.UserID, req.Username, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, h.render(i, actor))
}

// requestedUserID resolves the :id path param, restricting non-admins to
// their own integration.
func requestedUserID(c *gin.Context, actor *user.User) (int64, error) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errutil.BadRequest("invalid user id")
	}
	if !actor.IsAdmin && actor.UserID != userID {
		return 0, errutil.Forbidden("you do not have permission to access this integration")
	}
	return userID, nil
}

func (h *Handler) getByUserID(c *gin.Context) {
	actor, _ := user.CurrentUser(c)

	userID, err := requestedUserID(c, actor)
	if err != nil {
		_ = c.Error(err)
		return
	}

	i, err := h.svc.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, h.render(i, actor))
}

func (h *Handler) refreshConnection(c *gin.Context) {
	actor, _ := user.CurrentUser(c)

	userID, err := requestedUserID(c, actor)
	if err != nil {
		_ = c.Error(err)
		return
	}

	i, err := h.svc.Refresh(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, h.render(i, actor))
}
