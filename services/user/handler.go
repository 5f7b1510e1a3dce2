package user

import (
	"fmt"
	"net/http"
	"strconv"

	"workorder-autopilot/pkg/errutil"
	"workorder-autopilot/pkg/session"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc      *Service
	sessions *session.Manager
}

func NewHandler(svc *Service, sessions *session.Manager) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

func (h *Handler) Register(r *gin.RouterGroup) {
	r.POST("", h.registerAdmin)
	r.POST("/auth", h.authenticate)
	r.POST("/logout", h.logout)

	authed := r.Group("", RequireAuth(h.sessions, h.svc))
	authed.GET("/profile", h.getProfile)
	authed.PUT("/profile", h.updateProfile)

	admin := authed.Group("", RequireAdmin())
	admin.POST("/get-users", h.listUsers)
	admin.GET("/get-providers", h.listProviders)
	admin.PATCH("/block-user", h.blockUser)
	admin.PATCH("/unblock-user", h.unblockUser)
	admin.PATCH("/activate-user", h.activateUser)
	admin.PUT("/update-user", h.updateUser)
	admin.PUT("/update-fn-service-company-admin/:userId", h.setFnServiceCompanyAdmin)
	admin.DELETE("/delete-user/:userId", h.deleteUser)
}

type registerRequest struct {
	Name                 string `json:"name" binding:"required"`
	Email                string `json:"email" binding:"required,email"`
	Password             string `json:"password" binding:"required,min=8"`
	AdminRegistrationKey string `json:"adminRegistrationKey" binding:"required"`
}

func (h *Handler) registerAdmin(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid registration payload", errutil.WithErr(err)))
		return
	}

	u, err := h.svc.RegisterAdmin(c.Request.Context(), RegisterAdminInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		RegistrationKey: req.AdminRegistrationKey,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	if u.IsActive {
		if err := h.setSessionCookie(c, u); err != nil {
			_ = c.Error(err)
			return
		}
	}
	c.JSON(http.StatusCreated, gin.H{
		"name":     u.Name,
		"email":    u.Email,
		"isAdmin":  u.IsAdmin,
		"isActive": u.IsActive,
	})
}

type authRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) authenticate(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid credentials payload", errutil.WithErr(err)))
		return
	}

	u, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.setSessionCookie(c, u); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":     u.Name,
		"email":    u.Email,
		"isAdmin":  u.IsAdmin,
		"isActive": u.IsActive,
	})
}

// setSessionCookie issues the session token and sets the cookie. Callers
// must bail on error so exactly one response is written.
func (h *Handler) setSessionCookie(c *gin.Context, u *User) error {
	token, err := h.sessions.Issue(u.UserID, u.Email, u.IsAdmin)
	if err != nil {
		return errutil.Internal("failed to issue session", errutil.WithErr(err))
	}
	c.SetCookie(h.sessions.CookieName(), token, int(h.sessions.TTL().Seconds()), "/", "", false, true)
	return nil
}

func (h *Handler) logout(c *gin.Context) {
	c.SetCookie(h.sessions.CookieName(), "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) getProfile(c *gin.Context) {
	u, _ := CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{"user": gin.H{
		"name":  u.Name,
		"email": u.Email,
	}})
}

type profileRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (h *Handler) updateProfile(c *gin.Context) {
	u, _ := CurrentUser(c)

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid profile payload", errutil.WithErr(err)))
		return
	}

	updated, err := h.svc.UpdateProfile(c.Request.Context(), u.UserID, ProfilePatch{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":     updated.Name,
		"email":    updated.Email,
		"isAdmin":  updated.IsAdmin,
		"isActive": updated.IsActive,
	})
}

type listUsersRequest struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (h *Handler) listUsers(c *gin.Context) {
	var req listUsersRequest
	_ = c.ShouldBindJSON(&req)

	users, total, err := h.svc.List(c.Request.Context(), req.Page, req.Limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"usersData": users, "totalUsers": total})
}

func (h *Handler) listProviders(c *gin.Context) {
	providers, err := h.svc.ActiveProviders(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": providers})
}

func (h *Handler) setFnServiceCompanyAdmin(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		_ = c.Error(errutil.BadRequest("invalid userId"))
		return
	}

	u, err := h.svc.SetFnServiceCompanyAdmin(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("User: %s is now the service company admin", u.Name),
		"user":    u,
	})
}

type blockRequest struct {
	UserID int64 `json:"userId" binding:"required"`
}

func (h *Handler) blockUser(c *gin.Context) {
	h.setBlocked(c, true)
}

func (h *Handler) unblockUser(c *gin.Context) {
	h.setBlocked(c, false)
}

func (h *Handler) setBlocked(c *gin.Context, blocked bool) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("userId is required", errutil.WithErr(err)))
		return
	}

	if err := h.svc.SetBlocked(c.Request.Context(), req.UserID, blocked); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated block status"})
}

func (h *Handler) activateUser(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("userId is required", errutil.WithErr(err)))
		return
	}

	if err := h.svc.Activate(c.Request.Context(), req.UserID); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account activated"})
}

type updateUserRequest struct {
	UserID int64 `json:"userId" binding:"required"`
	Patch
}

func (h *Handler) updateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid user update payload", errutil.WithErr(err)))
		return
	}

	u, err := h.svc.Update(c.Request.Context(), req.UserID, req.Patch)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *Handler) deleteUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		_ = c.Error(errutil.BadRequest("invalid userId"))
		return
	}

	if err := h.svc.SoftDelete(c.Request.Context(), userID); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}
