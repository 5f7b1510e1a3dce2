package user

import (
	"workorder-autopilot/pkg/errutil"
	"workorder-autopilot/pkg/session"

	"github.com/gin-gonic/gin"
)

const contextUserKey = "current_user"

// CurrentUser returns the authenticated account attached by RequireAuth.
func CurrentUser(c *gin.Context) (*User, bool) {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*User)
	return u, ok
}

// RequireAuth validates the session cookie and attaches the account to the
// request context. Blocked and deleted accounts are rejected.
func RequireAuth(sessions *session.Manager, svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessions.CookieName())
		if err != nil || token == "" {
			_ = c.Error(errutil.Unauthorized("not authenticated"))
			c.Abort()
			return
		}

		claims, err := sessions.Verify(token)
		if err != nil {
			_ = c.Error(errutil.Unauthorized("invalid session", errutil.WithErr(err)))
			c.Abort()
			return
		}

		u, err := svc.Get(c.Request.Context(), claims.UserID)
		if err != nil {
			_ = c.Error(errutil.Unauthorized("account no longer valid"))
			c.Abort()
			return
		}
		if u.Blocked {
			_ = c.Error(errutil.Forbidden("account is blocked"))
			c.Abort()
			return
		}

		c.Set(contextUserKey, u)
		c.Next()
	}
}

// RequireAdmin gates a route to active admin accounts. Must run after
// RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok || !u.IsAdmin || !u.IsActive {
			_ = c.Error(errutil.Forbidden("admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
