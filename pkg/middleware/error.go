package middleware

import (
	"errors"
	"net/http"

	"workorder-autopilot/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Error renders the last error recorded on the gin context as the JSON
// shape produced by errutil. Runs after the handler chain.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil {
			return
		}

		var base errutil.BaseError
		if errors.As(err.Err, &base) {
			c.JSON(base.Code.HTTPStatus(), base.JSON())
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    errutil.StatusInternal,
				"message": err.Error(),
			},
		})
	}
}
