package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/ecomplus/app-fb-conversions/pkg/log"
)

// Recovery panic recovery middleware. Panics surface as the same
// 500 error shape the webhook contract uses for internal errors.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.WithFields(map[string]interface{}{
			"error":  recovered,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"stack":  string(debug.Stack()),
		}).Error("Panic recovered")

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "STORE_API_ERR",
			"message": fmt.Sprintf("panic: %v", recovered),
		})
		c.Abort()
	})
}
