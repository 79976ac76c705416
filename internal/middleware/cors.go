package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS Cross-Origin Resource Sharing middleware. Triggers come
// server-to-server, but health and metrics may be browsed.
func CORS() gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"X-Store-ID",
		"X-Real-IP",
		"X-Forwarded-For",
	}
	config.AllowMethods = []string{
		"GET",
		"POST",
		"OPTIONS",
	}
	return cors.New(config)
}
