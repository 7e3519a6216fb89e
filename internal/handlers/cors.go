package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS answers preflight requests with permissive headers and no body,
// and stamps the same headers on every other response. Webhook senders
// and the browser extension both preflight.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Api-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
