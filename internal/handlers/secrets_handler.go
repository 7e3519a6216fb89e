package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charterops/lead-pipeline/internal/secrets"
)

// RegisterSecretRoutes registers the automation-key exposure endpoint.
// Stopgap for a trusted caller only; do not expose this route to
// untrusted clients.
func RegisterSecretRoutes(r *gin.Engine, cfg HandlerConfig) {
	r.GET("/secrets/automation-key", func(c *gin.Context) {
		key, err := cfg.Secrets.Resolve(secrets.CredentialAutomationKey)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "configuration_missing"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"key": key})
	})
}
