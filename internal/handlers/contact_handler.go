package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charterops/lead-pipeline/internal/contact"
	"github.com/charterops/lead-pipeline/internal/secrets"
	"github.com/charterops/lead-pipeline/internal/validation"
)

// RegisterContactRoutes registers the single-call verification proxies.
func RegisterContactRoutes(r *gin.Engine, cfg HandlerConfig) {
	r.POST("/validate-email", func(c *gin.Context) {
		validateField(c, cfg, "email")
	})
	r.POST("/validate-phone", func(c *gin.Context) {
		validateField(c, cfg, "phone")
	})
}

func validateField(c *gin.Context, cfg HandlerConfig, kind string) {
	ctx := c.Request.Context()

	var req validation.ContactField
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid_request_body", "msg": err.Error()})
		return
	}

	key, err := cfg.Secrets.Resolve(secrets.CredentialVerifierKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "configuration_missing"})
		return
	}
	v := contact.NewValidator(cfg.Secrets.VerifierBaseURL, key)

	var res *contact.ValidationResult
	if kind == "email" {
		res, err = v.ValidateEmail(ctx, req.Email)
	} else {
		res, err = v.ValidatePhone(ctx, req.Phone)
	}

	cfg.Metrics.Count(ctx, "ValidationCalls", map[string]string{"Field": kind})

	var pe *contact.ProviderError
	switch {
	case err == nil:
		// a negative verdict is still a successful validation
		out := gin.H{"success": true, "isValid": res.IsValid}
		for k, val := range res.Detail {
			out[k] = val
		}
		c.JSON(http.StatusOK, out)
	case errors.Is(err, contact.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing_" + kind})
	case errors.Is(err, contact.ErrProviderUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "provider_unavailable", "detail": err.Error()})
	case errors.As(err, &pe):
		// surface the provider's own status and body, unmasked
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "provider_error",
			"status":  pe.StatusCode,
			"body":    pe.Body,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "validation_failed", "detail": err.Error()})
	}
}
