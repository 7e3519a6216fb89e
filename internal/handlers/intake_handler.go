package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charterops/lead-pipeline/internal/aws"
	"github.com/charterops/lead-pipeline/internal/intake"
	"github.com/charterops/lead-pipeline/internal/validation"
)

// RegisterIntakeRoutes registers the webhook intake surface: enqueue,
// peek, and the status-transition boundary consumers drive.
func RegisterIntakeRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	store := intake.NewStore(cfg.DynamoDBClient, cfg.Secrets.LeadImportsTable)

	var publisher *aws.Publisher
	if cfg.SQSClient != nil && cfg.Secrets.IntakeQueueURL != "" {
		publisher = aws.NewPublisher(cfg.SQSClient, cfg.Secrets.IntakeQueueURL)
	}

	r.POST("/leads", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.LeadWebhook
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid_request_body", "msg": err.Error()})
			return
		}

		importID, err := store.Enqueue(ctx, req.Payload, req.Source)
		if errors.Is(err, intake.ErrEmptyPayload) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing_payload"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "storage_unavailable", "detail": err.Error()})
			return
		}

		// the record is durable; a failed notification degrades to manual
		// pickup rather than failing the webhook
		queued := false
		if publisher != nil {
			note := intake.IntakeNotification{ImportID: importID, Source: req.Source}
			body, _ := json.Marshal(note)
			if perr := publisher.SendIntakeNotification(ctx, string(body), map[string]string{"import_id": importID}); perr != nil {
				log.Printf("intake: notify for %s failed: %v", importID, perr)
			} else {
				queued = true
			}
		}

		cfg.Metrics.Count(ctx, "LeadsEnqueued", map[string]string{"Source": sourceOr(req.Source, "unknown")})

		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"import_id": importID,
			"status":    intake.StatusReceived,
			"queued":    queued,
		})
	})

	r.GET("/leads/:id", func(c *gin.Context) {
		rec, err := store.Peek(c.Request.Context(), c.Param("id"))
		if errors.Is(err, intake.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not_found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "storage_unavailable", "detail": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
	})

	r.POST("/leads/:id/status", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.StatusChange
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		var err error
		if req.Note != "" {
			err = store.TransitionWithNote(ctx, c.Param("id"), req.Status, req.Note)
		} else {
			err = store.Transition(ctx, c.Param("id"), req.Status)
		}

		var ite *intake.InvalidTransitionError
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"success": true, "status": req.Status})
		case errors.Is(err, intake.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not_found"})
		case errors.As(err, &ite):
			c.JSON(http.StatusConflict, gin.H{
				"success":   false,
				"error":     "invalid_transition",
				"current":   ite.Current,
				"requested": ite.Requested,
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "storage_unavailable", "detail": err.Error()})
		}
	})
}

func sourceOr(source, fallback string) string {
	if source == "" {
		return fallback
	}
	return source
}
