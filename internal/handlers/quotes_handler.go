package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charterops/lead-pipeline/internal/quotes"
	"github.com/charterops/lead-pipeline/internal/secrets"
	"github.com/charterops/lead-pipeline/internal/validation"
)

// RegisterQuoteRoutes registers the two-phase marketplace surface:
// submission and, independently, reply retrieval by correlation id.
func RegisterQuoteRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	store := quotes.NewRequestStore(cfg.DynamoDBClient, cfg.Secrets.QuoteRequestsTable)

	newBroker := func(c *gin.Context) *quotes.Broker {
		token, err := cfg.Secrets.Resolve(secrets.CredentialMarketplaceToken)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "configuration_missing"})
			return nil
		}
		return quotes.NewBroker(cfg.Secrets.MarketplaceBaseURL, token, store)
	}

	r.POST("/quotes", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.QuoteSubmission
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		broker := newBroker(c)
		if broker == nil {
			return
		}

		payload, err := json.Marshal(req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "marshal_failed"})
			return
		}

		receipt, err := broker.SubmitRequest(ctx, payload)
		if err != nil {
			writeMarketplaceError(c, err)
			return
		}

		cfg.Metrics.Count(ctx, "QuoteRequestsSubmitted", nil)

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"data": gin.H{
				"quote_request_id": receipt.CorrelationID,
				"raw":              receipt.Raw,
			},
		})
	})

	r.POST("/quotes/replies", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.ReplyQuery
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid_request_body", "msg": err.Error()})
			return
		}
		if req.QuoteRequestID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing_quote_request_id"})
			return
		}

		broker := newBroker(c)
		if broker == nil {
			return
		}

		set, err := broker.FetchReplies(ctx, req.QuoteRequestID)
		if err != nil {
			writeMarketplaceError(c, err)
			return
		}

		replies := set.Replies
		if replies == nil {
			replies = []json.RawMessage{}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": replies})
	})
}

// writeMarketplaceError maps broker errors to the envelope, preserving
// the marketplace's own HTTP status on a rejection.
func writeMarketplaceError(c *gin.Context, err error) {
	var me *quotes.MarketplaceError
	switch {
	case errors.Is(err, quotes.ErrCredentialMissing):
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "configuration_missing"})
	case errors.Is(err, quotes.ErrInvalidCorrelationID):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "invalid_correlation_id"})
	case errors.Is(err, quotes.ErrMarketplaceUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "marketplace_unavailable", "detail": err.Error()})
	case errors.As(err, &me):
		c.JSON(me.StatusCode, gin.H{
			"success": false,
			"error":   "marketplace_rejected",
			"status":  me.StatusCode,
			"body":    me.Body,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "marketplace_call_failed", "detail": err.Error()})
	}
}
