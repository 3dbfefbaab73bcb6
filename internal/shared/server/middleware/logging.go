package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"quotation-backend/internal/shared/metrics"
	"quotation-backend/internal/shared/telemetry"
)

// Context keys handlers set so the request log line can carry them.
const (
	QuotationIDKey      = "quotationId"
	DocumentIDKey       = "documentId"
	StatusTransitionKey = "statusTransition"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		durationMs := float64(latency.Microseconds()) / 1000.0
		metrics.ObserveRequestDurationMs(durationMs)

		userID, _ := c.Get(userIDKey)
		role, _ := c.Get(userRoleKey)
		quotationID, _ := c.Get(QuotationIDKey)
		documentID, _ := c.Get(DocumentIDKey)

		telemetry.Info("request.complete", map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"route":             c.FullPath(),
			"status":            c.Writer.Status(),
			"status_transition": c.GetString(StatusTransitionKey),
			"duration_ms":       durationMs,
			"user_id":           userID,
			"role":              role,
			"quotation_id":      quotationID,
			"document_id":       documentID,
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		})
	}
}
