package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"quotation-backend/internal/shared/apperr"
	"quotation-backend/internal/shared/server/respond"
	"quotation-backend/internal/shared/telemetry"
)

// Recovery turns a panic in any handler into a 500 internal response.
// Quotation and document ids already bound to the request are logged with it.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"method":     c.Request.Method,
				"path":       c.FullPath(),
				"panic":      fmt.Sprint(rec),
				"stack":      string(debug.Stack()),
			}
			if id, ok := c.Get(QuotationIDKey); ok {
				fields["quotation_id"] = id
			}
			if id, ok := c.Get(DocumentIDKey); ok {
				fields["document_id"] = id
			}
			telemetry.Error("http.panic", fields)
			respond.FromError(c, apperr.Internal("recovery", fmt.Errorf("panic: %v", rec)))
		}()
		c.Next()
	}
}
