package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quotation-backend/internal/shared/apperr"
	"quotation-backend/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type kindMapping struct {
	kind    error
	status  int
	code    string
	message string
}

var kinds = []kindMapping{
	{apperr.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated", "authentication required"},
	{apperr.ErrForbidden, http.StatusForbidden, "forbidden", "access denied"},
	{apperr.ErrNotFound, http.StatusNotFound, "not_found", "resource not found"},
	{apperr.ErrInvalidState, http.StatusConflict, "invalid_state", "operation not allowed in the current state"},
	{apperr.ErrConflict, http.StatusConflict, "conflict", "resource already exists"},
	{apperr.ErrValidation, http.StatusBadRequest, "validation_error", "invalid input"},
	{apperr.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, "unsupported_media_type", "file type not allowed"},
	{apperr.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "payload_too_large", "file too large"},
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID, ok := c.Get("userId"); ok {
		fields["user_id"] = userID
	}
	if role, ok := c.Get("userRole"); ok {
		fields["role"] = role
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// FromError maps a service error onto its HTTP status and code. Errors
// outside the taxonomy become a 500 whose message does not leak the cause.
func FromError(c *gin.Context, err error) {
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			Error(c, k.status, k.code, apperr.Message(err, k.message), apperr.DetailsOf(err))
			return
		}
	}
	telemetry.Error("http.internal", map[string]any{
		"request_id": c.GetString("requestId"),
		"path":       c.Request.URL.Path,
		"err":        errString(err),
	})
	Error(c, http.StatusInternalServerError, "internal", "internal server error", nil)
}

// StatusFor returns the HTTP status FromError would use for err.
func StatusFor(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
