package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"quotation-backend/internal/shared/auth"
	"quotation-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	iss := newTestIssuer(t)
	tok, err := iss.Issue(auth.Identity{UserID: 12, Email: "admin@x.com", Role: auth.RoleAdministrator})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	router := gin.New()
	router.Use(RequestID(), Auth(iss), Logging())
	router.PATCH("/quotations/:id/status", func(c *gin.Context) {
		c.Set(QuotationIDKey, int64(5))
		c.Set(StatusTransitionKey, "pending->approved")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	var buf bytes.Buffer
	telemetry.SetOutput(&buf)
	defer telemetry.SetOutput(os.Stdout)

	req := httptest.NewRequest(http.MethodPatch, "/quotations/5/status", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Value)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 || lines[0] == "" {
		t.Fatalf("expected log output")
	}
	last := lines[len(lines)-1]
	var payload map[string]any
	if err := json.Unmarshal([]byte(last), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}

	required := []string{"request_id", "user_id", "role", "quotation_id", "duration_ms", "status", "status_transition"}
	for _, key := range required {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["user_id"] != float64(12) {
		t.Fatalf("unexpected user_id: %v", payload["user_id"])
	}
	if payload["role"] != "administrator" {
		t.Fatalf("unexpected role: %v", payload["role"])
	}
	if payload["quotation_id"] != float64(5) {
		t.Fatalf("unexpected quotation_id: %v", payload["quotation_id"])
	}
	if payload["status_transition"] != "pending->approved" {
		t.Fatalf("unexpected status_transition: %v", payload["status_transition"])
	}
}
