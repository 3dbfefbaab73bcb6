package users

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"quotation-backend/internal/shared/auth"
	"quotation-backend/internal/shared/server/middleware"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, iss := newTestService(t)
	h := NewHandler(svc)

	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterPublicRoutes(api)
	authed := api.Group("")
	authed.Use(middleware.Auth(iss))
	h.RegisterRoutes(authed)
	admin := authed.Group("")
	admin.Use(middleware.RequireRole(auth.RoleAdministrator))
	h.RegisterAdminRoutes(admin)
	return r
}

func doJSON(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestRegisterLoginProfileFlow(t *testing.T) {
	r := newTestRouter(t)

	resp := doJSON(r, http.MethodPost, "/api/v1/auth/register", "", aliceInput())
	if resp.Code != http.StatusCreated {
		t.Fatalf("register expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if bytes.Contains(resp.Body.Bytes(), []byte("password")) {
		t.Fatalf("response must not expose password data: %s", resp.Body.String())
	}

	resp = doJSON(r, http.MethodPost, "/api/v1/auth/register", "", aliceInput())
	if resp.Code != http.StatusConflict {
		t.Fatalf("duplicate register expected 409, got %d", resp.Code)
	}

	resp = doJSON(r, http.MethodPost, "/api/v1/auth/login", "", LoginInput{Email: "alice@x.com", Password: "bad-pass"})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("bad login expected 401, got %d", resp.Code)
	}

	resp = doJSON(r, http.MethodPost, "/api/v1/auth/login", "", LoginInput{Email: "alice@x.com", Password: "secret1"})
	if resp.Code != http.StatusOK {
		t.Fatalf("login expected 200, got %d", resp.Code)
	}
	var session Session
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	resp = doJSON(r, http.MethodGet, "/api/v1/auth/profile", session.Token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("profile expected 200, got %d", resp.Code)
	}
	var payload struct {
		User Profile `json:"user"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if payload.User.Handle != "alice" {
		t.Fatalf("unexpected profile %+v", payload.User)
	}

	resp = doJSON(r, http.MethodGet, "/api/v1/users", session.Token, nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("non-admin user list expected 403, got %d", resp.Code)
	}
}

func TestRegisterRejectsMalformedBody(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestProfileRequiresToken(t *testing.T) {
	r := newTestRouter(t)
	resp := doJSON(r, http.MethodGet, "/api/v1/auth/profile", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
