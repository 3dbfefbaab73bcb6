package quotations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"quotation-backend/internal/shared/auth"
	"quotation-backend/internal/shared/server/middleware"
)

type testEnv struct {
	router *gin.Engine
	tokens map[int64]string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	iss, err := auth.NewIssuer("quotations-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	svc, _, _ := newTestService()
	h := NewHandler(svc)

	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.Auth(iss))
	h.RegisterRoutes(api)
	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.RequireRole(auth.RoleAdministrator))
	h.RegisterAdminRoutes(adminGroup)

	env := &testEnv{router: r, tokens: map[int64]string{}}
	for _, id := range []auth.Identity{alice, bob, admin} {
		tok, err := iss.Issue(id)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		env.tokens[id.UserID] = tok.Value
	}
	return env
}

func (e *testEnv) do(method, path string, actor auth.Identity, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.tokens[actor.UserID])
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

type quotationEnvelope struct {
	Quotation QuotationResponse `json:"quotation"`
}

func decodeQuotation(t *testing.T, resp *httptest.ResponseRecorder) QuotationResponse {
	t.Helper()
	var env quotationEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v (%s)", err, resp.Body.String())
	}
	return env.Quotation
}

func TestHandlerQuotationLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodPost, "/api/v1/quotations", alice, ContentInput{Service: "Avalúo Comercial", Description: "Local"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	created := decodeQuotation(t, resp)
	if created.Status != StatusPending || created.Documents == nil {
		t.Fatalf("unexpected created quotation %+v", created)
	}
	path := fmt.Sprintf("/api/v1/quotations/%d", created.ID)

	if resp := env.do(http.MethodGet, path, bob, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("non-owner get expected 403, got %d", resp.Code)
	}
	if resp := env.do(http.MethodGet, "/api/v1/quotations/999", bob, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("missing get expected 404, got %d", resp.Code)
	}
	if resp := env.do(http.MethodGet, "/api/v1/quotations/abc", alice, nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("bad id expected 400, got %d", resp.Code)
	}

	statusPath := fmt.Sprintf("/api/v1/admin/quotations/%d/status", created.ID)
	if resp := env.do(http.MethodPatch, statusPath, alice, StatusInput{Status: "approved"}); resp.Code != http.StatusForbidden {
		t.Fatalf("customer review expected 403, got %d", resp.Code)
	}
	resp = env.do(http.MethodPatch, statusPath, admin, StatusInput{Status: "approved", Observation: strPtr("Listo")})
	if resp.Code != http.StatusOK {
		t.Fatalf("review expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	reviewed := decodeQuotation(t, resp)
	if reviewed.Status != StatusApproved || reviewed.AdminObservation == nil || *reviewed.AdminObservation != "Listo" {
		t.Fatalf("unexpected reviewed quotation %+v", reviewed)
	}

	resp = env.do(http.MethodPut, path, alice, ContentInput{Service: "x", Description: "y"})
	if resp.Code != http.StatusConflict {
		t.Fatalf("update after approval expected 409, got %d", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte(`"invalid_state"`)) {
		t.Fatalf("expected invalid_state code, got %s", resp.Body.String())
	}
	if resp := env.do(http.MethodDelete, path, alice, nil); resp.Code != http.StatusConflict {
		t.Fatalf("delete after approval expected 409, got %d", resp.Code)
	}
}

func TestHandlerDeletePending(t *testing.T) {
	env := newTestEnv(t)
	created := decodeQuotation(t, env.do(http.MethodPost, "/api/v1/quotations", alice, ContentInput{Service: "s", Description: "d"}))
	path := fmt.Sprintf("/api/v1/quotations/%d", created.ID)

	if resp := env.do(http.MethodDelete, path, bob, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("non-owner delete expected 403, got %d", resp.Code)
	}
	if resp := env.do(http.MethodDelete, path, alice, nil); resp.Code != http.StatusNoContent {
		t.Fatalf("owner delete expected 204, got %d", resp.Code)
	}
	if resp := env.do(http.MethodGet, path, alice, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("get after delete expected 404, got %d", resp.Code)
	}
}

func TestHandlerAdminListAndStats(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/v1/quotations", alice, ContentInput{Service: "s1", Description: "d"})
	env.do(http.MethodPost, "/api/v1/quotations", bob, ContentInput{Service: "s2", Description: "d"})

	if resp := env.do(http.MethodGet, "/api/v1/admin/quotations", alice, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("customer list all expected 403, got %d", resp.Code)
	}

	resp := env.do(http.MethodGet, "/api/v1/admin/quotations?userId=2&status=pending", admin, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list all expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var listed struct {
		Quotations []QuotationResponse `json:"quotations"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Quotations) != 1 || listed.Quotations[0].UserID != bob.UserID {
		t.Fatalf("unexpected filtered list %+v", listed.Quotations)
	}

	for _, q := range []string{"status=done", "userId=x", "from=01-02-2024", "to=yesterday"} {
		if resp := env.do(http.MethodGet, "/api/v1/admin/quotations?"+q, admin, nil); resp.Code != http.StatusBadRequest {
			t.Fatalf("%s expected 400, got %d", q, resp.Code)
		}
	}

	resp = env.do(http.MethodGet, "/api/v1/admin/quotations/stats", admin, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("stats expected 200, got %d", resp.Code)
	}
	var stats struct {
		Stats Stats `json:"stats"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Stats.Total != 2 || stats.Stats.Pending != 2 {
		t.Fatalf("unexpected stats %+v", stats.Stats)
	}
}

func TestHandlerMineListsOwnOnly(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/v1/quotations", alice, ContentInput{Service: "s1", Description: "d"})
	env.do(http.MethodPost, "/api/v1/quotations", bob, ContentInput{Service: "s2", Description: "d"})

	resp := env.do(http.MethodGet, "/api/v1/quotations/mine", alice, nil)
	var listed struct {
		Quotations []QuotationResponse `json:"quotations"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed.Quotations) != 1 || listed.Quotations[0].Service != "s1" {
		t.Fatalf("unexpected mine %+v", listed.Quotations)
	}
}

func TestParseFilterDateRange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?from=2024-03-01&to=2024-03-31", nil)

	f, err := parseFilter(c)
	if err != nil {
		t.Fatalf("parseFilter: %v", err)
	}
	if !f.CreatedFrom.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from %s", f.CreatedFrom)
	}
	if !f.CreatedTo.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected exclusive upper bound on next day, got %s", f.CreatedTo)
	}
}
