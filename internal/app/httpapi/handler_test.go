package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vendnet/vendops/internal/app"
	"github.com/vendnet/vendops/internal/app/domain/user"
	authsvc "github.com/vendnet/vendops/internal/app/services/auth"
	userssvc "github.com/vendnet/vendops/internal/app/services/users"
	"github.com/vendnet/vendops/pkg/logger"
)

type apiFixture struct {
	server *httptest.Server
	app    *app.Application
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	application, err := app.New(app.Stores{}, app.Options{
		Auth: authsvc.Config{JWTSecret: "test-secret"},
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("app.Start: %v", err)
	}
	t.Cleanup(application.Stop)

	server := httptest.NewServer(New(application, Config{}, logger.NewNop()))
	t.Cleanup(server.Close)
	return &apiFixture{server: server, app: application}
}

func (fx *apiFixture) createUser(t *testing.T, username, password string, roles ...string) user.User {
	t.Helper()
	ctx := context.Background()
	u, err := fx.app.Users.Create(ctx, userssvc.CreateInput{
		Username: username,
		FullName: username,
		Password: password,
		Roles:    roles,
	})
	if err != nil {
		t.Fatalf("Users.Create(%s): %v", username, err)
	}
	return u
}

func (fx *apiFixture) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, fx.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := fx.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func (fx *apiFixture) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := fx.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"login": username, "password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var out struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	decodeBody(t, resp, &out)
	return out.Tokens.AccessToken
}

func TestHealthz(t *testing.T) {
	fx := newAPIFixture(t)
	resp, err := http.Get(fx.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	fx := newAPIFixture(t)
	resp := fx.request(t, http.MethodGet, "/api/v1/machines", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestLoginAndMe(t *testing.T) {
	fx := newAPIFixture(t)
	fx.createUser(t, "admin", "changeme123", user.RoleAdmin)
	token := fx.login(t, "admin", "changeme123")

	resp := fx.request(t, http.MethodGet, "/api/v1/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /me status = %d", resp.StatusCode)
	}
	var me user.User
	decodeBody(t, resp, &me)
	if me.Username != "admin" {
		t.Fatalf("me = %+v, want admin", me)
	}
}

func TestMachineCRUDOverHTTP(t *testing.T) {
	fx := newAPIFixture(t)
	fx.createUser(t, "admin", "changeme123", user.RoleAdmin)
	token := fx.login(t, "admin", "changeme123")

	resp := fx.request(t, http.MethodPost, "/api/v1/machines", token, map[string]any{
		"code": "VM-001", "name": "Lobby", "type": "coffee",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /machines status = %d", resp.StatusCode)
	}
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeBody(t, resp, &created)
	if created.ID == "" {
		t.Fatal("created machine has no id")
	}

	resp = fx.request(t, http.MethodGet, "/api/v1/machines/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /machines/{id} status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = fx.request(t, http.MethodPut, "/api/v1/machines/"+created.ID+"/status", token, map[string]string{
		"status": "maintenance",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT /machines/{id}/status status = %d", resp.StatusCode)
	}
	var updated struct {
		Status string `json:"status"`
	}
	decodeBody(t, resp, &updated)
	if updated.Status != "maintenance" {
		t.Fatalf("status = %s, want maintenance", updated.Status)
	}

	resp = fx.request(t, http.MethodGet, "/api/v1/machines/missing-id", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET missing machine status = %d, want 404", resp.StatusCode)
	}
}

func TestPermissionDenied(t *testing.T) {
	fx := newAPIFixture(t)
	fx.createUser(t, "op1", "changeme123", user.RoleOperator)
	token := fx.login(t, "op1", "changeme123")

	// Operators cannot create machines.
	resp := fx.request(t, http.MethodPost, "/api/v1/machines", token, map[string]any{
		"code": "VM-009", "name": "Denied", "type": "coffee",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}

	// Nor see finance.
	resp = fx.request(t, http.MethodGet, "/api/v1/finance/summary", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("finance status = %d, want 403", resp.StatusCode)
	}
}

func TestSaleFlowOverHTTP(t *testing.T) {
	fx := newAPIFixture(t)
	fx.createUser(t, "admin", "changeme123", user.RoleAdmin)
	token := fx.login(t, "admin", "changeme123")

	var m struct {
		ID string `json:"id"`
	}
	resp := fx.request(t, http.MethodPost, "/api/v1/machines", token, map[string]any{
		"code": "VM-001", "name": "Lobby", "type": "coffee",
	})
	decodeBody(t, resp, &m)

	var p struct {
		ID string `json:"id"`
	}
	resp = fx.request(t, http.MethodPost, "/api/v1/products", token, map[string]any{
		"code": "ESP", "name": "Espresso", "price": 15000,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /products status = %d", resp.StatusCode)
	}
	decodeBody(t, resp, &p)

	resp = fx.request(t, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"machine_id": m.ID, "product_id": p.ID, "payment_method": "payme", "transaction_id": "tx-1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /sales status = %d", resp.StatusCode)
	}
	var created struct {
		TotalAmount float64 `json:"total_amount"`
		SyncStatus  string  `json:"sync_status"`
	}
	decodeBody(t, resp, &created)
	if created.TotalAmount != 15000 || created.SyncStatus != "pending" {
		t.Fatalf("sale = %+v", created)
	}

	// The matching settlement arrives and reconciliation links them.
	resp = fx.request(t, http.MethodPost, "/api/v1/payments", token, map[string]any{
		"source": "payme", "external_id": "tx-1", "amount": 15000, "method": "payme",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /payments status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = fx.request(t, http.MethodPost, "/api/v1/reconciliation/run", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /reconciliation/run status = %d", resp.StatusCode)
	}
	var report struct {
		Matched       int   `json:"matched"`
		Discrepancies []any `json:"discrepancies"`
	}
	decodeBody(t, resp, &report)
	if report.Matched != 1 || len(report.Discrepancies) != 0 {
		t.Fatalf("report = %+v, want one clean match", report)
	}
}

func TestRefreshFlowOverHTTP(t *testing.T) {
	fx := newAPIFixture(t)
	fx.createUser(t, "admin", "changeme123", user.RoleAdmin)

	resp := fx.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"login": "admin", "password": "changeme123",
	})
	var out struct {
		Tokens struct {
			RefreshToken string `json:"refresh_token"`
		} `json:"tokens"`
	}
	decodeBody(t, resp, &out)

	resp = fx.request(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": out.Tokens.RefreshToken,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Consumed token is dead.
	resp = fx.request(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": out.Tokens.RefreshToken,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("second refresh status = %d, want 401", resp.StatusCode)
	}
}

func TestAuditTrailRecordsRequests(t *testing.T) {
	fx := newAPIFixture(t)
	fx.createUser(t, "admin", "changeme123", user.RoleAdmin)
	token := fx.login(t, "admin", "changeme123")

	resp := fx.request(t, http.MethodPost, "/api/v1/machines", token, map[string]any{
		"code": "VM-001", "name": "Lobby", "type": "coffee",
	})
	resp.Body.Close()

	// The append happens off the response path, so poll briefly.
	var entries []struct {
		Method string `json:"method"`
		Path   string `json:"path"`
	}
	found := false
	deadline := time.Now().Add(2 * time.Second)
	for !found && time.Now().Before(deadline) {
		resp = fx.request(t, http.MethodGet, "/api/v1/audit?limit=10", token, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET /audit status = %d", resp.StatusCode)
		}
		decodeBody(t, resp, &entries)
		for _, e := range entries {
			if e.Method == http.MethodPost && e.Path == "/api/v1/machines" {
				found = true
			}
		}
		if !found {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if !found {
		t.Fatalf("audit entries = %+v, want POST /api/v1/machines", entries)
	}
	for _, e := range entries {
		if e.Method == http.MethodGet {
			t.Fatalf("audit entries = %+v, reads must not be recorded", entries)
		}
	}
}

func TestUnknownJSONFieldRejected(t *testing.T) {
	fx := newAPIFixture(t)
	fx.createUser(t, "admin", "changeme123", user.RoleAdmin)
	token := fx.login(t, "admin", "changeme123")

	resp := fx.request(t, http.MethodPost, "/api/v1/machines", token, map[string]any{
		"code": "VM-001", "name": "Lobby", "type": "coffee", "bogus_field": true,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
