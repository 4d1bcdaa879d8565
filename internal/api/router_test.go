package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/core/service"
	"github.com/99minutos/auth-service/internal/infrastructure/db/memory"
	"github.com/99minutos/auth-service/internal/infrastructure/hash"
)

var testExcluded = []string{
	"/api/v1/status/",
	"/api/v1/unauthorized/",
	"/api/v1/forbidden/",
	"/api/v1/users/",
	"/api/v1/sessions/",
	"/api/v1/reset_password/",
	"/health*",
	"/metrics/",
}

func newTestServer(t *testing.T, authType service.AuthType) http.Handler {
	t.Helper()
	log := zerolog.Nop()
	users := service.NewCredentialStore(memory.NewUserRepository(), hash.NewBcrypt(bcrypt.MinCost), log)
	sessions := service.NewSessionManager(users, service.NewRecordSessions(users), "", log)
	svc, err := service.NewAuthService(users, sessions, nil, service.AuthServiceConfig{
		AuthType:      authType,
		ExcludedPaths: testExcluded,
	}, log)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return NewRouter(Deps{Auth: svc, Log: log, Registry: prometheus.NewRegistry()})
}

func do(h http.Handler, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_SessionFlow(t *testing.T) {
	srv := newTestServer(t, service.AuthTypeSession)
	creds := `{"email":"alice@example.com","password":"pass123"}`

	if rec := do(srv, http.MethodGet, "/api/v1/status", ""); rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
	if rec := do(srv, http.MethodGet, "/api/v1/profile", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("profile without credentials: expected 401, got %d", rec.Code)
	}
	if rec := do(srv, http.MethodPost, "/api/v1/users", creds); rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(srv, http.MethodPost, "/api/v1/users", creds); rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register: expected 400, got %d", rec.Code)
	}
	if rec := do(srv, http.MethodPost, "/api/v1/sessions", `{"email":"alice@example.com","password":"nope"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", rec.Code)
	}

	rec := do(srv, http.MethodPost, "/api/v1/sessions", creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}
	session := cookies[0]

	rec = do(srv, http.MethodGet, "/api/v1/profile", "", session)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d", rec.Code)
	}
	var profile map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if profile["email"] != "alice@example.com" || profile["id"] == "" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	if rec := do(srv, http.MethodDelete, "/api/v1/sessions", "", session); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rec.Code)
	}
	if rec := do(srv, http.MethodGet, "/api/v1/profile", "", session); rec.Code != http.StatusForbidden {
		t.Fatalf("profile after logout: expected 403, got %d", rec.Code)
	}
	if rec := do(srv, http.MethodDelete, "/api/v1/sessions", "", session); rec.Code != http.StatusForbidden {
		t.Fatalf("second logout: expected 403, got %d", rec.Code)
	}
}

func TestRouter_PasswordResetFlow(t *testing.T) {
	srv := newTestServer(t, service.AuthTypeSession)
	if rec := do(srv, http.MethodPost, "/api/v1/users", `{"email":"alice@example.com","password":"pass123"}`); rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", rec.Code)
	}

	if rec := do(srv, http.MethodPost, "/api/v1/reset_password", `{"email":"bob@example.com"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("reset unknown: expected 403, got %d", rec.Code)
	}

	rec := do(srv, http.MethodPost, "/api/v1/reset_password", `{"email":"alice@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", rec.Code)
	}
	var reset map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &reset); err != nil {
		t.Fatalf("invalid json: %v", err)
	}

	body := `{"email":"alice@example.com","reset_token":"` + reset["reset_token"] + `","new_password":"newpass"}`
	if rec := do(srv, http.MethodPut, "/api/v1/reset_password", body); rec.Code != http.StatusOK {
		t.Fatalf("update password: expected 200, got %d", rec.Code)
	}
	if rec := do(srv, http.MethodPut, "/api/v1/reset_password", body); rec.Code != http.StatusForbidden {
		t.Fatalf("reused token: expected 403, got %d", rec.Code)
	}
	if rec := do(srv, http.MethodPost, "/api/v1/sessions", `{"email":"alice@example.com","password":"newpass"}`); rec.Code != http.StatusOK {
		t.Fatalf("login with new password: expected 200, got %d", rec.Code)
	}
}

func TestRouter_BasicAuth(t *testing.T) {
	srv := newTestServer(t, service.AuthTypeBasic)
	if rec := do(srv, http.MethodPost, "/api/v1/users", `{"email":"foo@bar.com","password":"se:cret"}`); rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", rec.Code)
	}

	profile := func(creds string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(creds)))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := profile("foo@bar.com:se:cret"); code != http.StatusOK {
		t.Fatalf("valid basic auth: expected 200, got %d", code)
	}
	if code := profile("foo@bar.com:wrong"); code != http.StatusForbidden {
		t.Fatalf("wrong password: expected 403, got %d", code)
	}
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	srv := newTestServer(t, service.AuthTypeSession)

	for _, path := range []string{"/health", "/health/ready", "/metrics", "/api/v1/status"} {
		if rec := do(srv, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
	if rec := do(srv, http.MethodGet, "/api/v1/unauthorized", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthorized: expected 401, got %d", rec.Code)
	}
	if rec := do(srv, http.MethodGet, "/api/v1/forbidden", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("forbidden: expected 403, got %d", rec.Code)
	}
}

func TestRouter_OverlongPasswordIsBadRequest(t *testing.T) {
	srv := newTestServer(t, service.AuthTypeSession)

	long := strings.Repeat("a", 73)
	if rec := do(srv, http.MethodPost, "/api/v1/users", `{"email":"alice@example.com","password":"`+long+`"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("73-byte password: expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	// 40 runes pass the length tag but are 80 bytes for the hasher.
	wide := strings.Repeat("é", 40)
	if rec := do(srv, http.MethodPost, "/api/v1/users", `{"email":"alice@example.com","password":"`+wide+`"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("80-byte password: expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	if rec := do(srv, http.MethodPost, "/api/v1/users", `{"email":"alice@example.com","password":"pass123"}`); rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", rec.Code)
	}
	rec := do(srv, http.MethodPost, "/api/v1/reset_password", `{"email":"alice@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", rec.Code)
	}
	var reset map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &reset); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	body := `{"email":"alice@example.com","reset_token":"` + reset["reset_token"] + `","new_password":"` + wide + `"}`
	if rec := do(srv, http.MethodPut, "/api/v1/reset_password", body); rec.Code != http.StatusBadRequest {
		t.Fatalf("overlong new password: expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}
