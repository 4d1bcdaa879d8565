package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

type stubGate struct {
	excluded map[string]bool
	user     *domain.User
	err      error
	calls    int
}

func (g *stubGate) RequiresAuth(path string) bool { return !g.excluded[path] }

func (g *stubGate) SessionCookieName() string { return "_my_session_id" }

func (g *stubGate) CurrentUser(_ context.Context, _ ports.Request) (*domain.User, error) {
	g.calls++
	return g.user, g.err
}

func serve(t *testing.T, gate Gate, req *http.Request) (*httptest.ResponseRecorder, bool, *domain.User) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	var seen *domain.User
	handler := Authenticate(gate, zerolog.Nop())(func(c echo.Context) error {
		called = true
		seen = CurrentUser(c)
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, called, seen
}

func TestAuthenticate_ExcludedPathSkipsResolution(t *testing.T) {
	gate := &stubGate{excluded: map[string]bool{"/api/v1/status": true}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)

	rec, called, seen := serve(t, gate, req)

	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gate.calls != 0 {
		t.Fatalf("identity resolved on excluded path")
	}
	if seen != nil {
		t.Fatalf("expected no current user")
	}
}

func TestAuthenticate_MissingCredentials(t *testing.T) {
	gate := &stubGate{user: &domain.User{ID: "u1"}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)

	rec, called, _ := serve(t, gate, req)

	if called {
		t.Fatalf("should not reach next")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if gate.calls != 0 {
		t.Fatalf("identity resolved without credentials")
	}
}

func TestAuthenticate_UnresolvedIdentity(t *testing.T) {
	gate := &stubGate{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.Header.Set(echo.HeaderAuthorization, "Basic Zm9vOmJhcg==")

	rec, called, _ := serve(t, gate, req)

	if called {
		t.Fatalf("should not reach next")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAuthenticate_SessionCookie(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "a@example.com"}
	gate := &stubGate{user: user}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.AddCookie(&http.Cookie{Name: "_my_session_id", Value: "sid"})

	rec, called, seen := serve(t, gate, req)

	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen != user {
		t.Fatalf("current user not stored in context")
	}
}

func TestAuthenticate_ResolverError(t *testing.T) {
	gate := &stubGate{err: errors.New("store down")}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.AddCookie(&http.Cookie{Name: "_my_session_id", Value: "sid"})

	rec, called, _ := serve(t, gate, req)

	if called {
		t.Fatalf("should not reach next")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestNewRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile?x=1", nil)
	req.Header.Set("Authorization", "Basic abc")
	req.AddCookie(&http.Cookie{Name: "sid", Value: "v"})

	r := NewRequest(req)
	if r.Path() != "/api/v1/profile" {
		t.Fatalf("unexpected path %q", r.Path())
	}
	if r.Header("Authorization") != "Basic abc" {
		t.Fatalf("unexpected header %q", r.Header("Authorization"))
	}
	if v, ok := r.Cookie("sid"); !ok || v != "v" {
		t.Fatalf("unexpected cookie %q %v", v, ok)
	}
	if _, ok := r.Cookie("other"); ok {
		t.Fatalf("unexpected cookie")
	}

	empty := NewRequest(nil)
	if empty.Path() != "" || empty.Header("Authorization") != "" {
		t.Fatalf("nil request should be empty")
	}
}
