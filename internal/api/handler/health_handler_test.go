package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(nil)
	rec := run(newEcho(), httptest.NewRequest(http.MethodGet, "/health", nil), h.Liveness)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	h := NewHealthHandler(map[string]Pinger{"sqlite": ok})
	rec := run(newEcho(), httptest.NewRequest(http.MethodGet, "/health/ready", nil), h.Readiness)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	h = NewHealthHandler(map[string]Pinger{"sqlite": ok, "redis": down})
	rec = run(newEcho(), httptest.NewRequest(http.MethodGet, "/health/ready", nil), h.Readiness)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	resp := decode(t, rec)
	deps, _ := resp["dependencies"].(map[string]any)
	redis, _ := deps["redis"].(map[string]any)
	if resp["status"] != "degraded" || redis["status"] != "unhealthy" || redis["error"] != "connection refused" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestStatusHandlers(t *testing.T) {
	e := newEcho()
	cases := []struct {
		name string
		h    func() int
		want int
	}{
		{"status", func() int { return run(e, httptest.NewRequest(http.MethodGet, "/", nil), Status).Code }, http.StatusOK},
		{"unauthorized", func() int { return run(e, httptest.NewRequest(http.MethodGet, "/", nil), Unauthorized).Code }, http.StatusUnauthorized},
		{"forbidden", func() int { return run(e, httptest.NewRequest(http.MethodGet, "/", nil), Forbidden).Code }, http.StatusForbidden},
	}
	for _, tc := range cases {
		if got := tc.h(); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}
