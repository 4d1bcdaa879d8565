package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// sessionID returns the session cookie value, or "".
func (h *AuthHandler) sessionID(c echo.Context) string {
	cookie, err := c.Cookie(h.auth.SessionCookieName())
	if err != nil {
		return ""
	}
	return cookie.Value
}

// currentUser prefers the identity stored by the request gate and falls back
// to the session cookie for routes the gate lets through.
func (h *AuthHandler) currentUser(c echo.Context) (*domain.User, error) {
	if user := middleware.CurrentUser(c); user != nil {
		return user, nil
	}
	sid := h.sessionID(c)
	if sid == "" {
		return nil, nil
	}
	return h.auth.UserForSession(c.Request().Context(), sid)
}
