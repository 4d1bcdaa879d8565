package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/pkg/metrics"
)

// CurrentUserKey is the echo.Context key holding the authenticated *domain.User.
const CurrentUserKey = "current_user"

// Gate is the part of the auth facade the request gate needs.
type Gate interface {
	RequiresAuth(path string) bool
	SessionCookieName() string
	CurrentUser(ctx context.Context, req ports.Request) (*domain.User, error)
}

// Authenticate gates every request. Excluded paths pass untouched. Otherwise
// a request carrying neither an Authorization header nor a session cookie is
// rejected with 401, and one whose credentials do not resolve to a user with
// 403.
func Authenticate(gate Gate, log zerolog.Logger) echo.MiddlewareFunc {
	log = log.With().Str("component", "auth_middleware").Logger()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := NewRequest(c.Request())
			if !gate.RequiresAuth(req.Path()) {
				metrics.AuthDecisionsTotal.WithLabelValues("skipped").Inc()
				return next(c)
			}

			_, hasCookie := req.Cookie(gate.SessionCookieName())
			if req.Header(echo.HeaderAuthorization) == "" && !hasCookie {
				metrics.AuthDecisionsTotal.WithLabelValues("unauthorized").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			user, err := gate.CurrentUser(c.Request().Context(), req)
			if err != nil {
				log.Error().Err(err).Str("path", req.Path()).Msg("identity resolution failed")
				return err
			}
			if user == nil {
				metrics.AuthDecisionsTotal.WithLabelValues("forbidden").Inc()
				return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
			}

			metrics.AuthDecisionsTotal.WithLabelValues("allowed").Inc()
			c.Set(CurrentUserKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by Authenticate, or nil.
func CurrentUser(c echo.Context) *domain.User {
	user, _ := c.Get(CurrentUserKey).(*domain.User)
	return user
}
