package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

type AuthHandler struct {
	auth ports.AuthService
}

func NewAuthHandler(auth ports.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         users
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Email and password"
// @Success      201   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Router       /users [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if _, err := h.auth.Register(c.Request().Context(), req.Email, req.Password); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return echo.NewHTTPError(http.StatusBadRequest, "email already registered")
		}
		return err
	}

	return c.JSON(http.StatusCreated, messageResponse{Email: req.Email, Message: "user created"})
}

// Login verifies credentials and sets the session cookie.
//
// @Summary      Log in
// @Tags         sessions
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Email and password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /sessions [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	sessionID, user, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     h.auth.SessionCookieName(),
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, messageResponse{Email: user.Email, Message: "logged in"})
}

// Logout destroys the session named by the cookie.
//
// @Summary      Log out
// @Tags         sessions
// @Success      204
// @Failure      403   {object}  errorResponse
// @Router       /sessions [delete]
func (h *AuthHandler) Logout(c echo.Context) error {
	sid := h.sessionID(c)
	if sid == "" {
		return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
	}

	ok, err := h.auth.Logout(c.Request().Context(), sid)
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
	}

	c.SetCookie(&http.Cookie{
		Name:     h.auth.SessionCookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return c.NoContent(http.StatusNoContent)
}

// Profile returns the authenticated user.
//
// @Summary      Current user profile
// @Tags         users
// @Produce      json
// @Success      200   {object}  profileResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /profile [get]
func (h *AuthHandler) Profile(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	if user == nil {
		return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
	}
	return c.JSON(http.StatusOK, profileResponse{ID: user.ID, Email: user.Email})
}

// RequestReset issues a password reset token.
//
// @Summary      Request a password reset token
// @Tags         reset_password
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      resetRequest  true  "Account email"
// @Success      200   {object}  resetTokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /reset_password [post]
func (h *AuthHandler) RequestReset(c echo.Context) error {
	var req resetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := h.auth.RequestPasswordReset(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
		}
		return err
	}
	return c.JSON(http.StatusOK, resetTokenResponse{Email: req.Email, ResetToken: token})
}

// UpdatePassword consumes a reset token and sets the new password.
//
// @Summary      Reset the password
// @Tags         reset_password
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      updatePasswordRequest  true  "Token and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /reset_password [put]
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	var req updatePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.auth.CompletePasswordReset(c.Request().Context(), req.ResetToken, req.NewPassword); err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
		}
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Email: req.Email, Message: "Password updated"})
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
