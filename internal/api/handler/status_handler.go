package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Status reports that the API is up.
//
// @Summary      API status
// @Tags         status
// @Produce      json
// @Success      200  {object}  statusResponse
// @Router       /status [get]
func Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{Status: "OK"})
}

// Unauthorized always aborts with 401.
//
// @Summary      Always 401
// @Tags         status
// @Failure      401  {object}  errorResponse
// @Router       /unauthorized [get]
func Unauthorized(echo.Context) error {
	return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
}

// Forbidden always aborts with 403.
//
// @Summary      Always 403
// @Tags         status
// @Failure      403  {object}  errorResponse
// @Router       /forbidden [get]
func Forbidden(echo.Context) error {
	return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
}
