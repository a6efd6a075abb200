// Package handler exposes each service over HTTP with Echo. Handlers stay
// thin: decode, call the service, map the domain error code to a status.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
)

// Health reports liveness for load balancers and probes.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// writeError maps a domain error to an HTTP response.
func writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperr.CodeNotFound:
			status = http.StatusNotFound
		case apperr.CodeInvalid:
			status = http.StatusBadRequest
		case apperr.CodeInvalidTransition, apperr.CodeConflict:
			status = http.StatusConflict
		case apperr.CodeUnauthorized:
			status = http.StatusUnauthorized
		case apperr.CodeDeliveryFailed:
			status = http.StatusBadGateway
		}
		return c.JSON(status, echo.Map{"error": appErr.Message, "code": string(appErr.Code)})
	}
	return c.JSON(status, echo.Map{"error": "internal error"})
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Newf(apperr.CodeInvalid, "invalid %s", name)
	}
	return id, nil
}
