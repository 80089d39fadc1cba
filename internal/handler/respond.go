package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"pharmacy-service/internal/apperr"
	"pharmacy-service/prometheus"
)

// parseID reads the :id path parameter as a positive integer.
func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.Validationf("id %q", c.Param("id"))
	}
	return uint(id), nil
}

// respondError maps the error taxonomy onto HTTP responses.
func respondError(c echo.Context, message string, err error) error {
	prometheus.RecordError(apperr.Code(err))

	switch {
	case errors.Is(err, apperr.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": message})
	case errors.Is(err, apperr.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": message})
	case errors.Is(err, apperr.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": message})
	case errors.Is(err, apperr.ErrConnection):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": message})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": message})
	}
}
