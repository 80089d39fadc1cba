package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"pharmacy-service/pkg/database"
)

// HealthCheck handles the health check endpoint
func HealthCheck(c echo.Context) error {
	if !database.HealthCheck(c.Request().Context()) {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":  "degraded",
			"service": "pharmacy-service",
			"db":      "unreachable",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "healthy",
		"service": "pharmacy-service",
	})
}
