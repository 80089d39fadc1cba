package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"pharmacy-service/pkg/jwtutil"
	"pharmacy-service/pkg/logger"
)

// AuthMiddleware validates the bearer token and pins it to the resolved
// tenant: a token minted for one tenant is rejected on another tenant's
// subdomain even when the signature is valid.
func AuthMiddleware(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing authorization header")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization header"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Warn("Invalid authorization header format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization header format"})
			}

			claims, err := jwtUtil.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			if t := TenantFromEcho(c); t != nil && claims.TenantID != t.ID {
				log.Warn("Token tenant mismatch",
					zap.Uint("token_tenant", claims.TenantID),
					zap.Uint("request_tenant", t.ID))
				return c.JSON(http.StatusForbidden, echo.Map{"error": "token does not belong to this tenant"})
			}

			c.Set("user", claims)
			c.Set("user_id", claims.UserID)
			log.Debug("JWT token validated successfully",
				zap.Uint("user_id", claims.UserID),
				zap.String("email", claims.Email))

			return next(c)
		}
	}
}
