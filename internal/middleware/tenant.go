package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"pharmacy-service/internal/apperr"
	"pharmacy-service/internal/model"
	"pharmacy-service/internal/tenant"
	"pharmacy-service/pkg/logger"
)

const tenantContextKey = "tenant"

// TenantMiddleware resolves the request's tenant before any handler runs.
// The subdomain comes from the X-Tenant header when present, otherwise from
// the first label of the request Host once the base domain is stripped.
// Requests that do not resolve to an active tenant never reach a handler.
func TenantMiddleware(resolver *tenant.Resolver, baseDomain string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			subdomain := c.Request().Header.Get("X-Tenant")
			if subdomain == "" {
				subdomain = subdomainFromHost(c.Request().Host, baseDomain)
			}

			t, err := resolver.ResolveBySubdomain(c.Request().Context(), subdomain)
			if err != nil {
				if errors.Is(err, apperr.ErrValidation) {
					log.Warn("missing tenant subdomain", zap.String("host", c.Request().Host))
					return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant subdomain is required"})
				}
				if errors.Is(err, apperr.ErrNotFound) {
					log.Warn("unknown tenant", zap.String("subdomain", subdomain))
					return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
				}
				log.Error("tenant resolution failed", zap.String("subdomain", subdomain), zap.Error(err))
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "tenant resolution failed"})
			}

			c.Set(tenantContextKey, t)
			c.Set("logger", log.With(
				zap.Uint("tenant_id", t.ID),
				zap.String("tenant", t.Subdomain)))
			return next(c)
		}
	}
}

// TenantFromEcho returns the tenant resolved by TenantMiddleware, or nil.
func TenantFromEcho(c echo.Context) *model.Tenant {
	t, ok := c.Get(tenantContextKey).(*model.Tenant)
	if !ok {
		return nil
	}
	return t
}

// subdomainFromHost extracts the tenant label from the request host.
// "acme.pharmacy.example.com" with base domain "pharmacy.example.com"
// yields "acme"; a bare base domain yields "".
func subdomainFromHost(host, baseDomain string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == baseDomain {
		return ""
	}
	if suffix := "." + baseDomain; strings.HasSuffix(host, suffix) {
		host = strings.TrimSuffix(host, suffix)
	}
	// Nested labels are not tenants; only the leftmost label counts.
	if i := strings.Index(host, "."); i >= 0 {
		host = host[:i]
	}
	return host
}
