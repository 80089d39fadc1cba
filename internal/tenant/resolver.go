// Package tenant maps external tenant identifiers to tenant records. Every
// other component receives a resolved tenant identity, never a raw subdomain.
package tenant

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"pharmacy-service/internal/apperr"
	"pharmacy-service/internal/model"
	"pharmacy-service/prometheus"
)

// Resolver looks up tenants by their external subdomain.
type Resolver struct {
	db *gorm.DB
}

// NewResolver creates a resolver backed by the shared database handle.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// ResolveBySubdomain returns the active tenant registered under the given
// subdomain. The match is exact and case-sensitive. Returns ErrValidation
// for an empty subdomain and ErrNotFound when no active tenant matches;
// callers must never proceed with a nil tenant.
func (r *Resolver) ResolveBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error) {
	if subdomain == "" {
		prometheus.TenantResolutionCounter.WithLabelValues("invalid").Inc()
		return nil, apperr.Validationf("subdomain is required")
	}

	var t model.Tenant
	err := r.db.WithContext(ctx).
		Where("subdomain = ? AND active = ?", subdomain, true).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			prometheus.TenantResolutionCounter.WithLabelValues("not_found").Inc()
			return nil, apperr.NotFoundf("tenant %q", subdomain)
		}
		return nil, apperr.Connectionf("resolve tenant %q", subdomain)
	}

	prometheus.TenantResolutionCounter.WithLabelValues("resolved").Inc()
	return &t, nil
}
