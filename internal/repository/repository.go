// Package repository implements tenant-scoped CRUD with soft delete for every
// entity kind. The (tenant_id, is_active) filter lives in exactly one scope
// function here so no per-entity code path can forget it.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"pharmacy-service/internal/apperr"
	"pharmacy-service/prometheus"
)

// Record constrains the repository to pointer types carrying the embedded
// model.TenantModel lifecycle columns.
type Record[T any] interface {
	*T
	PrimaryID() uint
	Owner() uint
	Active() bool
	CurrentVersion() uint
	Claim(tenantID uint, now time.Time)
}

// ListOptions narrows a scoped listing. Filters are exact column matches,
// Search is a substring match over the repository's search columns. Results
// come back in insertion (primary key) order.
type ListOptions struct {
	Filters map[string]any
	Search  string
	Limit   int
	Offset  int
}

// Repository provides the five scoped operations for one entity kind.
type Repository[T any, PT Record[T]] struct {
	db            *gorm.DB
	log           *zap.Logger
	entity        string
	searchColumns []string
}

// New creates a repository for one entity kind. entity names the kind in logs
// and metrics; searchColumns are the text columns ListOptions.Search matches.
func New[T any, PT Record[T]](db *gorm.DB, log *zap.Logger, entity string, searchColumns ...string) *Repository[T, PT] {
	return &Repository[T, PT]{
		db:            db,
		log:           log.Named(entity),
		entity:        entity,
		searchColumns: searchColumns,
	}
}

// scoped applies the tenant isolation filter. Every normal read and write in
// this package goes through it; only auditScoped may skip the active check.
func (r *Repository[T, PT]) scoped(tenantID uint) *gorm.DB {
	return r.db.Model(new(T)).Where("tenant_id = ? AND is_active = ?", tenantID, true)
}

// auditScoped still filters by tenant but includes deactivated records.
func (r *Repository[T, PT]) auditScoped(tenantID uint) *gorm.DB {
	return r.db.Model(new(T)).Where("tenant_id = ?", tenantID)
}

// Create persists a new record under the tenant. The identifier is assigned
// by the store; lifecycle columns are stamped here. Uniqueness beyond the
// identifier index is the caller's concern.
func (r *Repository[T, PT]) Create(ctx context.Context, tenantID uint, rec PT) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	prometheus.RecordEntityOperation(r.entity, "create")

	rec.Claim(tenantID, time.Now().UTC())
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create %s: %w", r.entity, err)
	}

	r.log.Debug("record created",
		zap.Uint("id", rec.PrimaryID()),
		zap.Uint("tenant_id", tenantID))
	return nil
}

// GetByID returns the active record matching (tenantID, id), or ErrNotFound.
func (r *Repository[T, PT]) GetByID(ctx context.Context, tenantID, id uint) (PT, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	prometheus.RecordEntityOperation(r.entity, "get")

	var out T
	err := r.scoped(tenantID).WithContext(ctx).Where("id = ?", id).First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("%s %d", r.entity, id)
		}
		return nil, fmt.Errorf("get %s %d: %w", r.entity, id, err)
	}
	return PT(&out), nil
}

// GetAnyByID is the privileged audit lookup: it still filters by tenant but
// sees deactivated records. Recovery and audit flows use it; nothing else may.
func (r *Repository[T, PT]) GetAnyByID(ctx context.Context, tenantID, id uint) (PT, error) {
	var out T
	err := r.auditScoped(tenantID).WithContext(ctx).Where("id = ?", id).First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("%s %d", r.entity, id)
		}
		return nil, fmt.Errorf("get %s %d: %w", r.entity, id, err)
	}
	return PT(&out), nil
}

// List returns active records for the tenant, narrowed by opts.
func (r *Repository[T, PT]) List(ctx context.Context, tenantID uint, opts ListOptions) ([]T, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	prometheus.RecordEntityOperation(r.entity, "list")

	q := r.scoped(tenantID).WithContext(ctx)
	for column, value := range opts.Filters {
		q = q.Where(fmt.Sprintf("%s = ?", column), value)
	}
	if opts.Search != "" && len(r.searchColumns) > 0 {
		pattern := "%" + opts.Search + "%"
		search := r.db.Session(&gorm.Session{NewDB: true})
		for i, column := range r.searchColumns {
			if i == 0 {
				search = search.Where(fmt.Sprintf("%s LIKE ?", column), pattern)
			} else {
				search = search.Or(fmt.Sprintf("%s LIKE ?", column), pattern)
			}
		}
		q = q.Where(search)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	var out []T
	if err := q.Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", r.entity, err)
	}
	return out, nil
}

// Update applies the supplied columns to the active record matching
// (tenantID, id) and bumps its version. version must be the version the
// caller read; a stale version yields ErrConflict so concurrent updates
// cannot silently overwrite each other.
func (r *Repository[T, PT]) Update(ctx context.Context, tenantID, id uint, changes map[string]any, version uint) (PT, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())
	prometheus.RecordEntityOperation(r.entity, "update")

	if len(changes) == 0 {
		return r.GetByID(ctx, tenantID, id)
	}

	assign := make(map[string]any, len(changes)+2)
	for column, value := range changes {
		assign[column] = value
	}
	assign["version"] = version + 1
	assign["updated_at"] = time.Now().UTC()

	res := r.scoped(tenantID).WithContext(ctx).
		Where("id = ? AND version = ?", id, version).
		Updates(assign)
	if res.Error != nil {
		return nil, fmt.Errorf("update %s %d: %w", r.entity, id, res.Error)
	}
	if res.RowsAffected == 0 {
		// Zero rows means either no active record or a stale version;
		// a follow-up read tells them apart.
		if _, err := r.GetByID(ctx, tenantID, id); err != nil {
			return nil, err
		}
		return nil, apperr.Conflictf("%s %d at version %d", r.entity, id, version)
	}

	r.log.Debug("record updated",
		zap.Uint("id", id),
		zap.Uint("tenant_id", tenantID),
		zap.Int("fields", len(changes)))
	return r.GetByID(ctx, tenantID, id)
}

// SoftDelete deactivates the record matching (tenantID, id). It returns
// false without an error when the record is already inactive or missing, so
// callers can tell "nothing to do" apart from a real failure. The row itself
// is retained for audit and recovery.
func (r *Repository[T, PT]) SoftDelete(ctx context.Context, tenantID, id uint) (bool, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())
	prometheus.RecordEntityOperation(r.entity, "soft_delete")

	res := r.scoped(tenantID).WithContext(ctx).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
			"version":    gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, fmt.Errorf("soft delete %s %d: %w", r.entity, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	r.log.Debug("record deactivated",
		zap.Uint("id", id),
		zap.Uint("tenant_id", tenantID))
	return true, nil
}

// Count returns the number of active records matching the filters. Handlers
// use it for the list-and-compare uniqueness checks the repository itself
// does not perform.
func (r *Repository[T, PT]) Count(ctx context.Context, tenantID uint, filters map[string]any) (int64, error) {
	q := r.scoped(tenantID).WithContext(ctx)
	for column, value := range filters {
		q = q.Where(fmt.Sprintf("%s = ?", column), value)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", r.entity, err)
	}
	return n, nil
}
