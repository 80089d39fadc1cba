package model

import (
	"time"
)

// TenantModel is embedded by every tenant-owned entity. It carries the
// ownership and soft-delete columns that the repository filters on: a record
// is visible only through queries scoped to (tenant_id, is_active = true).
// Deactivated records stay in the table for audit and recovery.
type TenantModel struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	TenantID  uint      `json:"tenant_id" gorm:"not null;index:idx_tenant_active,priority:1"`
	IsActive  bool      `json:"is_active" gorm:"default:true;index:idx_tenant_active,priority:2"`
	Version   uint      `json:"version" gorm:"default:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PrimaryID returns the record identifier.
func (m *TenantModel) PrimaryID() uint { return m.ID }

// Owner returns the owning tenant identifier.
func (m *TenantModel) Owner() uint { return m.TenantID }

// Active reports whether the record is visible to normal reads.
func (m *TenantModel) Active() bool { return m.IsActive }

// CurrentVersion returns the record version used for optimistic update checks.
func (m *TenantModel) CurrentVersion() uint { return m.Version }

// Claim stamps ownership and lifecycle columns on a record about to be
// persisted for the first time.
func (m *TenantModel) Claim(tenantID uint, now time.Time) {
	m.TenantID = tenantID
	m.IsActive = true
	if m.Version == 0 {
		m.Version = 1
	}
	m.CreatedAt = now
	m.UpdatedAt = now
}
