package model

import (
	"time"
)

// Medicine represents a stocked pharmacy item
type Medicine struct {
	TenantModel
	Name         string    `json:"name" gorm:"type:varchar(255);not null"`
	Brand        string    `json:"brand" gorm:"type:varchar(255)"`
	Description  string    `json:"description" gorm:"type:text"`
	BatchNumber  string    `json:"batch_number" gorm:"type:varchar(100)"`
	Price        float64   `json:"price" gorm:"not null"`
	Quantity     int       `json:"quantity" gorm:"default:0"`
	ReorderLevel int       `json:"reorder_level" gorm:"default:10"`
	ExpiryDate   time.Time `json:"expiry_date"`
	CategoryID   uint      `json:"category_id" gorm:"index"`
}

// LowStock reports whether the item has fallen to its reorder level.
func (m *Medicine) LowStock() bool {
	return m.Quantity <= m.ReorderLevel
}

// ExpiringWithin reports whether the item expires within d of now.
func (m *Medicine) ExpiringWithin(now time.Time, d time.Duration) bool {
	return !m.ExpiryDate.IsZero() && m.ExpiryDate.Before(now.Add(d))
}

// Category represents a medicine category
type Category struct {
	TenantModel
	Name        string `json:"name" gorm:"type:varchar(100);not null"`
	Description string `json:"description" gorm:"type:text"`
}
