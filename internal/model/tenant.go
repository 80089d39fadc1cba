package model

import (
	"time"
)

// Tenant represents one pharmacy organization. Every scoped record in the
// system is owned by exactly one tenant; the subdomain is the external key
// requests resolve against and never changes after creation.
type Tenant struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null"`
	Subdomain string    `json:"subdomain" gorm:"type:varchar(63);uniqueIndex;not null"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
