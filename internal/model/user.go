package model

// User represents a pharmacy staff account scoped to one tenant
type User struct {
	TenantModel
	Email        string `json:"email" gorm:"type:varchar(255);not null;index"`
	Name         string `json:"name" gorm:"type:varchar(255)"`
	PasswordHash string `json:"-" gorm:"type:varchar(255);not null"`
	Role         string `json:"role" gorm:"type:varchar(50);default:'staff'"`
}
