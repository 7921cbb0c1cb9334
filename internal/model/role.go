package model

import (
	"time"

	"github.com/google/uuid"
)

// Role groups permissions; users carry the role name in their token
type Role struct {
	ID          uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	IsSystem    bool         `gorm:"default:false;not null" json:"is_system"` // seeded roles, cannot be renamed or deleted
	Permissions []Permission `gorm:"many2many:role_permissions;constraint:OnDelete:CASCADE;" json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Permission is a grantable action code such as "tax.review"
type Permission struct {
	ID    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Name  string    `gorm:"type:varchar(255);not null" json:"name"`
	Group string    `gorm:"type:varchar(32);not null;index" json:"group"` // tax, users, audit, roles or dashboard
}
