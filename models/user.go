package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleAdmin      = "admin"
	RoleTechnician = "tecnico"
)

// BootstrapAdminUsername is the primary admin account that can never be deactivated
const BootstrapAdminUsername = "admin"

// User represents a staff account (admin or technician)
type User struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Username       string         `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash   string         `gorm:"not null" json:"-"`
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	Role           string         `gorm:"not null;default:'tecnico'" json:"role"` // "admin" or "tecnico"
	FullName       *string        `json:"full_name"`
	Phone          *string        `json:"phone"`
	TelegramChatID *string        `json:"telegram_chat_id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsAdmin returns true when the account has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DisplayName returns the full name, falling back to the username
func (u *User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Username
}
