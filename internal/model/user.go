package model

import (
	"time"
)

// Role is a user's role within its company.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleAuditor Role = "auditor"
	RoleUser    Role = "user"
)

// ValidRole reports whether s is one of the four known roles.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleAuditor, RoleUser:
		return true
	}
	return false
}

// User represents the user model stored in the database. A user belongs
// to exactly one company for its lifetime.
type User struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	Email     string    `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Name      string    `json:"name" gorm:"type:varchar(100)"`
	Password  string    `json:"-" gorm:"type:varchar(255)"`
	Role      Role      `json:"role" gorm:"type:varchar(20);not null;default:'user'"`
	CompanyID string    `json:"company_id" gorm:"type:uuid;index;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Identity is the per-request view of an authenticated user, populated by
// the auth middleware from the current database row rather than from
// token claims, so role or company changes take effect immediately.
type Identity struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	CompanyID string `json:"company_id"`
}
