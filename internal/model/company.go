package model

import (
	"time"

	"gorm.io/gorm"
)

// Company represents the company (tenant) model stored in the database.
// Every user belongs to exactly one company, and all disclosure records
// are scoped to a company.
type Company struct {
	ID                    string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name                  string         `json:"name" gorm:"type:varchar(200);uniqueIndex"`
	LegalEntity           string         `json:"legal_entity" gorm:"type:varchar(200)"`
	Industry              string         `json:"industry" gorm:"type:varchar(100)"`
	CountryOfRegistration string         `json:"country_of_registration" gorm:"type:varchar(100)"`
	CreatedBy             string         `json:"created_by,omitempty" gorm:"type:uuid"`
	UpdatedBy             string         `json:"updated_by,omitempty" gorm:"type:uuid"`
	DeletedBy             string         `json:"-" gorm:"type:uuid"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `json:"-" gorm:"index"`
}

// Deactivated reports whether the company has been soft-deleted. Members
// of a deactivated company can no longer log in or refresh sessions.
func (c *Company) Deactivated() bool {
	return c.DeletedAt.Valid
}
