package models

import (
	"time"

	"gorm.io/datatypes"
)

// Profile roles
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleTechnician = "technician"
	RoleSupervisor = "supervisor"
)

// Profile departments
const (
	DepartmentMaintenance = "maintenance"
	DepartmentOperations  = "operations"
	DepartmentManagement  = "management"
	DepartmentSupport     = "support"
)

// User represents a person who can be assigned to, create, or work on jobs
type User struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Auth0ID     *string      `gorm:"uniqueIndex" json:"auth0_id,omitempty"` // Auth0 user ID (from 'sub' claim)
	Username    string       `gorm:"uniqueIndex;not null" json:"username"`
	Email       string       `gorm:"uniqueIndex;not null" json:"email"`
	FirstName   string       `json:"first_name"`
	LastName    string       `json:"last_name"`
	PhoneNumber *string      `json:"phone_number"`
	IsActive    bool         `gorm:"not null" json:"is_active"`
	IsStaff     bool         `gorm:"not null" json:"is_staff"`
	DateJoined  time.Time    `gorm:"autoCreateTime" json:"date_joined"`
	LastLogin   *time.Time   `json:"last_login"`
	Profile     *UserProfile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// FullName returns "first last", falling back to the username
func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// UserProfile holds the one-to-one maintenance profile of a user
type UserProfile struct {
	ID                      uint                        `gorm:"primaryKey" json:"id"`
	UserID                  uint                        `gorm:"uniqueIndex;not null" json:"user_id"`
	Role                    string                      `gorm:"not null;default:'technician'" json:"role"`
	Department              string                      `gorm:"not null;default:'maintenance'" json:"department"`
	PhoneNumber             *string                     `json:"phone_number"`
	Bio                     *string                     `gorm:"type:text" json:"bio"`
	Skills                  datatypes.JSONSlice[string] `json:"skills"`
	Certifications          datatypes.JSONSlice[string] `json:"certifications"`
	EmergencyContact        datatypes.JSONMap           `json:"emergency_contact"`
	PreferredLanguage       string                      `gorm:"not null;default:'en'" json:"preferred_language"`
	Timezone                string                      `gorm:"not null;default:'UTC'" json:"timezone"`
	NotificationPreferences datatypes.JSONMap           `json:"notification_preferences"`
	IsActive                bool                        `gorm:"not null" json:"is_active"`
	CreatedAt               time.Time                   `json:"created_at"`
	UpdatedAt               time.Time                   `json:"updated_at"`
}

// TableName specifies the table name for the UserProfile model
func (UserProfile) TableName() string {
	return "user_profiles"
}

// NewDefaultProfile returns the profile every new user starts with
func NewDefaultProfile() UserProfile {
	return UserProfile{
		Role:                    RoleTechnician,
		Department:              DepartmentMaintenance,
		Skills:                  datatypes.JSONSlice[string]{},
		Certifications:          datatypes.JSONSlice[string]{},
		EmergencyContact:        datatypes.JSONMap{},
		PreferredLanguage:       "en",
		Timezone:                "UTC",
		NotificationPreferences: datatypes.JSONMap{},
		IsActive:                true,
	}
}
