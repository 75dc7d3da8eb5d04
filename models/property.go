package models

import "time"

// Property represents a managed site that owns rooms, machines, jobs and maintenance tasks
type Property struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PropertyID  string    `gorm:"uniqueIndex;size:50;not null" json:"property_id"` // external identifier
	Name        string    `gorm:"size:200;not null" json:"name"`
	Address     string    `gorm:"type:text" json:"address"`
	City        string    `gorm:"size:100" json:"city"`
	State       string    `gorm:"size:100" json:"state"`
	Country     string    `gorm:"size:100" json:"country"`
	PostalCode  string    `gorm:"size:20" json:"postal_code"`
	Description *string   `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Property model
func (Property) TableName() string {
	return "properties"
}
