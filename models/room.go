package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Room represents a room inside a property
type Room struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	RoomID        string           `gorm:"uniqueIndex;size:50;not null" json:"room_id"` // external identifier
	Name          string           `gorm:"size:200;not null" json:"name"`
	Description   *string          `gorm:"type:text" json:"description"`
	Floor         string           `gorm:"size:50" json:"floor"`
	Area          *decimal.Decimal `gorm:"type:decimal(10,2)" json:"area"`
	PropertyRefID uint             `gorm:"column:property_id;not null;index" json:"-"` // foreign key to properties table
	Property      *Property        `gorm:"foreignKey:PropertyRefID;references:ID;constraint:OnDelete:CASCADE" json:"property,omitempty"`
	IsActive      bool             `gorm:"not null" json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// TableName specifies the table name for the Room model
func (Room) TableName() string {
	return "rooms"
}
