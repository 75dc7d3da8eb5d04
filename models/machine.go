package models

import "time"

// Machine represents a piece of equipment that receives maintenance
type Machine struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	MachineID           string     `gorm:"uniqueIndex;size:50;not null" json:"machine_id"` // external identifier
	Name                string     `gorm:"size:100;not null" json:"name"`
	Status              string     `gorm:"size:20;not null;default:'active'" json:"status"`
	PropertyRefID       uint       `gorm:"column:property_id;not null;index" json:"-"`
	Property            *Property  `gorm:"foreignKey:PropertyRefID;references:ID;constraint:OnDelete:CASCADE" json:"property,omitempty"`
	RoomRefID           *uint      `gorm:"column:room_id;index" json:"-"` // nullable, cleared when the room is deleted
	Room                *Room      `gorm:"foreignKey:RoomRefID;references:ID;constraint:OnDelete:SET NULL" json:"room,omitempty"`
	MaintenanceCount    int        `gorm:"not null;default:0" json:"maintenance_count"`
	NextMaintenanceDate *time.Time `json:"next_maintenance_date"`
	LastMaintenanceDate *time.Time `json:"last_maintenance_date"`
	Description         *string    `gorm:"type:text" json:"description"`
	Procedure           *string    `gorm:"type:text" json:"procedure"`
	IsActive            bool       `gorm:"not null" json:"is_active"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the Machine model
func (Machine) TableName() string {
	return "machines"
}
