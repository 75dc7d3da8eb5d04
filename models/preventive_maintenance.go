package models

import "time"

// Maintenance frequencies
const (
	FrequencyDaily      = "daily"
	FrequencyWeekly     = "weekly"
	FrequencyBiweekly   = "biweekly"
	FrequencyMonthly    = "monthly"
	FrequencyQuarterly  = "quarterly"
	FrequencyBiannually = "biannually"
	FrequencyAnnually   = "annually"
	FrequencyCustom     = "custom"
)

// Maintenance statuses
const (
	MaintenanceStatusPending   = "pending"
	MaintenanceStatusCompleted = "completed"
	MaintenanceStatusOverdue   = "overdue"
)

// Frequencies lists every supported frequency in display order
var Frequencies = []string{
	FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly,
	FrequencyQuarterly, FrequencyBiannually, FrequencyAnnually, FrequencyCustom,
}

// PreventiveMaintenance represents a recurring maintenance task
type PreventiveMaintenance struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	PMID           string     `gorm:"column:pm_id;uniqueIndex;size:50;not null" json:"pm_id"`
	PMTitle        string     `gorm:"column:pmtitle;size:200;not null" json:"pmtitle"`
	ScheduledDate  time.Time  `gorm:"not null;index" json:"scheduled_date"`
	CompletedDate  *time.Time `json:"completed_date"`
	NextDueDate    *time.Time `json:"next_due_date"`
	Frequency      string     `gorm:"size:20;not null" json:"frequency"`
	CustomDays     *int       `json:"custom_days"` // required when frequency is custom
	Status         string     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Notes          *string    `gorm:"type:text" json:"notes"`
	Procedure      *string    `gorm:"type:text" json:"procedure"`
	BeforeImageKey *string    `json:"before_image_key"`                    // storage key for the before image
	BeforeImageURL *string    `gorm:"-" json:"before_image_url,omitempty"` // computed field
	AfterImageKey  *string    `json:"after_image_key"`
	AfterImageURL  *string    `gorm:"-" json:"after_image_url,omitempty"`
	PropertyRefID  uint       `gorm:"column:property_id;not null;index" json:"-"`
	Property       *Property  `gorm:"foreignKey:PropertyRefID;references:ID;constraint:OnDelete:CASCADE" json:"property,omitempty"`
	RoomRefID      *uint      `gorm:"column:room_id;index" json:"-"`
	Room           *Room      `gorm:"foreignKey:RoomRefID;references:ID;constraint:OnDelete:SET NULL" json:"room,omitempty"`
	Machines       []Machine  `gorm:"many2many:preventive_maintenance_machines;" json:"machines"`
	Topics         []Topic    `gorm:"many2many:preventive_maintenance_topics;" json:"topics"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the PreventiveMaintenance model
func (PreventiveMaintenance) TableName() string {
	return "preventive_maintenances"
}

// NextDueDate returns the date the following occurrence is due after from.
// It reports false for a custom frequency without a positive day count.
func NextDueDate(frequency string, customDays *int, from time.Time) (time.Time, bool) {
	switch frequency {
	case FrequencyDaily:
		return from.AddDate(0, 0, 1), true
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7), true
	case FrequencyBiweekly:
		return from.AddDate(0, 0, 14), true
	case FrequencyMonthly:
		return from.AddDate(0, 1, 0), true
	case FrequencyQuarterly:
		return from.AddDate(0, 3, 0), true
	case FrequencyBiannually:
		return from.AddDate(0, 6, 0), true
	case FrequencyAnnually:
		return from.AddDate(1, 0, 0), true
	case FrequencyCustom:
		if customDays != nil && *customDays > 0 {
			return from.AddDate(0, 0, *customDays), true
		}
	}
	return time.Time{}, false
}
