package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Job statuses
const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusCancelled  = "cancelled"
	JobStatusOnHold     = "on_hold"
)

// Job priorities
const (
	JobPriorityLow    = "low"
	JobPriorityMedium = "medium"
	JobPriorityHigh   = "high"
	JobPriorityUrgent = "urgent"
)

// Job types
const (
	JobTypeMaintenance  = "maintenance"
	JobTypeRepair       = "repair"
	JobTypeInspection   = "inspection"
	JobTypeInstallation = "installation"
	JobTypeOther        = "other"
)

// JobStatuses lists every job status
var JobStatuses = []string{
	JobStatusPending, JobStatusInProgress, JobStatusCompleted, JobStatusCancelled, JobStatusOnHold,
}

// Job represents a repair, inspection or maintenance work order
type Job struct {
	ID             uint               `gorm:"primaryKey" json:"id"`
	JobID          string             `gorm:"uniqueIndex;size:50;not null" json:"job_id"`
	Title          string             `gorm:"size:200;not null" json:"title"`
	Description    string             `gorm:"type:text" json:"description"`
	Status         string             `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Priority       string             `gorm:"size:20;not null;default:'medium';index" json:"priority"`
	Type           string             `gorm:"size:20;not null;default:'maintenance'" json:"type"`
	AssignedToID   *uint              `gorm:"index" json:"assigned_to_id"`
	AssignedTo     *User              `gorm:"foreignKey:AssignedToID;constraint:OnDelete:SET NULL" json:"assigned_to,omitempty"`
	CreatedByID    uint               `gorm:"not null;index" json:"created_by_id"`
	CreatedBy      *User              `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	PropertyRefID  uint               `gorm:"column:property_id;not null;index" json:"-"`
	Property       *Property          `gorm:"foreignKey:PropertyRefID;references:ID;constraint:OnDelete:CASCADE" json:"property,omitempty"`
	RoomRefID      *uint              `gorm:"column:room_id;index" json:"-"`
	Room           *Room              `gorm:"foreignKey:RoomRefID;references:ID;constraint:OnDelete:SET NULL" json:"room,omitempty"`
	PropertyName   *string            `gorm:"size:100" json:"property_name"`   // snapshot of Property.Name
	RoomName       *string            `gorm:"size:100" json:"room_name"`       // snapshot of Room.Name
	MachineID      *string            `gorm:"size:50;index" json:"machine_id"` // snapshot of Machine.MachineID
	ScheduledDate  time.Time          `gorm:"not null;index" json:"scheduled_date"`
	CompletedDate  *time.Time         `json:"completed_date"`
	EstimatedHours *decimal.Decimal   `gorm:"type:decimal(5,2)" json:"estimated_hours"`
	ActualHours    *decimal.Decimal   `gorm:"type:decimal(5,2)" json:"actual_hours"`
	Cost           *decimal.Decimal   `gorm:"type:decimal(10,2)" json:"cost"`
	Notes          *string            `gorm:"type:text" json:"notes"`
	Attachments    []JobAttachment    `gorm:"foreignKey:JobID" json:"attachments,omitempty"`
	Checklist      []JobChecklistItem `gorm:"foreignKey:JobID" json:"checklist,omitempty"`
	History        []JobHistory       `gorm:"foreignKey:JobID" json:"history,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// TableName specifies the table name for the Job model
func (Job) TableName() string {
	return "jobs"
}

// JobAttachment is a file attached to a job
type JobAttachment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	JobID        uint      `gorm:"not null;index" json:"job_id"`
	FileName     string    `gorm:"size:255;not null" json:"file_name"`
	FileURL      string    `gorm:"type:text" json:"file_url"`
	FileKey      *string   `json:"-"` // storage key when the file was uploaded through the API
	FileType     string    `gorm:"size:50" json:"file_type"`
	FileSize     int64     `gorm:"not null" json:"file_size"`
	UploadedByID uint      `gorm:"not null;index" json:"uploaded_by_id"`
	UploadedBy   *User     `gorm:"foreignKey:UploadedByID" json:"uploaded_by,omitempty"`
	UploadedAt   time.Time `gorm:"autoCreateTime;<-:create" json:"uploaded_at"`
}

// TableName specifies the table name for the JobAttachment model
func (JobAttachment) TableName() string {
	return "job_attachments"
}

// JobChecklistItem is one step in a job checklist
type JobChecklistItem struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	JobID         uint       `gorm:"not null;index" json:"job_id"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	Description   *string    `gorm:"type:text" json:"description"`
	IsCompleted   bool       `gorm:"not null" json:"is_completed"`
	CompletedAt   *time.Time `json:"completed_at"`
	CompletedByID *uint      `gorm:"index" json:"completed_by_id"`
	CompletedBy   *User      `gorm:"foreignKey:CompletedByID;constraint:OnDelete:SET NULL" json:"completed_by,omitempty"`
	Order         int        `gorm:"column:order;not null" json:"order"`
}

// TableName specifies the table name for the JobChecklistItem model
func (JobChecklistItem) TableName() string {
	return "job_checklist_items"
}

// MarkCompleted applies the completion stamp rule: the first transition to
// completed records when and by whom, later ones keep the original stamp.
func (i *JobChecklistItem) MarkCompleted(completed bool, by *uint, now time.Time) {
	if !completed {
		i.IsCompleted = false
		i.CompletedAt = nil
		i.CompletedByID = nil
		return
	}
	i.IsCompleted = true
	if i.CompletedAt == nil {
		i.CompletedAt = &now
		i.CompletedByID = by
	}
}

// JobHistory is an immutable audit record of an action on a job
type JobHistory struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	JobID          uint      `gorm:"not null;index" json:"job_id"`
	Action         string    `gorm:"size:100;not null" json:"action"`
	Description    string    `gorm:"type:text" json:"description"`
	PerformedByID  uint      `gorm:"not null;index" json:"performed_by_id"`
	PerformedBy    *User     `gorm:"foreignKey:PerformedByID" json:"performed_by,omitempty"`
	PerformedAt    time.Time `gorm:"autoCreateTime;<-:create" json:"performed_at"`
	PreviousStatus *string   `gorm:"size:20" json:"previous_status"`
	NewStatus      *string   `gorm:"size:20" json:"new_status"`
}

// TableName specifies the table name for the JobHistory model
func (JobHistory) TableName() string {
	return "job_history"
}
