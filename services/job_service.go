package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lastnext/maintenance-api/models"
	"github.com/lastnext/maintenance-api/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Job history actions
const (
	HistoryCreated         = "created"
	HistoryStatusChanged   = "status_changed"
	HistoryAssigned        = "assigned"
	HistoryCompleted       = "completed"
	HistoryAttachmentAdded = "attachment_added"
)

// ChecklistItemInput is one checklist item in a create or replace request
type ChecklistItemInput struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description"`
	IsCompleted bool    `json:"is_completed"`
	Order       *int    `json:"order" validate:"omitempty,min=0"`
}

// CreateJobInput is the payload for creating a job
type CreateJobInput struct {
	JobID          *string              `json:"job_id" validate:"omitempty,max=50"`
	Title          string               `json:"title" validate:"required,max=200"`
	Description    string               `json:"description"`
	Priority       *string              `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Type           *string              `json:"type" validate:"omitempty,oneof=maintenance repair inspection installation other"`
	AssignedToID   *uint                `json:"assigned_to_id"`
	PropertyID     string               `json:"property_id" validate:"required"`
	RoomID         *string              `json:"room_id"`
	MachineID      *string              `json:"machine_id"`
	ScheduledDate  *time.Time           `json:"scheduled_date" validate:"required"`
	EstimatedHours *decimal.Decimal     `json:"estimated_hours"`
	Cost           *decimal.Decimal     `json:"cost"`
	Notes          *string              `json:"notes"`
	Checklist      []ChecklistItemInput `json:"checklist"`
}

// UpdateJobInput is the payload for updating a job; nil fields are left unchanged.
// An empty room_id or machine_id clears the reference.
type UpdateJobInput struct {
	Title          *string          `json:"title" validate:"omitempty,max=200"`
	Description    *string          `json:"description"`
	Status         *string          `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled on_hold"`
	Priority       *string          `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Type           *string          `json:"type" validate:"omitempty,oneof=maintenance repair inspection installation other"`
	PropertyID     *string          `json:"property_id"`
	RoomID         *string          `json:"room_id"`
	MachineID      *string          `json:"machine_id"`
	ScheduledDate  *time.Time       `json:"scheduled_date"`
	CompletedDate  *time.Time       `json:"completed_date"`
	EstimatedHours *decimal.Decimal `json:"estimated_hours"`
	ActualHours    *decimal.Decimal `json:"actual_hours"`
	Cost           *decimal.Decimal `json:"cost"`
	Notes          *string          `json:"notes"`
}

// CompleteJobInput is the payload for completing a job
type CompleteJobInput struct {
	CompletedDate *time.Time       `json:"completed_date"`
	ActualHours   *decimal.Decimal `json:"actual_hours"`
	Cost          *decimal.Decimal `json:"cost"`
	Notes         *string          `json:"notes"`
}

// AttachmentInput describes a file that is already stored elsewhere
type AttachmentInput struct {
	FileName string `json:"file_name" validate:"required,max=255"`
	FileURL  string `json:"file_url" validate:"required"`
	FileType string `json:"file_type" validate:"max=50"`
	FileSize int64  `json:"file_size"`
}

// ChecklistItemUpdate edits a single checklist item; nil fields are left unchanged
type ChecklistItemUpdate struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description"`
	IsCompleted *bool   `json:"is_completed"`
	Order       *int    `json:"order" validate:"omitempty,min=0"`
}

var jobListSpec = listSpec{
	table:        "jobs",
	searchFields: []string{"job_id", "title", "description", "notes"},
	ordering: map[string]string{
		"created_at":     "created_at",
		"updated_at":     "updated_at",
		"scheduled_date": "scheduled_date",
		"completed_date": "completed_date",
		"priority":       "priority",
		"status":         "status",
		"title":          "title",
	},
}

// JobService manages jobs and their attachments, checklist and history
type JobService struct {
	db    *gorm.DB
	files FileService
}

// NewJobService creates a job service. files may be nil when uploads are not needed.
func NewJobService(db *gorm.DB, files FileService) *JobService {
	return &JobService{db: db, files: files}
}

// Create inserts a job, its initial checklist and a "created" history entry
func (s *JobService) Create(ctx context.Context, actorID uint, in CreateJobInput) (*models.Job, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	now := timeNow()
	verr := &ValidationError{}
	checkScheduledNotPast(verr, *in.ScheduledDate, now)
	checkNonNegative(verr, "estimated_hours", in.EstimatedHours)
	checkNonNegative(verr, "cost", in.Cost)
	validateChecklist(verr, in.Checklist)
	if err := errOrNil(verr); err != nil {
		return nil, err
	}

	job := models.Job{
		Title:          in.Title,
		Description:    in.Description,
		Status:         models.JobStatusPending,
		Priority:       models.JobPriorityMedium,
		Type:           models.JobTypeMaintenance,
		AssignedToID:   in.AssignedToID,
		CreatedByID:    actorID,
		ScheduledDate:  in.ScheduledDate.UTC(),
		EstimatedHours: in.EstimatedHours,
		Cost:           in.Cost,
		Notes:          in.Notes,
	}
	if in.JobID != nil && strings.TrimSpace(*in.JobID) != "" {
		job.JobID = strings.TrimSpace(*in.JobID)
	} else {
		job.JobID = newJobID()
	}
	if in.Priority != nil {
		job.Priority = *in.Priority
	}
	if in.Type != nil {
		job.Type = *in.Type
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		property, err := findProperty(tx, in.PropertyID)
		if err != nil {
			return err
		}
		job.PropertyRefID = property.ID
		job.PropertyName = &property.Name

		if in.RoomID != nil && *in.RoomID != "" {
			room, err := roomInProperty(tx, *in.RoomID, property)
			if err != nil {
				return err
			}
			job.RoomRefID = &room.ID
			job.RoomName = &room.Name
		}
		if in.MachineID != nil && *in.MachineID != "" {
			machine, err := machineInProperty(tx, *in.MachineID, property)
			if err != nil {
				return err
			}
			job.MachineID = &machine.MachineID
		}
		if in.AssignedToID != nil {
			if _, err := findUser(tx, *in.AssignedToID); err != nil {
				return err
			}
		}

		if err := tx.Create(&job).Error; err != nil {
			return writeError(err, "job", "job_id", job.JobID)
		}
		if err := insertChecklist(tx, job.ID, in.Checklist, actorID, now); err != nil {
			return err
		}
		return recordHistory(tx, job.ID, actorID, HistoryCreated, "Job created", nil, &job.Status)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, job.JobID)
}

// Get loads a job with its references, attachments, checklist (by order) and history (newest first)
func (s *JobService) Get(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	err := s.db.WithContext(ctx).
		Preload("Property").
		Preload("Room").
		Preload("AssignedTo").
		Preload("CreatedBy").
		Preload("Attachments", func(db *gorm.DB) *gorm.DB {
			return db.Order("uploaded_at ASC").Order("id ASC")
		}).
		Preload("Checklist", orderChecklist).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("performed_at DESC").Order("id DESC")
		}).
		Where("job_id = ?", jobID).
		First(&job).Error
	if err != nil {
		return nil, lookupError(err, "job", jobID)
	}
	s.resolveAttachmentURLs(ctx, job.Attachments)
	return &job, nil
}

// List returns a page of jobs.
// Filters: status, priority, type, assigned_to, property_id, room_id, machine_id,
// title, description, scheduled_date_after/before, created_at_after/before.
func (s *JobService) List(ctx context.Context, p ListParams) (*Page[models.Job], error) {
	q := s.db.WithContext(ctx).Model(&models.Job{})
	q = jobListSpec.applyExact(q, p, map[string]string{
		"status":      "status",
		"priority":    "priority",
		"type":        "type",
		"assigned_to": "assigned_to_id",
		"machine_id":  "machine_id",
	})
	if v := p.Filter("property_id"); v != "" {
		q = q.Where("jobs.property_id IN (?)", s.db.Model(&models.Property{}).Select("id").Where("property_id = ?", v))
	}
	if v := p.Filter("room_id"); v != "" {
		q = q.Where("jobs.room_id IN (?)", s.db.Model(&models.Room{}).Select("id").Where("room_id = ?", v))
	}
	for _, field := range []string{"title", "description"} {
		if v := p.Filter(field); v != "" {
			q = q.Where(fmt.Sprintf("LOWER(jobs.%s) LIKE ?", field), "%"+strings.ToLower(v)+"%")
		}
	}

	var err error
	if q, err = jobListSpec.applyDateRange(q, p, "scheduled_date", "scheduled_date"); err != nil {
		return nil, err
	}
	if q, err = jobListSpec.applyDateRange(q, p, "created_at", "created_at"); err != nil {
		return nil, err
	}
	q = jobListSpec.applySearch(q, p.Search)

	return paginate[models.Job](q, p, jobListSpec, "Property", "Room", "AssignedTo")
}

// Update applies a partial update. A status change appends a history entry.
func (s *JobService) Update(ctx context.Context, jobID string, actorID uint, in UpdateJobInput) (*models.Job, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := lockJob(tx, jobID)
		if err != nil {
			return err
		}

		scheduled := job.ScheduledDate
		if in.ScheduledDate != nil {
			scheduled = in.ScheduledDate.UTC()
		}
		completed := job.CompletedDate
		if in.CompletedDate != nil {
			completed = utcPtr(in.CompletedDate)
		}
		verr := &ValidationError{}
		if in.ScheduledDate != nil || in.CompletedDate != nil {
			checkCompletedAfterScheduled(verr, completed, scheduled)
		}
		checkNonNegative(verr, "estimated_hours", in.EstimatedHours)
		checkNonNegative(verr, "actual_hours", in.ActualHours)
		checkNonNegative(verr, "cost", in.Cost)
		if err := errOrNil(verr); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		setIfPresent(updates, "title", in.Title)
		setIfPresent(updates, "description", in.Description)
		setIfPresent(updates, "status", in.Status)
		setIfPresent(updates, "priority", in.Priority)
		setIfPresent(updates, "type", in.Type)
		setIfPresent(updates, "notes", in.Notes)
		if in.ScheduledDate != nil {
			updates["scheduled_date"] = scheduled
		}
		if in.CompletedDate != nil {
			updates["completed_date"] = completed
		}
		setDecimalIfPresent(updates, "estimated_hours", in.EstimatedHours)
		setDecimalIfPresent(updates, "actual_hours", in.ActualHours)
		setDecimalIfPresent(updates, "cost", in.Cost)

		if err := s.applyReferences(tx, job, in, updates); err != nil {
			return err
		}

		if err := tx.Model(job).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update job: %w", err)
		}

		if in.Status != nil && *in.Status != job.Status {
			previous := job.Status
			desc := fmt.Sprintf("Status changed from %s to %s", previous, *in.Status)
			return recordHistory(tx, job.ID, actorID, HistoryStatusChanged, desc, &previous, in.Status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, jobID)
}

// applyReferences resolves property/room/machine changes and refreshes the snapshot columns
func (s *JobService) applyReferences(tx *gorm.DB, job *models.Job, in UpdateJobInput, updates map[string]interface{}) error {
	var property *models.Property
	var err error
	if in.PropertyID != nil {
		if property, err = findProperty(tx, *in.PropertyID); err != nil {
			return err
		}
		updates["property_id"] = property.ID
	} else {
		if property, err = loadProperty(tx, job.PropertyRefID); err != nil {
			return err
		}
	}
	updates["property_name"] = property.Name

	switch {
	case in.RoomID != nil && *in.RoomID == "":
		updates["room_id"] = nil
		updates["room_name"] = nil
	case in.RoomID != nil:
		room, err := roomInProperty(tx, *in.RoomID, property)
		if err != nil {
			return err
		}
		updates["room_id"] = room.ID
		updates["room_name"] = room.Name
	case job.RoomRefID != nil:
		var room models.Room
		if err := tx.First(&room, *job.RoomRefID).Error; err != nil {
			return lookupError(err, "room", *job.RoomRefID)
		}
		if room.PropertyRefID != property.ID {
			return NewValidationError("room_id", "Room does not belong to the job's property")
		}
		updates["room_name"] = room.Name
	}

	if in.MachineID != nil {
		if *in.MachineID == "" {
			updates["machine_id"] = nil
			return nil
		}
		machine, err := machineInProperty(tx, *in.MachineID, property)
		if err != nil {
			return err
		}
		updates["machine_id"] = machine.MachineID
	}
	return nil
}

// Delete removes a job with its attachments, checklist and history.
// Uploaded files are removed from storage after the rows are gone.
func (s *JobService) Delete(ctx context.Context, jobID string) error {
	var keys []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job models.Job
		if err := tx.Where("job_id = ?", jobID).First(&job).Error; err != nil {
			return lookupError(err, "job", jobID)
		}
		if err := tx.Model(&models.JobAttachment{}).Where("job_id = ? AND file_key IS NOT NULL", job.ID).
			Pluck("file_key", &keys).Error; err != nil {
			return fmt.Errorf("failed to load attachment keys: %w", err)
		}
		return deleteJobs(tx, tx.Model(&models.Job{}).Select("id").Where("id = ?", job.ID))
	})
	if err != nil {
		return err
	}

	if s.files != nil {
		for _, key := range keys {
			if err := s.files.Delete(ctx, key); err != nil {
				log.Printf("warning: failed to delete stored file %s: %v", key, err)
			}
		}
	}
	return nil
}

// Assign sets the assignee and records an "assigned" history entry
func (s *JobService) Assign(ctx context.Context, jobID string, actorID, userID uint) (*models.Job, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := lockJob(tx, jobID)
		if err != nil {
			return err
		}
		user, err := findUser(tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Model(job).Update("assigned_to_id", user.ID).Error; err != nil {
			return fmt.Errorf("failed to assign job: %w", err)
		}
		desc := fmt.Sprintf("Job assigned to %s", user.FullName())
		return recordHistory(tx, job.ID, actorID, HistoryAssigned, desc, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, jobID)
}

// Complete marks the job completed. Each call appends a "completed" history entry.
func (s *JobService) Complete(ctx context.Context, jobID string, actorID uint, in CompleteJobInput) (*models.Job, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := lockJob(tx, jobID)
		if err != nil {
			return err
		}

		completed := timeNow()
		if in.CompletedDate != nil {
			completed = in.CompletedDate.UTC()
		}
		verr := &ValidationError{}
		checkCompletedAfterScheduled(verr, &completed, job.ScheduledDate)
		checkNonNegative(verr, "actual_hours", in.ActualHours)
		checkNonNegative(verr, "cost", in.Cost)
		if err := errOrNil(verr); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status":         models.JobStatusCompleted,
			"completed_date": completed,
		}
		setDecimalIfPresent(updates, "actual_hours", in.ActualHours)
		setDecimalIfPresent(updates, "cost", in.Cost)
		setIfPresent(updates, "notes", in.Notes)
		if err := tx.Model(job).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to complete job: %w", err)
		}

		previous := job.Status
		next := models.JobStatusCompleted
		return recordHistory(tx, job.ID, actorID, HistoryCompleted, "Job completed", &previous, &next)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, jobID)
}

// AddAttachment records metadata for a file stored outside the API
func (s *JobService) AddAttachment(ctx context.Context, jobID string, actorID uint, in AttachmentInput) (*models.JobAttachment, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := utils.ValidateFileSize(in.FileSize); err != nil {
		return nil, NewValidationError("file_size", err.Error())
	}

	attachment := models.JobAttachment{
		FileName:     in.FileName,
		FileURL:      in.FileURL,
		FileType:     in.FileType,
		FileSize:     in.FileSize,
		UploadedByID: actorID,
	}
	if err := s.insertAttachment(ctx, jobID, actorID, &attachment); err != nil {
		return nil, err
	}
	return &attachment, nil
}

// UploadAttachment stores a multipart file and records it as an attachment
func (s *JobService) UploadAttachment(ctx context.Context, jobID string, actorID uint, fh *multipart.FileHeader) (*models.JobAttachment, error) {
	if err := utils.ValidateAttachmentFile(fh); err != nil {
		return nil, NewValidationError("file", err.Error())
	}
	if s.files == nil {
		return nil, errors.New("file storage is not configured")
	}
	if _, err := s.findJob(ctx, jobID); err != nil {
		return nil, err
	}

	stored, err := s.files.UploadAttachment(ctx, "jobs/"+jobID, fh)
	if err != nil {
		return nil, err
	}

	attachment := models.JobAttachment{
		FileName:     stored.Name,
		FileURL:      stored.URL,
		FileKey:      &stored.Key,
		FileType:     stored.ContentType,
		FileSize:     stored.Size,
		UploadedByID: actorID,
	}
	if err := s.insertAttachment(ctx, jobID, actorID, &attachment); err != nil {
		if delErr := s.files.Delete(ctx, stored.Key); delErr != nil {
			log.Printf("warning: failed to remove orphaned upload %s: %v", stored.Key, delErr)
		}
		return nil, err
	}
	return &attachment, nil
}

func (s *JobService) insertAttachment(ctx context.Context, jobID string, actorID uint, attachment *models.JobAttachment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job models.Job
		if err := tx.Where("job_id = ?", jobID).First(&job).Error; err != nil {
			return lookupError(err, "job", jobID)
		}
		attachment.JobID = job.ID
		if err := tx.Create(attachment).Error; err != nil {
			return fmt.Errorf("failed to save attachment: %w", err)
		}
		desc := fmt.Sprintf("Attachment %s added", attachment.FileName)
		return recordHistory(tx, job.ID, actorID, HistoryAttachmentAdded, desc, nil, nil)
	})
}

// ReplaceChecklist validates every item, then swaps the job's checklist in one transaction.
// A rejected request leaves the existing checklist untouched.
func (s *JobService) ReplaceChecklist(ctx context.Context, jobID string, actorID uint, items []ChecklistItemInput) ([]models.JobChecklistItem, error) {
	verr := &ValidationError{}
	validateChecklist(verr, items)
	if err := errOrNil(verr); err != nil {
		return nil, err
	}

	var result []models.JobChecklistItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := lockJob(tx, jobID)
		if err != nil {
			return err
		}
		if err := tx.Where("job_id = ?", job.ID).Delete(&models.JobChecklistItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear checklist: %w", err)
		}
		if err := insertChecklist(tx, job.ID, items, actorID, timeNow()); err != nil {
			return err
		}
		return orderChecklist(tx.Where("job_id = ?", job.ID)).Find(&result).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateChecklistItem edits one item, stamping completed_at on its first completion
func (s *JobService) UpdateChecklistItem(ctx context.Context, jobID string, itemID uint, actorID uint, in ChecklistItemUpdate) (*models.JobChecklistItem, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, NewValidationError("title", "This field may not be blank")
	}

	var item models.JobChecklistItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := lockJob(tx, jobID)
		if err != nil {
			return err
		}
		if err := tx.Where("id = ? AND job_id = ?", itemID, job.ID).First(&item).Error; err != nil {
			return lookupError(err, "checklist_item", itemID)
		}

		if in.Title != nil {
			item.Title = *in.Title
		}
		if in.Description != nil {
			item.Description = in.Description
		}
		if in.Order != nil {
			item.Order = *in.Order
		}
		if in.IsCompleted != nil {
			item.MarkCompleted(*in.IsCompleted, &actorID, timeNow())
		}
		if err := tx.Save(&item).Error; err != nil {
			return fmt.Errorf("failed to update checklist item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// History lists a job's history entries, newest first
func (s *JobService) History(ctx context.Context, jobID string) ([]models.JobHistory, error) {
	job, err := s.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	history := make([]models.JobHistory, 0)
	err = s.db.WithContext(ctx).Preload("PerformedBy").
		Where("job_id = ?", job.ID).
		Order("performed_at DESC").Order("id DESC").
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load job history: %w", err)
	}
	return history, nil
}

func (s *JobService) findJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := s.db.WithContext(ctx).Where("job_id = ?", jobID).First(&job).Error; err != nil {
		return nil, lookupError(err, "job", jobID)
	}
	return &job, nil
}

// resolveAttachmentURLs refreshes the URL of every attachment uploaded through the file store
func (s *JobService) resolveAttachmentURLs(ctx context.Context, attachments []models.JobAttachment) {
	if s.files == nil {
		return
	}
	for i := range attachments {
		key := attachments[i].FileKey
		if key == nil || *key == "" {
			continue
		}
		url, err := s.files.URL(ctx, *key)
		if err != nil {
			log.Printf("warning: failed to resolve URL for %s: %v", *key, err)
			continue
		}
		attachments[i].FileURL = url
	}
}

// lockJob loads a job with a row lock so concurrent writers to the same job are serialized
func lockJob(tx *gorm.DB, jobID string) (*models.Job, error) {
	var job models.Job
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("job_id = ?", jobID).First(&job).Error
	if err != nil {
		return nil, lookupError(err, "job", jobID)
	}
	return &job, nil
}

// deleteJobs removes the jobs selected by ids together with their children
func deleteJobs(tx *gorm.DB, ids *gorm.DB) error {
	for _, child := range []interface{}{&models.JobAttachment{}, &models.JobChecklistItem{}, &models.JobHistory{}} {
		if err := tx.Where("job_id IN (?)", ids).Delete(child).Error; err != nil {
			return fmt.Errorf("failed to delete job children: %w", err)
		}
	}
	if err := tx.Where("id IN (?)", ids).Delete(&models.Job{}).Error; err != nil {
		return fmt.Errorf("failed to delete jobs: %w", err)
	}
	return nil
}

func recordHistory(tx *gorm.DB, jobID, actorID uint, action, description string, previous, next *string) error {
	entry := models.JobHistory{
		JobID:          jobID,
		Action:         action,
		Description:    description,
		PerformedByID:  actorID,
		PreviousStatus: previous,
		NewStatus:      next,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record job history: %w", err)
	}
	return nil
}

func validateChecklist(verr *ValidationError, items []ChecklistItemInput) {
	for i, item := range items {
		if err := validateStruct(item); err != nil {
			var itemErr *ValidationError
			if !errors.As(err, &itemErr) {
				verr.Add(fmt.Sprintf("checklist[%d]", i), err.Error())
				continue
			}
			for field, msg := range itemErr.Fields {
				verr.Add(fmt.Sprintf("checklist[%d].%s", i, field), msg)
			}
			continue
		}
		if strings.TrimSpace(item.Title) == "" {
			verr.Add(fmt.Sprintf("checklist[%d].title", i), "This field may not be blank")
		}
	}
}

func insertChecklist(tx *gorm.DB, jobID uint, items []ChecklistItemInput, actorID uint, now time.Time) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.JobChecklistItem, 0, len(items))
	for i, in := range items {
		row := models.JobChecklistItem{
			JobID:       jobID,
			Title:       in.Title,
			Description: in.Description,
			Order:       i,
		}
		if in.Order != nil {
			row.Order = *in.Order
		}
		row.MarkCompleted(in.IsCompleted, &actorID, now)
		rows = append(rows, row)
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to save checklist: %w", err)
	}
	return nil
}

func orderChecklist(db *gorm.DB) *gorm.DB {
	return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "order"}}).Order("id ASC")
}

func loadProperty(tx *gorm.DB, id uint) (*models.Property, error) {
	var property models.Property
	if err := tx.First(&property, id).Error; err != nil {
		return nil, lookupError(err, "property", id)
	}
	return &property, nil
}

func machineInProperty(tx *gorm.DB, machineID string, property *models.Property) (*models.Machine, error) {
	machine, err := findMachine(tx, machineID)
	if err != nil {
		return nil, err
	}
	if machine.PropertyRefID != property.ID {
		return nil, NewValidationError("machine_id", fmt.Sprintf("Machine %q does not belong to property %q", machineID, property.PropertyID))
	}
	return machine, nil
}

func setDecimalIfPresent(updates map[string]interface{}, column string, value *decimal.Decimal) {
	if value != nil {
		updates[column] = *value
	}
}

func newJobID() string {
	return "JOB-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
