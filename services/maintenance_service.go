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
	"gorm.io/gorm"
)

// CreateMaintenanceInput is the payload for scheduling a preventive maintenance task
type CreateMaintenanceInput struct {
	PMID          *string    `json:"pm_id" validate:"omitempty,max=50"`
	PMTitle       string     `json:"pmtitle" validate:"required,max=200"`
	ScheduledDate *time.Time `json:"scheduled_date" validate:"required"`
	Frequency     string     `json:"frequency" validate:"required,oneof=daily weekly biweekly monthly quarterly biannually annually custom"`
	CustomDays    *int       `json:"custom_days" validate:"omitempty,gt=0"`
	Notes         *string    `json:"notes"`
	Procedure     *string    `json:"procedure"`
	PropertyID    string     `json:"property_id" validate:"required"`
	RoomID        *string    `json:"room_id"`
	MachineIDs    []string   `json:"machine_ids"`
	TopicIDs      []uint     `json:"topic_ids"`
}

// UpdateMaintenanceInput is the payload for updating a task; nil fields are left unchanged.
// machine_ids and topic_ids replace the whole association when present.
type UpdateMaintenanceInput struct {
	PMTitle       *string    `json:"pmtitle" validate:"omitempty,max=200"`
	ScheduledDate *time.Time `json:"scheduled_date"`
	CompletedDate *time.Time `json:"completed_date"`
	Frequency     *string    `json:"frequency" validate:"omitempty,oneof=daily weekly biweekly monthly quarterly biannually annually custom"`
	CustomDays    *int       `json:"custom_days" validate:"omitempty,gt=0"`
	Status        *string    `json:"status" validate:"omitempty,oneof=pending completed overdue"`
	Notes         *string    `json:"notes"`
	Procedure     *string    `json:"procedure"`
	RoomID        *string    `json:"room_id"`
	MachineIDs    *[]string  `json:"machine_ids"`
	TopicIDs      *[]uint    `json:"topic_ids"`
}

// CompleteMaintenanceInput is the payload for completing a task
type CompleteMaintenanceInput struct {
	CompletedDate *time.Time `json:"completed_date"`
	Notes         *string    `json:"notes"`
}

// FrequencyCount is one bucket of the frequency distribution
type FrequencyCount struct {
	Frequency string `json:"frequency"`
	Count     int64  `json:"count"`
}

// MachineCount is the number of tasks linked to one machine
type MachineCount struct {
	MachineID string `json:"machine_id"`
	Name      string `json:"name"`
	Count     int64  `json:"count"`
}

// MaintenanceStatistics summarizes preventive maintenance across all properties
type MaintenanceStatistics struct {
	Total                 int64            `json:"total"`
	Completed             int64            `json:"completed"`
	Pending               int64            `json:"pending"`
	Overdue               int64            `json:"overdue"`
	CompletionRate        float64          `json:"completion_rate"`
	FrequencyDistribution []FrequencyCount `json:"frequency_distribution"`
	MachineDistribution   []MachineCount   `json:"machine_distribution"`
}

var maintenanceListSpec = listSpec{
	table:        "preventive_maintenances",
	searchFields: []string{"pm_id", "pmtitle", "notes"},
	ordering: map[string]string{
		"created_at":     "created_at",
		"updated_at":     "updated_at",
		"scheduled_date": "scheduled_date",
		"completed_date": "completed_date",
		"next_due_date":  "next_due_date",
		"status":         "status",
		"pmtitle":        "pmtitle",
	},
}

// MaintenanceService manages preventive maintenance tasks
type MaintenanceService struct {
	db    *gorm.DB
	files FileService
}

// NewMaintenanceService creates a maintenance service. files may be nil when images are not needed.
func NewMaintenanceService(db *gorm.DB, files FileService) *MaintenanceService {
	return &MaintenanceService{db: db, files: files}
}

// Create schedules a task and links its machines and topics
func (s *MaintenanceService) Create(ctx context.Context, in CreateMaintenanceInput) (*models.PreventiveMaintenance, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := checkCustomDays(in.Frequency, in.CustomDays); err != nil {
		return nil, err
	}

	pm := models.PreventiveMaintenance{
		PMTitle:       in.PMTitle,
		ScheduledDate: in.ScheduledDate.UTC(),
		Frequency:     in.Frequency,
		CustomDays:    in.CustomDays,
		Status:        models.MaintenanceStatusPending,
		Notes:         in.Notes,
		Procedure:     in.Procedure,
	}
	if in.PMID != nil && strings.TrimSpace(*in.PMID) != "" {
		pm.PMID = strings.TrimSpace(*in.PMID)
	} else {
		pm.PMID = newPMID()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		property, err := findProperty(tx, in.PropertyID)
		if err != nil {
			return err
		}
		pm.PropertyRefID = property.ID
		if in.RoomID != nil && *in.RoomID != "" {
			room, err := roomInProperty(tx, *in.RoomID, property)
			if err != nil {
				return err
			}
			pm.RoomRefID = &room.ID
		}
		if pm.Machines, err = machinesInProperty(tx, in.MachineIDs, property); err != nil {
			return err
		}
		if pm.Topics, err = findTopics(tx, in.TopicIDs); err != nil {
			return err
		}
		if err := tx.Create(&pm).Error; err != nil {
			return writeError(err, "maintenance", "pm_id", pm.PMID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, pm.PMID)
}

// Get loads a task with property, room, machines and topics, resolving image URLs
func (s *MaintenanceService) Get(ctx context.Context, pmID string) (*models.PreventiveMaintenance, error) {
	var pm models.PreventiveMaintenance
	err := s.db.WithContext(ctx).
		Preload("Property").Preload("Room").Preload("Machines").Preload("Topics").
		Where("pm_id = ?", pmID).First(&pm).Error
	if err != nil {
		return nil, lookupError(err, "maintenance", pmID)
	}
	s.resolveImageURLs(ctx, &pm)
	return &pm, nil
}

// List returns a page of tasks.
// Filters: status, frequency, property_id, room_id, machine_id, topic_id,
// scheduled_date_after/before, next_due_date_after/before, created_at_after/before.
func (s *MaintenanceService) List(ctx context.Context, p ListParams) (*Page[models.PreventiveMaintenance], error) {
	q := s.db.WithContext(ctx).Model(&models.PreventiveMaintenance{})
	q = maintenanceListSpec.applyExact(q, p, map[string]string{
		"status":    "status",
		"frequency": "frequency",
	})
	if v := p.Filter("property_id"); v != "" {
		q = q.Where("preventive_maintenances.property_id IN (?)", s.db.Model(&models.Property{}).Select("id").Where("property_id = ?", v))
	}
	if v := p.Filter("room_id"); v != "" {
		q = q.Where("preventive_maintenances.room_id IN (?)", s.db.Model(&models.Room{}).Select("id").Where("room_id = ?", v))
	}
	if v := p.Filter("machine_id"); v != "" {
		q = q.Where("preventive_maintenances.id IN (?)", s.db.Table("preventive_maintenance_machines").
			Select("preventive_maintenance_id").
			Where("machine_id IN (?)", s.db.Model(&models.Machine{}).Select("id").Where("machine_id = ?", v)))
	}
	if v := p.Filter("topic_id"); v != "" {
		q = q.Where("preventive_maintenances.id IN (?)", s.db.Table("preventive_maintenance_topics").
			Select("preventive_maintenance_id").Where("topic_id = ?", v))
	}

	var err error
	for _, name := range []string{"scheduled_date", "next_due_date", "created_at"} {
		if q, err = maintenanceListSpec.applyDateRange(q, p, name, name); err != nil {
			return nil, err
		}
	}
	q = maintenanceListSpec.applySearch(q, p.Search)

	page, err := paginate[models.PreventiveMaintenance](q, p, maintenanceListSpec, "Property", "Room", "Machines", "Topics")
	if err != nil {
		return nil, err
	}
	for i := range page.Items {
		s.resolveImageURLs(ctx, &page.Items[i])
	}
	return page, nil
}

// Update applies a partial update and replaces machine/topic links when given
func (s *MaintenanceService) Update(ctx context.Context, pmID string, in UpdateMaintenanceInput) (*models.PreventiveMaintenance, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pm, err := findMaintenance(tx, pmID)
		if err != nil {
			return err
		}

		frequency := pm.Frequency
		if in.Frequency != nil {
			frequency = *in.Frequency
		}
		customDays := pm.CustomDays
		if in.CustomDays != nil {
			customDays = in.CustomDays
		}
		if err := checkCustomDays(frequency, customDays); err != nil {
			return err
		}

		scheduled := pm.ScheduledDate
		if in.ScheduledDate != nil {
			scheduled = in.ScheduledDate.UTC()
		}
		completed := pm.CompletedDate
		if in.CompletedDate != nil {
			completed = utcPtr(in.CompletedDate)
		}
		verr := &ValidationError{}
		if in.ScheduledDate != nil || in.CompletedDate != nil {
			checkCompletedAfterScheduled(verr, completed, scheduled)
		}
		if err := errOrNil(verr); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		setIfPresent(updates, "pmtitle", in.PMTitle)
		setIfPresent(updates, "frequency", in.Frequency)
		setIfPresent(updates, "status", in.Status)
		setIfPresent(updates, "notes", in.Notes)
		setIfPresent(updates, "procedure", in.Procedure)
		if in.CustomDays != nil {
			updates["custom_days"] = *in.CustomDays
		}
		if in.ScheduledDate != nil {
			updates["scheduled_date"] = scheduled
		}
		if in.CompletedDate != nil {
			updates["completed_date"] = completed
		}

		property, err := loadProperty(tx, pm.PropertyRefID)
		if err != nil {
			return err
		}
		if in.RoomID != nil {
			if *in.RoomID == "" {
				updates["room_id"] = nil
			} else {
				room, err := roomInProperty(tx, *in.RoomID, property)
				if err != nil {
					return err
				}
				updates["room_id"] = room.ID
			}
		}

		if len(updates) > 0 {
			if err := tx.Model(pm).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update maintenance: %w", err)
			}
		}
		if in.MachineIDs != nil {
			machines, err := machinesInProperty(tx, *in.MachineIDs, property)
			if err != nil {
				return err
			}
			if err := replaceAssociation(tx, pm, "Machines", machines); err != nil {
				return err
			}
		}
		if in.TopicIDs != nil {
			topics, err := findTopics(tx, *in.TopicIDs)
			if err != nil {
				return err
			}
			if err := replaceAssociation(tx, pm, "Topics", topics); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, pmID)
}

// Delete removes a task and its links. Stored images are removed afterwards.
func (s *MaintenanceService) Delete(ctx context.Context, pmID string) error {
	var pm *models.PreventiveMaintenance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if pm, err = findMaintenance(tx, pmID); err != nil {
			return err
		}
		return deleteMaintenance(tx, tx.Model(&models.PreventiveMaintenance{}).Select("id").Where("id = ?", pm.ID))
	})
	if err != nil {
		return err
	}
	s.deleteImages(ctx, pm.BeforeImageKey, pm.AfterImageKey)
	return nil
}

// Complete marks a task completed, computes its next due date and updates the
// maintenance bookkeeping of every linked machine. An optional after image is stored.
func (s *MaintenanceService) Complete(ctx context.Context, pmID string, in CompleteMaintenanceInput, afterImage *multipart.FileHeader) (*models.PreventiveMaintenance, error) {
	var stored *StoredFile
	if afterImage != nil {
		var err error
		if stored, err = s.uploadImage(ctx, pmID, "after", "after_image", afterImage); err != nil {
			return nil, err
		}
	}

	var replaced *string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pm, err := findMaintenance(tx, pmID)
		if err != nil {
			return err
		}
		if pm.Status == models.MaintenanceStatusCompleted {
			return NewValidationError("status", "Maintenance task is already completed")
		}

		completed := timeNow()
		if in.CompletedDate != nil {
			completed = in.CompletedDate.UTC()
		}
		verr := &ValidationError{}
		checkCompletedAfterScheduled(verr, &completed, pm.ScheduledDate)
		if err := errOrNil(verr); err != nil {
			return err
		}
		updates := map[string]interface{}{
			"status":         models.MaintenanceStatusCompleted,
			"completed_date": completed,
		}
		setIfPresent(updates, "notes", in.Notes)

		next, ok := models.NextDueDate(pm.Frequency, pm.CustomDays, completed)
		if ok {
			updates["next_due_date"] = next
		}
		if stored != nil {
			replaced = pm.AfterImageKey
			updates["after_image_key"] = stored.Key
		}
		if err := tx.Model(pm).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to complete maintenance: %w", err)
		}

		machineUpdates := map[string]interface{}{
			"maintenance_count":     gorm.Expr("maintenance_count + ?", 1),
			"last_maintenance_date": completed,
		}
		if ok {
			machineUpdates["next_maintenance_date"] = next
		}
		linked := tx.Table("preventive_maintenance_machines").Select("machine_id").Where("preventive_maintenance_id = ?", pm.ID)
		if err := tx.Model(&models.Machine{}).Where("id IN (?)", linked).Updates(machineUpdates).Error; err != nil {
			return fmt.Errorf("failed to update machines: %w", err)
		}
		return nil
	})
	if err != nil {
		if stored != nil {
			s.deleteImages(ctx, &stored.Key)
		}
		return nil, err
	}
	s.deleteImages(ctx, replaced)
	return s.Get(ctx, pmID)
}

// UploadImages stores before and/or after images for a task, replacing previous ones
func (s *MaintenanceService) UploadImages(ctx context.Context, pmID string, before, after *multipart.FileHeader) (*models.PreventiveMaintenance, error) {
	if before == nil && after == nil {
		return nil, NewValidationError("images", "Provide before_image or after_image")
	}
	if _, err := findMaintenance(s.db.WithContext(ctx), pmID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	var uploaded []*string
	for _, img := range []struct {
		fh     *multipart.FileHeader
		stage  string
		field  string
		column string
	}{
		{before, "before", "before_image", "before_image_key"},
		{after, "after", "after_image", "after_image_key"},
	} {
		if img.fh == nil {
			continue
		}
		stored, err := s.uploadImage(ctx, pmID, img.stage, img.field, img.fh)
		if err != nil {
			s.deleteImages(ctx, uploaded...)
			return nil, err
		}
		uploaded = append(uploaded, &stored.Key)
		updates[img.column] = stored.Key
	}

	var replaced []*string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pm, err := findMaintenance(tx, pmID)
		if err != nil {
			return err
		}
		if _, ok := updates["before_image_key"]; ok {
			replaced = append(replaced, pm.BeforeImageKey)
		}
		if _, ok := updates["after_image_key"]; ok {
			replaced = append(replaced, pm.AfterImageKey)
		}
		if err := tx.Model(pm).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to save image keys: %w", err)
		}
		return nil
	})
	if err != nil {
		s.deleteImages(ctx, uploaded...)
		return nil, err
	}
	s.deleteImages(ctx, replaced...)
	return s.Get(ctx, pmID)
}

// Statistics summarizes every task. Pending tasks past their scheduled date count as overdue.
func (s *MaintenanceService) Statistics(ctx context.Context) (*MaintenanceStatistics, error) {
	db := s.db.WithContext(ctx)
	now := timeNow()
	stats := &MaintenanceStatistics{
		FrequencyDistribution: make([]FrequencyCount, 0),
		MachineDistribution:   make([]MachineCount, 0),
	}

	model := &models.PreventiveMaintenance{}
	if err := db.Model(model).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count maintenance: %w", err)
	}
	if err := db.Model(model).Where("status = ?", models.MaintenanceStatusCompleted).Count(&stats.Completed).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed maintenance: %w", err)
	}
	if err := db.Model(model).
		Where("status = ? OR (status = ? AND scheduled_date < ?)", models.MaintenanceStatusOverdue, models.MaintenanceStatusPending, now).
		Count(&stats.Overdue).Error; err != nil {
		return nil, fmt.Errorf("failed to count overdue maintenance: %w", err)
	}
	if err := db.Model(model).
		Where("status = ? AND scheduled_date >= ?", models.MaintenanceStatusPending, now).
		Count(&stats.Pending).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending maintenance: %w", err)
	}
	stats.CompletionRate = completionRate(stats.Completed, stats.Total)

	if err := db.Model(model).Select("frequency, COUNT(*) AS count").
		Group("frequency").Order("frequency").Scan(&stats.FrequencyDistribution).Error; err != nil {
		return nil, fmt.Errorf("failed to compute frequency distribution: %w", err)
	}
	if err := db.Table("preventive_maintenance_machines AS pmm").
		Select("machines.machine_id AS machine_id, machines.name AS name, COUNT(*) AS count").
		Joins("JOIN machines ON machines.id = pmm.machine_id").
		Group("machines.machine_id, machines.name").
		Order("count DESC").Order("machines.machine_id").
		Scan(&stats.MachineDistribution).Error; err != nil {
		return nil, fmt.Errorf("failed to compute machine distribution: %w", err)
	}
	return stats, nil
}

// MarkOverdue flips pending tasks whose scheduled date has passed to overdue
func (s *MaintenanceService) MarkOverdue(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.PreventiveMaintenance{}).
		Where("status = ? AND scheduled_date < ?", models.MaintenanceStatusPending, timeNow()).
		Update("status", models.MaintenanceStatusOverdue)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark overdue maintenance: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *MaintenanceService) uploadImage(ctx context.Context, pmID, stage, field string, fh *multipart.FileHeader) (*StoredFile, error) {
	if err := utils.ValidateImageFile(fh); err != nil {
		return nil, NewValidationError(field, err.Error())
	}
	if s.files == nil {
		return nil, errors.New("file storage is not configured")
	}
	return s.files.UploadImage(ctx, fmt.Sprintf("maintenance/%s/%s", pmID, stage), fh)
}

func (s *MaintenanceService) resolveImageURLs(ctx context.Context, pm *models.PreventiveMaintenance) {
	if s.files == nil {
		return
	}
	pm.BeforeImageURL = s.imageURL(ctx, pm.BeforeImageKey)
	pm.AfterImageURL = s.imageURL(ctx, pm.AfterImageKey)
}

func (s *MaintenanceService) imageURL(ctx context.Context, key *string) *string {
	if key == nil || *key == "" {
		return nil
	}
	url, err := s.files.URL(ctx, *key)
	if err != nil {
		log.Printf("warning: failed to resolve URL for %s: %v", *key, err)
		return nil
	}
	return &url
}

func (s *MaintenanceService) deleteImages(ctx context.Context, keys ...*string) {
	if s.files == nil {
		return
	}
	for _, key := range keys {
		if key == nil || *key == "" {
			continue
		}
		if err := s.files.Delete(ctx, *key); err != nil {
			log.Printf("warning: failed to delete stored image %s: %v", *key, err)
		}
	}
}

func findMaintenance(db *gorm.DB, pmID string) (*models.PreventiveMaintenance, error) {
	var pm models.PreventiveMaintenance
	if err := db.Where("pm_id = ?", pmID).First(&pm).Error; err != nil {
		return nil, lookupError(err, "maintenance", pmID)
	}
	return &pm, nil
}

// machinesInProperty loads machines by external id; all must exist and belong to property
func machinesInProperty(tx *gorm.DB, machineIDs []string, property *models.Property) ([]models.Machine, error) {
	machines := make([]models.Machine, 0, len(machineIDs))
	for _, id := range machineIDs {
		machine, err := machineInProperty(tx, id, property)
		if err != nil {
			return nil, err
		}
		machines = append(machines, *machine)
	}
	return machines, nil
}

func findTopics(tx *gorm.DB, ids []uint) ([]models.Topic, error) {
	topics := make([]models.Topic, 0, len(ids))
	for _, id := range ids {
		var topic models.Topic
		if err := tx.First(&topic, id).Error; err != nil {
			return nil, lookupError(err, "topic", id)
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

func replaceAssociation(tx *gorm.DB, pm *models.PreventiveMaintenance, name string, values interface{}) error {
	assoc := tx.Model(pm).Association(name)
	var err error
	switch v := values.(type) {
	case []models.Machine:
		if len(v) == 0 {
			err = assoc.Clear()
		} else {
			err = assoc.Replace(v)
		}
	case []models.Topic:
		if len(v) == 0 {
			err = assoc.Clear()
		} else {
			err = assoc.Replace(v)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to replace %s: %w", strings.ToLower(name), err)
	}
	return nil
}

// checkCustomDays requires a positive custom_days for the custom frequency
func checkCustomDays(frequency string, customDays *int) error {
	if frequency == models.FrequencyCustom && (customDays == nil || *customDays <= 0) {
		return NewValidationError("custom_days", "Custom days is required when frequency is custom")
	}
	return nil
}

// deleteMaintenance removes the tasks selected by ids together with their links
func deleteMaintenance(tx *gorm.DB, ids *gorm.DB) error {
	for _, table := range []string{"preventive_maintenance_machines", "preventive_maintenance_topics"} {
		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE preventive_maintenance_id IN (?)", table), ids).Error; err != nil {
			return fmt.Errorf("failed to delete maintenance links: %w", err)
		}
	}
	if err := tx.Where("id IN (?)", ids).Delete(&models.PreventiveMaintenance{}).Error; err != nil {
		return fmt.Errorf("failed to delete maintenance: %w", err)
	}
	return nil
}

func newPMID() string {
	return "PM-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
