package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/lastnext/maintenance-api/models"
	"gorm.io/gorm"
)

// CreatePropertyInput is the payload for creating a property
type CreatePropertyInput struct {
	PropertyID  string  `json:"property_id" validate:"required,max=50"`
	Name        string  `json:"name" validate:"required,max=200"`
	Address     string  `json:"address"`
	City        string  `json:"city" validate:"max=100"`
	State       string  `json:"state" validate:"max=100"`
	Country     string  `json:"country" validate:"max=100"`
	PostalCode  string  `json:"postal_code" validate:"max=20"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// UpdatePropertyInput is the payload for updating a property; nil fields are left unchanged
type UpdatePropertyInput struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Address     *string `json:"address"`
	City        *string `json:"city" validate:"omitempty,max=100"`
	State       *string `json:"state" validate:"omitempty,max=100"`
	Country     *string `json:"country" validate:"omitempty,max=100"`
	PostalCode  *string `json:"postal_code" validate:"omitempty,max=20"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// PropertyStatistics summarizes what a property owns
type PropertyStatistics struct {
	TotalRooms           int64            `json:"total_rooms"`
	ActiveRooms          int64            `json:"active_rooms"`
	TotalMachines        int64            `json:"total_machines"`
	ActiveMachines       int64            `json:"active_machines"`
	TotalJobs            int64            `json:"total_jobs"`
	CompletedJobs        int64            `json:"completed_jobs"`
	JobsByStatus         map[string]int64 `json:"jobs_by_status"`
	JobCompletionRate    float64          `json:"job_completion_rate"`
	TotalMaintenance     int64            `json:"total_maintenance"`
	CompletedMaintenance int64            `json:"completed_maintenance"`
}

var propertyListSpec = listSpec{
	table:        "properties",
	searchFields: []string{"name", "property_id", "address", "city", "state", "country"},
	ordering: map[string]string{
		"created_at":  "created_at",
		"updated_at":  "updated_at",
		"name":        "name",
		"property_id": "property_id",
	},
}

// PropertyService manages properties
type PropertyService struct {
	db *gorm.DB
}

// NewPropertyService creates a property service backed by db
func NewPropertyService(db *gorm.DB) *PropertyService {
	return &PropertyService{db: db}
}

// Create inserts a property
func (s *PropertyService) Create(ctx context.Context, in CreatePropertyInput) (*models.Property, error) {
	in.PropertyID = strings.TrimSpace(in.PropertyID)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	property := models.Property{
		PropertyID:  in.PropertyID,
		Name:        in.Name,
		Address:     in.Address,
		City:        in.City,
		State:       in.State,
		Country:     in.Country,
		PostalCode:  in.PostalCode,
		Description: in.Description,
		IsActive:    true,
	}
	if in.IsActive != nil {
		property.IsActive = *in.IsActive
	}

	if err := s.db.WithContext(ctx).Create(&property).Error; err != nil {
		return nil, writeError(err, "property", "property_id", property.PropertyID)
	}
	return &property, nil
}

// Get loads a property by its external id
func (s *PropertyService) Get(ctx context.Context, propertyID string) (*models.Property, error) {
	return findProperty(s.db.WithContext(ctx), propertyID)
}

// List returns a page of properties. Filters: is_active.
func (s *PropertyService) List(ctx context.Context, p ListParams) (*Page[models.Property], error) {
	q, err := propertyListSpec.applyBool(s.db.WithContext(ctx).Model(&models.Property{}), p, "is_active", "is_active")
	if err != nil {
		return nil, err
	}
	q = propertyListSpec.applySearch(q, p.Search)
	return paginate[models.Property](q, p, propertyListSpec)
}

// Update changes property fields and refreshes the property_name snapshot on its jobs
func (s *PropertyService) Update(ctx context.Context, propertyID string, in UpdatePropertyInput) (*models.Property, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var property *models.Property
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if property, err = findProperty(tx, propertyID); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		setIfPresent(updates, "name", in.Name)
		setIfPresent(updates, "address", in.Address)
		setIfPresent(updates, "city", in.City)
		setIfPresent(updates, "state", in.State)
		setIfPresent(updates, "country", in.Country)
		setIfPresent(updates, "postal_code", in.PostalCode)
		setIfPresent(updates, "description", in.Description)
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(property).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update property: %w", err)
		}
		if in.Name != nil {
			if err := tx.Model(&models.Job{}).Where("property_id = ?", property.ID).
				Update("property_name", *in.Name).Error; err != nil {
				return fmt.Errorf("failed to refresh job snapshots: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, propertyID)
}

// Delete removes a property with its rooms, machines, jobs and maintenance tasks
func (s *PropertyService) Delete(ctx context.Context, propertyID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		property, err := findProperty(tx, propertyID)
		if err != nil {
			return err
		}

		if err := deleteJobs(tx, tx.Model(&models.Job{}).Select("id").Where("property_id = ?", property.ID)); err != nil {
			return err
		}
		if err := deleteMaintenance(tx, tx.Model(&models.PreventiveMaintenance{}).Select("id").Where("property_id = ?", property.ID)); err != nil {
			return err
		}
		machineIDs := tx.Model(&models.Machine{}).Select("id").Where("property_id = ?", property.ID)
		if err := tx.Exec("DELETE FROM preventive_maintenance_machines WHERE machine_id IN (?)", machineIDs).Error; err != nil {
			return fmt.Errorf("failed to delete machine links: %w", err)
		}
		if err := tx.Where("property_id = ?", property.ID).Delete(&models.Machine{}).Error; err != nil {
			return fmt.Errorf("failed to delete machines: %w", err)
		}
		if err := tx.Where("property_id = ?", property.ID).Delete(&models.Room{}).Error; err != nil {
			return fmt.Errorf("failed to delete rooms: %w", err)
		}
		if err := tx.Delete(property).Error; err != nil {
			return fmt.Errorf("failed to delete property: %w", err)
		}
		return nil
	})
}

// Statistics summarizes one property
func (s *PropertyService) Statistics(ctx context.Context, propertyID string) (*PropertyStatistics, error) {
	db := s.db.WithContext(ctx)
	property, err := findProperty(db, propertyID)
	if err != nil {
		return nil, err
	}

	stats := &PropertyStatistics{}
	counts := []struct {
		dest  *int64
		model interface{}
		where string
		args  []interface{}
	}{
		{&stats.TotalRooms, &models.Room{}, "property_id = ?", []interface{}{property.ID}},
		{&stats.ActiveRooms, &models.Room{}, "property_id = ? AND is_active = ?", []interface{}{property.ID, true}},
		{&stats.TotalMachines, &models.Machine{}, "property_id = ?", []interface{}{property.ID}},
		{&stats.ActiveMachines, &models.Machine{}, "property_id = ? AND is_active = ?", []interface{}{property.ID, true}},
		{&stats.TotalMaintenance, &models.PreventiveMaintenance{}, "property_id = ?", []interface{}{property.ID}},
		{&stats.CompletedMaintenance, &models.PreventiveMaintenance{}, "property_id = ? AND completed_date IS NOT NULL", []interface{}{property.ID}},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where(c.where, c.args...).Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to compute property statistics: %w", err)
		}
	}

	if stats.JobsByStatus, err = countByStatus(db.Model(&models.Job{}).Where("property_id = ?", property.ID)); err != nil {
		return nil, err
	}
	for _, n := range stats.JobsByStatus {
		stats.TotalJobs += n
	}
	stats.CompletedJobs = stats.JobsByStatus[models.JobStatusCompleted]
	stats.JobCompletionRate = completionRate(stats.CompletedJobs, stats.TotalJobs)
	return stats, nil
}

func setIfPresent(updates map[string]interface{}, column string, value *string) {
	if value != nil {
		updates[column] = *value
	}
}
