package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/lastnext/maintenance-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateRoomInput is the payload for creating a room
type CreateRoomInput struct {
	RoomID      string           `json:"room_id" validate:"required,max=50"`
	Name        string           `json:"name" validate:"required,max=200"`
	Description *string          `json:"description"`
	Floor       string           `json:"floor" validate:"max=50"`
	Area        *decimal.Decimal `json:"area"`
	PropertyID  string           `json:"property_id" validate:"required"`
	IsActive    *bool            `json:"is_active"`
}

// UpdateRoomInput is the payload for updating a room; nil fields are left unchanged
type UpdateRoomInput struct {
	Name        *string          `json:"name" validate:"omitempty,max=200"`
	Description *string          `json:"description"`
	Floor       *string          `json:"floor" validate:"omitempty,max=50"`
	Area        *decimal.Decimal `json:"area"`
	PropertyID  *string          `json:"property_id"`
	IsActive    *bool            `json:"is_active"`
}

// RoomStatistics summarizes the machines, jobs and maintenance of a room
type RoomStatistics struct {
	TotalMachines        int64            `json:"total_machines"`
	ActiveMachines       int64            `json:"active_machines"`
	TotalJobs            int64            `json:"total_jobs"`
	CompletedJobs        int64            `json:"completed_jobs"`
	JobsByStatus         map[string]int64 `json:"jobs_by_status"`
	JobCompletionRate    float64          `json:"job_completion_rate"`
	TotalMaintenance     int64            `json:"total_maintenance"`
	CompletedMaintenance int64            `json:"completed_maintenance"`
}

var roomListSpec = listSpec{
	table:        "rooms",
	searchFields: []string{"name", "room_id", "description"},
	ordering: map[string]string{
		"created_at": "created_at",
		"updated_at": "updated_at",
		"name":       "name",
		"room_id":    "room_id",
		"floor":      "floor",
	},
}

// RoomService manages rooms
type RoomService struct {
	db *gorm.DB
}

// NewRoomService creates a room service backed by db
func NewRoomService(db *gorm.DB) *RoomService {
	return &RoomService{db: db}
}

// Create inserts a room under an existing property
func (s *RoomService) Create(ctx context.Context, in CreateRoomInput) (*models.Room, error) {
	in.RoomID = strings.TrimSpace(in.RoomID)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	verr := &ValidationError{}
	checkNonNegative(verr, "area", in.Area)
	if err := errOrNil(verr); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	property, err := findProperty(db, in.PropertyID)
	if err != nil {
		return nil, err
	}

	room := models.Room{
		RoomID:        in.RoomID,
		Name:          in.Name,
		Description:   in.Description,
		Floor:         in.Floor,
		Area:          in.Area,
		PropertyRefID: property.ID,
		IsActive:      true,
	}
	if in.IsActive != nil {
		room.IsActive = *in.IsActive
	}
	if err := db.Create(&room).Error; err != nil {
		return nil, writeError(err, "room", "room_id", room.RoomID)
	}
	room.Property = property
	return &room, nil
}

// Get loads a room and its property by the room's external id
func (s *RoomService) Get(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).Preload("Property").Where("room_id = ?", roomID).First(&room).Error; err != nil {
		return nil, lookupError(err, "room", roomID)
	}
	return &room, nil
}

// List returns a page of rooms. Filters: property_id, is_active, floor.
func (s *RoomService) List(ctx context.Context, p ListParams) (*Page[models.Room], error) {
	q := s.db.WithContext(ctx).Model(&models.Room{})
	if v := p.Filter("property_id"); v != "" {
		q = q.Where("rooms.property_id IN (?)", s.db.Model(&models.Property{}).Select("id").Where("property_id = ?", v))
	}
	q = roomListSpec.applyExact(q, p, map[string]string{"floor": "floor"})
	q, err := roomListSpec.applyBool(q, p, "is_active", "is_active")
	if err != nil {
		return nil, err
	}
	q = roomListSpec.applySearch(q, p.Search)
	return paginate[models.Room](q, p, roomListSpec, "Property")
}

// Update changes room fields and refreshes the room_name snapshot on its jobs
func (s *RoomService) Update(ctx context.Context, roomID string, in UpdateRoomInput) (*models.Room, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	verr := &ValidationError{}
	checkNonNegative(verr, "area", in.Area)
	if err := errOrNil(verr); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := findRoom(tx, roomID)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		setIfPresent(updates, "name", in.Name)
		setIfPresent(updates, "description", in.Description)
		setIfPresent(updates, "floor", in.Floor)
		setDecimalIfPresent(updates, "area", in.Area)
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if in.PropertyID != nil {
			property, err := findProperty(tx, *in.PropertyID)
			if err != nil {
				return err
			}
			if property.ID != room.PropertyRefID {
				if err := checkRoomMovable(tx, room); err != nil {
					return err
				}
			}
			updates["property_id"] = property.ID
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(room).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update room: %w", err)
		}
		if in.Name != nil {
			if err := tx.Model(&models.Job{}).Where("room_id = ?", room.ID).
				Update("room_name", *in.Name).Error; err != nil {
				return fmt.Errorf("failed to refresh job snapshots: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, roomID)
}

// checkRoomMovable rejects a property change while jobs, machines or maintenance tasks still sit in the room
func checkRoomMovable(tx *gorm.DB, room *models.Room) error {
	for _, model := range []interface{}{&models.Job{}, &models.Machine{}, &models.PreventiveMaintenance{}} {
		var count int64
		if err := tx.Model(model).Where("room_id = ?", room.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count room dependents: %w", err)
		}
		if count > 0 {
			return NewValidationError("property_id", "Room still has jobs, machines or maintenance tasks on its current property")
		}
	}
	return nil
}

// Delete removes a room. Machines, jobs and maintenance tasks in it lose their room reference.
func (s *RoomService) Delete(ctx context.Context, roomID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := findRoom(tx, roomID)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Machine{}).Where("room_id = ?", room.ID).Update("room_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach machines: %w", err)
		}
		if err := tx.Model(&models.Job{}).Where("room_id = ?", room.ID).
			Updates(map[string]interface{}{"room_id": nil, "room_name": nil}).Error; err != nil {
			return fmt.Errorf("failed to detach jobs: %w", err)
		}
		if err := tx.Model(&models.PreventiveMaintenance{}).Where("room_id = ?", room.ID).Update("room_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach maintenance tasks: %w", err)
		}
		if err := tx.Delete(room).Error; err != nil {
			return fmt.Errorf("failed to delete room: %w", err)
		}
		return nil
	})
}

// Statistics summarizes one room
func (s *RoomService) Statistics(ctx context.Context, roomID string) (*RoomStatistics, error) {
	db := s.db.WithContext(ctx)
	room, err := findRoom(db, roomID)
	if err != nil {
		return nil, err
	}

	stats := &RoomStatistics{}
	counts := []struct {
		dest  *int64
		model interface{}
		where string
		args  []interface{}
	}{
		{&stats.TotalMachines, &models.Machine{}, "room_id = ?", []interface{}{room.ID}},
		{&stats.ActiveMachines, &models.Machine{}, "room_id = ? AND is_active = ?", []interface{}{room.ID, true}},
		{&stats.TotalMaintenance, &models.PreventiveMaintenance{}, "room_id = ?", []interface{}{room.ID}},
		{&stats.CompletedMaintenance, &models.PreventiveMaintenance{}, "room_id = ? AND completed_date IS NOT NULL", []interface{}{room.ID}},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where(c.where, c.args...).Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to compute room statistics: %w", err)
		}
	}

	if stats.JobsByStatus, err = countByStatus(db.Model(&models.Job{}).Where("room_id = ?", room.ID)); err != nil {
		return nil, err
	}
	for _, n := range stats.JobsByStatus {
		stats.TotalJobs += n
	}
	stats.CompletedJobs = stats.JobsByStatus[models.JobStatusCompleted]
	stats.JobCompletionRate = completionRate(stats.CompletedJobs, stats.TotalJobs)
	return stats, nil
}
