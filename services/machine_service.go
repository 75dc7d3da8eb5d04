package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lastnext/maintenance-api/models"
	"gorm.io/gorm"
)

// CreateMachineInput is the payload for creating a machine
type CreateMachineInput struct {
	MachineID           string     `json:"machine_id" validate:"required,max=50"`
	Name                string     `json:"name" validate:"required,max=100"`
	Status              *string    `json:"status" validate:"omitempty,max=20"`
	PropertyID          string     `json:"property_id" validate:"required"`
	RoomID              *string    `json:"room_id"`
	Description         *string    `json:"description"`
	Procedure           *string    `json:"procedure"`
	NextMaintenanceDate *time.Time `json:"next_maintenance_date"`
	IsActive            *bool      `json:"is_active"`
}

// UpdateMachineInput is the payload for updating a machine; nil fields are left unchanged.
// An empty room_id detaches the machine from its room.
type UpdateMachineInput struct {
	Name                *string    `json:"name" validate:"omitempty,max=100"`
	Status              *string    `json:"status" validate:"omitempty,max=20"`
	PropertyID          *string    `json:"property_id"`
	RoomID              *string    `json:"room_id"`
	Description         *string    `json:"description"`
	Procedure           *string    `json:"procedure"`
	NextMaintenanceDate *time.Time `json:"next_maintenance_date"`
	IsActive            *bool      `json:"is_active"`
}

var machineListSpec = listSpec{
	table:        "machines",
	searchFields: []string{"name", "machine_id", "description"},
	ordering: map[string]string{
		"created_at":            "created_at",
		"updated_at":            "updated_at",
		"name":                  "name",
		"machine_id":            "machine_id",
		"status":                "status",
		"next_maintenance_date": "next_maintenance_date",
		"maintenance_count":     "maintenance_count",
	},
}

// MachineService manages machines
type MachineService struct {
	db *gorm.DB
}

// NewMachineService creates a machine service backed by db
func NewMachineService(db *gorm.DB) *MachineService {
	return &MachineService{db: db}
}

// Create inserts a machine under a property and optionally a room of that property
func (s *MachineService) Create(ctx context.Context, in CreateMachineInput) (*models.Machine, error) {
	in.MachineID = strings.TrimSpace(in.MachineID)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		property, err := findProperty(tx, in.PropertyID)
		if err != nil {
			return err
		}
		machine := models.Machine{
			MachineID:           in.MachineID,
			Name:                in.Name,
			Status:              "active",
			PropertyRefID:       property.ID,
			Description:         in.Description,
			Procedure:           in.Procedure,
			NextMaintenanceDate: utcPtr(in.NextMaintenanceDate),
			IsActive:            true,
		}
		if in.Status != nil && *in.Status != "" {
			machine.Status = *in.Status
		}
		if in.IsActive != nil {
			machine.IsActive = *in.IsActive
		}
		if in.RoomID != nil && *in.RoomID != "" {
			room, err := roomInProperty(tx, *in.RoomID, property)
			if err != nil {
				return err
			}
			machine.RoomRefID = &room.ID
		}
		if err := tx.Create(&machine).Error; err != nil {
			return writeError(err, "machine", "machine_id", machine.MachineID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, in.MachineID)
}

// Get loads a machine with its property and room
func (s *MachineService) Get(ctx context.Context, machineID string) (*models.Machine, error) {
	var machine models.Machine
	err := s.db.WithContext(ctx).Preload("Property").Preload("Room").
		Where("machine_id = ?", machineID).First(&machine).Error
	if err != nil {
		return nil, lookupError(err, "machine", machineID)
	}
	return &machine, nil
}

// List returns a page of machines. Filters: status, property_id, room_id, is_active.
func (s *MachineService) List(ctx context.Context, p ListParams) (*Page[models.Machine], error) {
	q := s.db.WithContext(ctx).Model(&models.Machine{})
	q = machineListSpec.applyExact(q, p, map[string]string{"status": "status"})
	if v := p.Filter("property_id"); v != "" {
		q = q.Where("machines.property_id IN (?)", s.db.Model(&models.Property{}).Select("id").Where("property_id = ?", v))
	}
	if v := p.Filter("room_id"); v != "" {
		q = q.Where("machines.room_id IN (?)", s.db.Model(&models.Room{}).Select("id").Where("room_id = ?", v))
	}
	q, err := machineListSpec.applyBool(q, p, "is_active", "is_active")
	if err != nil {
		return nil, err
	}
	q = machineListSpec.applySearch(q, p.Search)
	return paginate[models.Machine](q, p, machineListSpec, "Property", "Room")
}

// Update changes machine fields. Moving to another property requires the room to follow.
func (s *MachineService) Update(ctx context.Context, machineID string, in UpdateMachineInput) (*models.Machine, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		machine, err := findMachine(tx, machineID)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		setIfPresent(updates, "name", in.Name)
		setIfPresent(updates, "status", in.Status)
		setIfPresent(updates, "description", in.Description)
		setIfPresent(updates, "procedure", in.Procedure)
		if in.NextMaintenanceDate != nil {
			updates["next_maintenance_date"] = in.NextMaintenanceDate.UTC()
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}

		var property *models.Property
		if in.PropertyID != nil {
			if property, err = findProperty(tx, *in.PropertyID); err != nil {
				return err
			}
			updates["property_id"] = property.ID
		} else if property, err = loadProperty(tx, machine.PropertyRefID); err != nil {
			return err
		}

		switch {
		case in.RoomID != nil && *in.RoomID == "":
			updates["room_id"] = nil
		case in.RoomID != nil:
			room, err := roomInProperty(tx, *in.RoomID, property)
			if err != nil {
				return err
			}
			updates["room_id"] = room.ID
		case in.PropertyID != nil && machine.RoomRefID != nil:
			var room models.Room
			if err := tx.First(&room, *machine.RoomRefID).Error; err != nil {
				return lookupError(err, "room", *machine.RoomRefID)
			}
			if room.PropertyRefID != property.ID {
				return NewValidationError("room_id", "Room does not belong to the machine's property")
			}
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(machine).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update machine: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, machineID)
}

// Delete removes a machine, its maintenance links and the machine_id snapshot on jobs
func (s *MachineService) Delete(ctx context.Context, machineID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		machine, err := findMachine(tx, machineID)
		if err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM preventive_maintenance_machines WHERE machine_id = ?", machine.ID).Error; err != nil {
			return fmt.Errorf("failed to delete machine links: %w", err)
		}
		if err := tx.Model(&models.Job{}).Where("machine_id = ?", machine.MachineID).Update("machine_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach jobs: %w", err)
		}
		if err := tx.Delete(machine).Error; err != nil {
			return fmt.Errorf("failed to delete machine: %w", err)
		}
		return nil
	})
}
