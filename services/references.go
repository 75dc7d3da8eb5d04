package services

import (
	"fmt"

	"github.com/lastnext/maintenance-api/models"
	"gorm.io/gorm"
)

func findProperty(db *gorm.DB, propertyID string) (*models.Property, error) {
	var property models.Property
	if err := db.Where("property_id = ?", propertyID).First(&property).Error; err != nil {
		return nil, lookupError(err, "property", propertyID)
	}
	return &property, nil
}

func findRoom(db *gorm.DB, roomID string) (*models.Room, error) {
	var room models.Room
	if err := db.Where("room_id = ?", roomID).First(&room).Error; err != nil {
		return nil, lookupError(err, "room", roomID)
	}
	return &room, nil
}

func findMachine(db *gorm.DB, machineID string) (*models.Machine, error) {
	var machine models.Machine
	if err := db.Where("machine_id = ?", machineID).First(&machine).Error; err != nil {
		return nil, lookupError(err, "machine", machineID)
	}
	return &machine, nil
}

func findUser(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return nil, lookupError(err, "user", id)
	}
	return &user, nil
}

// roomInProperty loads a room and checks it belongs to the property
func roomInProperty(db *gorm.DB, roomID string, property *models.Property) (*models.Room, error) {
	room, err := findRoom(db, roomID)
	if err != nil {
		return nil, err
	}
	if room.PropertyRefID != property.ID {
		return nil, NewValidationError("room_id", fmt.Sprintf("Room %q does not belong to property %q", roomID, property.PropertyID))
	}
	return room, nil
}

// statusCount is one row of a GROUP BY status aggregate
type statusCount struct {
	Status string
	Count  int64
}

// countByStatus groups the rows matched by q by their status column
func countByStatus(q *gorm.DB) (map[string]int64, error) {
	var rows []statusCount
	if err := q.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
